package oauth2

// TokenRequest holds parameters for the OAuth2 token request.
// Supports the authorization_code and client_credentials grant types.
type TokenRequest struct {
	// GrantType selects the flow.
	GrantType GrantType `validate:"required"`

	// ClientID identifies the OAuth2 client making the request.
	// Taken from HTTP Basic credentials when present, otherwise from the form.
	ClientID string `validate:"required"`

	// ClientSecret is the secret credential for confidential clients.
	// Security: Never log or expose this value
	ClientSecret string

	// AuthMethod records how the credentials above reached the server.
	AuthMethod ClientAuthMethod

	// Code is the authorization code received from the authorization endpoint.
	// Usage: Exchanged once for a token, then becomes invalid
	Code string `validate:"required_if=GrantType authorization_code"`

	// RedirectURI must match the one sent to the authorization endpoint.
	RedirectURI string

	// CodeVerifier is the PKCE code verifier that matches the code_challenge.
	// Validation: RFC 7636 specifies 43-128 characters
	CodeVerifier string `validate:"omitempty,min=43,max=128"`

	// Scope optionally narrows the scopes of a client_credentials token.
	Scope string
}

// Credentials returns the client authentication part of the request.
func (r TokenRequest) Credentials() ClientCredentials {
	return ClientCredentials{ClientID: r.ClientID, ClientSecret: r.ClientSecret, Method: r.AuthMethod}
}

// ClientCredentials is what a client presented to authenticate a request, and how.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
	Method       ClientAuthMethod
}
