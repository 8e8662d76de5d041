package oauth2

// TokenResponse represents the response from an OAuth2 token request (RFC 6749 section 5.1).
// No refresh_token or id_token is ever returned.
type TokenResponse struct {
	// AccessToken is the JWT used to access protected resources.
	// Usage: Include in Authorization header: "Bearer <access_token>"
	AccessToken string `json:"access_token"`

	// TokenType is always "Bearer".
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token.
	ExpiresIn int `json:"expires_in,omitempty"`

	// Scope is the space separated list of scopes granted.
	Scope string `json:"scope,omitempty"`
}
