package oauth2

import "strings"

// ResponseType represents the OAuth 2.0 response type.
// Only the authorization code flow is served by this server.
type ResponseType string

const (
	// CodeResponseType indicates the authorization code flow.
	// Example: /oauth2/authorize?response_type=code&client_id=...
	CodeResponseType ResponseType = "code"
)

// ResponseModeType denotes how the authorization response parameters are returned to the client.
type ResponseModeType string

const (
	// QueryResponseMode returns parameters in the URL query string.
	// Example: https://client.example.com/callback?code=ABC123&state=xyz
	QueryResponseMode ResponseModeType = "query"

	// FragmentResponseMode returns parameters in the URL fragment (after #).
	// Example: https://client.example.com/callback#code=ABC123&state=xyz
	FragmentResponseMode ResponseModeType = "fragment"
)

// CodeMethodType represents the PKCE (Proof Key for Code Exchange) challenge method.
type CodeMethodType string

const (
	// CodeMethodTypeS256: code_challenge = BASE64URL(SHA256(code_verifier))
	CodeMethodTypeS256 CodeMethodType = "S256"

	// CodeMethodTypeNone (labeled "plain"): code_challenge = code_verifier
	CodeMethodTypeNone CodeMethodType = "plain"
)

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges an authorization code for an access token.
	// Token request includes: code, client_id, redirect_uri, code_verifier (if PKCE)
	AuthorizationCodeGrant GrantType = "authorization_code"

	// ClientCredentialsGrant allows machine-to-machine authentication.
	// Example: the feed service calling the notification service
	ClientCredentialsGrant GrantType = "client_credentials"

	// RefreshTokenGrant is recognised only so it can be refused; refresh tokens are never issued.
	RefreshTokenGrant GrantType = "refresh_token"
)

// ClientAuthMethod is how a client authenticates at the token, introspection and revocation
// endpoints (RFC 7591 token_endpoint_auth_method).
type ClientAuthMethod string

const (
	// ClientSecretBasic sends client_id and client_secret in the Authorization header.
	ClientSecretBasic ClientAuthMethod = "client_secret_basic"

	// ClientSecretPost sends client_id and client_secret as form parameters.
	ClientSecretPost ClientAuthMethod = "client_secret_post"

	// ClientAuthNone sends only client_id. Used by public clients.
	ClientAuthNone ClientAuthMethod = "none"
)

// TokenTypeHint is the token_type_hint parameter of the introspection and revocation endpoints.
type TokenTypeHint string

const (
	AccessTokenHint  TokenTypeHint = "access_token"
	RefreshTokenHint TokenTypeHint = "refresh_token"
)

// BearerTokenType is the only access token type issued.
const BearerTokenType = "Bearer"

// SplitScope splits a space delimited scope parameter.
func SplitScope(scope string) []string {
	return strings.Fields(scope)
}

// JoinScope builds a space delimited scope parameter.
func JoinScope(scopes []string) string {
	return strings.Join(scopes, " ")
}
