package server

// Route path constants
const (
	// Login
	RouteLogin     = "/login"
	RouteAuthLogin = "/auth/login"

	// OAuth2 Routes
	RouteWellKnownMetadata = "/.well-known/oauth-authorization-server"
	RouteWellKnownJWKS     = "/.well-known/jwks.json"
	RouteOAuth2Authorize   = "/oauth2/authorize"
	RouteOAuth2Token       = "/oauth2/token"
	RouteOAuth2Introspect  = "/oauth2/introspect"
	RouteOAuth2Revoke      = "/oauth2/revoke"

	RouteHealth = "/healthz"
)
