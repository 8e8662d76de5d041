package oauth2

// TokenIntrospection is the RFC 7662 introspection response.
// When Active is false no other field is populated.
type TokenIntrospection struct {
	Active    bool    `json:"active"`               // Is the token currently valid
	Scope     *string `json:"scope,omitempty"`      // Space separated scopes
	ClientID  *string `json:"client_id,omitempty"`  // Client the token was issued to
	Username  *string `json:"username,omitempty"`   // Resource owner name
	TokenType *string `json:"token_type,omitempty"` // Always Bearer
	Exp       *int64  `json:"exp,omitempty"`        // Expiration
	Iat       *int64  `json:"iat,omitempty"`        // Issued at time
	Sub       *string `json:"sub,omitempty"`        // Principal name
	Iss       *string `json:"iss,omitempty"`        // Issuer of the token
	UID       *string `json:"uid,omitempty"`        // Stable identifier of the token owner
}

// InactiveToken is the response for unknown, expired or revoked tokens.
func InactiveToken() *TokenIntrospection {
	return &TokenIntrospection{Active: false}
}
