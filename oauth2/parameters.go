package oauth2

// AuthorizationParameters holds parameters for the OAuth2 authorization request.
// These are received as query parameters at the /oauth2/authorize endpoint.
type AuthorizationParameters struct {
	// ClientID identifies the application requesting authorization.
	// Validated against: clients.Client.ClientID in the directory
	ClientID string `json:"client_id" validate:"required"`

	// ResponseType must be "code".
	ResponseType ResponseType `json:"response_type" validate:"required"`

	// RedirectURI is where the authorization response will be sent.
	// Security: Must exactly match a pre-registered URI to prevent open redirects
	RedirectURI string `json:"redirect_uri" validate:"required,url"`

	// ResponseMode controls how the response is returned (query/fragment). Defaults to query.
	ResponseMode ResponseModeType `json:"response_mode,omitempty" validate:"omitempty,oneof=query fragment"`

	// Scope is the space separated list of requested scopes.
	// Validated against: clients.Client.Scopes
	Scope string `json:"scope,omitempty"`

	// State is echoed back to the client on the redirect.
	State string `json:"state,omitempty" validate:"max=1024"`

	// CodeChallenge is the PKCE challenge derived from code_verifier.
	// Required for public clients.
	CodeChallenge string `json:"code_challenge,omitempty" validate:"omitempty,min=43,max=128"`

	// CodeChallengeMethod is "S256" or "plain".
	CodeChallengeMethod CodeMethodType `json:"code_challenge_method,omitempty" validate:"omitempty,oneof=S256 plain"`
}

// Scopes returns the requested scopes.
func (p *AuthorizationParameters) Scopes() []string {
	return SplitScope(p.Scope)
}

// ToMap returns the parameters as a plain map so they can be kept with a grant.
func (p *AuthorizationParameters) ToMap() map[string]any {
	m := map[string]any{
		"client_id":     p.ClientID,
		"response_type": string(p.ResponseType),
		"redirect_uri":  p.RedirectURI,
	}
	optional := map[string]string{
		"response_mode":         string(p.ResponseMode),
		"scope":                 p.Scope,
		"state":                 p.State,
		"code_challenge":        p.CodeChallenge,
		"code_challenge_method": string(p.CodeChallengeMethod),
	}
	for k, v := range optional {
		if v != "" {
			m[k] = v
		}
	}
	return m
}

// AuthorizationParametersFromMap is the inverse of ToMap.
func AuthorizationParametersFromMap(m map[string]any) *AuthorizationParameters {
	str := func(key string) string {
		s, _ := m[key].(string)
		return s
	}
	return &AuthorizationParameters{
		ClientID:            str("client_id"),
		ResponseType:        ResponseType(str("response_type")),
		RedirectURI:         str("redirect_uri"),
		ResponseMode:        ResponseModeType(str("response_mode")),
		Scope:               str("scope"),
		State:               str("state"),
		CodeChallenge:       str("code_challenge"),
		CodeChallengeMethod: CodeMethodType(str("code_challenge_method")),
	}
}
