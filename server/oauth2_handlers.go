package server

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/jrsteele09/social-auth/auth"
	"github.com/jrsteele09/social-auth/oauth2"
	"github.com/jrsteele09/social-auth/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"
)

// WellKnownMetadata serves the RFC 8414 authorization server metadata
func (s *Server) WellKnownMetadata() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		baseURL := s.tokens.Issuer()

		resp := map[string]any{
			"issuer":                 baseURL,
			"authorization_endpoint": baseURL + RouteOAuth2Authorize,
			"token_endpoint":         baseURL + RouteOAuth2Token,
			"revocation_endpoint":    baseURL + RouteOAuth2Revoke,
			"introspection_endpoint": baseURL + RouteOAuth2Introspect,

			"response_types_supported": []string{string(oauth2.CodeResponseType)},
			"response_modes_supported": []string{string(oauth2.QueryResponseMode), string(oauth2.FragmentResponseMode)},
			"grant_types_supported": []string{
				string(oauth2.AuthorizationCodeGrant),
				string(oauth2.ClientCredentialsGrant),
			},
			"code_challenge_methods_supported": []string{string(oauth2.CodeMethodTypeS256), string(oauth2.CodeMethodTypeNone)},
			"token_endpoint_auth_methods_supported": []string{
				"client_secret_basic",
				"client_secret_post",
				"none", // For public clients with PKCE
			},
			"introspection_endpoint_auth_methods_supported": []string{"client_secret_basic", "client_secret_post"},
			"revocation_endpoint_auth_methods_supported":    []string{"client_secret_basic", "client_secret_post", "none"},
			"scopes_supported": s.catalog.All(),
		}
		if _, err := s.tokens.GetJWKS(); err == nil {
			resp["jwks_uri"] = baseURL + RouteWellKnownJWKS
		}

		w.Header().Set("Cache-Control", "public, max-age=3600")
		writeJSON(w, http.StatusOK, resp)
	}
}

// JWKS returns the JSON Web Key Set used to validate access tokens
func (s *Server) JWKS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jwks, err := s.tokens.GetJWKS()
		if errors.Is(err, token.ErrNoPublicKeys) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			writeJSONError(w, r, err)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=3600")
		writeJSON(w, http.StatusOK, jwks)
	}
}

// Authorize begins the authorization flow
func (s *Server) Authorize() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := parseAuthorizationParameters(r)

		// The login page carries the session id through the form
		loginRedirect := func(sessionID string) {
			http.Redirect(w, r, RouteLogin+"?session_id="+url.QueryEscape(sessionID), http.StatusSeeOther)
		}

		if err := s.auth.Authorize(r.Context(), params, loginRedirect); err != nil {
			writeJSONError(w, r, err)
			return
		}
	}
}

// Token exchanges code/credentials for tokens
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, r, oauth2.Errorf(oauth2.ErrorInvalidRequest, err, "failed to parse form data"))
			return
		}
		creds, err := clientCredentials(r)
		if err != nil {
			writeJSONError(w, r, err)
			return
		}

		tokenReq := oauth2.TokenRequest{
			GrantType:    oauth2.GrantType(r.PostFormValue("grant_type")),
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			AuthMethod:   creds.Method,
			Code:         r.PostFormValue("code"),
			RedirectURI:  r.PostFormValue("redirect_uri"),
			CodeVerifier: r.PostFormValue("code_verifier"),
			Scope:        r.PostFormValue("scope"),
		}

		tokenResponse, err := s.auth.Token(r.Context(), tokenReq)
		if err != nil {
			writeJSONError(w, r, err)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		writeJSON(w, http.StatusOK, tokenResponse)
	}
}

// Introspect introspects access tokens for confidential clients
func (s *Server) Introspect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, r, oauth2.Errorf(oauth2.ErrorInvalidRequest, err, "failed to parse form data"))
			return
		}
		creds, err := clientCredentials(r)
		if err != nil {
			writeJSONError(w, r, err)
			return
		}

		introspection, err := s.auth.IntrospectToken(r.Context(), r.PostFormValue("token"), creds)
		if err != nil {
			writeJSONError(w, r, err)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, introspection)
	}
}

// Revoke revokes tokens (RFC 7009). Unknown tokens are not an error.
func (s *Server) Revoke() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, r, oauth2.Errorf(oauth2.ErrorInvalidRequest, err, "failed to parse form data"))
			return
		}
		creds, err := clientCredentials(r)
		if err != nil {
			writeJSONError(w, r, err)
			return
		}
		hint := oauth2.TokenTypeHint(r.PostFormValue("token_type_hint"))

		if err := s.auth.RevokeToken(r.Context(), r.PostFormValue("token"), hint, creds); err != nil {
			writeJSONError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// Health reports whether the grant backend is reachable
func (s *Server) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.backend.Ping(r.Context()); err != nil {
			log.Error().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// Helper functions

// callbackRedirect sends the authorization response to the client's redirect URI using the
// requested response mode (query or fragment).
func callbackRedirect(w http.ResponseWriter, r *http.Request, resp auth.AuthorizationResponse) error {
	u, err := url.Parse(resp.RedirectURI)
	if err != nil {
		return errors.Wrap(err, "[callbackRedirect] invalid redirect URI")
	}

	params := url.Values{}
	if resp.Error != nil {
		params.Set("error", string(resp.Error.Code))
		if resp.Error.Description != "" {
			params.Set("error_description", resp.Error.Description)
		}
	} else {
		params.Set("code", resp.Code)
	}
	if resp.State != "" {
		params.Set("state", resp.State)
	}

	switch resp.ResponseMode {
	case oauth2.FragmentResponseMode:
		u.Fragment = params.Encode()
	default: // QueryResponseMode or empty (default)
		q := u.Query()
		for k, v := range params {
			q[k] = v
		}
		u.RawQuery = q.Encode()
	}
	http.Redirect(w, r, u.String(), http.StatusSeeOther)
	return nil
}

// parseAuthorizationParameters extracts OAuth2 authorization parameters from the query string
func parseAuthorizationParameters(r *http.Request) *oauth2.AuthorizationParameters {
	q := r.URL.Query()
	return &oauth2.AuthorizationParameters{
		ClientID:            q.Get("client_id"),
		ResponseType:        oauth2.ResponseType(q.Get("response_type")),
		RedirectURI:         q.Get("redirect_uri"),
		ResponseMode:        oauth2.ResponseModeType(q.Get("response_mode")),
		Scope:               q.Get("scope"),
		State:               q.Get("state"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: oauth2.CodeMethodType(q.Get("code_challenge_method")),
	}
}

// clientCredentials reads the client credentials and records how they were sent: HTTP Basic,
// client_secret in the form, or a bare client_id. Using more than one method is rejected
// (RFC 6749 section 2.3). Basic credentials are form-encoded before being base64 encoded
// (RFC 6749 section 2.3.1).
func clientCredentials(r *http.Request) (oauth2.ClientCredentials, error) {
	if id, secret, ok := r.BasicAuth(); ok {
		if r.PostFormValue("client_secret") != "" {
			return oauth2.ClientCredentials{}, oauth2.NewError(oauth2.ErrorInvalidRequest, "client credentials sent with more than one method")
		}
		if unescaped, err := url.QueryUnescape(id); err == nil {
			id = unescaped
		}
		if unescaped, err := url.QueryUnescape(secret); err == nil {
			secret = unescaped
		}
		return oauth2.ClientCredentials{ClientID: id, ClientSecret: secret, Method: oauth2.ClientSecretBasic}, nil
	}
	creds := oauth2.ClientCredentials{
		ClientID:     r.PostFormValue("client_id"),
		ClientSecret: r.PostFormValue("client_secret"),
		Method:       oauth2.ClientAuthNone,
	}
	if creds.ClientSecret != "" {
		creds.Method = oauth2.ClientSecretPost
	}
	return creds, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("failed to write response")
	}
}

// writeJSONError writes an OAuth2 error response
func writeJSONError(w http.ResponseWriter, r *http.Request, err error) {
	oauthErr := auth.OAuthError(err)
	status := auth.HTTPStatus(oauthErr)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	} else {
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("request rejected")
	}
	if oauthErr.Code == oauth2.ErrorInvalidClient {
		if _, _, ok := r.BasicAuth(); ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="oauth2"`)
		}
	}
	body := map[string]string{"error": string(oauthErr.Code)}
	if oauthErr.Description != "" {
		body["error_description"] = oauthErr.Description
	}
	writeJSON(w, status, body)
}
