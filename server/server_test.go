package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	clientmemrepo "github.com/jrsteele09/social-auth/clients/memrepo"
	"github.com/jrsteele09/social-auth/auth"
	"github.com/jrsteele09/social-auth/grants"
	"github.com/jrsteele09/social-auth/internal/config"
	"github.com/jrsteele09/social-auth/kv/memstore"
	"github.com/jrsteele09/social-auth/server"
	"github.com/jrsteele09/social-auth/sessions"
	"github.com/jrsteele09/social-auth/token"
	usermemrepo "github.com/jrsteele09/social-auth/users/memrepo"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const testState = "af0ifjsldkj"

type testServer struct {
	*httptest.Server
	creds   *server.Credentials
	backend *memstore.Store
	client  *http.Client // does not follow redirects
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	t.Setenv("ENV", "TEST")
	t.Setenv("BASE_URL", "http://localhost:8080")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000")
	cfg := config.New()

	userRepo := usermemrepo.NewUserRepo()
	clientRepo := clientmemrepo.NewClientRepo()
	creds, err := server.Bootstrap(ctx, cfg, clientRepo, userRepo)
	require.NoError(t, err)

	signer, err := token.NewSigner(token.RS256, "")
	require.NoError(t, err)
	tokens := token.New(signer, token.WithIssuer(cfg.GetBaseURL()))

	backend := memstore.New()
	srv, err := server.New(cfg, auth.Repos{
		Users:    userRepo,
		Sessions: sessions.NewKVRepo(backend),
		Clients:  clientRepo,
		Grants:   grants.NewStore(backend, grants.NewMapper(clientRepo)),
	}, tokens, backend)
	require.NoError(t, err)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return &testServer{
		Server:  ts,
		creds:   creds,
		backend: backend,
		client: &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}},
	}
}

func (ts *testServer) authCodeConfig(clientID string, scopes ...string) *oauth2.Config {
	return &oauth2.Config{
		ClientID: clientID,
		Endpoint: oauth2.Endpoint{
			AuthURL:   ts.URL + server.RouteOAuth2Authorize,
			TokenURL:  ts.URL + server.RouteOAuth2Token,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: server.DevRedirectURI,
		Scopes:      scopes,
	}
}

// startAuthorization follows /oauth2/authorize to the login page and returns the session id
func (ts *testServer) startAuthorization(t *testing.T, authURL string) string {
	t.Helper()
	resp, err := ts.client.Get(authURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	loginURL, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, server.RouteLogin, loginURL.Path)
	sessionID := loginURL.Query().Get("session_id")
	require.NotEmpty(t, sessionID)

	page, err := ts.client.Get(ts.URL + loginURL.String())
	require.NoError(t, err)
	defer page.Body.Close()
	require.Equal(t, http.StatusOK, page.StatusCode)
	body, err := io.ReadAll(page.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), sessionID)
	return sessionID
}

// login posts the login form and returns the redirect location
func (ts *testServer) login(t *testing.T, sessionID, username, password string) *url.URL {
	t.Helper()
	resp, err := ts.client.PostForm(ts.URL+server.RouteAuthLogin, url.Values{
		"session_id": {sessionID},
		"username":   {username},
		"password":   {password},
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	return location
}

func (ts *testServer) postForm(t *testing.T, path string, form url.Values, clientID, secret string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if secret != "" {
		req.SetBasicAuth(clientID, secret)
	}
	resp, err := ts.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	if raw, _ := io.ReadAll(resp.Body); len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp, body
}

func (ts *testServer) introspect(t *testing.T, accessToken string) map[string]any {
	t.Helper()
	resp, body := ts.postForm(t, server.RouteOAuth2Introspect, url.Values{"token": {accessToken}},
		server.ResourceServerClientID, ts.creds.ClientSecrets[server.ResourceServerClientID])
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return body
}

func TestAuthorizationCodeFlowWithPKCE(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	conf := ts.authCodeConfig(server.PublicClientID, "post.read", "user.read")

	verifier := oauth2.GenerateVerifier()
	sessionID := ts.startAuthorization(t, conf.AuthCodeURL(testState, oauth2.S256ChallengeOption(verifier)))
	callback := ts.login(t, sessionID, server.DefaultDemoUsername, ts.creds.Passwords[server.DefaultDemoUsername])

	require.Equal(t, server.DevRedirectURI, callback.Scheme+"://"+callback.Host+callback.Path)
	require.Equal(t, testState, callback.Query().Get("state"))
	code := callback.Query().Get("code")
	require.NotEmpty(t, code)

	tok, err := conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	require.NoError(t, err)
	require.Equal(t, "Bearer", tok.TokenType)
	require.Equal(t, "post.read user.read", tok.Extra("scope"))
	require.True(t, tok.Valid())

	introspection := ts.introspect(t, tok.AccessToken)
	require.Equal(t, true, introspection["active"])
	require.Equal(t, server.DefaultDemoUsername, introspection["sub"])
	require.Equal(t, server.DefaultDemoUsername, introspection["username"])
	require.Equal(t, server.PublicClientID, introspection["client_id"])
	require.Equal(t, "post.read user.read", introspection["scope"])
	require.Equal(t, "http://localhost:8080", introspection["iss"])

	// the code is single use
	_, err = conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	var retrieveErr *oauth2.RetrieveError
	require.True(t, errors.As(err, &retrieveErr))
	require.Equal(t, "invalid_grant", retrieveErr.ErrorCode)
	require.Equal(t, http.StatusBadRequest, retrieveErr.Response.StatusCode)
	require.Equal(t, false, ts.introspect(t, tok.AccessToken)["active"])
}

func TestRevocation(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	conf := ts.authCodeConfig(server.PublicClientID, "post.read")

	verifier := oauth2.GenerateVerifier()
	sessionID := ts.startAuthorization(t, conf.AuthCodeURL(testState, oauth2.S256ChallengeOption(verifier)))
	code := ts.login(t, sessionID, server.DefaultDemoUsername, ts.creds.Passwords[server.DefaultDemoUsername]).Query().Get("code")
	tok, err := conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	require.NoError(t, err)

	resp, _ := ts.postForm(t, server.RouteOAuth2Revoke, url.Values{
		"token":           {tok.AccessToken},
		"token_type_hint": {"access_token"},
		"client_id":       {server.PublicClientID},
	}, "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, false, ts.introspect(t, tok.AccessToken)["active"])
	require.Zero(t, ts.backend.Len())

	// unknown tokens are not an error
	resp, _ = ts.postForm(t, server.RouteOAuth2Revoke, url.Values{"token": {"unknown"}, "client_id": {server.PublicClientID}}, "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFragmentResponseMode(t *testing.T) {
	ts := setupTestServer(t)
	conf := ts.authCodeConfig(server.PublicClientID, "post.read")

	authURL := conf.AuthCodeURL(testState,
		oauth2.S256ChallengeOption(oauth2.GenerateVerifier()),
		oauth2.SetAuthURLParam("response_mode", "fragment"))
	callback := ts.login(t, ts.startAuthorization(t, authURL), server.DefaultDemoUsername, ts.creds.Passwords[server.DefaultDemoUsername])

	require.Empty(t, callback.Query().Get("code"))
	fragment, err := url.ParseQuery(callback.Fragment)
	require.NoError(t, err)
	require.NotEmpty(t, fragment.Get("code"))
	require.Equal(t, testState, fragment.Get("state"))
}

func TestScopeEscalationIsDenied(t *testing.T) {
	ts := setupTestServer(t)
	conf := ts.authCodeConfig(server.AdminConsoleClientID, "user.read")

	t.Run("base role", func(t *testing.T) {
		authURL := conf.AuthCodeURL(testState, oauth2.S256ChallengeOption(oauth2.GenerateVerifier()))
		callback := ts.login(t, ts.startAuthorization(t, authURL), server.DefaultDemoUsername, ts.creds.Passwords[server.DefaultDemoUsername])

		require.Equal(t, "access_denied", callback.Query().Get("error"))
		require.Equal(t, testState, callback.Query().Get("state"))
		require.Empty(t, callback.Query().Get("code"))
	})

	t.Run("elevated role", func(t *testing.T) {
		verifier := oauth2.GenerateVerifier()
		authURL := conf.AuthCodeURL(testState, oauth2.S256ChallengeOption(verifier))
		callback := ts.login(t, ts.startAuthorization(t, authURL), server.DefaultAdminUsername, ts.creds.Passwords[server.DefaultAdminUsername])
		require.Empty(t, callback.Query().Get("error"))

		tok, err := conf.Exchange(context.Background(), callback.Query().Get("code"), oauth2.VerifierOption(verifier))
		require.NoError(t, err)
		require.Equal(t, server.DefaultAdminUsername, ts.introspect(t, tok.AccessToken)["sub"])
	})
}

func TestLoginFailureReturnsToLoginPage(t *testing.T) {
	ts := setupTestServer(t)
	conf := ts.authCodeConfig(server.PublicClientID, "post.read")
	sessionID := ts.startAuthorization(t, conf.AuthCodeURL(testState, oauth2.S256ChallengeOption(oauth2.GenerateVerifier())))

	location := ts.login(t, sessionID, server.DefaultDemoUsername, "wrong-Passw0rd")
	require.Equal(t, server.RouteLogin, location.Path)
	require.Equal(t, sessionID, location.Query().Get("session_id"))
	require.Equal(t, "invalid_credentials", location.Query().Get("error"))

	resp, err := ts.client.PostForm(ts.URL+server.RouteAuthLogin, url.Values{
		"session_id": {"unknown"},
		"username":   {server.DefaultDemoUsername},
		"password":   {ts.creds.Passwords[server.DefaultDemoUsername]},
	})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoginPage(t *testing.T) {
	ts := setupTestServer(t)

	resp, err := ts.client.Get(ts.URL + server.RouteLogin + "?session_id=abc&error=invalid_credentials&username=demo")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	page := string(body)
	require.Contains(t, page, "Invalid username or password")
	require.Contains(t, page, `name="session_id" value="abc"`)
	require.Contains(t, page, `value="demo"`)

	missing, err := ts.client.Get(ts.URL + server.RouteLogin)
	require.NoError(t, err)
	missing.Body.Close()
	require.Equal(t, http.StatusBadRequest, missing.StatusCode)
}

func TestAuthorizeErrors(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name   string
		query  url.Values
		status int
		code   string
	}{
		{"unknown client", url.Values{"client_id": {"nobody"}, "response_type": {"code"}, "redirect_uri": {server.DevRedirectURI}}, http.StatusUnauthorized, "invalid_client"},
		{"missing PKCE", url.Values{"client_id": {server.PublicClientID}, "response_type": {"code"}, "redirect_uri": {server.DevRedirectURI}}, http.StatusBadRequest, "invalid_request"},
		{"scope not allowed", url.Values{
			"client_id": {server.PublicClientID}, "response_type": {"code"}, "redirect_uri": {server.DevRedirectURI},
			"scope": {"report.read"}, "code_challenge": {oauth2.S256ChallengeFromVerifier(oauth2.GenerateVerifier())}, "code_challenge_method": {"S256"},
		}, http.StatusBadRequest, "invalid_scope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ts.client.Get(ts.URL + server.RouteOAuth2Authorize + "?" + tt.query.Encode())
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, tt.status, resp.StatusCode)

			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			require.Equal(t, tt.code, body["error"])
		})
	}
}

func TestClientCredentials(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()

	conf := &clientcredentials.Config{
		ClientID:     server.FeedServiceClientID,
		ClientSecret: ts.creds.ClientSecrets[server.FeedServiceClientID],
		TokenURL:     ts.URL + server.RouteOAuth2Token,
		Scopes:       []string{"post.read"},
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	tok, err := conf.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "post.read", tok.Extra("scope"))

	introspection := ts.introspect(t, tok.AccessToken)
	require.Equal(t, true, introspection["active"])
	require.Equal(t, server.FeedServiceClientID, introspection["sub"])
	require.NotContains(t, introspection, "username")

	conf.ClientSecret = "wrong"
	_, err = conf.Token(ctx)
	var retrieveErr *oauth2.RetrieveError
	require.True(t, errors.As(err, &retrieveErr))
	require.Equal(t, "invalid_client", retrieveErr.ErrorCode)
	require.Equal(t, http.StatusUnauthorized, retrieveErr.Response.StatusCode)
}

func TestIntrospectionRequiresConfidentialClient(t *testing.T) {
	ts := setupTestServer(t)

	resp, body := ts.postForm(t, server.RouteOAuth2Introspect, url.Values{"token": {"anything"}, "client_id": {server.PublicClientID}}, "", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "invalid_client", body["error"])

	require.Equal(t, map[string]any{"active": false}, ts.introspect(t, "unknown-token"))

	// anonymous callers are rejected before the missing token is noticed
	resp, body = ts.postForm(t, server.RouteOAuth2Introspect, url.Values{}, "", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "invalid_client", body["error"])

	resp, body = ts.postForm(t, server.RouteOAuth2Introspect, url.Values{},
		server.ResourceServerClientID, ts.creds.ClientSecrets[server.ResourceServerClientID])
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_request", body["error"])
}

func TestClientAuthMethodIsEnforced(t *testing.T) {
	ts := setupTestServer(t)
	feedSecret := ts.creds.ClientSecrets[server.FeedServiceClientID]

	// feed-service is registered for client_secret_basic
	resp, body := ts.postForm(t, server.RouteOAuth2Token, url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {server.FeedServiceClientID},
		"client_secret": {feedSecret},
	}, "", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "invalid_client", body["error"])

	resp, body = ts.postForm(t, server.RouteOAuth2Token, url.Values{
		"grant_type":    {"client_credentials"},
		"client_secret": {feedSecret},
	}, server.FeedServiceClientID, feedSecret)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_request", body["error"])

	resp, body = ts.postForm(t, server.RouteOAuth2Token, url.Values{"grant_type": {"client_credentials"}},
		server.FeedServiceClientID, feedSecret)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, body["access_token"])
}

func TestUnsupportedGrantType(t *testing.T) {
	ts := setupTestServer(t)
	resp, body := ts.postForm(t, server.RouteOAuth2Token, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {"anything"},
		"client_id":     {server.PublicClientID},
	}, "", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "unsupported_grant_type", body["error"])
}

func TestDiscoveryAndHealth(t *testing.T) {
	ts := setupTestServer(t)

	getJSON := func(path string) map[string]any {
		resp, err := ts.client.Get(ts.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return body
	}

	metadata := getJSON(server.RouteWellKnownMetadata)
	require.Equal(t, "http://localhost:8080", metadata["issuer"])
	require.Equal(t, "http://localhost:8080"+server.RouteOAuth2Token, metadata["token_endpoint"])
	require.Equal(t, "http://localhost:8080"+server.RouteWellKnownJWKS, metadata["jwks_uri"])
	require.Contains(t, metadata["scopes_supported"], "report.read")

	jwks := getJSON(server.RouteWellKnownJWKS)
	require.Len(t, jwks["keys"], 1)

	require.Equal(t, "ok", getJSON(server.RouteHealth)["status"])
}

func TestCorsPreflight(t *testing.T) {
	ts := setupTestServer(t)

	preflight := func(origin string) *http.Response {
		req, err := http.NewRequest(http.MethodOptions, ts.URL+server.RouteOAuth2Token, nil)
		require.NoError(t, err)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		resp, err := ts.client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	resp := preflight("http://localhost:3000")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")

	resp = preflight("https://evil.example.com")
	require.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestBootstrapIsIdempotent(t *testing.T) {
	ctx := context.Background()
	t.Setenv("ENV", "TEST")
	cfg := config.New()
	userRepo := usermemrepo.NewUserRepo()
	clientRepo := clientmemrepo.NewClientRepo()

	first, err := server.Bootstrap(ctx, cfg, clientRepo, userRepo)
	require.NoError(t, err)
	require.Len(t, first.ClientSecrets, 2)
	require.Len(t, first.Passwords, 2)

	registered, err := clientRepo.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, registered, 4)

	feed, err := clientRepo.FindByClientID(ctx, server.FeedServiceClientID)
	require.NoError(t, err)
	require.True(t, feed.CheckSecret(first.ClientSecrets[server.FeedServiceClientID]))

	second, err := server.Bootstrap(ctx, cfg, clientRepo, userRepo)
	require.NoError(t, err)
	require.Empty(t, second.ClientSecrets)
	require.Empty(t, second.Passwords)
}
