package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jrsteele09/social-auth/auth"
	clientmemrepo "github.com/jrsteele09/social-auth/clients/memrepo"
	"github.com/jrsteele09/social-auth/grants"
	"github.com/jrsteele09/social-auth/internal/config"
	"github.com/jrsteele09/social-auth/kv/boltstore"
	"github.com/jrsteele09/social-auth/server"
	"github.com/jrsteele09/social-auth/sessions"
	"github.com/jrsteele09/social-auth/token"
	usermemrepo "github.com/jrsteele09/social-auth/users/memrepo"
	"github.com/stretchr/testify/require"
)

// bootOnBolt starts a server the way cmd/server does with STORE_BACKEND=bolt and no DATABASE_URL.
// The returned func stops the server and closes the bolt file.
func bootOnBolt(t *testing.T, fileName string) (*httptest.Server, *server.Credentials, *clientmemrepo.ClientRepo, func()) {
	t.Helper()
	ctx := context.Background()
	cfg := config.New()

	backend, err := boltstore.New(fileName)
	require.NoError(t, err)

	clientRepo := clientmemrepo.NewClientRepo()
	userRepo := usermemrepo.NewUserRepo()
	creds, err := server.Bootstrap(ctx, cfg, clientRepo, userRepo)
	require.NoError(t, err)

	tokens := token.New(token.NewHMACSigner(strings.Repeat("k", 32)), token.WithIssuer(cfg.GetBaseURL()))
	srv, err := server.New(cfg, auth.Repos{
		Users:    userRepo,
		Sessions: sessions.NewKVRepo(backend),
		Clients:  clientRepo,
		Grants:   grants.NewStore(backend, grants.NewMapper(clientRepo)),
	}, tokens, backend)
	require.NoError(t, err)

	ts := httptest.NewServer(srv)
	return ts, creds, clientRepo, func() {
		ts.Close()
		require.NoError(t, backend.Close())
	}
}

func postWithBasicAuth(t *testing.T, target string, form url.Values, clientID, secret string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(clientID, secret)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestGrantsSurviveRestartWithInMemoryClients(t *testing.T) {
	t.Setenv("ENV", "TEST")
	t.Setenv("BASE_URL", "http://localhost:8080")
	fileName := filepath.Join(t.TempDir(), "grants.db")

	ts, creds, _, stop := bootOnBolt(t, fileName)
	status, body := postWithBasicAuth(t, ts.URL+server.RouteOAuth2Token, url.Values{"grant_type": {"client_credentials"}},
		server.FeedServiceClientID, creds.ClientSecrets[server.FeedServiceClientID])
	require.Equal(t, http.StatusOK, status)
	accessToken, ok := body["access_token"].(string)
	require.True(t, ok)
	stop()

	ts, creds, clientRepo, stop := bootOnBolt(t, fileName)
	defer stop()

	feed, err := clientRepo.FindByClientID(context.Background(), server.FeedServiceClientID)
	require.NoError(t, err)
	require.Equal(t, server.SeedClientID(server.FeedServiceClientID), feed.ID)

	status, body = postWithBasicAuth(t, ts.URL+server.RouteOAuth2Introspect, url.Values{"token": {accessToken}},
		server.ResourceServerClientID, creds.ClientSecrets[server.ResourceServerClientID])
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["active"])
	require.Equal(t, server.FeedServiceClientID, body["client_id"])
}

func TestSeedClientID(t *testing.T) {
	require.Equal(t, server.SeedClientID(server.PublicClientID), server.SeedClientID(server.PublicClientID))
	require.NotEqual(t, server.SeedClientID(server.PublicClientID), server.SeedClientID(server.FeedServiceClientID))
}
