package grants_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/social-auth/clients"
	"github.com/jrsteele09/social-auth/clients/memrepo"
	"github.com/jrsteele09/social-auth/grants"
	"github.com/jrsteele09/social-auth/kv"
	"github.com/jrsteele09/social-auth/oauth2"
)

var issuedAt = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func testClient() *clients.Client {
	return &clients.Client{
		ID:         "client-1",
		ClientID:   "public-client",
		Type:       clients.ClientTypePublic,
		AuthMethod: clients.AuthMethodNone,
		GrantTypes: []oauth2.GrantType{oauth2.AuthorizationCodeGrant},
		Scopes:     []string{"post.read", "user.read"},
	}
}

func testDirectory(t *testing.T) (*memrepo.ClientRepo, *clients.Client) {
	t.Helper()
	client := testClient()
	return memrepo.NewClientRepo(client), client
}

// testGrant builds a fully populated grant whose values survive a round trip unchanged.
func testGrant(id string, client *clients.Client) *grants.Grant {
	g := &grants.Grant{
		ID:               id,
		ClientID:         client.ID,
		PrincipalName:    "alice",
		GrantType:        oauth2.AuthorizationCodeGrant,
		AuthorizedScopes: []string{"post.read", "user.read"},
		AuthorizationCode: &grants.AuthorizationCode{Token: grants.Token{
			Value:     "code-" + id,
			IssuedAt:  issuedAt,
			ExpiresAt: issuedAt.Add(5 * time.Minute),
			Metadata:  map[string]any{grants.MetadataInvalidated: false},
		}},
		AccessToken: &grants.AccessToken{
			Token: grants.Token{
				Value:     "access-" + id,
				IssuedAt:  issuedAt,
				ExpiresAt: issuedAt.Add(time.Hour),
				Metadata: map[string]any{
					grants.MetadataInvalidated: false,
					grants.MetadataClaims: map[string]any{
						"sub":   "alice",
						"scope": []any{"post.read", "user.read"},
						"exp":   issuedAt.Add(time.Hour).Unix(),
					},
				},
			},
			Type:   oauth2.BearerTokenType,
			Scopes: []string{"post.read", "user.read"},
		},
		RegisteredClient: client,
	}
	g.SetAttribute(grants.AttrState, "xyz")
	g.SetAttribute(grants.AttrPrincipal, grants.PrincipalSummary{Subject: "alice", Roles: []string{"ROLE_USER"}})
	g.SetAttribute(grants.AttrAuthorizationRequest, map[string]any{
		"client_id":     client.ClientID,
		"response_type": "code",
		"redirect_uri":  "https://app.example.com/callback",
		"scope":         "post.read user.read",
	})
	return g
}

// spyBackend counts the calls reaching the wrapped backend.
type spyBackend struct {
	kv.Store
	mu    sync.Mutex
	calls int
}

func (s *spyBackend) count() {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
}

func (s *spyBackend) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *spyBackend) PutRecord(ctx context.Context, key string, fields map[string]string) error {
	s.count()
	return s.Store.PutRecord(ctx, key, fields)
}

func (s *spyBackend) GetRecord(ctx context.Context, key string) (map[string]string, error) {
	s.count()
	return s.Store.GetRecord(ctx, key)
}

func (s *spyBackend) Put(ctx context.Context, key, value string) error {
	s.count()
	return s.Store.Put(ctx, key, value)
}

func (s *spyBackend) Get(ctx context.Context, key string) (string, error) {
	s.count()
	return s.Store.Get(ctx, key)
}

func (s *spyBackend) Delete(ctx context.Context, keys ...string) error {
	s.count()
	return s.Store.Delete(ctx, keys...)
}
