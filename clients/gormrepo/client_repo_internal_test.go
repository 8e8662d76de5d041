package gormrepo

import (
	"testing"
	"time"

	"github.com/jrsteele09/social-auth/clients"
	"github.com/jrsteele09/social-auth/oauth2"
	"github.com/stretchr/testify/require"
)

func TestClientModel_RoundTrip(t *testing.T) {
	c := &clients.Client{
		ID:           "id-1",
		ClientID:     "public-client",
		Type:         clients.ClientTypePublic,
		Description:  "web app",
		AuthMethod:   clients.AuthMethodNone,
		GrantTypes:   []oauth2.GrantType{oauth2.AuthorizationCodeGrant},
		RedirectURIs: []string{"http://localhost:3000/callback", "http://127.0.0.1:3000/callback"},
		Scopes:       []string{"post.read", "post.write"},
		TokenSettings: clients.TokenSettings{
			AuthorizationCodeTTL: 5 * time.Minute,
			AccessTokenTTL:       time.Hour,
		},
	}

	row := clientModelFromEntity(c)
	require.Equal(t, "post.read post.write", row.Scopes)
	require.Equal(t, int64(300), row.AuthorizationCodeTTL)
	require.Equal(t, "registered_clients", row.TableName())

	require.Equal(t, c, row.toEntity())
}

func TestClientModel_EmptyLists(t *testing.T) {
	row := clientModel{ID: "id-2", ClientID: "svc"}
	c := row.toEntity()

	require.Nil(t, c.GrantTypes)
	require.Empty(t, c.Scopes)
	require.Empty(t, c.RedirectURIs)
}
