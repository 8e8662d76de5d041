package guard_test

import (
	"testing"

	"github.com/jrsteele09/social-auth/clients"
	"github.com/jrsteele09/social-auth/guard"
	"github.com/jrsteele09/social-auth/oauth2"
	"github.com/jrsteele09/social-auth/scopes"
	"github.com/stretchr/testify/require"
)

func TestGuard_Check(t *testing.T) {
	g := guard.New(scopes.Default(), guard.DefaultBaseRole)

	publicClient := &clients.Client{ID: "c-1", ClientID: "public-client", Scopes: []string{"test"}}
	adminClient := &clients.Client{ID: "c-2", ClientID: "admin-console", Scopes: []string{"post.read", scopes.ReportRead}}

	user := guard.Authenticated{Name: "demo", Roles: []string{"ROLE_USER"}}
	admin := guard.Authenticated{Name: "admin", Roles: []string{"ROLE_ADMIN"}}

	tests := []struct {
		name      string
		principal guard.Principal
		client    *clients.Client
		denied    bool
	}{
		{"base role with ordinary client", user, publicClient, false},
		{"base role with privileged client", user, adminClient, true},
		{"base role by pointer", &user, adminClient, true},
		{"elevated role with privileged client", admin, adminClient, false},
		{"anonymous with privileged client", guard.Anonymous{}, adminClient, false},
		{"nil principal", nil, adminClient, false},
		{"base role without client", user, nil, false},
		{"base and elevated roles", guard.Authenticated{Name: "mod", Roles: []string{"ROLE_USER", "ROLE_MODERATOR"}}, adminClient, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Check(guard.RequestContext{Principal: tt.principal, Client: tt.client})
			if !tt.denied {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, guard.ErrScopeEscalation)
			var oauthErr *oauth2.Error
			require.ErrorAs(t, err, &oauthErr)
			require.Equal(t, oauth2.ErrorAccessDenied, oauthErr.Code)
			require.Contains(t, oauthErr.Description, scopes.ReportRead)
		})
	}
}

func TestGuard_CustomBaseRoleAndCatalog(t *testing.T) {
	catalog := scopes.NewCatalog([]string{"test"}, []string{"test.admin"})
	g := guard.New(catalog, "member")
	client := &clients.Client{ClientID: "tooling", Scopes: []string{"test.admin"}}

	require.Error(t, g.Check(guard.RequestContext{Principal: guard.Authenticated{Name: "a", Roles: []string{"member"}}, Client: client}))
	require.NoError(t, g.Check(guard.RequestContext{Principal: guard.Authenticated{Name: "b", Roles: []string{"ROLE_USER"}}, Client: client}))
}

func TestGuard_DoesNotMutateClient(t *testing.T) {
	client := &clients.Client{ClientID: "admin-console", Scopes: []string{scopes.ReportRead, "post.read"}}
	_ = guard.New(scopes.Default(), "").Check(guard.RequestContext{
		Principal: guard.Authenticated{Name: "demo", Roles: []string{guard.DefaultBaseRole}},
		Client:    client,
	})
	require.Equal(t, []string{scopes.ReportRead, "post.read"}, client.Scopes)
}
