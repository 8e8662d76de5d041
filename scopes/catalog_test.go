package scopes_test

import (
	"testing"

	"github.com/jrsteele09/social-auth/scopes"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Default(t *testing.T) {
	c := scopes.Default()

	require.True(t, c.Contains(scopes.PostRead))
	require.False(t, c.IsPrivileged(scopes.PostRead))
	require.True(t, c.IsPrivileged(scopes.ReportRead))
	require.False(t, c.Contains("test"))
	require.Equal(t, []string{scopes.PostModerate, scopes.ReportRead, scopes.ReportWrite, scopes.UserDelete}, c.Privileged())
	require.Len(t, c.All(), 12)

	for _, s := range c.All() {
		require.True(t, scopes.ValidName(s), s)
	}
}

func TestCatalog_PrivilegedWins(t *testing.T) {
	c := scopes.NewCatalog([]string{"a.read", "a.admin"}, []string{"a.admin"})

	require.True(t, c.IsPrivileged("a.admin"))
	require.Equal(t, []string{"a.admin", "a.read"}, c.All())
}

func TestCatalog_PrivilegedIn(t *testing.T) {
	c := scopes.Default()

	require.Empty(t, c.PrivilegedIn([]string{"test", scopes.PostRead}))
	require.Equal(t, []string{scopes.ReportRead}, c.PrivilegedIn([]string{scopes.PostRead, scopes.ReportRead}))
}

func TestCatalog_ZeroValue(t *testing.T) {
	var c scopes.Catalog

	require.False(t, c.Contains(scopes.PostRead))
	require.Empty(t, c.All())
	require.Empty(t, c.PrivilegedIn([]string{scopes.ReportRead}))
}

func TestAuthorities(t *testing.T) {
	require.Equal(t, "SCOPE_post.read", scopes.Authority(scopes.PostRead))
	require.Equal(t, []string{"SCOPE_user.read", "SCOPE_report.read"}, scopes.Authorities([]string{scopes.UserRead, scopes.ReportRead}))
	require.False(t, scopes.ValidName("post"))
	require.False(t, scopes.ValidName("Post.Read"))
}
