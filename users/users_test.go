package users_test

import (
	"testing"

	"github.com/jrsteele09/social-auth/users"
	"github.com/stretchr/testify/require"
)

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		password string
		valid    bool
	}{
		{"Passw0rd", true},
		{"short1A", false},
		{"alllowercase1", false},
		{"ALLUPPERCASE1", false},
		{"NoNumbersHere", false},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			err := users.ValidatePasswordStrength(tt.password)
			if tt.valid {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestUser_Password(t *testing.T) {
	u := &users.User{Username: "demo", Roles: []string{users.RoleUser}}
	require.False(t, u.CheckPassword(""), "no password set")
	require.Error(t, u.SetPassword("weak"))

	require.NoError(t, u.SetPassword("Passw0rd!"))
	require.True(t, u.CheckPassword("Passw0rd!"))
	require.False(t, u.CheckPassword("passw0rd!"))

	require.Equal(t, "demo", u.IdentitySubject())
	require.Equal(t, []string{users.RoleUser}, u.IdentityRoles())
	require.True(t, u.HasRole(users.RoleUser))
	require.False(t, u.HasRole(users.RoleAdmin))
}
