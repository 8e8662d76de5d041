package config

import (
	"time"

	"github.com/jrsteele09/social-auth/guard"
)

const (
	maxSessionAgeVar = "MAX_SESSION_AGE"
	baseRoleVar      = "BASE_ROLE"
)

type SecurityConfig interface {
	GetMaxSessionAge() time.Duration
	GetBaseRole() string
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetMaxSessionAge bounds the time a user has to log in after /oauth2/authorize.
func (Security) GetMaxSessionAge() time.Duration {
	return GetEnvDuration(maxSessionAgeVar, 15*time.Minute)
}

// GetBaseRole is the role that may not be granted privileged scopes.
func (Security) GetBaseRole() string {
	return GetEnv(baseRoleVar, guard.DefaultBaseRole)
}
