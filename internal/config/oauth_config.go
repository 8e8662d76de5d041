package config

import (
	"strings"
	"time"

	"github.com/jrsteele09/social-auth/token"
)

const (
	signingSecretVar  = "SIGNING_SECRET"
	signingAlgVar     = "SIGNING_ALG"
	accessTokenTTLVar = "ACCESS_TOKEN_TTL"
	authCodeTTLVar    = "AUTH_CODE_TTL"
	tokenAudienceVar  = "TOKEN_AUDIENCE"
)

type OAuthConfig interface {
	GetSigningSecret() string
	GetSigningAlgorithm() string
	GetAccessTokenTTL() time.Duration
	GetAuthCodeTTL() time.Duration
	GetTokenAudience() string
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

// GetSigningSecret is the HMAC key used when the algorithm is HS256.
func (OAuth) GetSigningSecret() string {
	return GetEnv(signingSecretVar, "")
}

// GetSigningAlgorithm returns HS256, RS256 or ES256.
func (OAuth) GetSigningAlgorithm() string {
	return strings.ToUpper(GetEnv(signingAlgVar, token.HS256))
}

func (OAuth) GetAccessTokenTTL() time.Duration {
	return GetEnvDuration(accessTokenTTLVar, token.DefaultAccessTokenTTL)
}

func (OAuth) GetAuthCodeTTL() time.Duration {
	return GetEnvDuration(authCodeTTLVar, token.DefaultAuthorizationCodeTTL)
}

// GetTokenAudience is written to the aud claim of access tokens. Empty leaves the claim out.
func (OAuth) GetTokenAudience() string {
	return GetEnv(tokenAudienceVar, "")
}
