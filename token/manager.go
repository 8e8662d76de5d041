// Package token mints the authorization codes and JWT access tokens attached to grants.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/social-auth/oauth2"
	"github.com/jrsteele09/social-auth/scopes"
	"github.com/pkg/errors"
)

const (
	DefaultAccessTokenTTL       = 15 * time.Minute
	DefaultAuthorizationCodeTTL = 5 * time.Minute
)

// AccessTokenRequest describes the access token to mint.
type AccessTokenRequest struct {
	Subject  string   // username, or client_id for client_credentials
	UserID   string   // stable owner id, empty for client_credentials
	ClientID string   // public client_id
	Scopes   []string
	Roles    []string
	TTL      time.Duration // zero uses the manager default
}

// AccessToken is a signed JWT and the claims it carries.
type AccessToken struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	// Claims holds only strings, []string and int64 values so it can be kept in grant metadata.
	Claims map[string]any
}

// Code is an opaque authorization code.
type Code struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type Manager struct {
	signer            Signer
	issuer            string
	audience          string
	accessTokenExpiry time.Duration
	codeExpiry        time.Duration
	nowFunc           func() time.Time
}

type ManagerOption func(*Manager)

func WithTokenExpiry(accessTokenExpiry, codeExpiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = accessTokenExpiry
		m.codeExpiry = codeExpiry
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

func WithAudience(audience string) ManagerOption {
	return func(m *Manager) {
		m.audience = audience
	}
}

func New(signer Signer, options ...ManagerOption) *Manager {
	m := &Manager{signer: signer}
	for _, opt := range options {
		opt(m)
	}
	if m.accessTokenExpiry <= 0 {
		m.accessTokenExpiry = DefaultAccessTokenTTL
	}
	if m.codeExpiry <= 0 {
		m.codeExpiry = DefaultAuthorizationCodeTTL
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m
}

func (m *Manager) Issuer() string { return m.issuer }

// Now returns the manager clock truncated to the second, the resolution of JWT timestamps.
func (m *Manager) Now() time.Time {
	return m.nowFunc().UTC().Truncate(time.Second)
}

// NewAuthorizationCode returns a random one-time code valid for ttl, or the default code lifetime
// when ttl is zero.
func (m *Manager) NewAuthorizationCode(ttl time.Duration) (*Code, error) {
	if ttl <= 0 {
		ttl = m.codeExpiry
	}
	value, err := randomToken(32)
	if err != nil {
		return nil, errors.Wrap(err, "Manager.NewAuthorizationCode")
	}
	now := m.Now()
	return &Code{Value: value, IssuedAt: now, ExpiresAt: now.Add(ttl)}, nil
}

// MintAccessToken signs a JWT access token for req.
func (m *Manager) MintAccessToken(req AccessTokenRequest) (*AccessToken, error) {
	ttl := req.TTL
	if ttl <= 0 {
		ttl = m.accessTokenExpiry
	}
	now := m.Now()
	exp := now.Add(ttl)

	claims := map[string]any{
		"iss":       m.issuer,                      // The issuer of the token
		"sub":       req.Subject,                   // The user, or the client for client_credentials
		"client_id": req.ClientID,                  // The client the token was issued to
		"iat":       now.Unix(),                    // Issued At
		"exp":       exp.Unix(),                    // Expiry
		"jti":       uuid.New().String(),           // Unique token ID for revocation
		"scope":     oauth2.JoinScope(req.Scopes), // Space separated, as in RFC 8693
	}
	if m.audience != "" {
		claims["aud"] = m.audience
	}
	if req.UserID != "" {
		claims["uid"] = req.UserID
	}
	if len(req.Scopes) > 0 {
		claims["authorities"] = scopes.Authorities(req.Scopes)
	}
	if len(req.Roles) > 0 {
		claims["roles"] = append([]string(nil), req.Roles...)
	}

	signed, err := m.signer.Sign(jwt.MapClaims(claims))
	if err != nil {
		return nil, errors.Wrap(err, "Manager.MintAccessToken")
	}
	return &AccessToken{Value: signed, IssuedAt: now, ExpiresAt: exp, Claims: claims}, nil
}

// Verify checks the signature, issuer, audience and expiry of a raw access token.
func (m *Manager) Verify(raw string) (jwt.MapClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.signer.GetSigningMethod().Alg()}),
		jwt.WithTimeFunc(m.nowFunc),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}
	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(raw, claims, m.signer.GetVerificationKey, opts...); err != nil {
		return nil, errors.Wrap(err, "invalid access token")
	}
	return claims, nil
}

// GetJWKS returns the JSON Web Key Set for public key distribution. Only asymmetric signers have
// one.
func (m *Manager) GetJWKS() (*JWKS, error) {
	keyPairSigner, ok := m.signer.(*KeyPairSigner)
	if !ok {
		return nil, ErrNoPublicKeys
	}
	return keyPairSigner.GetJWKS()
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
