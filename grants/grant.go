// Package grants holds the authorization grant lifecycle: the in-memory Grant, its flat
// storage Record, the Mapper converting one into the other and the Store that persists records
// under their id and both token values.
package grants

import (
	"time"

	"github.com/jrsteele09/social-auth/clients"
	"github.com/jrsteele09/social-auth/oauth2"
)

// Attribute keys.
const (
	AttrAuthorizationRequest = "authorization_request"
	AttrPrincipal            = "principal"
	AttrPrincipalID          = "principal_id"
	AttrState                = "state"
)

// Token metadata keys.
const (
	MetadataInvalidated = "metadata.token.invalidated"
	MetadataClaims      = "metadata.token.claims"
)

// TokenType selects the index searched by Store.FindByToken.
type TokenType string

const (
	TokenTypeUnspecified TokenType = ""
	TokenTypeCode        TokenType = "code"
	TokenTypeAccessToken TokenType = "access_token"
)

// Token is the part shared by every token attached to a grant.
type Token struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Metadata  map[string]any
}

func (t *Token) IsInvalidated() bool {
	invalidated, _ := t.Metadata[MetadataInvalidated].(bool)
	return invalidated
}

func (t *Token) Invalidate() {
	if t.Metadata == nil {
		t.Metadata = make(map[string]any)
	}
	t.Metadata[MetadataInvalidated] = true
}

func (t *Token) IsExpired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// IsActive reports whether the token is neither invalidated nor expired.
func (t *Token) IsActive(now time.Time) bool {
	return !t.IsInvalidated() && !t.IsExpired(now)
}

type AuthorizationCode struct {
	Token
}

type AccessToken struct {
	Token
	Type   string // oauth2.BearerTokenType, or empty when the stored type was not recognised
	Scopes []string
}

// Claims returns the claims bag kept in the token metadata.
func (t *AccessToken) Claims() map[string]any {
	claims, _ := t.Metadata[MetadataClaims].(map[string]any)
	return claims
}

// RefreshToken and IDToken are never persisted. A grant carrying one cannot be flattened.
type RefreshToken struct {
	Token
}

type IDToken struct {
	Token
	Claims map[string]any
}

// Grant is the complete state of one authorization: who, for which client, with what scopes
// and tokens.
type Grant struct {
	ID               string
	ClientID         string // clients.Client.ID
	PrincipalName    string
	GrantType        oauth2.GrantType
	AuthorizedScopes []string
	Attributes       map[string]any

	AuthorizationCode *AuthorizationCode
	AccessToken       *AccessToken
	RefreshToken      *RefreshToken
	IDToken           *IDToken

	// RegisteredClient is filled in by Mapper.Unflatten; it is not persisted.
	RegisteredClient *clients.Client
}

func (g *Grant) SetAttribute(key string, value any) {
	if g.Attributes == nil {
		g.Attributes = make(map[string]any)
	}
	g.Attributes[key] = value
}

// State returns the state parameter of the authorization request, if any.
func (g *Grant) State() string {
	state, _ := g.Attributes[AttrState].(string)
	return state
}

// Principal returns the principal attribute.
func (g *Grant) Principal() (Identity, bool) {
	p, ok := g.Attributes[AttrPrincipal].(Identity)
	return p, ok
}

// AuthorizationRequest returns the original authorization request parameters.
func (g *Grant) AuthorizationRequest() map[string]any {
	req, _ := g.Attributes[AttrAuthorizationRequest].(map[string]any)
	return req
}
