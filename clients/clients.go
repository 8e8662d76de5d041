package clients

import (
	"errors"
	"time"

	"github.com/jrsteele09/social-auth/internal/utils"
	"github.com/jrsteele09/social-auth/oauth2"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrClientNotFound = errors.New("client not found")
	ErrInvalidScope   = errors.New("invalid scope")
)

type ClientType string

const (
	ClientTypeConfidential ClientType = "confidential" // Can keep secrets (server-side apps)
	ClientTypePublic       ClientType = "public"       // Cannot keep secrets (SPAs, mobile apps)
)

// AuthMethod is the registered token_endpoint_auth_method of a client.
type AuthMethod = oauth2.ClientAuthMethod

const (
	AuthMethodClientSecretBasic = oauth2.ClientSecretBasic
	AuthMethodClientSecretPost  = oauth2.ClientSecretPost
	AuthMethodNone              = oauth2.ClientAuthNone
)

// TokenSettings is the token lifetime policy of a client. Zero values fall back to server defaults.
type TokenSettings struct {
	AuthorizationCodeTTL time.Duration `json:"authorizationCodeTTL"`
	AccessTokenTTL       time.Duration `json:"accessTokenTTL"`
}

// Client is a registered OAuth2 client.
type Client struct {
	ID            string             `json:"id"`       // Internal identifier, referenced by grants
	ClientID      string             `json:"clientId"` // Public identifier sent by the client
	Type          ClientType         `json:"type"`
	Description   string             `json:"description"`
	SecretHash    string             `json:"-"`
	AuthMethod    AuthMethod         `json:"authMethod"`
	GrantTypes    []oauth2.GrantType `json:"grantTypes"`
	RedirectURIs  []string           `json:"redirectURIs"`
	Scopes        []string           `json:"scopes"` // Scopes this client may be granted
	TokenSettings TokenSettings      `json:"tokenSettings"`
}

// IsPublic returns true if the client is a public client
func (c *Client) IsPublic() bool {
	return c.Type == ClientTypePublic
}

// TokenEndpointAuthMethod returns the registered auth method. Clients registered without one
// default to none when public and client_secret_basic otherwise (RFC 7591 section 2).
func (c *Client) TokenEndpointAuthMethod() AuthMethod {
	switch {
	case c.AuthMethod != "":
		return c.AuthMethod
	case c.IsPublic():
		return AuthMethodNone
	default:
		return AuthMethodClientSecretBasic
	}
}

// HasScope checks if the client has permission for a specific scope
func (c *Client) HasScope(scope string) bool {
	return utils.Contains(c.Scopes, scope)
}

// ValidateScopes checks if all requested scopes are allowed for this client
func (c *Client) ValidateScopes(requested []string) error {
	for _, scope := range requested {
		if !c.HasScope(scope) {
			return ErrInvalidScope
		}
	}
	return nil
}

func (c *Client) SupportsGrantType(grantType oauth2.GrantType) bool {
	for _, g := range c.GrantTypes {
		if g == grantType {
			return true
		}
	}
	return false
}

func (c *Client) HasRedirectURI(uri string) bool {
	return utils.Contains(c.RedirectURIs, uri)
}

// SetSecret stores the bcrypt hash of secret.
func (c *Client) SetSecret(secret string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	c.SecretHash = string(hash)
	return nil
}

// CheckSecret compares secret with the stored hash. Public clients never match.
func (c *Client) CheckSecret(secret string) bool {
	if c.SecretHash == "" || secret == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(c.SecretHash), []byte(secret)) == nil
}
