package grants

import (
	"context"
	"strings"

	"github.com/jrsteele09/social-auth/clients"
	"github.com/jrsteele09/social-auth/internal/utils"
	"github.com/jrsteele09/social-auth/oauth2"
	"github.com/pkg/errors"
)

const scopeDelimiter = ","

// Mapper converts grants to records and back. Unflatten resolves the grant's client through
// the directory.
type Mapper struct {
	clients clients.Directory
}

func NewMapper(directory clients.Directory) *Mapper {
	return &Mapper{clients: directory}
}

// Flatten converts g to a Record. It fails with ErrUnsupportedGrantContent when g carries a
// refresh token or an identity token.
func (m *Mapper) Flatten(g *Grant) (*Record, error) {
	if g == nil || g.ID == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "authorization grant without id")
	}
	if g.RefreshToken != nil {
		return nil, errors.Wrapf(ErrUnsupportedGrantContent, "authorization %s carries a refresh token", g.ID)
	}
	if g.IDToken != nil {
		return nil, errors.Wrapf(ErrUnsupportedGrantContent, "authorization %s carries an identity token", g.ID)
	}

	attributes, err := EncodeAttributes(g.Attributes)
	if err != nil {
		return nil, errors.Wrapf(err, "attributes of authorization %s", g.ID)
	}
	r := &Record{
		ID:               g.ID,
		ClientID:         g.ClientID,
		PrincipalName:    g.PrincipalName,
		GrantType:        string(g.GrantType),
		Attributes:       attributes,
		AuthorizedScopes: joinScopes(g.AuthorizedScopes),
		State:            g.State(),
	}

	if code := g.AuthorizationCode; code != nil {
		metadata, err := EncodeAttributes(code.Metadata)
		if err != nil {
			return nil, errors.Wrapf(err, "authorization code metadata of authorization %s", g.ID)
		}
		r.AuthorizationCodeValue = code.Value
		r.AuthorizationCodeIssuedAt = code.IssuedAt
		r.AuthorizationCodeExpiresAt = code.ExpiresAt
		r.AuthorizationCodeMetadata = metadata
	}

	if token := g.AccessToken; token != nil {
		metadata, err := EncodeAttributes(token.Metadata)
		if err != nil {
			return nil, errors.Wrapf(err, "access token metadata of authorization %s", g.ID)
		}
		r.AccessTokenValue = token.Value
		r.AccessTokenIssuedAt = token.IssuedAt
		r.AccessTokenExpiresAt = token.ExpiresAt
		r.AccessTokenType = token.Type
		r.AccessTokenScopes = joinScopes(token.Scopes)
		r.AccessTokenMetadata = metadata
	}
	return r, nil
}

// Unflatten rebuilds a Grant from r. A record whose client cannot be resolved is unusable and
// fails with ErrClientNotFound.
func (m *Mapper) Unflatten(ctx context.Context, r *Record) (*Grant, error) {
	if r == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "nil authorization record")
	}
	client, err := m.clients.FindByID(ctx, r.ClientID)
	if err != nil {
		return nil, errors.Wrapf(err, "registered client %q of authorization %s", r.ClientID, r.ID)
	}

	attributes, err := DecodeAttributes(r.Attributes)
	if err != nil {
		return nil, errors.Wrapf(err, "attributes of authorization %s", r.ID)
	}
	g := &Grant{
		ID:               r.ID,
		ClientID:         r.ClientID,
		PrincipalName:    r.PrincipalName,
		GrantType:        oauth2.GrantType(r.GrantType),
		AuthorizedScopes: splitScopes(r.AuthorizedScopes),
		Attributes:       attributes,
		RegisteredClient: client,
	}
	if r.State != "" {
		g.SetAttribute(AttrState, r.State)
	}

	if r.AuthorizationCodeValue != "" {
		metadata, err := DecodeAttributes(r.AuthorizationCodeMetadata)
		if err != nil {
			return nil, errors.Wrapf(err, "authorization code metadata of authorization %s", r.ID)
		}
		g.AuthorizationCode = &AuthorizationCode{Token: Token{
			Value:     r.AuthorizationCodeValue,
			IssuedAt:  r.AuthorizationCodeIssuedAt,
			ExpiresAt: r.AuthorizationCodeExpiresAt,
			Metadata:  metadata,
		}}
	}

	if r.AccessTokenValue != "" {
		metadata, err := DecodeAttributes(r.AccessTokenMetadata)
		if err != nil {
			return nil, errors.Wrapf(err, "access token metadata of authorization %s", r.ID)
		}
		g.AccessToken = &AccessToken{
			Token: Token{
				Value:     r.AccessTokenValue,
				IssuedAt:  r.AccessTokenIssuedAt,
				ExpiresAt: r.AccessTokenExpiresAt,
				Metadata:  metadata,
			},
			Type:   accessTokenType(r.AccessTokenType),
			Scopes: splitScopes(r.AccessTokenScopes),
		}
	}
	return g, nil
}

// accessTokenType maps the stored type to oauth2.BearerTokenType; unknown types are dropped.
func accessTokenType(stored string) string {
	if strings.EqualFold(stored, oauth2.BearerTokenType) {
		return oauth2.BearerTokenType
	}
	return ""
}

func joinScopes(scopes []string) string {
	return strings.Join(scopes, scopeDelimiter)
}

func splitScopes(s string) []string {
	if s == "" {
		return nil
	}
	return utils.SplitNonEmpty(s, scopeDelimiter)
}
