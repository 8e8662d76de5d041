package auth

import (
	"context"

	"github.com/jrsteele09/social-auth/grants"
	"github.com/jrsteele09/social-auth/internal/utils"
	"github.com/jrsteele09/social-auth/oauth2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// IntrospectToken returns RFC 7662 metadata about an access token. The caller must authenticate
// as a confidential client before anything else is checked; unknown, expired and revoked tokens
// are reported inactive.
func (as *AuthorizationService) IntrospectToken(ctx context.Context, rawToken string, creds oauth2.ClientCredentials) (*oauth2.TokenIntrospection, error) {
	caller, err := as.authenticateClient(ctx, creds)
	if err != nil {
		return nil, err
	}
	if caller.IsPublic() {
		return nil, oauth2.NewError(oauth2.ErrorInvalidClient, "public clients may not introspect tokens")
	}
	if rawToken == "" {
		return nil, oauth2.NewError(oauth2.ErrorInvalidRequest, "token parameter is required")
	}

	grant, err := as.repos.Grants.FindByToken(ctx, rawToken, grants.TokenTypeAccessToken)
	if err != nil {
		return nil, errors.Wrap(err, "[IntrospectToken] grants.FindByToken")
	}
	if grant == nil || grant.AccessToken == nil || !grant.AccessToken.IsActive(as.nowTime()) {
		return oauth2.InactiveToken(), nil
	}
	if _, err := as.tokens.Verify(rawToken); err != nil {
		log.Debug().Err(err).Str("authorization_id", grant.ID).Msg("stored access token failed verification")
		return oauth2.InactiveToken(), nil
	}

	at := grant.AccessToken
	result := &oauth2.TokenIntrospection{
		Active:    true,
		Scope:     utils.Ptr(oauth2.JoinScope(at.Scopes)),
		TokenType: utils.Ptr(at.Type),
		Exp:       utils.Ptr(at.ExpiresAt.Unix()),
		Iat:       utils.Ptr(at.IssuedAt.Unix()),
		Sub:       utils.Ptr(grant.PrincipalName),
		Iss:       utils.Ptr(as.tokens.Issuer()),
	}
	if grant.RegisteredClient != nil {
		result.ClientID = utils.Ptr(grant.RegisteredClient.ClientID)
	}
	if grant.GrantType == oauth2.AuthorizationCodeGrant {
		result.Username = utils.Ptr(grant.PrincipalName)
	}
	if uid, ok := at.Claims()["uid"].(string); ok && uid != "" {
		result.UID = utils.Ptr(uid)
	} else {
		result.UID = utils.Ptr(grant.PrincipalName)
	}
	return result, nil
}

// RevokeToken removes the grant holding rawToken (RFC 7009). Tokens that are unknown or belong to
// another client are ignored.
func (as *AuthorizationService) RevokeToken(ctx context.Context, rawToken string, hint oauth2.TokenTypeHint, creds oauth2.ClientCredentials) error {
	client, err := as.authenticateClient(ctx, creds)
	if err != nil {
		return err
	}
	if rawToken == "" {
		return oauth2.NewError(oauth2.ErrorInvalidRequest, "token is required")
	}

	tokenType := grants.TokenTypeUnspecified
	if hint == oauth2.AccessTokenHint {
		tokenType = grants.TokenTypeAccessToken
	}
	grant, err := as.repos.Grants.FindByToken(ctx, rawToken, tokenType)
	if err != nil {
		return errors.Wrap(err, "[RevokeToken] grants.FindByToken")
	}
	if grant == nil && tokenType == grants.TokenTypeAccessToken {
		// the hint is only a hint
		grant, err = as.repos.Grants.FindByToken(ctx, rawToken, grants.TokenTypeUnspecified)
		if err != nil {
			return errors.Wrap(err, "[RevokeToken] grants.FindByToken")
		}
	}
	if grant == nil || grant.ClientID != client.ID {
		return nil
	}
	return errors.Wrap(as.repos.Grants.Remove(ctx, grant), "[RevokeToken] grants.Remove")
}
