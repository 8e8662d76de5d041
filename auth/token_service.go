package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/jrsteele09/social-auth/clients"
	"github.com/jrsteele09/social-auth/grants"
	"github.com/jrsteele09/social-auth/oauth2"
	"github.com/jrsteele09/social-auth/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Token handles the OAuth 2.0 token request.
func (as *AuthorizationService) Token(ctx context.Context, req oauth2.TokenRequest) (*oauth2.TokenResponse, error) {
	if err := as.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	client, err := as.authenticateClient(ctx, req.Credentials())
	if err != nil {
		return nil, err
	}

	switch req.GrantType {
	case oauth2.AuthorizationCodeGrant:
		return as.exchangeAuthorizationCode(ctx, client, req)
	case oauth2.ClientCredentialsGrant:
		return as.clientCredentials(ctx, client, req)
	case oauth2.RefreshTokenGrant:
		return nil, oauth2.NewError(oauth2.ErrorUnsupportedGrantType, "refresh tokens are not issued by this server")
	default:
		return nil, oauth2.Errorf(oauth2.ErrorUnsupportedGrantType, nil, "grant_type %q is not supported", req.GrantType)
	}
}

func (as *AuthorizationService) exchangeAuthorizationCode(ctx context.Context, client *clients.Client, req oauth2.TokenRequest) (*oauth2.TokenResponse, error) {
	if !client.SupportsGrantType(oauth2.AuthorizationCodeGrant) {
		return nil, oauth2.NewError(oauth2.ErrorUnauthorizedClient, "client may not use the authorization code grant")
	}

	grant, err := as.repos.Grants.FindByToken(ctx, req.Code, grants.TokenTypeCode)
	if err != nil {
		return nil, errors.Wrap(err, "[Token] grants.FindByToken")
	}
	if grant == nil || grant.AuthorizationCode == nil || grant.ClientID != client.ID {
		return nil, oauth2.NewError(oauth2.ErrorInvalidGrant, "authorization code is invalid")
	}

	code := grant.AuthorizationCode
	if code.IsInvalidated() {
		// A replayed code revokes the access token it was exchanged for (RFC 6749 section 4.1.2).
		if grant.AccessToken != nil && !grant.AccessToken.IsInvalidated() {
			grant.AccessToken.Invalidate()
			if err := as.repos.Grants.Save(ctx, grant); err != nil {
				return nil, errors.Wrap(err, "[Token] revoke replayed grant")
			}
			log.Warn().Str("authorization_id", grant.ID).Str("client_id", client.ClientID).Msg("authorization code replayed, access token revoked")
		}
		return nil, oauth2.NewError(oauth2.ErrorInvalidGrant, "authorization code has already been used")
	}
	if code.IsExpired(as.nowTime()) {
		return nil, oauth2.NewError(oauth2.ErrorInvalidGrant, "authorization code has expired")
	}

	authReq := oauth2.AuthorizationParametersFromMap(grant.AuthorizationRequest())
	if authReq.RedirectURI != req.RedirectURI {
		return nil, oauth2.NewError(oauth2.ErrorInvalidGrant, "redirect_uri does not match the authorization request")
	}
	if !checkCodeChallenge(authReq.CodeChallenge, req.CodeVerifier, authReq.CodeChallengeMethod) {
		return nil, oauth2.NewError(oauth2.ErrorInvalidGrant, "code_verifier does not match the code challenge")
	}

	var roles []string
	if principal, ok := grant.Principal(); ok {
		roles = principal.IdentityRoles()
	}
	userID, _ := grant.Attributes[grants.AttrPrincipalID].(string)

	at, err := as.tokens.MintAccessToken(token.AccessTokenRequest{
		Subject:  grant.PrincipalName,
		UserID:   userID,
		ClientID: client.ClientID,
		Scopes:   grant.AuthorizedScopes,
		Roles:    roles,
		TTL:      client.TokenSettings.AccessTokenTTL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Token] MintAccessToken")
	}

	code.Invalidate()
	grant.AccessToken = newAccessToken(at, grant.AuthorizedScopes)
	if err := as.repos.Grants.Save(ctx, grant); err != nil {
		return nil, errors.Wrap(err, "[Token] grants.Save")
	}
	return tokenResponse(at, grant.AuthorizedScopes), nil
}

func (as *AuthorizationService) clientCredentials(ctx context.Context, client *clients.Client, req oauth2.TokenRequest) (*oauth2.TokenResponse, error) {
	if client.IsPublic() || !client.SupportsGrantType(oauth2.ClientCredentialsGrant) {
		return nil, oauth2.NewError(oauth2.ErrorUnauthorizedClient, "client may not use the client credentials grant")
	}

	scopes := oauth2.SplitScope(req.Scope)
	if len(scopes) == 0 {
		scopes = append([]string(nil), client.Scopes...)
	} else if err := client.ValidateScopes(scopes); err != nil {
		return nil, oauth2.Errorf(oauth2.ErrorInvalidScope, err, "scope %q is not allowed for client %s", req.Scope, client.ClientID)
	}

	at, err := as.tokens.MintAccessToken(token.AccessTokenRequest{
		Subject:  client.ClientID,
		ClientID: client.ClientID,
		Scopes:   scopes,
		TTL:      client.TokenSettings.AccessTokenTTL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Token] MintAccessToken")
	}

	grant := &grants.Grant{
		ID:               uuid.New().String(),
		ClientID:         client.ID,
		PrincipalName:    client.ClientID,
		GrantType:        oauth2.ClientCredentialsGrant,
		AuthorizedScopes: scopes,
		AccessToken:      newAccessToken(at, scopes),
	}
	if err := as.repos.Grants.Save(ctx, grant); err != nil {
		return nil, errors.Wrap(err, "[Token] grants.Save")
	}
	return tokenResponse(at, scopes), nil
}

func newAccessToken(at *token.AccessToken, scopes []string) *grants.AccessToken {
	return &grants.AccessToken{
		Token: grants.Token{
			Value:     at.Value,
			IssuedAt:  at.IssuedAt,
			ExpiresAt: at.ExpiresAt,
			Metadata: map[string]any{
				grants.MetadataInvalidated: false,
				grants.MetadataClaims:      at.Claims,
			},
		},
		Type:   oauth2.BearerTokenType,
		Scopes: scopes,
	}
}

func tokenResponse(at *token.AccessToken, scopes []string) *oauth2.TokenResponse {
	return &oauth2.TokenResponse{
		AccessToken: at.Value,
		TokenType:   oauth2.BearerTokenType,
		ExpiresIn:   int(at.ExpiresAt.Sub(at.IssuedAt).Seconds()),
		Scope:       oauth2.JoinScope(scopes),
	}
}
