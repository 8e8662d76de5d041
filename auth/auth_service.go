// Package auth implements the OAuth2 authorization server flows on top of the grant store.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/social-auth/clients"
	"github.com/jrsteele09/social-auth/grants"
	"github.com/jrsteele09/social-auth/guard"
	apperrors "github.com/jrsteele09/social-auth/internal/errors"
	"github.com/jrsteele09/social-auth/oauth2"
	"github.com/jrsteele09/social-auth/sessions"
	"github.com/jrsteele09/social-auth/token"
	"github.com/jrsteele09/social-auth/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultMaxSessionAge bounds the time between /oauth2/authorize and a successful login.
const DefaultMaxSessionAge = 15 * time.Minute

// AuthorizationResponse is sent back to the client's redirect URI. Exactly one of Code and
// Error is set.
type AuthorizationResponse struct {
	RedirectURI  string
	ResponseMode oauth2.ResponseModeType
	Code         string
	State        string
	Error        *oauth2.Error
}

// AuthorizationRedirect handles the redirection to the client at the end of the authorization
// process.
type AuthorizationRedirect func(resp AuthorizationResponse)

// Repos holds all repository dependencies for the AuthorizationService
type Repos struct {
	Users    users.UserRepo    // Resource owners
	Sessions sessions.Repo     // Pending authorization requests
	Clients  clients.Directory // Registered clients
	Grants   grants.Repo       // Authorization grants
}

// AuthorizationService provides methods for OAuth2 authorization and token requests.
type AuthorizationService struct {
	repos         Repos
	tokens        *token.Manager
	guard         *guard.Guard
	validator     *Validator
	maxSessionAge time.Duration
	nowTime       func() time.Time
}

// AuthorizationServiceOption defines a function type to modify the AuthorizationService instance.
type AuthorizationServiceOption func(*AuthorizationService)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.nowTime = nowFunc
	}
}

// WithMaxSessionAge replaces DefaultMaxSessionAge.
func WithMaxSessionAge(age time.Duration) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.maxSessionAge = age
	}
}

// NewAuthorizationService initializes a new AuthorizationService with required dependencies.
func NewAuthorizationService(repos Repos, tokens *token.Manager, scopeGuard *guard.Guard, options ...AuthorizationServiceOption) (*AuthorizationService, error) {
	if repos.Users == nil {
		return nil, errors.New("[NewAuthorizationService] Users repo is required")
	}
	if repos.Sessions == nil {
		return nil, errors.New("[NewAuthorizationService] Sessions repo is required")
	}
	if repos.Clients == nil {
		return nil, errors.New("[NewAuthorizationService] Clients directory is required")
	}
	if repos.Grants == nil {
		return nil, errors.New("[NewAuthorizationService] Grants repo is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewAuthorizationService] token manager is required")
	}
	if scopeGuard == nil {
		return nil, errors.New("[NewAuthorizationService] scope guard is required")
	}

	as := &AuthorizationService{
		repos:         repos,
		tokens:        tokens,
		guard:         scopeGuard,
		validator:     NewValidator(),
		maxSessionAge: DefaultMaxSessionAge,
		nowTime:       time.Now,
	}
	for _, opt := range options {
		opt(as)
	}
	return as, nil
}

// Authorize validates an authorization request and parks it in a session until the user logs
// in. loginRedirect receives the new session id.
func (as *AuthorizationService) Authorize(ctx context.Context, params *oauth2.AuthorizationParameters, loginRedirect func(sessionID string)) error {
	if err := as.validator.ValidateStruct(params); err != nil {
		return err
	}

	client, err := as.repos.Clients.FindByClientID(ctx, params.ClientID)
	if err != nil {
		return clientLookupError(err, params.ClientID)
	}
	if !client.HasRedirectURI(params.RedirectURI) {
		return oauth2.Errorf(oauth2.ErrorInvalidRequest, apperrors.ErrInvalidRedirectURI, "redirect_uri is not registered for client %s", client.ClientID)
	}
	if params.ResponseType != oauth2.CodeResponseType {
		return oauth2.NewError(oauth2.ErrorUnsupportedResponseType, "only response_type=code is supported")
	}
	if !client.SupportsGrantType(oauth2.AuthorizationCodeGrant) {
		return oauth2.NewError(oauth2.ErrorUnauthorizedClient, "client may not use the authorization code grant")
	}

	// Enforce PKCE for public clients
	if err := as.validator.ValidatePKCE(params.CodeChallenge, params.CodeChallengeMethod, client.IsPublic()); err != nil {
		return err
	}
	if err := client.ValidateScopes(params.Scopes()); err != nil {
		return oauth2.Errorf(oauth2.ErrorInvalidScope, err, "scope %q is not allowed for client %s", params.Scope, client.ClientID)
	}

	// The user is not known yet
	if err := as.guard.Check(guard.RequestContext{Principal: guard.Anonymous{}, Client: client}); err != nil {
		return err
	}

	sessionID := uuid.New().String()
	if err := as.repos.Sessions.Upsert(ctx, &sessions.SessionData{
		ID:                  sessionID,
		ClientID:            client.ID,
		Timestamp:           as.nowTime(),
		AuthorizationParams: params,
	}); err != nil {
		return errors.Wrap(err, "[Authorize] failed to create session")
	}

	loginRedirect(sessionID)
	return nil
}

// Login authenticates the user of a pending session. On success an authorization grant carrying
// a fresh code is saved and the user is sent back to the client. A scope escalation is reported
// to the client as access_denied and leaves no grant behind.
func (as *AuthorizationService) Login(ctx context.Context, sessionID, username, password string, redirect AuthorizationRedirect) error {
	session, err := as.repos.Sessions.Get(ctx, sessionID)
	if err != nil {
		return errors.Wrap(err, "[Login] sessions.Get")
	}
	if session.Expired(as.nowTime(), as.maxSessionAge) {
		_ = as.repos.Sessions.Delete(ctx, sessionID)
		return sessions.ErrSessionExpired
	}

	user, err := as.repos.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return apperrors.ErrInvalidCredentials
		}
		return errors.Wrap(err, "[Login] users.GetByUsername")
	}
	if !user.CheckPassword(password) {
		return apperrors.ErrInvalidCredentials
	}
	if user.Blocked {
		return apperrors.Wrapf(apperrors.ErrUserBlocked, "[Login] user %s", username)
	}

	client, err := as.repos.Clients.FindByID(ctx, session.ClientID)
	if err != nil {
		return clientLookupError(err, session.ClientID)
	}
	params := session.AuthorizationParams

	principal := guard.Authenticated{Name: user.Username, Roles: user.Roles}
	if err := as.guard.Check(guard.RequestContext{Principal: principal, Client: client}); err != nil {
		_ = as.repos.Sessions.Delete(ctx, sessionID)
		log.Warn().Err(err).Str("client_id", client.ClientID).Str("username", user.Username).Msg("authorization refused")
		redirect(AuthorizationResponse{
			RedirectURI:  params.RedirectURI,
			ResponseMode: params.ResponseMode,
			State:        params.State,
			Error:        OAuthError(err),
		})
		return nil
	}

	code, err := as.tokens.NewAuthorizationCode(client.TokenSettings.AuthorizationCodeTTL)
	if err != nil {
		return errors.Wrap(err, "[Login] NewAuthorizationCode")
	}
	grant := &grants.Grant{
		ID:               uuid.New().String(),
		ClientID:         client.ID,
		PrincipalName:    user.Username,
		GrantType:        oauth2.AuthorizationCodeGrant,
		AuthorizedScopes: params.Scopes(),
		AuthorizationCode: &grants.AuthorizationCode{Token: grants.Token{
			Value:     code.Value,
			IssuedAt:  code.IssuedAt,
			ExpiresAt: code.ExpiresAt,
			Metadata:  map[string]any{grants.MetadataInvalidated: false},
		}},
	}
	grant.SetAttribute(grants.AttrAuthorizationRequest, params.ToMap())
	grant.SetAttribute(grants.AttrPrincipal, user)
	grant.SetAttribute(grants.AttrPrincipalID, user.ID)
	if params.State != "" {
		grant.SetAttribute(grants.AttrState, params.State)
	}
	if err := as.repos.Grants.Save(ctx, grant); err != nil {
		return errors.Wrap(err, "[Login] grants.Save")
	}

	if err := as.repos.Users.RecordLogin(ctx, user.Username, as.nowTime()); err != nil {
		log.Warn().Err(err).Str("username", user.Username).Msg("failed to record login")
	}
	if err := as.repos.Sessions.Delete(ctx, sessionID); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to delete session")
	}

	redirect(AuthorizationResponse{
		RedirectURI:  params.RedirectURI,
		ResponseMode: params.ResponseMode,
		Code:         code.Value,
		State:        params.State,
	})
	return nil
}

// authenticateClient resolves the client and checks the credentials it presented.
func (as *AuthorizationService) authenticateClient(ctx context.Context, creds oauth2.ClientCredentials) (*clients.Client, error) {
	if creds.ClientID == "" {
		return nil, oauth2.Errorf(oauth2.ErrorInvalidClient, apperrors.ErrInvalidClient, "client authentication required")
	}
	client, err := as.repos.Clients.FindByClientID(ctx, creds.ClientID)
	if err != nil {
		return nil, clientLookupError(err, creds.ClientID)
	}
	if err := as.validator.ValidateClientCredentials(creds, client); err != nil {
		return nil, err
	}
	return client, nil
}

func clientLookupError(err error, clientID string) error {
	if errors.Is(err, clients.ErrClientNotFound) {
		return oauth2.Errorf(oauth2.ErrorInvalidClient, err, "unknown client %s", clientID)
	}
	return errors.Wrapf(err, "lookup client %s", clientID)
}
