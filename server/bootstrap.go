package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"

	"github.com/google/uuid"
	"github.com/jrsteele09/social-auth/clients"
	"github.com/jrsteele09/social-auth/internal/config"
	"github.com/jrsteele09/social-auth/oauth2"
	"github.com/jrsteele09/social-auth/scopes"
	"github.com/jrsteele09/social-auth/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	PublicClientID         = "public-client"
	AdminConsoleClientID   = "admin-console"
	ResourceServerClientID = "resource-server"
	FeedServiceClientID    = "feed-service"

	DefaultAdminUsername = "admin"
	DefaultDemoUsername  = "demo"

	// DevRedirectURI is registered for the seeded browser clients
	DevRedirectURI = "http://localhost:3000/callback"
)

// seedNamespace scopes the name based ids of seeded clients.
var seedNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/jrsteele09/social-auth/clients"))

// SeedClientID is the internal id Bootstrap gives the seeded client with clientID. It is derived
// from the client_id, so grants persisted before a restart still resolve when the client
// directory is rebuilt in memory.
func SeedClientID(clientID string) string {
	return uuid.NewSHA1(seedNamespace, []byte(clientID)).String()
}

// Credentials holds the secrets generated by Bootstrap. Only clients and users created by this
// run have an entry.
type Credentials struct {
	ClientSecrets map[string]string // client_id -> secret
	Passwords     map[string]string // username -> password
}

// Bootstrap seeds the registered clients and the two default users if they do not exist yet.
func Bootstrap(ctx context.Context, cfg config.Config, clientRepo clients.Repo, userRepo users.UserRepo) (*Credentials, error) {
	creds := &Credentials{
		ClientSecrets: map[string]string{},
		Passwords:     map[string]string{},
	}

	catalog := scopes.Default()
	for _, client := range seedClients(cfg.GetBaseURL()) {
		if err := checkClientScopes(catalog, client); err != nil {
			return nil, errors.Wrap(err, "[Bootstrap]")
		}
		created, secret, err := createClient(ctx, clientRepo, client)
		if err != nil {
			return nil, errors.Wrapf(err, "[Bootstrap] client %s", client.ClientID)
		}
		if created && secret != "" {
			creds.ClientSecrets[client.ClientID] = secret
		}
	}

	for username, roles := range map[string][]string{
		DefaultAdminUsername: {users.RoleAdmin},
		DefaultDemoUsername:  {users.RoleUser},
	} {
		password, err := createUser(ctx, userRepo, username, roles)
		if err != nil {
			return nil, errors.Wrapf(err, "[Bootstrap] user %s", username)
		}
		if password != "" {
			creds.Passwords[username] = password
		}
	}

	if cfg.GetEnv() == "DEV" {
		logCredentials(cfg.GetBaseURL(), creds)
	}
	return creds, nil
}

func seedClients(baseURL string) []*clients.Client {
	redirectURIs := []string{DevRedirectURI, baseURL + "/callback"}
	return []*clients.Client{
		{
			ClientID:     PublicClientID,
			Description:  "Browser application (PKCE)",
			Type:         clients.ClientTypePublic,
			AuthMethod:   clients.AuthMethodNone,
			GrantTypes:   []oauth2.GrantType{oauth2.AuthorizationCodeGrant},
			RedirectURIs: redirectURIs,
			Scopes: []string{
				scopes.PostRead, scopes.PostWrite,
				scopes.UserRead, scopes.UserWrite,
				scopes.FollowRead, scopes.FollowWrite,
				scopes.LikeWrite, scopes.NotificationRead,
			},
		},
		{
			ClientID:     AdminConsoleClientID,
			Description:  "Moderation console (PKCE)",
			Type:         clients.ClientTypePublic,
			AuthMethod:   clients.AuthMethodNone,
			GrantTypes:   []oauth2.GrantType{oauth2.AuthorizationCodeGrant},
			RedirectURIs: redirectURIs,
			Scopes:       []string{scopes.UserRead, scopes.ReportRead, scopes.ReportWrite, scopes.PostModerate},
		},
		{
			ClientID:    ResourceServerClientID,
			Description: "API resource server, introspects access tokens",
			Type:        clients.ClientTypeConfidential,
			AuthMethod:  clients.AuthMethodClientSecretBasic,
		},
		{
			ClientID:    FeedServiceClientID,
			Description: "Feed fan-out worker",
			Type:        clients.ClientTypeConfidential,
			AuthMethod:  clients.AuthMethodClientSecretBasic,
			GrantTypes:  []oauth2.GrantType{oauth2.ClientCredentialsGrant},
			Scopes:      []string{scopes.PostRead, scopes.FollowRead, scopes.NotificationRead},
		},
	}
}

// checkClientScopes rejects scopes that are malformed or missing from catalog.
func checkClientScopes(catalog scopes.Catalog, client *clients.Client) error {
	for _, s := range client.Scopes {
		if !scopes.ValidName(s) || !catalog.Contains(s) {
			return errors.Wrapf(clients.ErrInvalidScope, "client %s scope %q", client.ClientID, s)
		}
	}
	return nil
}

// createClient stores client unless a client with the same client_id exists. Confidential
// clients get a generated secret.
func createClient(ctx context.Context, repo clients.Repo, client *clients.Client) (created bool, secret string, err error) {
	_, err = repo.FindByClientID(ctx, client.ClientID)
	if err == nil {
		log.Debug().Str("client_id", client.ClientID).Msg("client already exists")
		return false, "", nil
	}
	if !errors.Is(err, clients.ErrClientNotFound) {
		return false, "", err
	}

	client.ID = SeedClientID(client.ClientID)
	if !client.IsPublic() {
		if secret, err = generateSecret(); err != nil {
			return false, "", err
		}
		if err := client.SetSecret(secret); err != nil {
			return false, "", err
		}
	}
	if err := repo.Upsert(ctx, client); err != nil {
		return false, "", err
	}
	log.Info().Str("client_id", client.ClientID).Str("type", string(client.Type)).Msg("created client")
	return true, secret, nil
}

// createUser returns the generated password, or "" when the user already exists.
func createUser(ctx context.Context, repo users.UserRepo, username string, roles []string) (string, error) {
	_, err := repo.GetByUsername(ctx, username)
	if err == nil {
		log.Debug().Str("username", username).Msg("user already exists")
		return "", nil
	}
	if !errors.Is(err, users.ErrUserNotFound) {
		return "", err
	}

	secret, err := generateSecret()
	if err != nil {
		return "", err
	}
	// Guarantee the mixed case and digit the strength check asks for
	password := "Aa1" + secret

	user := &users.User{Username: username, Roles: roles}
	if err := user.SetPassword(password); err != nil {
		return "", err
	}
	if err := repo.Upsert(ctx, user); err != nil {
		return "", err
	}
	log.Info().Str("username", username).Strs("roles", roles).Msg("created user")
	return password, nil
}

func generateSecret() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "generate secret")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func logCredentials(baseURL string, creds *Credentials) {
	for clientID, secret := range creds.ClientSecrets {
		log.Warn().Str("client_id", clientID).Str("client_secret", secret).Msg("generated client secret, it will not be displayed again")
	}
	for username, password := range creds.Passwords {
		log.Warn().Str("username", username).Str("password", password).Msg("generated password, it will not be displayed again")
	}
	log.Info().
		Str("authorization", baseURL+RouteOAuth2Authorize).
		Str("token", baseURL+RouteOAuth2Token).
		Str("metadata", baseURL+RouteWellKnownMetadata).
		Msg("endpoints")
}
