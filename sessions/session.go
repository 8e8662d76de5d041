// Package sessions keeps pending authorization requests between the authorization endpoint and
// the login form.
package sessions

import (
	"context"
	"time"

	apperrors "github.com/jrsteele09/social-auth/internal/errors"
	"github.com/jrsteele09/social-auth/oauth2"
)

var (
	ErrSessionNotFound = apperrors.ErrSessionNotFound
	ErrSessionExpired  = apperrors.ErrSessionExpired
)

// SessionData is the OAuth2 flow state kept from /oauth2/authorize until the user logs in.
type SessionData struct {
	ID                  string                          `json:"id"`
	ClientID            string                          `json:"client_id"` // clients.Client.ID
	Timestamp           time.Time                       `json:"timestamp"` // When session was created
	AuthorizationParams *oauth2.AuthorizationParameters `json:"authorization_params"`
}

// Expired reports whether the session is older than maxAge at now. A non-positive maxAge never
// expires.
func (s *SessionData) Expired(now time.Time, maxAge time.Duration) bool {
	return maxAge > 0 && now.Sub(s.Timestamp) > maxAge
}

type Repo interface {
	Upsert(ctx context.Context, session *SessionData) error
	Get(ctx context.Context, sessionID string) (*SessionData, error)
	Delete(ctx context.Context, sessionID string) error
}
