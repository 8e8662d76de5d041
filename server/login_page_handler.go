package server

import (
	"net/http"
	"net/url"

	"github.com/jrsteele09/social-auth/auth"
	apperrors "github.com/jrsteele09/social-auth/internal/errors"
	"github.com/jrsteele09/social-auth/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	AppName   string
	Action    string
	SessionID string // Pending authorization request (hidden field in form)
	Error     string
	Username  string // Preserve username on error
}

// LoginPageUIHandler displays the login page (GET /login)
func (s *Server) LoginPageUIHandler() http.HandlerFunc {
	loginTmpl, err := parseTemplate("login.html")
	if err != nil {
		log.Err(err).Msg("Failed to parse login template")
	}

	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session_id")
		if sessionID == "" {
			http.Error(w, "authorization session not started", http.StatusBadRequest)
			return
		}
		if loginTmpl == nil {
			http.Error(w, "Failed to render login page", http.StatusInternalServerError)
			return
		}

		data := LoginPageData{
			AppName:   s.config.GetAppName(),
			Action:    RouteAuthLogin,
			SessionID: sessionID,
			Error:     r.URL.Query().Get("error"),
			Username:  r.URL.Query().Get("username"),
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		w.Header().Set("Cache-Control", "no-store")
		if err := loginTmpl.Execute(w, data); err != nil {
			log.Err(err).Msg("Failed to render login template")
		}
	}
}

// LoginSubmissionHandler processes the login form submission (POST /auth/login)
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		sessionID := r.PostFormValue("session_id")
		username := r.PostFormValue("username")
		password := r.PostFormValue("password")

		if sessionID == "" {
			http.Error(w, "Missing authorization session", http.StatusBadRequest)
			return
		}
		if username == "" || password == "" {
			renderLoginError(w, r, sessionID, "missing_credentials", username)
			return
		}

		oauthRedirect := func(resp auth.AuthorizationResponse) {
			if err := callbackRedirect(w, r, resp); err != nil {
				log.Err(err).Msg("failed to redirect to client")
				http.Error(w, "Failed to redirect to client", http.StatusInternalServerError)
			}
		}

		err := s.auth.Login(r.Context(), sessionID, username, password, oauthRedirect)
		switch {
		case err == nil:
			// the redirect has been written
		case errors.Is(err, apperrors.ErrInvalidCredentials), errors.Is(err, apperrors.ErrUserBlocked):
			log.Info().Str("username", username).Err(err).Msg("login failed")
			renderLoginError(w, r, sessionID, "invalid_credentials", username)
		case errors.Is(err, sessions.ErrSessionNotFound), errors.Is(err, sessions.ErrSessionExpired):
			http.Error(w, "Authorization session expired, please restart sign in from the application", http.StatusBadRequest)
		default:
			log.Err(err).Msg("login failed")
			http.Error(w, "Login failed", http.StatusInternalServerError)
		}
	}
}

// renderLoginError redirects back to the login page with an error code. Blocked accounts get the
// same code as a wrong password.
func renderLoginError(w http.ResponseWriter, r *http.Request, sessionID, errorCode, username string) {
	q := url.Values{}
	q.Set("session_id", sessionID)
	q.Set("error", errorCode)
	if username != "" {
		q.Set("username", username)
	}
	http.Redirect(w, r, RouteLogin+"?"+q.Encode(), http.StatusSeeOther)
}
