package auth

import (
	"net/http"

	"github.com/jrsteele09/social-auth/oauth2"
	"github.com/pkg/errors"
)

// OAuthError returns err as an *oauth2.Error, turning anything else into server_error.
func OAuthError(err error) *oauth2.Error {
	var oauthErr *oauth2.Error
	if errors.As(err, &oauthErr) {
		return oauthErr
	}
	return oauth2.Errorf(oauth2.ErrorServerError, err, "internal server error")
}

// HTTPStatus is the status code an OAuth error is reported with.
func HTTPStatus(err *oauth2.Error) int {
	switch err.Code {
	case oauth2.ErrorInvalidClient:
		return http.StatusUnauthorized
	case oauth2.ErrorAccessDenied, oauth2.ErrorUnauthorizedClient:
		return http.StatusForbidden
	case oauth2.ErrorServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
