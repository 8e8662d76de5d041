package oauth2

import "fmt"

// ErrorCode is an OAuth 2.0 error code (RFC 6749 section 4.1.2.1 and 5.2).
type ErrorCode string

const (
	ErrorInvalidRequest          ErrorCode = "invalid_request"
	ErrorInvalidClient           ErrorCode = "invalid_client"
	ErrorInvalidGrant            ErrorCode = "invalid_grant"
	ErrorInvalidScope            ErrorCode = "invalid_scope"
	ErrorAccessDenied            ErrorCode = "access_denied"
	ErrorUnauthorizedClient      ErrorCode = "unauthorized_client"
	ErrorUnsupportedGrantType    ErrorCode = "unsupported_grant_type"
	ErrorUnsupportedResponseType ErrorCode = "unsupported_response_type"
	ErrorServerError             ErrorCode = "server_error"
)

// Error is an error that is reported to the client as an OAuth error response.
type Error struct {
	Code        ErrorCode
	Description string
	Err         error
}

func NewError(code ErrorCode, description string) *Error {
	return &Error{Code: code, Description: description}
}

// Errorf builds an Error that wraps cause.
func Errorf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Description: fmt.Sprintf(format, args...), Err: cause}
}

func (e *Error) Error() string {
	if e.Description == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func (e *Error) Unwrap() error {
	return e.Err
}
