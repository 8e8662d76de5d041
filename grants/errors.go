package grants

import (
	"errors"

	"github.com/jrsteele09/social-auth/clients"
)

var (
	// ErrUnsupportedGrantContent is returned when a grant carries a refresh or identity token.
	ErrUnsupportedGrantContent = errors.New("unsupported token in authorization grant")
	// ErrClientNotFound is returned when a record references a client the directory does not know.
	ErrClientNotFound = clients.ErrClientNotFound
	// ErrSerialization is matched by every encode or decode failure.
	ErrSerialization = errors.New("authorization serialization failure")
	// ErrInvalidArgument is returned for empty ids and tokens.
	ErrInvalidArgument = errors.New("invalid argument")
)

// SerializationError keeps the cause of an encode or decode failure while matching
// ErrSerialization.
type SerializationError struct {
	Op  string
	Err error
}

func (e *SerializationError) Error() string {
	return ErrSerialization.Error() + ": " + e.Op + ": " + e.Err.Error()
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

func (e *SerializationError) Is(target error) bool {
	return target == ErrSerialization
}

func serializationError(op string, err error) error {
	return &SerializationError{Op: op, Err: err}
}
