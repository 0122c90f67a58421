package errors

import (
	"errors"
	"fmt"
)

// Failure taxonomy for the session client. Every error returned by the
// gateway and the auth actions wraps exactly one of these.
var (
	// ErrTransport means the server could not be reached or the body could not be read.
	ErrTransport = errors.New("transport error")
	// ErrServer means the server answered with a non-2xx status.
	ErrServer = errors.New("server error")
	// ErrValidation means a local policy check failed before any network call.
	ErrValidation = errors.New("validation error")
	// ErrToken means the credentials were rejected and could not be renewed.
	ErrToken = errors.New("token error")
)

// Session errors
var (
	ErrNotLoggedIn      = errors.New("not logged in")
	ErrSessionChanged   = errors.New("session changed")
	ErrNoRefreshToken   = errors.New("no refresh token")
	ErrRecordNotFound   = errors.New("record not found")
	ErrMalformedRecord  = errors.New("malformed record")
	ErrMalformedPayload = errors.New("malformed payload")
)

// Navigation errors
var (
	ErrRedirectLoop = errors.New("redirect loop")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join is errors.Join, re-exported so callers need a single errors import.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// FieldError is a local validation failure on a single input field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *FieldError) Unwrap() error {
	return ErrValidation
}
