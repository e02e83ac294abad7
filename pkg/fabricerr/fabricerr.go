// Package fabricerr defines the error taxonomy shared by every fabric
// component. All component errors are values, never unhandled panics;
// callers distinguish error kinds with errors.As against *Error.
package fabricerr

import (
	"errors"
	"fmt"
)

// Kind is a stable error category, consistent across every backend and
// protocol layer so callers can map it to an HTTP status or retry policy.
type Kind string

const (
	InputError      Kind = "input-error"
	NotFound        Kind = "not-found"
	ValidationError Kind = "validation-error"
	TransportError  Kind = "transport-error"
	AuthError       Kind = "auth-error"
	CryptoError     Kind = "crypto-error"
	ConfigError     Kind = "config-error"
)

// Error is a typed, wrappable error carrying a stable Kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error around an existing cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Is reports whether err (or anything it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, defaulting to TransportError for
// errors that did not originate in this package.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return TransportError
}
