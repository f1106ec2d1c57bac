package service

import (
	"context"
	"errors"
)

// Kind classifies a service failure.  Handlers map kinds to HTTP status
// codes; the Message of an *Error is safe to return to clients verbatim.
type Kind string

const (
	KindMissingField          Kind = "MissingField"
	KindInvalidInput          Kind = "InvalidInput"
	KindDuplicateEmail        Kind = "DuplicateEmail"
	KindDuplicateUsername     Kind = "DuplicateUsername"
	KindInvalidCredentials    Kind = "InvalidCredentials"
	KindUnsupportedAuthMethod Kind = "UnsupportedAuthMethod"
	KindMissingAssertion      Kind = "MissingAssertion"
	KindInvalidAssertion      Kind = "InvalidAssertion"
	KindMissingToken          Kind = "MissingToken"
	KindInvalidToken          Kind = "InvalidToken"
	KindForbidden             Kind = "Forbidden"
	KindNotFound              Kind = "NotFound"
	KindStoreFailure          Kind = "StoreFailure"
	KindTimeout               Kind = "Timeout"
)

// Error is a classified service failure.  Two errors match under errors.Is
// when their kinds are equal, so callers compare against the sentinels
// below regardless of the message.
type Error struct {
	Kind    Kind
	Message string
	err     error
}

func (e *Error) Error() string { return e.Message }

// Unwrap exposes the underlying cause for logging.  It never reaches the
// client.
func (e *Error) Unwrap() error { return e.err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrMissingField          = &Error{Kind: KindMissingField, Message: "Missing required fields"}
	ErrInvalidInput          = &Error{Kind: KindInvalidInput, Message: "Invalid input"}
	ErrDuplicateEmail        = &Error{Kind: KindDuplicateEmail, Message: "User already exists"}
	ErrDuplicateUsername     = &Error{Kind: KindDuplicateUsername, Message: "Username already taken"}
	ErrInvalidCredentials    = &Error{Kind: KindInvalidCredentials, Message: "Invalid credentials"}
	ErrUnsupportedAuthMethod = &Error{Kind: KindUnsupportedAuthMethod, Message: "This account uses Google sign-in"}
	ErrMissingAssertion      = &Error{Kind: KindMissingAssertion, Message: "Google token is required"}
	ErrInvalidAssertion      = &Error{Kind: KindInvalidAssertion, Message: "Invalid Google token"}
	ErrMissingToken          = &Error{Kind: KindMissingToken, Message: "No token provided"}
	ErrInvalidToken          = &Error{Kind: KindInvalidToken, Message: "Invalid token"}
	ErrForbidden             = &Error{Kind: KindForbidden, Message: "Admin access required"}
	ErrNotFound              = &Error{Kind: KindNotFound, Message: "User not found"}
	ErrStoreFailure          = &Error{Kind: KindStoreFailure, Message: "Server error"}
	ErrTimeout               = &Error{Kind: KindTimeout, Message: "Request timed out"}
)

// withMessage returns a copy of sentinel carrying a more specific message.
func withMessage(sentinel *Error, msg string) *Error {
	return &Error{Kind: sentinel.Kind, Message: msg}
}

// wrap returns a copy of sentinel that keeps cause for logs.
func wrap(sentinel *Error, cause error) *Error {
	return &Error{Kind: sentinel.Kind, Message: sentinel.Message, err: cause}
}

// KindOf returns the kind of err, or KindStoreFailure for errors that did
// not come from this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStoreFailure
}

// MessageOf returns the client-safe message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ErrStoreFailure.Message
}

// isTimeout reports whether err came from a bounded call running out of time.
func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
