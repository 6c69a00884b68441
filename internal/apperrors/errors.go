// Package apperrors defines the closed error taxonomy surfaced by the
// engine. Every error crossing a controller boundary carries a stable Kind
// plus a human-readable message so the HTTP layer can map it without
// string matching.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies the category of an error.
type Kind string

const (
	// KindConfiguration means a required upstream is not configured.
	KindConfiguration Kind = "configuration"
	// KindRateLimited means the sync cooldown has not elapsed.
	KindRateLimited Kind = "rate_limited"
	// KindUpstream means a call to an external service failed.
	KindUpstream Kind = "upstream"
	// KindValidation means the caller supplied malformed input.
	KindValidation Kind = "validation"
	// KindConflict means a duplicate active whitelist/exemption key, or a
	// sync already in flight for the user.
	KindConflict Kind = "conflict"
	// KindNotFound means the referenced record does not exist.
	KindNotFound Kind = "not_found"
)

// Error is the single error type used across controllers.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error with a kind and message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error with a kind, message and cause.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, or an empty kind for untagged errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error to the status code the API returns for it.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindConfiguration, KindValidation:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUpstream:
		return http.StatusBadGateway
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
