// Package errx defines the catalog error kinds and maps them to HTTP status codes.
package errx

import (
	"errors"
	"fmt"
	"net/http"
)

// Kinds. Match with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrPersistence     = errors.New("persistence failure")
	ErrBulkTransaction = errors.New("bulk transaction failure")
	ErrCache           = errors.New("cache failure")
	ErrInvalidInput    = errors.New("invalid input")
)

// Error carries a kind, a caller-safe message and an optional cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

// Error returns the caller-safe message. The cause stays reachable through Unwrap.
func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

// Unwrap exposes the cause for errors.Is / errors.As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of e.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// New creates an Error of the given kind.
func New(kind error, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// NotFound reports a missing or soft-deleted product.
func NotFound(format string, args ...any) *Error {
	return New(ErrNotFound, nil, fmt.Sprintf(format, args...))
}

// Persistence wraps a store-level failure behind a generic message.
func Persistence(err error, message string) *Error {
	return New(ErrPersistence, err, message)
}

// BulkTransaction reports a rolled back bulk update. It carries no cause: callers learn that
// nothing was applied, not which statement failed.
func BulkTransaction() *Error {
	return New(ErrBulkTransaction, nil, "error completing bulk updates")
}

// Cache reports a soft cache failure for key.
func Cache(err error, op, key string) *Error {
	return New(ErrCache, err, fmt.Sprintf("cache %s %s failed", op, key))
}

// Invalid reports rejected input.
func Invalid(format string, args ...any) *Error {
	return New(ErrInvalidInput, nil, fmt.Sprintf(format, args...))
}

// Status maps an error to the HTTP status a handler should answer with.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrCache):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
