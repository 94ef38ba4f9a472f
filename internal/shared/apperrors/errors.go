package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers and for HTTP mapping
type Kind string

const (
	KindNotFound           Kind = "NOT_FOUND"
	KindBadRequest         Kind = "BAD_REQUEST"
	KindConflict           Kind = "CONFLICT"
	KindForbidden          Kind = "FORBIDDEN"
	KindUnauthenticated    Kind = "UNAUTHENTICATED"
	KindServiceUnavailable Kind = "SERVICE_UNAVAILABLE"
	KindInternal           Kind = "INTERNAL"
)

// Error is a classified application error
type Error struct {
	Kind    Kind
	Message string
	Details interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetails attaches a payload that is rendered in the response "errors" field
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return newError(KindNotFound, format, args...)
}

func BadRequest(format string, args ...interface{}) *Error {
	return newError(KindBadRequest, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return newError(KindConflict, format, args...)
}

// InvalidState is reported to callers as a conflict
func InvalidState(format string, args ...interface{}) *Error {
	return newError(KindConflict, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return newError(KindForbidden, format, args...)
}

func Unauthenticated(format string, args ...interface{}) *Error {
	return newError(KindUnauthenticated, format, args...)
}

// Unavailable wraps a transport failure against an external collaborator
func Unavailable(err error, format string, args ...interface{}) *Error {
	e := newError(KindServiceUnavailable, format, args...)
	e.Err = err
	return e
}

// Internal wraps an unexpected failure
func Internal(err error, format string, args ...interface{}) *Error {
	e := newError(KindInternal, format, args...)
	e.Err = err
	return e
}

// KindOf returns the kind of the first *Error in the chain, or KindInternal
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a kind to its HTTP status code
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindBadRequest:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
