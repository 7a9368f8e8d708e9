package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a marketplace error for HTTP mapping and retry policy.
type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
	KindForbidden  Kind = "forbidden"
	KindDependency Kind = "dependency"
)

// Error is the typed error returned by all marketplace operations.
// Validation and conflict checks run before any mutation, so an Error
// of those kinds implies nothing was written.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// HTTPStatus maps the error kind to a response status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindDependency:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

func Conflictf(format string, args ...any) *Error {
	return newError(KindConflict, format, args...)
}

func NotFoundf(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

func Forbiddenf(format string, args ...any) *Error {
	return newError(KindForbidden, format, args...)
}

func Dependencyf(format string, args ...any) *Error {
	return newError(KindDependency, format, args...)
}

// KindOf returns the Kind of err if it wraps a marketplace Error,
// or an empty Kind otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err wraps a marketplace Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
