// Package apperr defines the closed set of failures services report to the
// HTTP layer. Anything that is not an *Error is treated as unexpected.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindUnexpected Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindValidation
	KindConflict
	KindTooManyAttempts
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation_failed"
	case KindConflict:
		return "conflict"
	case KindTooManyAttempts:
		return "too_many_attempts"
	default:
		return "unexpected"
	}
}

// Status maps the kind to its HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	case KindTooManyAttempts:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind    Kind
	Message string
	// Fields carries per-field messages for validation failures.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func Unauthenticated(message string) *Error {
	if message == "" {
		message = "Unauthenticated."
	}
	return &Error{Kind: KindUnauthenticated, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Conflict(message string, err error) *Error {
	return &Error{Kind: KindConflict, Message: message, Err: err}
}

func TooManyAttempts(message string) *Error {
	return &Error{Kind: KindTooManyAttempts, Message: message}
}

// Validation builds a validation failure. The message defaults to the first
// field message, the way form validators usually summarize.
func Validation(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: summarize(fields), Fields: fields}
}

// FieldInvalid is a validation failure on a single field.
func FieldInvalid(field, message string) *Error {
	return Validation(map[string]string{field: message})
}

func summarize(fields map[string]string) string {
	if len(fields) == 0 {
		return "The given data was invalid."
	}
	var first string
	for name := range fields {
		if first == "" || name < first {
			first = name
		}
	}
	if len(fields) == 1 {
		return fields[first]
	}
	return fmt.Sprintf("%s (and %d more errors)", fields[first], len(fields)-1)
}

// KindOf returns the kind of err, KindUnexpected when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// As extracts the *Error from err.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
