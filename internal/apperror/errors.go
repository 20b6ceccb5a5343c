// Package apperror defines the error taxonomy shared by the services and the
// event router. Every error a caller can act on carries a Kind; anything else
// is treated as a ServiceError at the boundary.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a machine-readable error category
type Kind string

const (
	KindValidation       Kind = "validation_error"
	KindConflict         Kind = "conflict"
	KindUnauthorized     Kind = "unauthorized"
	KindForbidden        Kind = "forbidden"
	KindNotFound         Kind = "not_found"
	KindService          Kind = "service_error"
	KindMalformedPayload Kind = "malformed_payload"
)

// Error is an application error with a kind, a human message and optional
// field-level details.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string][]string
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

// Validation returns a ValidationError with field-level messages
func Validation(message string, fields map[string][]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// Conflict returns a ConflictError
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// Unauthorized returns an UnauthorizedError. The cause is kept for logs only.
func Unauthorized(message string, cause error) *Error {
	return &Error{Kind: KindUnauthorized, Message: message, Err: cause}
}

// Forbidden returns a ForbiddenError
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// NotFound returns a NotFoundError
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Service wraps a downstream collaborator failure
func Service(message string, cause error) *Error {
	return &Error{Kind: KindService, Message: message, Err: cause}
}

// MalformedPayload returns a MalformedPayloadError
func MalformedPayload(message string, cause error) *Error {
	return &Error{Kind: KindMalformedPayload, Message: message, Err: cause}
}

// KindOf returns the kind of err, or KindService for errors outside the taxonomy
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindService
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// HTTPStatus maps an error kind to an HTTP status code
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindMalformedPayload:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Title is the short human label used in the "error" field of responses
func Title(kind Kind) string {
	switch kind {
	case KindValidation:
		return "Validation Error"
	case KindMalformedPayload:
		return "Bad Request"
	case KindConflict:
		return "Conflict"
	case KindUnauthorized:
		return "Unauthorized"
	case KindForbidden:
		return "Forbidden"
	case KindNotFound:
		return "Not Found"
	default:
		return "Service Error"
	}
}
