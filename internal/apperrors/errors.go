// Package apperrors defines the typed errors the services and validators
// raise. Each error carries the HTTP status it maps to, so a single handler
// at the transport boundary can shape every failure response.
package apperrors

import (
	"errors"
	"net/http"
)

// FieldError is one field-level validation violation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is an operational error with a fixed HTTP status. Fields is non-nil
// only for validation errors that report every violation at once.
type Error struct {
	Status  int
	Message string
	Fields  []FieldError
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// WithCause attaches an underlying error for server-side logging.
func (e *Error) WithCause(err error) *Error {
	clone := *e
	clone.cause = err
	return &clone
}

func newError(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// BadRequest is a single-message 400.
func BadRequest(message string) *Error {
	return newError(http.StatusBadRequest, message)
}

// Validation is a 400 listing all field violations.
func Validation(message string, fields []FieldError) *Error {
	e := newError(http.StatusBadRequest, message)
	e.Fields = fields
	return e
}

// Unauthorized is a 401.
func Unauthorized(message string) *Error {
	if message == "" {
		message = "Unauthorized access"
	}
	return newError(http.StatusUnauthorized, message)
}

// Forbidden is a 403.
func Forbidden(message string) *Error {
	if message == "" {
		message = "Access forbidden"
	}
	return newError(http.StatusForbidden, message)
}

// NotFound is a 404.
func NotFound(message string) *Error {
	if message == "" {
		message = "Resource not found"
	}
	return newError(http.StatusNotFound, message)
}

// Conflict is a 409.
func Conflict(message string) *Error {
	if message == "" {
		message = "Resource conflict"
	}
	return newError(http.StatusConflict, message)
}

// Unavailable is a 503, used when a backing store cannot be reached.
func Unavailable(message string) *Error {
	if message == "" {
		message = "Service temporarily unavailable. Please try again later."
	}
	return newError(http.StatusServiceUnavailable, message)
}

// Internal is a 500 wrapping an unexpected error.
func Internal(err error) *Error {
	e := newError(http.StatusInternalServerError, "Something went wrong. Please try again later.")
	e.cause = err
	return e
}

// As unwraps err into an *Error when possible.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
