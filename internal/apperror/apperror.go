// Package apperror defines the typed errors shared by the repository, service
// and handler layers.
//
// Repositories and services return these; only the handler layer knows how
// they map to HTTP status codes (see handler/response.go).
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("unavailable")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports a missing entity. id is formatted with %v so both numeric
// primary keys and usernames read naturally in the message.
func NotFound(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %v", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Required is the common "field missing from payload" validation error.
func Required(field string) *AppError {
	return ValidationFailed(field, fmt.Sprintf("%s is required", field))
}

// Conflict reports a state conflict: a taken username, or ending a follow
// that is not active.
func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized means the operation needs an authenticated caller and there
// is none.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Unavailable reports a feature whose backing service is not configured on
// this deployment, such as audio uploads without object storage.
func Unavailable(message string) *AppError {
	return &AppError{
		Err:     ErrUnavailable,
		Message: message,
	}
}
