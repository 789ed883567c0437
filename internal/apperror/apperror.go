// Package apperror defines the domain error taxonomy shared by every layer.
//
// Services return these errors; the HTTP layer maps them to status codes in
// one place (handler.writeError). The sentinels cover the six outcomes the
// API distinguishes:
//
//	ErrUnauthenticated → 401  missing or invalid bearer token
//	ErrForbidden       → 403  valid identity, insufficient role or foreign resource
//	ErrNotFound        → 404  referenced session/booking/user absent
//	ErrValidation      → 400  missing field, malformed identifier
//	ErrConflict        → 409  state-incompatible operation (resend on a
//	                          non-rejected session, cancel on a paid booking)
//	ErrUpstream        → 500  storage or payment-processor failure
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("conflict")
	ErrUpstream        = errors.New("upstream failure")
)

// AppError carries a sentinel plus a human-readable message. errors.Is works
// through Unwrap, so callers can branch on the sentinel while clients see the
// message.
type AppError struct {
	Err     error
	Message string
	Field   string // optional: the request field that caused a validation error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Unauthenticated signals a missing or invalid identity assertion.
// Distinct from Forbidden: the caller could not be identified at all.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}

// Forbidden signals a validly-identified caller lacking the required role,
// or acting on another identity's resource.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Upstream wraps a storage or payment-processor failure. The message stays
// generic; the underlying cause is preserved for logging, never for clients.
func Upstream(op string, err error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %s: %v", ErrUpstream, op, err),
		Message: "an internal error occurred",
	}
}
