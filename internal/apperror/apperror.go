// Package apperror defines the error taxonomy shared by the repository,
// service and handler layers.
//
// Lower layers return these errors (usually wrapped with fmt.Errorf("...: %w")),
// and the HTTP layer maps them to status codes with errors.Is. Anything that
// is not an *AppError is treated as a server error.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrEmptyCart    = errors.New("empty cart")
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

// Duplicate reports a unique-key collision. It is a validation failure from
// the caller's point of view: the submitted value is not acceptable.
func Duplicate(field, value string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: fmt.Sprintf("%s %q is already in use", field, value),
		Field:   field,
	}
}

// Unauthorized means the caller could not be identified: missing, invalid or
// expired credentials. HTTP handlers map this to 401.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
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

// EmptyCart is returned by checkout when the caller has no cart lines.
func EmptyCart() *AppError {
	return &AppError{
		Err:     ErrEmptyCart,
		Message: "cart is empty",
	}
}
