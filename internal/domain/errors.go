// Package domain defines core types, interfaces, and errors for the document archive.
package domain

import (
	"errors"
	"fmt"
)

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// UnauthenticatedError indicates a missing, invalid, or expired session token.
type UnauthenticatedError struct {
	Message string
}

func (e *UnauthenticatedError) Error() string { return e.Message }

// AccessDeniedError indicates insufficient permissions.
type AccessDeniedError struct {
	Message string
}

func (e *AccessDeniedError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate resource).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// UnavailableError indicates an external collaborator failed after every
// credential candidate was exhausted.
type UnavailableError struct {
	Message string
	Cause   error
}

func (e *UnavailableError) Error() string { return e.Message }

// Unwrap exposes the aggregated per-candidate failures.
func (e *UnavailableError) Unwrap() error { return e.Cause }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrUnauthenticated creates an UnauthenticatedError with a formatted message.
func ErrUnauthenticated(format string, args ...interface{}) *UnauthenticatedError {
	return &UnauthenticatedError{Message: fmt.Sprintf(format, args...)}
}

// ErrAccessDenied creates an AccessDeniedError with a formatted message.
func ErrAccessDenied(format string, args ...interface{}) *AccessDeniedError {
	return &AccessDeniedError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrUnavailable creates an UnavailableError wrapping the aggregated cause.
func ErrUnavailable(cause error, format string, args ...interface{}) *UnavailableError {
	return &UnavailableError{Message: fmt.Sprintf(format, args...), Cause: cause}
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}
