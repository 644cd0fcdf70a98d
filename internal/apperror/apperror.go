// Package apperror defines the error taxonomy shared by the client and the
// feed server. Every AppError wraps one of the sentinels below so callers can
// branch with errors.Is while users still see a field- or cause-named message.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrMissingRecord   = errors.New("missing record")
	ErrRemoteCall      = errors.New("remote call failed")
)

type AppError struct {
	Err     error  // sentinel
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: underlying transport or driver error
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the sentinel and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
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

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Unauthenticated is returned when an operation needs an identity and none
// is available. Clients recover by running the login flow.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}

// MissingRecord is returned when a record is published before it has been
// persisted locally and therefore has no id.
func MissingRecord(message string) *AppError {
	return &AppError{
		Err:     ErrMissingRecord,
		Message: message,
	}
}

// RemoteCallFailed reports a failed remote procedure. message should be the
// remote side's own error text when one was returned.
func RemoteCallFailed(procedure, message string, cause error) *AppError {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &AppError{
		Err:     ErrRemoteCall,
		Message: fmt.Sprintf("%s: %s", procedure, message),
		Cause:   cause,
	}
}

// FieldOf returns the Field of the first AppError in err's chain.
func FieldOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
