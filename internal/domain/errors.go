// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is the base error for every rejected state transition.
	// Specific transition errors wrap it so callers can classify with
	// errors.Is while still surfacing a precise reason.
	ErrConflict = errors.New("invalid state transition")

	// ErrForbidden is returned when the caller is not authorized for the
	// target task. The API layer maps it to a not-found style response so
	// task existence does not leak across managers and workers.
	ErrForbidden = errors.New("caller not authorized for this task")

	// ErrExtensionMissing is returned when an extension decision targets a
	// task that has no extension request. The extension is absent, not in a
	// wrong state, so this is a not-found kind rather than a conflict.
	ErrExtensionMissing = errors.New("no extension requested for this task")
)

// Transition errors. Each wraps ErrConflict and carries the user-visible
// reason for the rejected transition.
var (
	// ErrTaskCompleted is returned when any mutation targets a completed task.
	ErrTaskCompleted = fmt.Errorf("%w: completed task cannot be modified", ErrConflict)

	// ErrTaskNotSubmitted is returned when a submission review targets a task
	// that is not in SUBMITTED state.
	ErrTaskNotSubmitted = fmt.Errorf("%w: task has not been submitted", ErrConflict)

	// ErrTaskNotOverdue is returned when an extension is requested for a task
	// whose due date has not passed yet.
	ErrTaskNotOverdue = fmt.Errorf("%w: task is not overdue", ErrConflict)

	// ErrExtensionExists is returned when a task already carries an extension
	// request. A task gets at most one extension over its lifetime.
	ErrExtensionExists = fmt.Errorf("%w: extension already requested", ErrConflict)

	// ErrExtensionApproved is returned when an already approved extension is
	// approved again.
	ErrExtensionApproved = fmt.Errorf("%w: extension already approved", ErrConflict)

	// ErrExtensionNotPending is returned when a non-pending extension is
	// rejected.
	ErrExtensionNotPending = fmt.Errorf("%w: extension is not pending", ErrConflict)
)

// ValidationError provides field-level context for validation failures.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError wrapping ErrValidation
// unless a more specific base error is supplied.
func NewValidationError(field, message string, err error) *ValidationError {
	if err == nil {
		err = ErrValidation
	}
	return &ValidationError{Field: field, Message: message, Err: err}
}
