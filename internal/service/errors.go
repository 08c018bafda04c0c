// Package service implements the task workflow engine: the lifecycle state
// machine over tasks and extensions, the authorization scoping of each
// transition, and the notification requests every transition emits.
package service

import "fmt"

// WorkflowError is the error type wrapping failures of workflow operations.
// The wrapped error carries the kind (store.ErrNotFound, domain.ErrForbidden,
// domain.ErrConflict, validation); callers classify with errors.Is and the
// API layer maps kinds to response codes.
type WorkflowError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for WorkflowError.
func (e *WorkflowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task workflow %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("task workflow %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// NewWorkflowError creates a new WorkflowError.
func NewWorkflowError(operation, message string, err error) *WorkflowError {
	return &WorkflowError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
