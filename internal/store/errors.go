package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the
	// store. Entity-specific variants below wrap it.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate of
	// a unique entity (e.g. a second extension for the same task).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed is returned when a database transaction fails to
	// commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// Entity-specific "not found" errors

	// ErrTaskNotFound indicates that the requested task does not exist.
	ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)

	// ErrExtensionNotFound indicates that the task has no extension request.
	ErrExtensionNotFound = fmt.Errorf("%w: extension", ErrNotFound)

	// ErrNotificationNotFound indicates that the requested notification does
	// not exist.
	ErrNotificationNotFound = fmt.Errorf("%w: notification", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrExtensionExists indicates that the task already has an extension
	// request. The one-extension-per-task invariant is enforced by a unique
	// back-reference in the store.
	ErrExtensionExists = fmt.Errorf("%w: extension", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
