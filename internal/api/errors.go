package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/taskhub/taskhub-api/internal/domain"
	"github.com/taskhub/taskhub-api/internal/service/auth"
	"github.com/taskhub/taskhub-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients. A task the caller must not touch maps to 404 like a
// missing one, so responses never reveal whether a foreign task exists.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrMissingRole):
		return http.StatusUnauthorized

	// Not found and not-yours: indistinguishable from outside
	case errors.Is(err, store.ErrTaskNotFound),
		errors.Is(err, store.ErrExtensionNotFound),
		errors.Is(err, store.ErrNotificationNotFound),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, domain.ErrExtensionMissing),
		errors.Is(err, domain.ErrForbidden):
		return http.StatusNotFound

	// Transition conflicts
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingRole):
		return "Invalid token"

	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"

	// Not found and not-yours share one message
	case errors.Is(err, store.ErrTaskNotFound),
		errors.Is(err, domain.ErrForbidden):
		return "Task not found"

	case errors.Is(err, store.ErrExtensionNotFound),
		errors.Is(err, domain.ErrExtensionMissing):
		return "No extension request exists for this task"

	case errors.Is(err, store.ErrNotificationNotFound):
		return "Notification not found"

	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"

	// Conflict errors keep the transition reason
	case errors.Is(err, domain.ErrTaskCompleted):
		return "Task is already completed"

	case errors.Is(err, domain.ErrTaskNotSubmitted):
		return "Task has not been submitted for review"

	case errors.Is(err, domain.ErrTaskNotOverdue):
		return "Task is not overdue"

	case errors.Is(err, domain.ErrExtensionExists),
		errors.Is(err, store.ErrExtensionExists):
		return "An extension has already been requested for this task"

	case errors.Is(err, domain.ErrExtensionApproved):
		return "Extension request is already approved"

	case errors.Is(err, domain.ErrExtensionNotPending):
		return "Extension request is no longer pending"

	case errors.Is(err, domain.ErrConflict):
		return "Operation conflicts with the task's current state"

	// Bad request errors
	case errors.Is(err, domain.ErrValidation):
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			return fmt.Sprintf("Invalid %s: %s", validationErr.Field, validationErr.Message)
		}
		return "Invalid request data"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	// Default case for unknown errors
	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Check if this is likely a validation error message
	if strings.Contains(errMsg, "Field validation") {
		// Example format: "Key: 'CreateTaskRequest.Title' Error:Field validation for 'Title' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "url":
		return "invalid URL"
	default:
		return "validation failed"
	}
}
