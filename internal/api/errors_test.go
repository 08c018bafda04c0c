package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/taskhub/taskhub-api/internal/api/shared"
	"github.com/taskhub/taskhub-api/internal/domain"
	"github.com/taskhub/taskhub-api/internal/service/auth"
	"github.com/taskhub/taskhub-api/internal/store"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid token", auth.ErrInvalidToken, http.StatusUnauthorized},
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized},
		{"missing role", auth.ErrMissingRole, http.StatusUnauthorized},
		{"task not found", store.ErrTaskNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("%w: task with ID 7", store.ErrTaskNotFound), http.StatusNotFound},
		{"forbidden maps to not found", domain.ErrForbidden, http.StatusNotFound},
		{"extension missing maps to not found", domain.ErrExtensionMissing, http.StatusNotFound},
		{"wrapped extension missing", fmt.Errorf("transition rejected: %w", domain.ErrExtensionMissing), http.StatusNotFound},
		{"completed conflict", domain.ErrTaskCompleted, http.StatusConflict},
		{"not submitted conflict", domain.ErrTaskNotSubmitted, http.StatusConflict},
		{"not overdue conflict", domain.ErrTaskNotOverdue, http.StatusConflict},
		{"extension exists conflict", domain.ErrExtensionExists, http.StatusConflict},
		{"extension approved conflict", domain.ErrExtensionApproved, http.StatusConflict},
		{"validation", domain.ErrValidation, http.StatusBadRequest},
		{"invalid entity", store.ErrInvalidEntity, http.StatusBadRequest},
		{"unknown", errors.New("surprise"), http.StatusInternalServerError},
		{"nil", nil, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := MapErrorToStatusCode(tc.err); got != tc.want {
				t.Errorf("Expected status %d, got %d", tc.want, got)
			}
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"task not found", store.ErrTaskNotFound, "Task not found"},
		{"forbidden indistinguishable from missing", domain.ErrForbidden, "Task not found"},
		{"completed", domain.ErrTaskCompleted, "Task is already completed"},
		{"not submitted", domain.ErrTaskNotSubmitted, "Task has not been submitted for review"},
		{"not overdue", domain.ErrTaskNotOverdue, "Task is not overdue"},
		{"extension exists", domain.ErrExtensionExists, "An extension has already been requested for this task"},
		{"store extension exists", store.ErrExtensionExists, "An extension has already been requested for this task"},
		{"extension missing", domain.ErrExtensionMissing, "No extension request exists for this task"},
		{"extension approved", domain.ErrExtensionApproved, "Extension request is already approved"},
		{"extension not pending", domain.ErrExtensionNotPending, "Extension request is no longer pending"},
		{"expired token", auth.ErrExpiredToken, "Token expired"},
		{"unknown", errors.New("pq: syntax error at line 3"), "An unexpected error occurred"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := GetSafeErrorMessage(tc.err); got != tc.want {
				t.Errorf("Expected %q, got %q", tc.want, got)
			}
		})
	}

	// Wrapped errors keep their kind through service-layer wrapping.
	wrapped := fmt.Errorf("transition rejected: %w", domain.ErrTaskCompleted)
	if got := GetSafeErrorMessage(wrapped); got != "Task is already completed" {
		t.Errorf("Expected conflict message through wrapping, got %q", got)
	}

	// Validation errors surface the field, never internals.
	vErr := domain.NewValidationError("due_date", "must not be in the past", domain.ErrValidation)
	if got := GetSafeErrorMessage(vErr); got != "Invalid due_date: must not be in the past" {
		t.Errorf("Expected field-level validation message, got %q", got)
	}
}

func TestSanitizeValidationError(t *testing.T) {
	t.Parallel()

	// Real validator output for a missing required field.
	err := shared.ValidateRequest(CreateTaskRequest{
		Description: "desc",
		AssigneeID:  "b6b0ae4d-9957-4a3c-9d20-0f3a5bcd2a4f",
		Priority:    "HIGH",
		DueDate:     "2026-09-01",
	})
	if err == nil {
		t.Fatal("Expected a validation error for the missing title")
	}
	if got := SanitizeValidationError(err); got != "Invalid Title: required field" {
		t.Errorf("Expected sanitized message, got %q", got)
	}

	// Arbitrary errors collapse to a generic message.
	if got := SanitizeValidationError(errors.New("pq: connection refused")); got != "Validation error" {
		t.Errorf("Expected generic message, got %q", got)
	}
}
