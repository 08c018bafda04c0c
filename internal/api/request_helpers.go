package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/taskhub/taskhub-api/internal/api/shared"
	"github.com/taskhub/taskhub-api/internal/domain"
	"github.com/taskhub/taskhub-api/internal/platform/logger"
)

// HandleAPIError maps an internal error to a sanitized response. An empty
// overrideMessage falls back to the kind-derived safe message.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, overrideMessage string) {
	statusCode := MapErrorToStatusCode(err)
	message := overrideMessage
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, statusCode, message, err)
}

// getUserIDFromContext extracts the authenticated user's UUID from the
// request context. The user ID is placed there by the auth middleware.
func getUserIDFromContext(r *http.Request) (uuid.UUID, bool) {
	userID, ok := shared.GetUserID(r.Context())
	if !ok || userID == uuid.Nil {
		return uuid.Nil, false
	}
	return userID, true
}

// getPathTaskID extracts the numeric task id from the URL path.
func getPathTaskID(r *http.Request) (int64, error) {
	pathParam := chi.URLParam(r, "id")
	if pathParam == "" {
		return 0, domain.NewValidationError("id", "is required", domain.ErrValidation)
	}

	id, err := strconv.ParseInt(pathParam, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError("id", "must be a positive integer", domain.ErrValidation)
	}
	return id, nil
}

// handleUserIDAndTaskID extracts the caller id from the context and the task
// id from the path, writing an error response if either fails.
func handleUserIDAndTaskID(
	w http.ResponseWriter,
	r *http.Request,
	log *slog.Logger,
) (uuid.UUID, int64, bool) {
	if log == nil {
		log = logger.FromContextOrDefault(r.Context(), slog.Default())
	}

	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return uuid.Nil, 0, false
	}

	taskID, err := getPathTaskID(r)
	if err != nil {
		log.Warn("invalid task id", slog.String("value", chi.URLParam(r, "id")))
		HandleAPIError(w, r, err, "")
		return uuid.Nil, 0, false
	}

	return userID, taskID, true
}
