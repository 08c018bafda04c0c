package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/taskhub/taskhub-api/internal/api/shared"
	"github.com/taskhub/taskhub-api/internal/domain"
)

// NotificationReader is the slice of the notification service the HTTP
// handlers use.
type NotificationReader interface {
	List(ctx context.Context, recipientID uuid.UUID) ([]*domain.Notification, error)
	ListUnread(ctx context.Context, recipientID uuid.UUID) ([]*domain.Notification, error)
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) error
}

// NotificationHandler handles the recipient-facing notification endpoints.
type NotificationHandler struct {
	notifications NotificationReader
	logger        *slog.Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifications NotificationReader, logger *slog.Logger) *NotificationHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for NotificationHandler")
	}

	return &NotificationHandler{
		notifications: notifications,
		logger:        logger.With(slog.String("component", "notification_handler")),
	}
}

// ListNotifications handles GET /notifications requests
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	recipientID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	notifications, err := h.notifications.List(r.Context(), recipientID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list notifications")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, notificationsToResponse(notifications))
}

// ListUnreadNotifications handles GET /notifications/unread requests
func (h *NotificationHandler) ListUnreadNotifications(w http.ResponseWriter, r *http.Request) {
	recipientID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	notifications, err := h.notifications.ListUnread(r.Context(), recipientID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list unread notifications")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, notificationsToResponse(notifications))
}

// MarkAllRead handles POST /notifications/read requests
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	recipientID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	if err := h.notifications.MarkAllRead(r.Context(), recipientID); err != nil {
		HandleAPIError(w, r, err, "Failed to mark notifications read")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
