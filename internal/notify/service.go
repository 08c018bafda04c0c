package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/taskhub-api/internal/domain"
	"github.com/taskhub/taskhub-api/internal/platform/logger"
	"github.com/taskhub/taskhub-api/internal/store"
)

// NotificationService provides the recipient-facing read operations over
// persisted notifications plus the retention delete used by the sweep.
type NotificationService struct {
	notifStore store.NotificationStore
	logger     *slog.Logger
}

// NewNotificationService creates a NotificationService.
func NewNotificationService(notifStore store.NotificationStore, log *slog.Logger) *NotificationService {
	if log == nil {
		log = slog.Default()
	}
	return &NotificationService{
		notifStore: notifStore,
		logger:     log.With(slog.String("component", "notification_service")),
	}
}

// List returns all notifications for the recipient, newest first.
func (s *NotificationService) List(ctx context.Context, recipientID uuid.UUID) ([]*domain.Notification, error) {
	return s.notifStore.ListByRecipient(ctx, recipientID)
}

// ListUnread returns the recipient's unread notifications, newest first.
func (s *NotificationService) ListUnread(ctx context.Context, recipientID uuid.UUID) ([]*domain.Notification, error) {
	return s.notifStore.ListUnreadByRecipient(ctx, recipientID)
}

// MarkAllRead flips every unread notification of the recipient to read.
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)
	if err := s.notifStore.MarkAllRead(ctx, recipientID); err != nil {
		log.Error("failed to mark notifications read",
			"recipient_id", recipientID.String(),
			"error", err)
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

// DeleteOlderThan removes notifications older than the retention window and
// reports how many were deleted.
func (s *NotificationService) DeleteOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	return s.notifStore.DeleteOlderThan(ctx, cutoff)
}
