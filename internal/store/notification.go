package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/taskhub-api/internal/domain"
)

// NotificationStore defines persistence for delivered notifications.
// Only the notification consumer writes new rows; duplicates caused by
// broker redelivery are acceptable and bounded.
type NotificationStore interface {
	// Create saves a new notification and assigns its numeric id.
	Create(ctx context.Context, n *domain.Notification) error

	// ListByRecipient returns all notifications for the recipient, newest
	// first.
	ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]*domain.Notification, error)

	// ListUnreadByRecipient returns unread notifications for the recipient,
	// newest first.
	ListUnreadByRecipient(ctx context.Context, recipientID uuid.UUID) ([]*domain.Notification, error)

	// MarkAllRead flips every unread notification of the recipient to read.
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) error

	// DeleteOlderThan removes notifications created before the cutoff and
	// reports how many were deleted. Used by the retention sweep.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// FailedNotificationStore defines persistence for the producer-side fallback
// records written when the broker cannot be reached.
type FailedNotificationStore interface {
	// Create saves a failed notification record.
	Create(ctx context.Context, fn *domain.FailedNotification) error

	// List returns all failed notification records.
	List(ctx context.Context) ([]*domain.FailedNotification, error)

	// Delete removes a record once its retry succeeded.
	Delete(ctx context.Context, id int64) error
}
