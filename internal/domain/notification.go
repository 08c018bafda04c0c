package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Notification is a persisted message informing a user of a task-lifecycle
// event. Rows are written by the notification consumer, flipped to read in
// bulk by the recipient, and removed by the retention sweep.
type Notification struct {
	ID          int64     `json:"id"`
	Message     string    `json:"message"`
	RecipientID uuid.UUID `json:"recipient_id"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}

// NotificationRequest is the transient payload carried over the broker,
// keyed by recipient id. It is constructed by the task workflow on every
// transition and never persisted as-is.
type NotificationRequest struct {
	Message     string    `json:"message"`
	RecipientID uuid.UUID `json:"recipientId"`
	Read        bool      `json:"read"`
}

// NewNotificationRequest builds an unread notification request.
func NewNotificationRequest(recipientID uuid.UUID, message string) (*NotificationRequest, error) {
	if recipientID == uuid.Nil {
		return nil, NewValidationError("recipient_id", "cannot be empty", ErrValidation)
	}
	if strings.TrimSpace(message) == "" {
		return nil, NewValidationError("message", "cannot be empty", ErrValidation)
	}
	return &NotificationRequest{
		Message:     message,
		RecipientID: recipientID,
		Read:        false,
	}, nil
}

// FailedNotification is the local fallback record written when a publish
// could not reach the broker. The retry sweep re-publishes and deletes it.
type FailedNotification struct {
	ID          int64     `json:"id"`
	RecipientID uuid.UUID `json:"recipient_id"`
	Message     string    `json:"message"`
}
