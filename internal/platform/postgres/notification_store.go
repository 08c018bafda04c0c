package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/taskhub-api/internal/domain"
	"github.com/taskhub/taskhub-api/internal/platform/logger"
	"github.com/taskhub/taskhub-api/internal/store"
)

// PostgresNotificationStore implements the store.NotificationStore interface
// using a PostgreSQL database as the storage backend.
type PostgresNotificationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresNotificationStore creates a new PostgreSQL implementation of
// the NotificationStore interface. If logger is nil, a default logger is
// used.
func NewPostgresNotificationStore(db store.DBTX, logger *slog.Logger) *PostgresNotificationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresNotificationStore{
		db:     db,
		logger: logger.With(slog.String("component", "notification_store")),
	}
}

// Ensure PostgresNotificationStore implements store.NotificationStore interface
var _ store.NotificationStore = (*PostgresNotificationStore)(nil)

// Create implements store.NotificationStore.Create
// Duplicates are allowed: at-least-once delivery from the broker can replay
// a message, and a replayed row is preferred over a lost one.
func (s *PostgresNotificationStore) Create(ctx context.Context, n *domain.Notification) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO notifications (message, recipient_id, read, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := s.db.QueryRowContext(
		ctx,
		query,
		n.Message,
		n.RecipientID,
		n.Read,
		n.CreatedAt,
	).Scan(&n.ID)
	if err != nil {
		log.Error("failed to create notification",
			slog.String("error", err.Error()),
			slog.String("recipient_id", n.RecipientID.String()))
		return MapError(err)
	}

	log.Debug("notification created",
		slog.Int64("notification_id", n.ID),
		slog.String("recipient_id", n.RecipientID.String()))
	return nil
}

// ListByRecipient implements store.NotificationStore.ListByRecipient
func (s *PostgresNotificationStore) ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]*domain.Notification, error) {
	query := `
		SELECT id, message, recipient_id, read, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
	`
	return s.queryNotifications(ctx, query, recipientID)
}

// ListUnreadByRecipient implements store.NotificationStore.ListUnreadByRecipient
func (s *PostgresNotificationStore) ListUnreadByRecipient(ctx context.Context, recipientID uuid.UUID) ([]*domain.Notification, error) {
	query := `
		SELECT id, message, recipient_id, read, created_at
		FROM notifications
		WHERE recipient_id = $1 AND read = FALSE
		ORDER BY created_at DESC
	`
	return s.queryNotifications(ctx, query, recipientID)
}

// MarkAllRead implements store.NotificationStore.MarkAllRead
// Marking with nothing unread is a successful no-op.
func (s *PostgresNotificationStore) MarkAllRead(ctx context.Context, recipientID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE notifications
		SET read = TRUE
		WHERE recipient_id = $1 AND read = FALSE
	`
	if _, err := s.db.ExecContext(ctx, query, recipientID); err != nil {
		log.Error("failed to mark notifications read",
			slog.String("error", err.Error()),
			slog.String("recipient_id", recipientID.String()))
		return MapError(err)
	}
	return nil
}

// DeleteOlderThan implements store.NotificationStore.DeleteOlderThan
func (s *PostgresNotificationStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM notifications WHERE created_at < $1", cutoff)
	if err != nil {
		log.Error("failed to delete old notifications",
			slog.String("error", err.Error()))
		return 0, MapError(err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		log.Info("old notifications deleted",
			slog.Int64("count", deleted),
			slog.Time("cutoff", cutoff))
	}
	return deleted, nil
}

func (s *PostgresNotificationStore) queryNotifications(ctx context.Context, query string, args ...any) ([]*domain.Notification, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query notifications", slog.String("error", err.Error()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	notifications := []*domain.Notification{}
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.Message, &n.RecipientID, &n.Read, &n.CreatedAt); err != nil {
			log.Error("failed to scan notification row", slog.String("error", err.Error()))
			return nil, err
		}
		notifications = append(notifications, &n)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}
	return notifications, nil
}
