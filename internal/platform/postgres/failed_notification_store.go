package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/taskhub/taskhub-api/internal/domain"
	"github.com/taskhub/taskhub-api/internal/platform/logger"
	"github.com/taskhub/taskhub-api/internal/store"
)

// PostgresFailedNotificationStore implements the
// store.FailedNotificationStore interface using a PostgreSQL database as the
// storage backend. Rows land here when a notification request could not be
// enqueued; the retry sweep drains them.
type PostgresFailedNotificationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresFailedNotificationStore creates a new PostgreSQL implementation
// of the FailedNotificationStore interface.
func NewPostgresFailedNotificationStore(db store.DBTX, logger *slog.Logger) *PostgresFailedNotificationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresFailedNotificationStore{
		db:     db,
		logger: logger.With(slog.String("component", "failed_notification_store")),
	}
}

// Ensure PostgresFailedNotificationStore implements store.FailedNotificationStore interface
var _ store.FailedNotificationStore = (*PostgresFailedNotificationStore)(nil)

// Create implements store.FailedNotificationStore.Create
func (s *PostgresFailedNotificationStore) Create(ctx context.Context, fn *domain.FailedNotification) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO failed_notifications (recipient_id, message)
		VALUES ($1, $2)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query, fn.RecipientID, fn.Message).Scan(&fn.ID)
	if err != nil {
		log.Error("failed to record failed notification",
			slog.String("error", err.Error()),
			slog.String("recipient_id", fn.RecipientID.String()))
		return MapError(err)
	}

	log.Warn("notification parked for retry",
		slog.Int64("failed_notification_id", fn.ID),
		slog.String("recipient_id", fn.RecipientID.String()))
	return nil
}

// List implements store.FailedNotificationStore.List
func (s *PostgresFailedNotificationStore) List(ctx context.Context) ([]*domain.FailedNotification, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, recipient_id, message
		FROM failed_notifications
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to query failed notifications", slog.String("error", err.Error()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	failed := []*domain.FailedNotification{}
	for rows.Next() {
		var fn domain.FailedNotification
		if err := rows.Scan(&fn.ID, &fn.RecipientID, &fn.Message); err != nil {
			log.Error("failed to scan failed notification row", slog.String("error", err.Error()))
			return nil, err
		}
		failed = append(failed, &fn)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}
	return failed, nil
}

// Delete implements store.FailedNotificationStore.Delete
// Returns store.ErrNotificationNotFound if the row does not exist, which
// happens when a concurrent retry already drained it.
func (s *PostgresFailedNotificationStore) Delete(ctx context.Context, id int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, "DELETE FROM failed_notifications WHERE id = $1", id)
	if err != nil {
		log.Error("failed to delete failed notification",
			slog.String("error", err.Error()),
			slog.Int64("failed_notification_id", id))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, "failed notification"); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: failed notification with ID %d", store.ErrNotificationNotFound, id)
		}
		return err
	}
	return nil
}
