package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/taskhub/taskhub-api/internal/domain"
	"github.com/taskhub/taskhub-api/internal/platform/logger"
	"github.com/taskhub/taskhub-api/internal/store"
)

// taskColumns is the projection shared by every task query. The extension
// is loaded in the same round trip through a LEFT JOIN; a task carries at
// most one.
const taskColumns = `
	t.id, t.title, t.description, t.assignee_id, t.manager_id, t.priority,
	t.due_date, t.status, t.rejection_note, t.completion_note,
	t.submission_url, t.overdue, t.completed_at, t.last_updated,
	e.id, e.requested_due_date, e.reason, e.reject_reason, e.status
`

const taskSelectBase = `
	SELECT ` + taskColumns + `
	FROM tasks t
	LEFT JOIN task_extensions e ON e.task_id = t.id
`

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	sqlDB  *sql.DB
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// TaskStore interface. It accepts an initialized database handle; the
// caller manages its lifecycle. If logger is nil, a default logger is used.
func NewPostgresTaskStore(db *sql.DB, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		sqlDB:  db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx implements store.TaskStore.WithTx
// It returns a store whose operations run inside the given transaction.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		sqlDB:  s.sqlDB,
		logger: s.logger,
	}
}

// DB implements store.TaskStore.DB
func (s *PostgresTaskStore) DB() *sql.DB {
	return s.sqlDB
}

// Create implements store.TaskStore.Create
// It saves a new task and assigns its database-generated id.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()))
		return err
	}

	query := `
		INSERT INTO tasks (title, description, assignee_id, manager_id,
			priority, due_date, status, rejection_note, completion_note,
			submission_url, overdue, completed_at, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	err := s.db.QueryRowContext(
		ctx,
		query,
		task.Title,
		task.Description,
		task.AssigneeID,
		task.ManagerID,
		task.Priority,
		task.DueDate,
		task.Status,
		task.RejectionNote,
		task.CompletionNote,
		task.SubmissionURL,
		task.Overdue,
		task.CompletedAt,
		task.LastUpdated,
	).Scan(&task.ID)

	if err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("manager_id", task.ManagerID.String()))
		return MapError(err)
	}

	log.Info("task created successfully",
		slog.Int64("task_id", task.ID),
		slog.String("assignee_id", task.AssigneeID.String()))
	return nil
}

// GetByID implements store.TaskStore.GetByID
// It retrieves a task with its extension, if any.
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	row := s.db.QueryRowContext(ctx, taskSelectBase+" WHERE t.id = $1", id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.Int64("task_id", id))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.Int64("task_id", id))
		return nil, err
	}
	return task, nil
}

// Update implements store.TaskStore.Update
// It persists the task's current state together with its extension.
// Returns store.ErrTaskNotFound if the task does not exist and
// store.ErrExtensionExists if a concurrent writer already attached one.
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during update",
			slog.String("error", err.Error()),
			slog.Int64("task_id", task.ID))
		return err
	}

	query := `
		UPDATE tasks
		SET title = $1, description = $2, assignee_id = $3, priority = $4,
			due_date = $5, status = $6, rejection_note = $7,
			completion_note = $8, submission_url = $9, overdue = $10,
			completed_at = $11, last_updated = $12
		WHERE id = $13
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		task.Title,
		task.Description,
		task.AssigneeID,
		task.Priority,
		task.DueDate,
		task.Status,
		task.RejectionNote,
		task.CompletionNote,
		task.SubmissionURL,
		task.Overdue,
		task.CompletedAt,
		task.LastUpdated,
		task.ID,
	)
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.Int64("task_id", task.ID))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, "task"); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: task with ID %d", store.ErrTaskNotFound, task.ID)
		}
		return err
	}

	if task.Extension != nil {
		if err := s.saveExtension(ctx, task); err != nil {
			return err
		}
	}

	log.Info("task updated successfully",
		slog.Int64("task_id", task.ID),
		slog.String("status", string(task.Status)))
	return nil
}

// saveExtension inserts a newly requested extension or updates an existing
// one. The unique constraint on task_id enforces the one-extension rule even
// against concurrent writers.
func (s *PostgresTaskStore) saveExtension(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)
	ext := task.Extension

	if ext.ID == 0 {
		query := `
			INSERT INTO task_extensions (task_id, requested_due_date, reason,
				reject_reason, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`
		err := s.db.QueryRowContext(
			ctx,
			query,
			task.ID,
			ext.RequestedDueDate,
			ext.Reason,
			ext.RejectReason,
			ext.Status,
		).Scan(&ext.ID)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
				log.Warn("extension already exists for task",
					slog.Int64("task_id", task.ID))
				return fmt.Errorf("%w: task with ID %d", store.ErrExtensionExists, task.ID)
			}
			log.Error("failed to create task extension",
				slog.String("error", err.Error()),
				slog.Int64("task_id", task.ID))
			return MapError(err)
		}
		ext.TaskID = task.ID
		return nil
	}

	query := `
		UPDATE task_extensions
		SET requested_due_date = $1, reason = $2, reject_reason = $3, status = $4
		WHERE id = $5
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		ext.RequestedDueDate,
		ext.Reason,
		ext.RejectReason,
		ext.Status,
		ext.ID,
	)
	if err != nil {
		log.Error("failed to update task extension",
			slog.String("error", err.Error()),
			slog.Int64("task_id", task.ID))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, "task extension"); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: extension with ID %d", store.ErrExtensionNotFound, ext.ID)
		}
		return err
	}
	return nil
}

// Delete implements store.TaskStore.Delete
// The extension row is removed by the ON DELETE CASCADE on task_extensions.
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) Delete(ctx context.Context, id int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.Int64("task_id", id))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, "task"); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Debug("task not found for delete", slog.Int64("task_id", id))
			return fmt.Errorf("%w: task with ID %d", store.ErrTaskNotFound, id)
		}
		return err
	}

	log.Info("task deleted successfully", slog.Int64("task_id", id))
	return nil
}

// List implements store.TaskStore.List
func (s *PostgresTaskStore) List(ctx context.Context) ([]*domain.Task, error) {
	return s.queryTasks(ctx, taskSelectBase+" ORDER BY t.id")
}

// ListByManager implements store.TaskStore.ListByManager
func (s *PostgresTaskStore) ListByManager(ctx context.Context, managerID uuid.UUID) ([]*domain.Task, error) {
	return s.queryTasks(ctx, taskSelectBase+" WHERE t.manager_id = $1 ORDER BY t.id", managerID)
}

// ListByAssignee implements store.TaskStore.ListByAssignee
func (s *PostgresTaskStore) ListByAssignee(ctx context.Context, assigneeID uuid.UUID) ([]*domain.Task, error) {
	return s.queryTasks(ctx, taskSelectBase+" WHERE t.assignee_id = $1 ORDER BY t.id", assigneeID)
}

// ListByStatus implements store.TaskStore.ListByStatus
func (s *PostgresTaskStore) ListByStatus(ctx context.Context, managerID uuid.UUID, status domain.TaskStatus) ([]*domain.Task, error) {
	return s.queryTasks(
		ctx,
		taskSelectBase+" WHERE t.manager_id = $1 AND t.status = $2 ORDER BY t.id",
		managerID, status,
	)
}

// ListPendingExtensions implements store.TaskStore.ListPendingExtensions
func (s *PostgresTaskStore) ListPendingExtensions(ctx context.Context, managerID uuid.UUID) ([]*domain.Task, error) {
	return s.queryTasks(
		ctx,
		taskSelectBase+" WHERE t.manager_id = $1 AND e.status = $2 ORDER BY t.id",
		managerID, domain.ExtensionStatusPending,
	)
}

// ListDueBefore implements store.TaskStore.ListDueBefore
func (s *PostgresTaskStore) ListDueBefore(ctx context.Context, date time.Time) ([]*domain.Task, error) {
	return s.queryTasks(
		ctx,
		taskSelectBase+" WHERE t.due_date < $1 AND t.status <> $2 ORDER BY t.id",
		date, domain.TaskStatusCompleted,
	)
}

func (s *PostgresTaskStore) queryTasks(ctx context.Context, query string, args ...any) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks", slog.String("error", err.Error()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row", slog.String("error", err.Error()))
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}
	return tasks, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task        domain.Task
		status      string
		priority    string
		completedAt sql.NullTime

		extID        sql.NullInt64
		extDueDate   sql.NullTime
		extReason    sql.NullString
		extRejReason sql.NullString
		extStatus    sql.NullString
	)

	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.AssigneeID,
		&task.ManagerID,
		&priority,
		&task.DueDate,
		&status,
		&task.RejectionNote,
		&task.CompletionNote,
		&task.SubmissionURL,
		&task.Overdue,
		&completedAt,
		&task.LastUpdated,
		&extID,
		&extDueDate,
		&extReason,
		&extRejReason,
		&extStatus,
	)
	if err != nil {
		return nil, err
	}

	task.Priority = domain.Priority(priority)
	task.Status = domain.TaskStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		task.CompletedAt = &t
	}
	if extID.Valid {
		task.Extension = &domain.TaskExtension{
			ID:               extID.Int64,
			TaskID:           task.ID,
			RequestedDueDate: extDueDate.Time,
			Reason:           extReason.String,
			RejectReason:     extRejReason.String,
			Status:           domain.ExtensionStatus(extStatus.String),
		}
	}
	return &task, nil
}
