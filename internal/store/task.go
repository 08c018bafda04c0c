package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/taskhub-api/internal/domain"
)

// TaskStore defines persistence for tasks and their owned extensions.
// Implementations must save and load the extension together with its task;
// deleting a task removes its extension.
type TaskStore interface {
	// Create saves a new task and assigns its numeric id.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task (with extension, if any) by its id.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Task, error)

	// Update persists the current state of the task and its extension.
	// Returns ErrTaskNotFound if the task does not exist and
	// ErrExtensionExists if a concurrent writer already attached one.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes the task and its extension.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id int64) error

	// List returns all tasks ordered by id.
	List(ctx context.Context) ([]*domain.Task, error)

	// ListByManager returns all tasks owned by the given manager.
	ListByManager(ctx context.Context, managerID uuid.UUID) ([]*domain.Task, error)

	// ListByAssignee returns all tasks assigned to the given worker.
	ListByAssignee(ctx context.Context, assigneeID uuid.UUID) ([]*domain.Task, error)

	// ListByStatus returns the manager's tasks in the given status.
	ListByStatus(ctx context.Context, managerID uuid.UUID, status domain.TaskStatus) ([]*domain.Task, error)

	// ListPendingExtensions returns the manager's tasks carrying a PENDING
	// extension request.
	ListPendingExtensions(ctx context.Context, managerID uuid.UUID) ([]*domain.Task, error)

	// ListDueBefore returns non-completed tasks whose due date lies strictly
	// before the given date. Used by the reminder and overdue sweeps.
	ListDueBefore(ctx context.Context, date time.Time) ([]*domain.Task, error)

	// WithTx returns a store instance bound to the given transaction.
	WithTx(tx *sql.Tx) TaskStore

	// DB returns the underlying database handle for transaction control.
	DB() *sql.DB
}
