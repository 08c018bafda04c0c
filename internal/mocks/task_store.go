package mocks

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/taskhub-api/internal/domain"
	"github.com/taskhub/taskhub-api/internal/store"
)

// TaskStore is an in-memory implementation of store.TaskStore.
type TaskStore struct {
	mu     sync.Mutex
	tasks  map[int64]*domain.Task
	nextID int64
	extID  int64

	// Error overrides for failure-path tests. A non-nil value is returned
	// by the corresponding operation.
	CreateErr error
	GetErr    error
	UpdateErr error
	DeleteErr error
	ListErr   error
}

// NewTaskStore creates an empty in-memory task store.
func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: make(map[int64]*domain.Task)}
}

// Ensure TaskStore implements store.TaskStore interface
var _ store.TaskStore = (*TaskStore)(nil)

// Create implements store.TaskStore.Create
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	if s.CreateErr != nil {
		return s.CreateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	task.ID = s.nextID
	s.tasks[task.ID] = copyTask(task)
	return nil
}

// GetByID implements store.TaskStore.GetByID
func (s *TaskStore) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: task with ID %d", store.ErrTaskNotFound, id)
	}
	return copyTask(task), nil
}

// Update implements store.TaskStore.Update
func (s *TaskStore) Update(ctx context.Context, task *domain.Task) error {
	if s.UpdateErr != nil {
		return s.UpdateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tasks[task.ID]
	if !ok {
		return fmt.Errorf("%w: task with ID %d", store.ErrTaskNotFound, task.ID)
	}
	if task.Extension != nil && task.Extension.ID == 0 {
		if existing.Extension != nil {
			return fmt.Errorf("%w: task with ID %d", store.ErrExtensionExists, task.ID)
		}
		s.extID++
		task.Extension.ID = s.extID
		task.Extension.TaskID = task.ID
	}
	s.tasks[task.ID] = copyTask(task)
	return nil
}

// Delete implements store.TaskStore.Delete
func (s *TaskStore) Delete(ctx context.Context, id int64) error {
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return fmt.Errorf("%w: task with ID %d", store.ErrTaskNotFound, id)
	}
	delete(s.tasks, id)
	return nil
}

// List implements store.TaskStore.List
func (s *TaskStore) List(ctx context.Context) ([]*domain.Task, error) {
	return s.filter(func(t *domain.Task) bool { return true })
}

// ListByManager implements store.TaskStore.ListByManager
func (s *TaskStore) ListByManager(ctx context.Context, managerID uuid.UUID) ([]*domain.Task, error) {
	return s.filter(func(t *domain.Task) bool { return t.ManagerID == managerID })
}

// ListByAssignee implements store.TaskStore.ListByAssignee
func (s *TaskStore) ListByAssignee(ctx context.Context, assigneeID uuid.UUID) ([]*domain.Task, error) {
	return s.filter(func(t *domain.Task) bool { return t.AssigneeID == assigneeID })
}

// ListByStatus implements store.TaskStore.ListByStatus
func (s *TaskStore) ListByStatus(ctx context.Context, managerID uuid.UUID, status domain.TaskStatus) ([]*domain.Task, error) {
	return s.filter(func(t *domain.Task) bool {
		return t.ManagerID == managerID && t.Status == status
	})
}

// ListPendingExtensions implements store.TaskStore.ListPendingExtensions
func (s *TaskStore) ListPendingExtensions(ctx context.Context, managerID uuid.UUID) ([]*domain.Task, error) {
	return s.filter(func(t *domain.Task) bool {
		return t.ManagerID == managerID &&
			t.Extension != nil &&
			t.Extension.Status == domain.ExtensionStatusPending
	})
}

// ListDueBefore implements store.TaskStore.ListDueBefore
func (s *TaskStore) ListDueBefore(ctx context.Context, date time.Time) ([]*domain.Task, error) {
	return s.filter(func(t *domain.Task) bool {
		return t.DueDate.Before(date) && t.Status != domain.TaskStatusCompleted
	})
}

// WithTx implements store.TaskStore.WithTx; the in-memory store has no
// transactions, so it returns itself.
func (s *TaskStore) WithTx(tx *sql.Tx) store.TaskStore { return s }

// DB implements store.TaskStore.DB; nil signals callers to inject a
// pass-through transaction runner.
func (s *TaskStore) DB() *sql.DB { return nil }

// Len reports how many tasks are stored.
func (s *TaskStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *TaskStore) filter(keep func(*domain.Task) bool) ([]*domain.Task, error) {
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*domain.Task{}
	for _, task := range s.tasks {
		if keep(task) {
			out = append(out, copyTask(task))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func copyTask(task *domain.Task) *domain.Task {
	clone := *task
	if task.Extension != nil {
		ext := *task.Extension
		clone.Extension = &ext
	}
	if task.CompletedAt != nil {
		completedAt := *task.CompletedAt
		clone.CompletedAt = &completedAt
	}
	return &clone
}
