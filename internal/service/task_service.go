package service

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/taskhub-api/internal/domain"
	"github.com/taskhub/taskhub-api/internal/platform/logger"
	"github.com/taskhub/taskhub-api/internal/store"
)

// NotificationPublisher accepts a notification request for asynchronous,
// best-effort delivery. Implementations never block and never report
// delivery failures back to the workflow operation.
type NotificationPublisher interface {
	Publish(req *domain.NotificationRequest)
}

// UserResolver batch-resolves user ids to directory identities. Ids missing
// from the result are unresolved and rendered as absent in read views.
type UserResolver interface {
	ResolveAll(ctx context.Context, ids []uuid.UUID) map[uuid.UUID]*domain.User
}

// TaskDetails is the read view of a task with its parties resolved. A nil
// Assignee or Manager means the directory lookup was unresolved for that id.
type TaskDetails struct {
	Task     *domain.Task `json:"task"`
	Assignee *domain.User `json:"assignee,omitempty"`
	Manager  *domain.User `json:"manager,omitempty"`
}

// CreateTaskParams carries the validated fields for task creation.
type CreateTaskParams struct {
	Title       string
	Description string
	AssigneeID  uuid.UUID
	Priority    domain.Priority
	DueDate     time.Time
}

// UpdateTaskParams carries the validated fields for a task detail update.
// The due date moves only through the extension flow.
type UpdateTaskParams struct {
	Title       string
	Description string
	AssigneeID  uuid.UUID
	Priority    domain.Priority
}

// TaskService owns the task lifecycle state machine. Every mutation runs as
// one transaction against the task store; the notification emitted for the
// transition is enqueued after commit and delivered independently.
type TaskService struct {
	taskStore store.TaskStore
	publisher NotificationPublisher
	resolver  UserResolver
	cache     *ViewCache
	logger    *slog.Logger
	now       func() time.Time

	// runTx wraps mutations in a database transaction. Injectable so tests
	// can run against an in-memory store.
	runTx func(ctx context.Context, db *sql.DB, fn store.TxFn) error
}

// NewTaskService creates a TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	taskStore store.TaskStore,
	publisher NotificationPublisher,
	resolver UserResolver,
	cache *ViewCache,
	log *slog.Logger,
) (*TaskService, error) {
	if taskStore == nil {
		return nil, domain.NewValidationError("taskStore", "cannot be nil", domain.ErrValidation)
	}
	if publisher == nil {
		return nil, domain.NewValidationError("publisher", "cannot be nil", domain.ErrValidation)
	}
	if resolver == nil {
		return nil, domain.NewValidationError("resolver", "cannot be nil", domain.ErrValidation)
	}
	if cache == nil {
		cache = NewViewCache(time.Minute)
	}
	if log == nil {
		log = slog.Default()
	}

	return &TaskService{
		taskStore: taskStore,
		publisher: publisher,
		resolver:  resolver,
		cache:     cache,
		logger:    log.With(slog.String("component", "task_service")),
		now:       func() time.Time { return time.Now().UTC() },
		runTx:     store.RunInTransaction,
	}, nil
}

// CreateTask creates a new ASSIGNED task owned by the calling manager and
// notifies the assignee.
func (s *TaskService) CreateTask(ctx context.Context, managerID uuid.UUID, p CreateTaskParams) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if domain.DateOnly(p.DueDate).Before(domain.DateOnly(s.now())) {
		return nil, NewWorkflowError("create_task", "due date must not be in the past",
			domain.NewValidationError("due_date", "must not be in the past", domain.ErrValidation))
	}

	task, err := domain.NewTask(p.Title, p.Description, p.AssigneeID, managerID, p.Priority, p.DueDate)
	if err != nil {
		return nil, NewWorkflowError("create_task", "invalid task", err)
	}

	err = s.runTx(ctx, s.taskStore.DB(), func(ctx context.Context, tx *sql.Tx) error {
		if err := s.taskStore.WithTx(tx).Create(ctx, task); err != nil {
			return err
		}
		s.cache.Invalidate(dependentViews(task.ManagerID, task.AssigneeID)...)
		return nil
	})
	if err != nil {
		return nil, NewWorkflowError("create_task", "failed to save task", err)
	}

	log.Info("task created",
		"task_id", task.ID,
		"manager_id", managerID.String(),
		"assignee_id", task.AssigneeID.String())

	s.notify(task.AssigneeID, "New task assigned: "+task.Title)
	return task, nil
}

// UpdateTask overwrites the task's detail fields. Only the owning manager
// may update, and a completed task rejects the update.
func (s *TaskService) UpdateTask(ctx context.Context, managerID uuid.UUID, taskID int64, p UpdateTaskParams) (*domain.Task, error) {
	task, err := s.mutateOwned(ctx, "update_task", managerID, taskID, func(t *domain.Task) error {
		return t.ApplyUpdate(p.Title, p.Description, p.AssigneeID, p.Priority)
	})
	if err != nil {
		return nil, err
	}
	s.notify(task.AssigneeID, "Task details updated: "+task.Title)
	return task, nil
}

// DeleteTask removes a non-completed task owned by the calling manager,
// together with its extension.
func (s *TaskService) DeleteTask(ctx context.Context, managerID uuid.UUID, taskID int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var deleted *domain.Task
	err := s.runTx(ctx, s.taskStore.DB(), func(ctx context.Context, tx *sql.Tx) error {
		ts := s.taskStore.WithTx(tx)
		task, err := ts.GetByID(ctx, taskID)
		if err != nil {
			return err
		}
		if task.ManagerID != managerID {
			return domain.ErrForbidden
		}
		if task.IsCompleted() {
			return domain.ErrTaskCompleted
		}
		if err := ts.Delete(ctx, taskID); err != nil {
			return err
		}
		s.cache.Invalidate(dependentViews(task.ManagerID, task.AssigneeID)...)
		deleted = task
		return nil
	})
	if err != nil {
		return NewWorkflowError("delete_task", "failed to delete task", err)
	}

	log.Info("task deleted", "task_id", taskID, "manager_id", managerID.String())
	s.notify(deleted.AssigneeID, "Task removed: "+deleted.Title)
	return nil
}

// SubmitTask hands the task in for review. Only the assignee may submit; a
// REASSIGNED task can be resubmitted. The manager discovers submissions via
// the submitted-task listing, so no notification is published.
func (s *TaskService) SubmitTask(ctx context.Context, workerID uuid.UUID, taskID int64, completionNote, submissionURL string) (*domain.Task, error) {
	return s.mutateAssigned(ctx, "submit_task", workerID, taskID, func(t *domain.Task) error {
		return t.Submit(completionNote, submissionURL)
	})
}

// ApproveSubmission completes a SUBMITTED task and notifies the assignee.
func (s *TaskService) ApproveSubmission(ctx context.Context, managerID uuid.UUID, taskID int64) (*domain.Task, error) {
	task, err := s.mutateOwned(ctx, "approve_submission", managerID, taskID, func(t *domain.Task) error {
		return t.ApproveSubmission(s.now())
	})
	if err != nil {
		return nil, err
	}
	s.notify(task.AssigneeID, "Task completion approved: "+task.Title)
	return task, nil
}

// RejectSubmission sends a SUBMITTED task back to the assignee with the
// manager's reason.
func (s *TaskService) RejectSubmission(ctx context.Context, managerID uuid.UUID, taskID int64, reason string) (*domain.Task, error) {
	task, err := s.mutateOwned(ctx, "reject_submission", managerID, taskID, func(t *domain.Task) error {
		return t.RejectSubmission(reason)
	})
	if err != nil {
		return nil, err
	}
	s.notify(task.AssigneeID, "Task rejected and reassigned: "+task.Title)
	return task, nil
}

// RequestExtension attaches a pending extension request to an overdue task.
// Only the assignee may request, and only once per task.
func (s *TaskService) RequestExtension(ctx context.Context, workerID uuid.UUID, taskID int64, reason string, requestedDueDate time.Time) (*domain.Task, error) {
	return s.mutateAssigned(ctx, "request_extension", workerID, taskID, func(t *domain.Task) error {
		return t.RequestExtension(reason, requestedDueDate, s.now())
	})
}

// ApproveExtension approves the task's extension, moving the due date to
// the requested date, and notifies the assignee.
func (s *TaskService) ApproveExtension(ctx context.Context, managerID uuid.UUID, taskID int64) (*domain.Task, error) {
	task, err := s.mutateOwned(ctx, "approve_extension", managerID, taskID, func(t *domain.Task) error {
		return t.ApproveExtension()
	})
	if err != nil {
		return nil, err
	}
	s.notify(task.AssigneeID, "Extension approved: "+task.Title)
	return task, nil
}

// RejectExtension rejects the task's pending extension with the manager's
// reason and notifies the assignee.
func (s *TaskService) RejectExtension(ctx context.Context, managerID uuid.UUID, taskID int64, reason string) (*domain.Task, error) {
	task, err := s.mutateOwned(ctx, "reject_extension", managerID, taskID, func(t *domain.Task) error {
		return t.RejectExtension(reason)
	})
	if err != nil {
		return nil, err
	}
	s.notify(task.AssigneeID, "Extension rejected: "+task.Title)
	return task, nil
}

// GetTask returns one task with resolved parties. The caller must be the
// owning manager or the assignee; anyone else gets not-found.
func (s *TaskService) GetTask(ctx context.Context, callerID uuid.UUID, taskID int64) (*TaskDetails, error) {
	task, err := s.taskStore.GetByID(ctx, taskID)
	if err != nil {
		return nil, NewWorkflowError("get_task", "failed to load task", err)
	}
	if task.ManagerID != callerID && task.AssigneeID != callerID {
		return nil, NewWorkflowError("get_task", "task not accessible", domain.ErrForbidden)
	}
	details := s.resolveDetails(ctx, []*domain.Task{task})
	return details[0], nil
}

// ListAllTasks returns every task with resolved parties.
func (s *TaskService) ListAllTasks(ctx context.Context) ([]*TaskDetails, error) {
	return s.listView(ctx, "list_all_tasks", viewAllTasks, func(ctx context.Context) ([]*domain.Task, error) {
		return s.taskStore.List(ctx)
	})
}

// ListTasksByManager returns the manager's tasks with resolved parties.
func (s *TaskService) ListTasksByManager(ctx context.Context, managerID uuid.UUID) ([]*TaskDetails, error) {
	return s.listView(ctx, "list_manager_tasks", viewManagerTasks(managerID), func(ctx context.Context) ([]*domain.Task, error) {
		return s.taskStore.ListByManager(ctx, managerID)
	})
}

// ListTasksByWorker returns the worker's assigned tasks with resolved
// parties.
func (s *TaskService) ListTasksByWorker(ctx context.Context, workerID uuid.UUID) ([]*TaskDetails, error) {
	return s.listView(ctx, "list_worker_tasks", viewWorkerTasks(workerID), func(ctx context.Context) ([]*domain.Task, error) {
		return s.taskStore.ListByAssignee(ctx, workerID)
	})
}

// ListExtensionRequests returns the manager's tasks with a PENDING
// extension request.
func (s *TaskService) ListExtensionRequests(ctx context.Context, managerID uuid.UUID) ([]*TaskDetails, error) {
	return s.listView(ctx, "list_extension_requests", viewExtensionRequests(managerID), func(ctx context.Context) ([]*domain.Task, error) {
		return s.taskStore.ListPendingExtensions(ctx, managerID)
	})
}

// ListSubmittedTasks returns the manager's tasks awaiting review.
func (s *TaskService) ListSubmittedTasks(ctx context.Context, managerID uuid.UUID) ([]*TaskDetails, error) {
	return s.listView(ctx, "list_submitted_tasks", viewSubmittedTasks(managerID), func(ctx context.Context) ([]*domain.Task, error) {
		return s.taskStore.ListByStatus(ctx, managerID, domain.TaskStatusSubmitted)
	})
}

// FlagOverdueTasks marks tasks past their due date as overdue and emits an
// overdue notification for each newly flagged task. Returns how many tasks
// were flagged.
func (s *TaskService) FlagOverdueTasks(ctx context.Context) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	tasks, err := s.taskStore.ListDueBefore(ctx, domain.DateOnly(s.now()))
	if err != nil {
		return 0, NewWorkflowError("flag_overdue", "failed to list overdue tasks", err)
	}

	flagged := 0
	for _, task := range tasks {
		if task.Overdue || task.IsCompleted() {
			continue
		}
		task.Overdue = true
		if err := s.taskStore.Update(ctx, task); err != nil {
			// Leave it for the next run; one bad row must not stop the rest.
			log.Error("failed to flag overdue task", "task_id", task.ID, "error", err)
			continue
		}
		s.cache.Invalidate(dependentViews(task.ManagerID, task.AssigneeID)...)
		s.notify(task.AssigneeID, "Task overdue: "+task.Title)
		flagged++
	}
	return flagged, nil
}

// SendDueReminders publishes a reminder for every non-completed task due
// within one day. Each task is attempted independently. Returns how many
// reminders were enqueued.
func (s *TaskService) SendDueReminders(ctx context.Context) (int, error) {
	// Strictly before today+2 covers overdue, due-today and due-tomorrow.
	cutoff := domain.DateOnly(s.now()).AddDate(0, 0, 2)
	tasks, err := s.taskStore.ListDueBefore(ctx, cutoff)
	if err != nil {
		return 0, NewWorkflowError("send_reminders", "failed to list due tasks", err)
	}

	sent := 0
	for _, task := range tasks {
		if task.IsCompleted() {
			continue
		}
		s.notify(task.AssigneeID, "Reminder: Task \""+task.Title+"\" is due tomorrow!")
		sent++
	}
	return sent, nil
}

// mutateOwned runs a manager-scoped transition inside one transaction:
// load, authorize, apply, write, invalidate views.
func (s *TaskService) mutateOwned(ctx context.Context, op string, managerID uuid.UUID, taskID int64, fn func(t *domain.Task) error) (*domain.Task, error) {
	return s.mutate(ctx, op, taskID, func(t *domain.Task) error {
		if t.ManagerID != managerID {
			return domain.ErrForbidden
		}
		return fn(t)
	})
}

// mutateAssigned runs an assignee-scoped transition inside one transaction.
func (s *TaskService) mutateAssigned(ctx context.Context, op string, workerID uuid.UUID, taskID int64, fn func(t *domain.Task) error) (*domain.Task, error) {
	return s.mutate(ctx, op, taskID, func(t *domain.Task) error {
		if t.AssigneeID != workerID {
			return domain.ErrForbidden
		}
		return fn(t)
	})
}

func (s *TaskService) mutate(ctx context.Context, op string, taskID int64, fn func(t *domain.Task) error) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var task *domain.Task
	err := s.runTx(ctx, s.taskStore.DB(), func(ctx context.Context, tx *sql.Tx) error {
		ts := s.taskStore.WithTx(tx)
		t, err := ts.GetByID(ctx, taskID)
		if err != nil {
			return err
		}
		prevAssignee := t.AssigneeID
		if err := fn(t); err != nil {
			return err
		}
		if err := ts.Update(ctx, t); err != nil {
			return err
		}
		views := dependentViews(t.ManagerID, t.AssigneeID)
		if t.AssigneeID != prevAssignee {
			// Reassignment stales the previous assignee's listing too.
			views = append(views, viewWorkerTasks(prevAssignee))
		}
		s.cache.Invalidate(views...)
		task = t
		return nil
	})
	if err != nil {
		return nil, NewWorkflowError(op, "transition rejected", err)
	}

	log.Info("task transition applied", "operation", op, "task_id", taskID, "status", string(task.Status))
	return task, nil
}

// listView serves a cached read view, falling back to the store and one
// batched directory lookup on miss.
func (s *TaskService) listView(ctx context.Context, op, viewKey string, load func(ctx context.Context) ([]*domain.Task, error)) ([]*TaskDetails, error) {
	if details, ok := s.cache.Get(viewKey); ok {
		return details, nil
	}

	tasks, err := load(ctx)
	if err != nil {
		return nil, NewWorkflowError(op, "failed to list tasks", err)
	}

	details := s.resolveDetails(ctx, tasks)
	s.cache.Set(viewKey, details)
	return details, nil
}

// resolveDetails resolves all distinct party ids of the result set through
// a single batched lookup. n tasks yield exactly one directory call.
func (s *TaskService) resolveDetails(ctx context.Context, tasks []*domain.Task) []*TaskDetails {
	seen := make(map[uuid.UUID]struct{}, len(tasks)*2)
	ids := make([]uuid.UUID, 0, len(tasks)*2)
	for _, task := range tasks {
		for _, id := range []uuid.UUID{task.AssigneeID, task.ManagerID} {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}

	users := s.resolver.ResolveAll(ctx, ids)

	details := make([]*TaskDetails, len(tasks))
	for i, task := range tasks {
		details[i] = &TaskDetails{
			Task:     task,
			Assignee: users[task.AssigneeID],
			Manager:  users[task.ManagerID],
		}
	}
	return details
}

// notify constructs the transition's notification request and hands it to
// the publisher. Delivery is asynchronous and best effort; failures surface
// in logs and the failed-notification store, never here.
func (s *TaskService) notify(recipientID uuid.UUID, message string) {
	req, err := domain.NewNotificationRequest(recipientID, message)
	if err != nil {
		s.logger.Error("failed to build notification request",
			"recipient_id", recipientID.String(),
			"error", err)
		return
	}
	s.publisher.Publish(req)
}
