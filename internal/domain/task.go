package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	// TaskStatusAssigned is the initial state of every task.
	TaskStatusAssigned TaskStatus = "ASSIGNED"

	// TaskStatusSubmitted means the assignee handed the task in for review.
	TaskStatusSubmitted TaskStatus = "SUBMITTED"

	// TaskStatusCompleted means the manager approved the submission.
	// A completed task is immutable.
	TaskStatusCompleted TaskStatus = "COMPLETED"

	// TaskStatusReassigned means the manager rejected the submission and the
	// task went back to the assignee. A reassigned task can be resubmitted
	// without a due date change.
	TaskStatusReassigned TaskStatus = "REASSIGNED"
)

// Priority represents the urgency of a task.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Task is a unit of work a manager assigns to a worker. It carries an
// optional TaskExtension whose lifetime is bound to the task.
type Task struct {
	ID             int64          `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	AssigneeID     uuid.UUID      `json:"assignee_id"`
	ManagerID      uuid.UUID      `json:"manager_id"`
	Priority       Priority       `json:"priority"`
	DueDate        time.Time      `json:"due_date"`
	Status         TaskStatus     `json:"status"`
	RejectionNote  string         `json:"rejection_note,omitempty"`
	CompletionNote string         `json:"completion_note,omitempty"`
	SubmissionURL  string         `json:"submission_url,omitempty"`
	Overdue        bool           `json:"overdue"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	LastUpdated    time.Time      `json:"last_updated"`
	Extension      *TaskExtension `json:"extension,omitempty"`
}

// NewTask creates a new Task in ASSIGNED state owned by the given manager.
// Returns an error if validation fails.
func NewTask(
	title, description string,
	assigneeID, managerID uuid.UUID,
	priority Priority,
	dueDate time.Time,
) (*Task, error) {
	task := &Task{
		Title:       title,
		Description: description,
		AssigneeID:  assigneeID,
		ManagerID:   managerID,
		Priority:    priority,
		DueDate:     DateOnly(dueDate),
		Status:      TaskStatusAssigned,
		LastUpdated: time.Now().UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return NewValidationError("title", "cannot be empty", ErrValidation)
	}
	if strings.TrimSpace(t.Description) == "" {
		return NewValidationError("description", "cannot be empty", ErrValidation)
	}
	if t.AssigneeID == uuid.Nil {
		return NewValidationError("assignee_id", "cannot be empty", ErrValidation)
	}
	if t.ManagerID == uuid.Nil {
		return NewValidationError("manager_id", "cannot be empty", ErrValidation)
	}
	if !t.Priority.Valid() {
		return NewValidationError("priority", "must be HIGH, MEDIUM or LOW", ErrValidation)
	}
	if t.DueDate.IsZero() {
		return NewValidationError("due_date", "cannot be empty", ErrValidation)
	}
	return nil
}

// IsCompleted reports whether the task reached its terminal state.
func (t *Task) IsCompleted() bool {
	return t.Status == TaskStatusCompleted
}

// IsOverdueAt reports whether the task's due date lies strictly before the
// calendar date of now. The due date carries no time component.
func (t *Task) IsOverdueAt(now time.Time) bool {
	return t.DueDate.Before(DateOnly(now))
}

// ApplyUpdate overwrites the mutable detail fields. Rejected with
// ErrTaskCompleted once the task is completed.
func (t *Task) ApplyUpdate(title, description string, assigneeID uuid.UUID, priority Priority) error {
	if t.IsCompleted() {
		return ErrTaskCompleted
	}
	t.Title = title
	t.Description = description
	t.AssigneeID = assigneeID
	t.Priority = priority
	t.touch()
	return t.Validate()
}

// Submit moves the task into SUBMITTED state, recording the assignee's
// completion note and submission URL. Resubmission from REASSIGNED (or an
// earlier SUBMITTED) is allowed; only a completed task rejects it.
func (t *Task) Submit(completionNote, submissionURL string) error {
	if t.IsCompleted() {
		return ErrTaskCompleted
	}
	t.Status = TaskStatusSubmitted
	t.CompletionNote = completionNote
	t.SubmissionURL = submissionURL
	t.touch()
	return nil
}

// ApproveSubmission moves a SUBMITTED task to COMPLETED and stamps
// CompletedAt. Any other state is a conflict, including a second approval.
func (t *Task) ApproveSubmission(now time.Time) error {
	if t.Status != TaskStatusSubmitted {
		if t.IsCompleted() {
			return ErrTaskCompleted
		}
		return ErrTaskNotSubmitted
	}
	completedAt := now.UTC()
	t.Status = TaskStatusCompleted
	t.CompletedAt = &completedAt
	t.touch()
	return nil
}

// RejectSubmission moves a SUBMITTED task back to REASSIGNED with the
// manager's reason.
func (t *Task) RejectSubmission(reason string) error {
	if t.Status != TaskStatusSubmitted {
		if t.IsCompleted() {
			return ErrTaskCompleted
		}
		return ErrTaskNotSubmitted
	}
	t.Status = TaskStatusReassigned
	t.RejectionNote = reason
	t.touch()
	return nil
}

// RequestExtension attaches a pending extension request. The task must not
// be completed, must be overdue at now, and must not already carry an
// extension.
func (t *Task) RequestExtension(reason string, requestedDueDate, now time.Time) error {
	if t.IsCompleted() {
		return ErrTaskCompleted
	}
	if !t.IsOverdueAt(now) {
		return ErrTaskNotOverdue
	}
	if t.Extension != nil {
		return ErrExtensionExists
	}
	t.Extension = &TaskExtension{
		TaskID:           t.ID,
		RequestedDueDate: DateOnly(requestedDueDate),
		Reason:           reason,
		Status:           ExtensionStatusPending,
	}
	t.touch()
	return nil
}

// ApproveExtension approves the extension and moves the task's due date to
// the requested date. The extension record survives as history.
func (t *Task) ApproveExtension() error {
	if t.Extension == nil {
		return ErrExtensionMissing
	}
	if t.Extension.Status == ExtensionStatusApproved {
		return ErrExtensionApproved
	}
	t.Extension.Status = ExtensionStatusApproved
	t.DueDate = t.Extension.RequestedDueDate
	t.Overdue = false
	t.touch()
	return nil
}

// RejectExtension rejects a pending extension with the manager's reason.
func (t *Task) RejectExtension(reason string) error {
	if t.Extension == nil {
		return ErrExtensionMissing
	}
	if t.Extension.Status != ExtensionStatusPending {
		return ErrExtensionNotPending
	}
	t.Extension.Status = ExtensionStatusRejected
	t.Extension.RejectReason = reason
	t.touch()
	return nil
}

func (t *Task) touch() {
	t.LastUpdated = time.Now().UTC()
}

// DateOnly truncates a timestamp to its UTC calendar date.
func DateOnly(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
