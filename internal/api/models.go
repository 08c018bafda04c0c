package api

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/taskhub-api/internal/domain"
	"github.com/taskhub/taskhub-api/internal/service"
)

// dueDateLayout is the wire format for due dates. Due dates carry no time
// component.
const dueDateLayout = "2006-01-02"

// CreateTaskRequest represents the request body for creating a task.
type CreateTaskRequest struct {
	Title       string `json:"title"       validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=2000"`
	AssigneeID  string `json:"assignee_id" validate:"required,uuid"`
	Priority    string `json:"priority"    validate:"required,oneof=HIGH MEDIUM LOW"`
	DueDate     string `json:"due_date"    validate:"required"`
}

// UpdateTaskRequest represents the request body for updating task details.
// The due date is absent on purpose: it only moves through the extension
// flow.
type UpdateTaskRequest struct {
	Title       string `json:"title"       validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=2000"`
	AssigneeID  string `json:"assignee_id" validate:"required,uuid"`
	Priority    string `json:"priority"    validate:"required,oneof=HIGH MEDIUM LOW"`
}

// SubmitTaskRequest represents the request body for handing a task in.
type SubmitTaskRequest struct {
	CompletionNote string `json:"completion_note" validate:"max=2000"`
	SubmissionURL  string `json:"submission_url"  validate:"omitempty,url"`
}

// RejectSubmissionRequest represents the request body for rejecting a
// submitted task.
type RejectSubmissionRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

// RequestExtensionRequest represents the request body for requesting a due
// date extension.
type RequestExtensionRequest struct {
	Reason           string `json:"reason"             validate:"required,max=2000"`
	RequestedDueDate string `json:"requested_due_date" validate:"required"`
}

// RejectExtensionRequest represents the request body for rejecting an
// extension request.
type RejectExtensionRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

// ExtensionResponse represents an extension request in responses.
type ExtensionResponse struct {
	ID               int64  `json:"id"`
	RequestedDueDate string `json:"requested_due_date"`
	Reason           string `json:"reason"`
	RejectReason     string `json:"reject_reason,omitempty"`
	Status           string `json:"status"`
}

// UserResponse represents a resolved directory identity in responses.
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// TaskResponse represents a task in responses.
type TaskResponse struct {
	ID             int64              `json:"id"`
	Title          string             `json:"title"`
	Description    string             `json:"description"`
	AssigneeID     string             `json:"assignee_id"`
	ManagerID      string             `json:"manager_id"`
	Priority       string             `json:"priority"`
	DueDate        string             `json:"due_date"`
	Status         string             `json:"status"`
	RejectionNote  string             `json:"rejection_note,omitempty"`
	CompletionNote string             `json:"completion_note,omitempty"`
	SubmissionURL  string             `json:"submission_url,omitempty"`
	Overdue        bool               `json:"overdue"`
	CompletedAt    *time.Time         `json:"completed_at,omitempty"`
	LastUpdated    time.Time          `json:"last_updated"`
	Extension      *ExtensionResponse `json:"extension,omitempty"`
}

// TaskDetailsResponse represents a task with its resolved parties. An absent
// party means the directory lookup was unresolved.
type TaskDetailsResponse struct {
	TaskResponse
	Assignee *UserResponse `json:"assignee,omitempty"`
	Manager  *UserResponse `json:"manager,omitempty"`
}

// NotificationResponse represents a stored notification in responses.
type NotificationResponse struct {
	ID          int64     `json:"id"`
	Message     string    `json:"message"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
	RecipientID string    `json:"recipient_id"`
}

func taskToResponse(task *domain.Task) TaskResponse {
	resp := TaskResponse{
		ID:             task.ID,
		Title:          task.Title,
		Description:    task.Description,
		AssigneeID:     task.AssigneeID.String(),
		ManagerID:      task.ManagerID.String(),
		Priority:       string(task.Priority),
		DueDate:        task.DueDate.Format(dueDateLayout),
		Status:         string(task.Status),
		RejectionNote:  task.RejectionNote,
		CompletionNote: task.CompletionNote,
		SubmissionURL:  task.SubmissionURL,
		Overdue:        task.Overdue,
		CompletedAt:    task.CompletedAt,
		LastUpdated:    task.LastUpdated,
	}
	if task.Extension != nil {
		resp.Extension = &ExtensionResponse{
			ID:               task.Extension.ID,
			RequestedDueDate: task.Extension.RequestedDueDate.Format(dueDateLayout),
			Reason:           task.Extension.Reason,
			RejectReason:     task.Extension.RejectReason,
			Status:           string(task.Extension.Status),
		}
	}
	return resp
}

func userToResponse(user *domain.User) *UserResponse {
	if user == nil {
		return nil
	}
	return &UserResponse{
		ID:    user.ID.String(),
		Email: user.Email,
		Role:  string(user.Role),
	}
}

func detailsToResponse(details *service.TaskDetails) TaskDetailsResponse {
	return TaskDetailsResponse{
		TaskResponse: taskToResponse(details.Task),
		Assignee:     userToResponse(details.Assignee),
		Manager:      userToResponse(details.Manager),
	}
}

func detailsListToResponse(details []*service.TaskDetails) []TaskDetailsResponse {
	out := make([]TaskDetailsResponse, len(details))
	for i, d := range details {
		out[i] = detailsToResponse(d)
	}
	return out
}

func notificationToResponse(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:          n.ID,
		Message:     n.Message,
		Read:        n.Read,
		CreatedAt:   n.CreatedAt,
		RecipientID: n.RecipientID.String(),
	}
}

func notificationsToResponse(ns []*domain.Notification) []NotificationResponse {
	out := make([]NotificationResponse, len(ns))
	for i, n := range ns {
		out[i] = notificationToResponse(n)
	}
	return out
}

// parseDueDate parses a wire-format due date.
func parseDueDate(value string) (time.Time, error) {
	parsed, err := time.ParseInLocation(dueDateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return parsed, nil
}

// parseUUID parses a wire-format uuid.
func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(value)
}
