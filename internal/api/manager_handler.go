package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/taskhub-api/internal/api/shared"
	"github.com/taskhub/taskhub-api/internal/domain"
	"github.com/taskhub/taskhub-api/internal/platform/logger"
	"github.com/taskhub/taskhub-api/internal/service"
)

// TaskWorkflow is the slice of the workflow engine the HTTP handlers use.
type TaskWorkflow interface {
	CreateTask(ctx context.Context, managerID uuid.UUID, p service.CreateTaskParams) (*domain.Task, error)
	UpdateTask(ctx context.Context, managerID uuid.UUID, taskID int64, p service.UpdateTaskParams) (*domain.Task, error)
	DeleteTask(ctx context.Context, managerID uuid.UUID, taskID int64) error
	SubmitTask(ctx context.Context, workerID uuid.UUID, taskID int64, completionNote, submissionURL string) (*domain.Task, error)
	ApproveSubmission(ctx context.Context, managerID uuid.UUID, taskID int64) (*domain.Task, error)
	RejectSubmission(ctx context.Context, managerID uuid.UUID, taskID int64, reason string) (*domain.Task, error)
	RequestExtension(ctx context.Context, workerID uuid.UUID, taskID int64, reason string, requestedDueDate time.Time) (*domain.Task, error)
	ApproveExtension(ctx context.Context, managerID uuid.UUID, taskID int64) (*domain.Task, error)
	RejectExtension(ctx context.Context, managerID uuid.UUID, taskID int64, reason string) (*domain.Task, error)
	GetTask(ctx context.Context, callerID uuid.UUID, taskID int64) (*service.TaskDetails, error)
	ListAllTasks(ctx context.Context) ([]*service.TaskDetails, error)
	ListTasksByManager(ctx context.Context, managerID uuid.UUID) ([]*service.TaskDetails, error)
	ListTasksByWorker(ctx context.Context, workerID uuid.UUID) ([]*service.TaskDetails, error)
	ListExtensionRequests(ctx context.Context, managerID uuid.UUID) ([]*service.TaskDetails, error)
	ListSubmittedTasks(ctx context.Context, managerID uuid.UUID) ([]*service.TaskDetails, error)
}

// ManagerHandler handles the manager-facing task endpoints.
type ManagerHandler struct {
	workflow TaskWorkflow
	logger   *slog.Logger
}

// NewManagerHandler creates a new ManagerHandler
func NewManagerHandler(workflow TaskWorkflow, logger *slog.Logger) *ManagerHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ManagerHandler")
	}

	return &ManagerHandler{
		workflow: workflow,
		logger:   logger.With(slog.String("component", "manager_handler")),
	}
}

// CreateTask handles POST /manager/tasks requests
func (h *ManagerHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	managerID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	assigneeID, err := parseUUID(req.AssigneeID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid assignee_id")
		return
	}
	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.workflow.CreateTask(r.Context(), managerID, service.CreateTaskParams{
		Title:       req.Title,
		Description: req.Description,
		AssigneeID:  assigneeID,
		Priority:    domain.Priority(req.Priority),
		DueDate:     dueDate,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Debug("task created",
		slog.Int64("task_id", task.ID),
		slog.String("manager_id", managerID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(task))
}

// UpdateTask handles PUT /manager/tasks/{id} requests
func (h *ManagerHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	managerID, taskID, ok := handleUserIDAndTaskID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	assigneeID, err := parseUUID(req.AssigneeID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid assignee_id")
		return
	}

	task, err := h.workflow.UpdateTask(r.Context(), managerID, taskID, service.UpdateTaskParams{
		Title:       req.Title,
		Description: req.Description,
		AssigneeID:  assigneeID,
		Priority:    domain.Priority(req.Priority),
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// DeleteTask handles DELETE /manager/tasks/{id} requests
func (h *ManagerHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	managerID, taskID, ok := handleUserIDAndTaskID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.workflow.DeleteTask(r.Context(), managerID, taskID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ApproveSubmission handles POST /manager/tasks/{id}/approve requests
func (h *ManagerHandler) ApproveSubmission(w http.ResponseWriter, r *http.Request) {
	managerID, taskID, ok := handleUserIDAndTaskID(w, r, h.logger)
	if !ok {
		return
	}

	task, err := h.workflow.ApproveSubmission(r.Context(), managerID, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// RejectSubmission handles POST /manager/tasks/{id}/reject requests
func (h *ManagerHandler) RejectSubmission(w http.ResponseWriter, r *http.Request) {
	managerID, taskID, ok := handleUserIDAndTaskID(w, r, h.logger)
	if !ok {
		return
	}

	var req RejectSubmissionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	task, err := h.workflow.RejectSubmission(r.Context(), managerID, taskID, req.Reason)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// ApproveExtension handles POST /manager/tasks/{id}/extension/approve requests
func (h *ManagerHandler) ApproveExtension(w http.ResponseWriter, r *http.Request) {
	managerID, taskID, ok := handleUserIDAndTaskID(w, r, h.logger)
	if !ok {
		return
	}

	task, err := h.workflow.ApproveExtension(r.Context(), managerID, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// RejectExtension handles POST /manager/tasks/{id}/extension/reject requests
func (h *ManagerHandler) RejectExtension(w http.ResponseWriter, r *http.Request) {
	managerID, taskID, ok := handleUserIDAndTaskID(w, r, h.logger)
	if !ok {
		return
	}

	var req RejectExtensionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	task, err := h.workflow.RejectExtension(r.Context(), managerID, taskID, req.Reason)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// ListTasks handles GET /manager/tasks requests
// It returns the tasks owned by the calling manager.
func (h *ManagerHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	managerID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	details, err := h.workflow.ListTasksByManager(r.Context(), managerID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, detailsListToResponse(details))
}

// ListAllTasks handles GET /manager/tasks/all requests
func (h *ManagerHandler) ListAllTasks(w http.ResponseWriter, r *http.Request) {
	details, err := h.workflow.ListAllTasks(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, detailsListToResponse(details))
}

// ListSubmittedTasks handles GET /manager/tasks/submitted requests
func (h *ManagerHandler) ListSubmittedTasks(w http.ResponseWriter, r *http.Request) {
	managerID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	details, err := h.workflow.ListSubmittedTasks(r.Context(), managerID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list submitted tasks")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, detailsListToResponse(details))
}

// ListExtensionRequests handles GET /manager/extensions requests
func (h *ManagerHandler) ListExtensionRequests(w http.ResponseWriter, r *http.Request) {
	managerID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	details, err := h.workflow.ListExtensionRequests(r.Context(), managerID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list extension requests")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, detailsListToResponse(details))
}

// GetTask handles GET /tasks/{id} requests
// Accessible to the owning manager and the assignee.
func (h *ManagerHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	callerID, taskID, ok := handleUserIDAndTaskID(w, r, h.logger)
	if !ok {
		return
	}

	details, err := h.workflow.GetTask(r.Context(), callerID, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, detailsToResponse(details))
}
