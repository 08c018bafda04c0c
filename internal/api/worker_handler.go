package api

import (
	"log/slog"
	"net/http"

	"github.com/taskhub/taskhub-api/internal/api/shared"
)

// WorkerHandler handles the worker-facing task endpoints.
type WorkerHandler struct {
	workflow TaskWorkflow
	logger   *slog.Logger
}

// NewWorkerHandler creates a new WorkerHandler
func NewWorkerHandler(workflow TaskWorkflow, logger *slog.Logger) *WorkerHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for WorkerHandler")
	}

	return &WorkerHandler{
		workflow: workflow,
		logger:   logger.With(slog.String("component", "worker_handler")),
	}
}

// ListTasks handles GET /worker/tasks requests
// It returns the tasks assigned to the calling worker.
func (h *WorkerHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	workerID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	details, err := h.workflow.ListTasksByWorker(r.Context(), workerID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, detailsListToResponse(details))
}

// SubmitTask handles POST /worker/tasks/{id}/submit requests
func (h *WorkerHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	workerID, taskID, ok := handleUserIDAndTaskID(w, r, h.logger)
	if !ok {
		return
	}

	var req SubmitTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	task, err := h.workflow.SubmitTask(r.Context(), workerID, taskID, req.CompletionNote, req.SubmissionURL)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// RequestExtension handles POST /worker/tasks/{id}/extension requests
func (h *WorkerHandler) RequestExtension(w http.ResponseWriter, r *http.Request) {
	workerID, taskID, ok := handleUserIDAndTaskID(w, r, h.logger)
	if !ok {
		return
	}

	var req RequestExtensionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	requestedDueDate, err := parseDueDate(req.RequestedDueDate)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.workflow.RequestExtension(r.Context(), workerID, taskID, req.Reason, requestedDueDate)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// GetTask handles GET /worker/tasks/{id} requests
func (h *WorkerHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	workerID, taskID, ok := handleUserIDAndTaskID(w, r, h.logger)
	if !ok {
		return
	}

	details, err := h.workflow.GetTask(r.Context(), workerID, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, detailsToResponse(details))
}
