package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub-api/internal/domain"
	"github.com/taskhub/taskhub-api/internal/service"
)

func workerRouter(h *WorkerHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/worker/tasks", h.ListTasks)
	r.Get("/worker/tasks/{id}", h.GetTask)
	r.Post("/worker/tasks/{id}/submit", h.SubmitTask)
	r.Post("/worker/tasks/{id}/extension", h.RequestExtension)
	return r
}

func TestSubmitTaskHandler(t *testing.T) {
	t.Parallel()

	workerID := uuid.New()
	task := sampleTask(uuid.New(), workerID)
	task.Status = domain.TaskStatusSubmitted
	wf := &stubWorkflow{task: task}
	router := workerRouter(NewWorkerHandler(wf, slog.Default()))

	body := SubmitTaskRequest{
		CompletionNote: "all done",
		SubmissionURL:  "https://git.example.com/pr/12",
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/worker/tasks/42/submit", body, workerID, domain.RoleWorker))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp TaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "SUBMITTED", resp.Status)
	assert.Equal(t, workerID, wf.lastCaller)
	assert.Equal(t, int64(42), wf.lastTaskID)
}

func TestSubmitTaskHandlerRejectsBadURL(t *testing.T) {
	t.Parallel()

	wf := &stubWorkflow{}
	router := workerRouter(NewWorkerHandler(wf, slog.Default()))

	body := SubmitTaskRequest{SubmissionURL: "not a url"}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/worker/tasks/42/submit", body, uuid.New(), domain.RoleWorker))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitTaskHandlerEmptyBodyAllowed(t *testing.T) {
	t.Parallel()

	wf := &stubWorkflow{task: sampleTask(uuid.New(), uuid.New())}
	router := workerRouter(NewWorkerHandler(wf, slog.Default()))

	// Both note and URL are optional.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/worker/tasks/42/submit",
		SubmitTaskRequest{}, uuid.New(), domain.RoleWorker))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestExtensionHandler(t *testing.T) {
	t.Parallel()

	workerID := uuid.New()
	task := sampleTask(uuid.New(), workerID)
	task.Extension = &domain.TaskExtension{
		ID:               7,
		TaskID:           task.ID,
		RequestedDueDate: domain.DateOnly(time.Now().UTC().AddDate(0, 0, 10)),
		Reason:           "sick leave",
		Status:           domain.ExtensionStatusPending,
	}
	wf := &stubWorkflow{task: task}
	router := workerRouter(NewWorkerHandler(wf, slog.Default()))

	body := RequestExtensionRequest{
		Reason:           "sick leave",
		RequestedDueDate: time.Now().UTC().AddDate(0, 0, 10).Format("2006-01-02"),
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/worker/tasks/42/extension", body, workerID, domain.RoleWorker))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp TaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Extension)
	assert.Equal(t, "PENDING", resp.Extension.Status)
}

func TestRequestExtensionHandlerNotOverdue(t *testing.T) {
	t.Parallel()

	wf := &stubWorkflow{err: service.NewWorkflowError("request_extension", "transition rejected", domain.ErrTaskNotOverdue)}
	router := workerRouter(NewWorkerHandler(wf, slog.Default()))

	body := RequestExtensionRequest{
		Reason:           "early bird",
		RequestedDueDate: "2026-12-01",
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/worker/tasks/42/extension", body, uuid.New(), domain.RoleWorker))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Task is not overdue", decodeError(t, rec).Error)
}

func TestWorkerListTasksHandler(t *testing.T) {
	t.Parallel()

	workerID := uuid.New()
	wf := &stubWorkflow{list: []*service.TaskDetails{}}
	router := workerRouter(NewWorkerHandler(wf, slog.Default()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/worker/tasks", nil, workerID, domain.RoleWorker))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, workerID, wf.lastCaller)
	assert.JSONEq(t, "[]", rec.Body.String())
}
