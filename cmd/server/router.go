package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/taskhub/taskhub-api/internal/api"
	"github.com/taskhub/taskhub-api/internal/api/middleware"
	"github.com/taskhub/taskhub-api/internal/domain"
	"github.com/taskhub/taskhub-api/internal/service/auth"
)

type routerDeps struct {
	jwtService          auth.JWTService
	managerHandler      *api.ManagerHandler
	workerHandler       *api.WorkerHandler
	notificationHandler *api.NotificationHandler
	wsHandler           *api.WebSocketHandler
}

// buildRouter assembles the HTTP routing tree. Every /api route requires a
// valid token; the manager and worker subtrees additionally require the
// matching role.
func buildRouter(deps routerDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.TraceMiddleware)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	authMiddleware := middleware.NewAuthMiddleware(deps.jwtService)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Route("/manager", func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleManager))

			r.Get("/tasks", deps.managerHandler.ListTasks)
			r.Post("/tasks", deps.managerHandler.CreateTask)
			r.Get("/tasks/all", deps.managerHandler.ListAllTasks)
			r.Get("/tasks/submitted", deps.managerHandler.ListSubmittedTasks)
			r.Get("/extensions", deps.managerHandler.ListExtensionRequests)

			r.Route("/tasks/{id}", func(r chi.Router) {
				r.Get("/", deps.managerHandler.GetTask)
				r.Put("/", deps.managerHandler.UpdateTask)
				r.Delete("/", deps.managerHandler.DeleteTask)
				r.Post("/approve", deps.managerHandler.ApproveSubmission)
				r.Post("/reject", deps.managerHandler.RejectSubmission)
				r.Post("/extension/approve", deps.managerHandler.ApproveExtension)
				r.Post("/extension/reject", deps.managerHandler.RejectExtension)
			})
		})

		r.Route("/worker", func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleWorker))

			r.Get("/tasks", deps.workerHandler.ListTasks)
			r.Route("/tasks/{id}", func(r chi.Router) {
				r.Get("/", deps.workerHandler.GetTask)
				r.Post("/submit", deps.workerHandler.SubmitTask)
				r.Post("/extension", deps.workerHandler.RequestExtension)
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", deps.notificationHandler.ListNotifications)
			r.Get("/unread", deps.notificationHandler.ListUnreadNotifications)
			r.Post("/read", deps.notificationHandler.MarkAllRead)
		})

		r.Get("/ws", deps.wsHandler.Subscribe)
	})

	return r
}
