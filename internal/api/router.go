package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/projects", func(r chi.Router) {
		r.Get("/", h.ListProjects)
		r.Post("/", h.CreateProject)
		r.Get("/{id}", h.GetProject)
		r.Patch("/{id}", h.UpdateProject)
		r.Delete("/{id}", h.DeleteProject)
	})

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.ListTasks)
		r.Post("/", h.CreateTask)
		r.Post("/batch-update", h.BatchUpdateTasks)
		r.Post("/batch-delete", h.BatchDeleteTasks)
		r.Get("/{id}", h.GetTask)
		r.Patch("/{id}", h.UpdateTask)
		r.Delete("/{id}", h.DeleteTask)
	})

	r.Route("/schedules", func(r chi.Router) {
		r.Get("/", h.ListSchedules)
		r.Post("/", h.CreateSchedule)
		r.Get("/{id}", h.GetSchedule)
		r.Patch("/{id}", h.UpdateSchedule)
		r.Delete("/{id}", h.DeleteSchedule)
	})

	r.Route("/payments", func(r chi.Router) {
		r.Get("/", h.ListPayments)
		r.Post("/", h.CreatePayment)
		r.Get("/{id}", h.GetPayment)
		r.Patch("/{id}", h.UpdatePayment)
		r.Delete("/{id}", h.DeletePayment)
	})

	// Whole-document operations.
	r.Get("/data/export", h.Export)
	r.Post("/data/import", h.Import)
	r.Post("/data/reset", h.Reset)
	r.Get("/data/validate", h.Validate)
	r.Post("/data/fix-orphans", h.FixOrphans)
	r.Get("/data/info", h.Info)
	r.Get("/stats", h.Statistics)

	r.Get("/settings/compression", h.GetCompression)
	r.Put("/settings/compression", h.SetCompression)
	r.Post("/settings/compression/toggle", h.ToggleCompression)

	r.Get("/backups", h.ListBackups)
	r.Post("/backups", h.CreateBackup)
	r.Post("/backups/restore", h.UploadRestore)
	r.Post("/backups/{name}/restore", h.RestoreBackup)
	r.Get("/sync/status", h.SyncStatus)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
