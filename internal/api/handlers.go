package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/devspace/internal/apperr"
	"github.com/starford/devspace/internal/backup"
	"github.com/starford/devspace/internal/datastore"
	"github.com/starford/devspace/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	store   *datastore.Store
	backups *backup.Service
}

// NewHandler creates a new Handler.
func NewHandler(store *datastore.Store, backups *backup.Service) *Handler {
	return &Handler{store: store, backups: backups}
}

type validatable interface {
	Validate() error
}

type patcher[T any] interface {
	Apply(*T, time.Time)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, apperr.ErrNotFound)
}

func create[T validatable](w http.ResponseWriter, r *http.Request, kind string, add func(T) T) {
	var in T
	if !readJSON(w, r, &in) {
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, "create "+kind, err)
		return
	}
	writeJSON(w, http.StatusCreated, add(in))
}

func get[T any](w http.ResponseWriter, r *http.Request, kind string, find func(string) (T, bool)) {
	id := chi.URLParam(r, "id")
	v, ok := find(id)
	if !ok {
		writeError(w, "get "+kind, notFound(kind, id))
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// update validates the record as it would look after the patch, then
// applies the patch through the store.
func update[T validatable, P patcher[T]](h *Handler, w http.ResponseWriter, r *http.Request, kind string,
	find func(string) (T, bool), apply func(string, P) (T, error)) {
	id := chi.URLParam(r, "id")
	var patch P
	if !readJSON(w, r, &patch) {
		return
	}
	current, ok := find(id)
	if !ok {
		writeError(w, "update "+kind, notFound(kind, id))
		return
	}
	patch.Apply(&current, h.store.Now())
	if err := current.Validate(); err != nil {
		writeError(w, "update "+kind, err)
		return
	}
	out, err := apply(id, patch)
	if err != nil {
		writeError(w, "update "+kind, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func remove(w http.ResponseWriter, r *http.Request, kind string, del func(string) error) {
	if err := del(chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete "+kind, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListProjects handles GET /api/projects.
func (h *Handler) ListProjects(w http.ResponseWriter, _ *http.Request) {
	items := h.store.ListProjects()
	writeJSON(w, http.StatusOK, ProjectListResponse{Projects: items, Total: len(items)})
}

// CreateProject handles POST /api/projects.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	create(w, r, "project", h.store.AddProject)
}

// GetProject handles GET /api/projects/{id}.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	get(w, r, "project", h.store.GetProject)
}

// UpdateProject handles PATCH /api/projects/{id}.
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	update[models.Project, models.ProjectPatch](h, w, r, "project", h.store.GetProject, h.store.UpdateProject)
}

// DeleteProject handles DELETE /api/projects/{id}. The response reports how
// many dependent records were removed with it.
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := h.store.DeleteProject(id)
	if err != nil {
		writeError(w, "delete project", err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteProjectResponse{ID: id, Cascade: res})
}

// ListTasks handles GET /api/tasks?projectId=.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	items := h.store.ListTasks(r.URL.Query().Get("projectId"))
	writeJSON(w, http.StatusOK, TaskListResponse{Tasks: items, Total: len(items)})
}

// CreateTask handles POST /api/tasks.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	create(w, r, "task", h.store.AddTask)
}

// GetTask handles GET /api/tasks/{id}.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	get(w, r, "task", h.store.GetTask)
}

// UpdateTask handles PATCH /api/tasks/{id}.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	update[models.Task, models.TaskPatch](h, w, r, "task", h.store.GetTask, h.store.UpdateTask)
}

// DeleteTask handles DELETE /api/tasks/{id}.
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	remove(w, r, "task", h.store.DeleteTask)
}

// BatchUpdateTasks handles POST /api/tasks/batch-update. Unknown ids are
// skipped.
func (h *Handler) BatchUpdateTasks(w http.ResponseWriter, r *http.Request) {
	var req BatchUpdateRequest
	if !readJSON(w, r, &req) {
		return
	}
	now := h.store.Now()
	for _, id := range req.IDs {
		t, ok := h.store.GetTask(id)
		if !ok {
			continue
		}
		req.Patch.Apply(&t, now)
		if err := t.Validate(); err != nil {
			writeError(w, "batch update tasks", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, BatchResponse{Affected: h.store.BatchUpdateTasks(req.IDs, req.Patch)})
}

// BatchDeleteTasks handles POST /api/tasks/batch-delete.
func (h *Handler) BatchDeleteTasks(w http.ResponseWriter, r *http.Request) {
	var req BatchDeleteRequest
	if !readJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, BatchResponse{Affected: h.store.BatchDeleteTasks(req.IDs)})
}

// ListSchedules handles GET /api/schedules?projectId=.
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	items := h.store.ListSchedules(r.URL.Query().Get("projectId"))
	writeJSON(w, http.StatusOK, ScheduleListResponse{Schedules: items, Total: len(items)})
}

func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	create(w, r, "schedule", h.store.AddSchedule)
}

func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	get(w, r, "schedule", h.store.GetSchedule)
}

func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	update[models.ScheduleEvent, models.SchedulePatch](h, w, r, "schedule", h.store.GetSchedule, h.store.UpdateSchedule)
}

func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	remove(w, r, "schedule", h.store.DeleteSchedule)
}

// ListPayments handles GET /api/payments?projectId=.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	items := h.store.ListPayments(r.URL.Query().Get("projectId"))
	writeJSON(w, http.StatusOK, PaymentListResponse{Payments: items, Total: len(items)})
}

func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	create(w, r, "payment", h.store.AddPayment)
}

func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	get(w, r, "payment", h.store.GetPayment)
}

func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	update[models.Payment, models.PaymentPatch](h, w, r, "payment", h.store.GetPayment, h.store.UpdatePayment)
}

func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	remove(w, r, "payment", h.store.DeletePayment)
}
