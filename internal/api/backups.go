package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/devspace/internal/backup"
)

// CreateBackup handles POST /api/backups.
func (h *Handler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	name, err := h.backups.Backup(r.Context())
	if err != nil {
		writeError(w, "backup", err)
		return
	}
	writeJSON(w, http.StatusCreated, BackupResponse{Name: name})
}

// ListBackups handles GET /api/backups.
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	entries, err := h.backups.List(r.Context())
	if err != nil {
		writeError(w, "list backups", err)
		return
	}
	writeJSON(w, http.StatusOK, BackupListResponse{Backups: entries})
}

// RestoreBackup handles POST /api/backups/{name}/restore.
func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !strings.HasPrefix(name, backup.FilePrefix) || strings.ContainsAny(name, `/\`) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	if err := h.backups.RestoreNamed(r.Context(), name); err != nil {
		writeError(w, "restore", err)
		return
	}
	h.Info(w, r)
}

// UploadRestore handles POST /api/backups/restore (multipart/form-data,
// field "file").
func (h *Handler) UploadRestore(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	if err := h.backups.Restore(r.Context(), file); err != nil {
		writeError(w, "restore", err)
		return
	}
	h.Info(w, r)
}

// SyncStatus handles GET /api/sync/status.
func (h *Handler) SyncStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.backups.Tracker().Current())
}
