package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/starford/devspace/internal/backup"
)

// Export handles GET /api/data/export as a file download.
func (h *Handler) Export(w http.ResponseWriter, _ *http.Request) {
	data, err := h.store.ExportJSON()
	if err != nil {
		writeError(w, "export", err)
		return
	}
	name := fmt.Sprintf("devspace-export-%s.json", h.store.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Import handles POST /api/data/import. The body is an exported document;
// the current document is replaced only when it is well formed.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, backup.MaxRestoreSize)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	if err := h.store.ImportData(data); err != nil {
		writeError(w, "import", err)
		return
	}
	h.Info(w, r)
}

// Reset handles POST /api/data/reset.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	h.store.Reset()
	h.Info(w, r)
}

// Validate handles GET /api/data/validate.
func (h *Handler) Validate(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Validate())
}

// FixOrphans handles POST /api/data/fix-orphans.
func (h *Handler) FixOrphans(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.store.FixOrphanedRecords())
}

// Info handles GET /api/data/info.
func (h *Handler) Info(w http.ResponseWriter, _ *http.Request) {
	info, err := h.store.Info()
	if err != nil {
		writeError(w, "info", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Statistics handles GET /api/stats.
func (h *Handler) Statistics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Statistics())
}

// GetCompression handles GET /api/settings/compression.
func (h *Handler) GetCompression(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, CompressionSetting{Enabled: h.store.Compression()})
}

// SetCompression handles PUT /api/settings/compression.
func (h *Handler) SetCompression(w http.ResponseWriter, r *http.Request) {
	var req CompressionSetting
	if !readJSON(w, r, &req) {
		return
	}
	h.store.SetCompression(req.Enabled)
	writeJSON(w, http.StatusOK, CompressionSetting{Enabled: h.store.Compression()})
}

// ToggleCompression handles POST /api/settings/compression/toggle.
func (h *Handler) ToggleCompression(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, CompressionSetting{Enabled: h.store.ToggleCompression()})
}
