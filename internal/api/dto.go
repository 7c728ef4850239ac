package api

import (
	"github.com/starford/devspace/internal/backup"
	"github.com/starford/devspace/internal/datastore"
	"github.com/starford/devspace/internal/models"
)

// ProjectListResponse wraps project listings.
type ProjectListResponse struct {
	Projects []models.Project `json:"projects" validate:"required"`
	Total    int              `json:"total" example:"3" validate:"required"`
}

// TaskListResponse wraps task listings.
type TaskListResponse struct {
	Tasks []models.Task `json:"tasks" validate:"required"`
	Total int           `json:"total" example:"12" validate:"required"`
}

// ScheduleListResponse wraps schedule listings.
type ScheduleListResponse struct {
	Schedules []models.ScheduleEvent `json:"schedules" validate:"required"`
	Total     int                    `json:"total" example:"4" validate:"required"`
}

// PaymentListResponse wraps payment listings.
type PaymentListResponse struct {
	Payments []models.Payment `json:"payments" validate:"required"`
	Total    int              `json:"total" example:"7" validate:"required"`
}

// DeleteProjectResponse reports a project deletion and its cascade.
type DeleteProjectResponse struct {
	ID      string                  `json:"id" validate:"required"`
	Cascade datastore.CascadeResult `json:"cascade" validate:"required"`
}

// BatchUpdateRequest applies one patch to many tasks.
type BatchUpdateRequest struct {
	IDs   []string         `json:"ids" validate:"required"`
	Patch models.TaskPatch `json:"patch" validate:"required"`
}

// BatchDeleteRequest deletes many tasks.
type BatchDeleteRequest struct {
	IDs []string `json:"ids" validate:"required"`
}

// BatchResponse is the number of records a batch operation touched.
type BatchResponse struct {
	Affected int `json:"affected" example:"2" validate:"required"`
}

// CompressionSetting is the persisted compression flag.
type CompressionSetting struct {
	Enabled bool `json:"enabled"`
}

// BackupResponse names a written backup.
type BackupResponse struct {
	Name string `json:"name" example:"devspace-backup-2024-07-04.json" validate:"required"`
}

// BackupListResponse wraps stored backups.
type BackupListResponse struct {
	Backups []backup.Entry `json:"backups" validate:"required"`
}
