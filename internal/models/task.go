package models

import "time"

// Task is a unit of work, optionally attached to a project.
type Task struct {
	ID string `json:"id"`
	// Name is the task label. Title is read from documents written before
	// tasks were renamed and is folded into Name during migration.
	Name           string     `json:"name"`
	Title          string     `json:"title,omitempty"`
	Description    string     `json:"description,omitempty"`
	ProjectID      *string    `json:"projectId"`
	DueDate        string     `json:"dueDate,omitempty"`
	Priority       Priority   `json:"priority,omitempty"`
	Status         TaskStatus `json:"status"`
	EstimatedHours Number     `json:"estimatedHours,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      *time.Time `json:"updatedAt,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

func (t Task) Clone() Task {
	t.ProjectID = cloneString(t.ProjectID)
	t.UpdatedAt = cloneTime(t.UpdatedAt)
	t.CompletedAt = cloneTime(t.CompletedAt)
	return t
}

// Label returns Name, falling back to the legacy Title.
func (t Task) Label() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Title
}

// SetStatus changes the status and keeps CompletedAt present exactly while
// the task is Done. An existing CompletedAt survives re-entering Done.
func (t *Task) SetStatus(s TaskStatus, now time.Time) {
	t.Status = s
	if s == TaskDone {
		if t.CompletedAt == nil {
			t.CompletedAt = &now
		}
		return
	}
	t.CompletedAt = nil
}

// TaskPatch carries the fields of a partial task update. An empty ProjectID
// detaches the task from its project.
type TaskPatch struct {
	Name           *string     `json:"name,omitempty"`
	Description    *string     `json:"description,omitempty"`
	ProjectID      *string     `json:"projectId,omitempty"`
	DueDate        *string     `json:"dueDate,omitempty"`
	Priority       *Priority   `json:"priority,omitempty"`
	Status         *TaskStatus `json:"status,omitempty"`
	EstimatedHours *Number     `json:"estimatedHours,omitempty"`
}

// Apply merges the patch into t and stamps UpdatedAt.
func (tp TaskPatch) Apply(t *Task, now time.Time) {
	if tp.Name != nil {
		t.Name = *tp.Name
	}
	if tp.Description != nil {
		t.Description = *tp.Description
	}
	applyRef(&t.ProjectID, tp.ProjectID)
	if tp.DueDate != nil {
		t.DueDate = *tp.DueDate
	}
	if tp.Priority != nil {
		t.Priority = *tp.Priority
	}
	if tp.EstimatedHours != nil {
		t.EstimatedHours = *tp.EstimatedHours
	}
	if tp.Status != nil {
		t.SetStatus(*tp.Status, now)
	}
	t.UpdatedAt = &now
}
