package datastore

import (
	"fmt"
	"time"

	"github.com/starford/devspace/internal/apperr"
	"github.com/starford/devspace/internal/models"
)

func projectID(p models.Project) string { return p.ID }

// CascadeResult counts the records removed along with a project.
type CascadeResult struct {
	Tasks     int `json:"tasks"`
	Schedules int `json:"schedules"`
	Payments  int `json:"payments"`
}

// AddProject stores a new project with a fresh id and creation time. An
// empty status becomes Planning.
func (s *Store) AddProject(in models.Project) models.Project {
	var out models.Project
	s.mutate(func(doc *models.Document, now time.Time) (Change, bool) {
		in.ID = s.newID()
		in.CreatedAt = now
		in.UpdatedAt = nil
		if in.Status == "" {
			in.Status = models.ProjectPlanning
		}
		doc.Projects = append(doc.Projects, in)
		out = in.Clone()
		return Change{Op: OpCreated, Collection: Projects, IDs: []string{in.ID}}, true
	})
	return out
}

// UpdateProject merges patch into the project with the given id.
func (s *Store) UpdateProject(id string, patch models.ProjectPatch) (models.Project, error) {
	var out models.Project
	var err error
	s.mutate(func(doc *models.Document, now time.Time) (Change, bool) {
		i := indexOf(doc.Projects, id, projectID)
		if i < 0 {
			err = fmt.Errorf("project %s: %w", id, apperr.ErrNotFound)
			return Change{}, false
		}
		patch.Apply(&doc.Projects[i], now)
		out = doc.Projects[i].Clone()
		return Change{Op: OpUpdated, Collection: Projects, IDs: []string{id}}, true
	})
	return out, err
}

// DeleteProject removes the project and every task, schedule and payment
// referencing it.
func (s *Store) DeleteProject(id string) (CascadeResult, error) {
	var res CascadeResult
	var err error
	s.mutate(func(doc *models.Document, _ time.Time) (Change, bool) {
		i := indexOf(doc.Projects, id, projectID)
		if i < 0 {
			err = fmt.Errorf("project %s: %w", id, apperr.ErrNotFound)
			return Change{}, false
		}
		doc.Projects = append(doc.Projects[:i], doc.Projects[i+1:]...)

		owned := func(ref *string) bool { return ref != nil && *ref == id }
		doc.Tasks, res.Tasks = removeWhere(doc.Tasks, func(t models.Task) bool { return owned(t.ProjectID) })
		doc.Schedules, res.Schedules = removeWhere(doc.Schedules, func(e models.ScheduleEvent) bool { return owned(e.ProjectID) })
		doc.Payments, res.Payments = removeWhere(doc.Payments, func(p models.Payment) bool { return owned(p.ProjectID) })
		return Change{Op: OpDeleted, Collection: Projects, IDs: []string{id}}, true
	})
	return res, err
}

// GetProject returns a copy of the project with the given id.
func (s *Store) GetProject(id string) (models.Project, bool) {
	var out models.Project
	var ok bool
	s.view(func(doc *models.Document) {
		if i := indexOf(doc.Projects, id, projectID); i >= 0 {
			out, ok = doc.Projects[i].Clone(), true
		}
	})
	return out, ok
}

// ListProjects returns copies of all projects in insertion order.
func (s *Store) ListProjects() []models.Project {
	var out []models.Project
	s.view(func(doc *models.Document) {
		out = make([]models.Project, len(doc.Projects))
		for i, p := range doc.Projects {
			out[i] = p.Clone()
		}
	})
	return out
}

// removeWhere filters items in place and reports how many were dropped.
func removeWhere[T any](items []T, drop func(T) bool) ([]T, int) {
	kept := items[:0]
	for _, it := range items {
		if !drop(it) {
			kept = append(kept, it)
		}
	}
	removed := len(items) - len(kept)
	clear(items[len(kept):])
	return kept, removed
}
