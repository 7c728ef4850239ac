package datastore

import (
	"fmt"
	"time"

	"github.com/starford/devspace/internal/apperr"
	"github.com/starford/devspace/internal/models"
)

func taskID(t models.Task) string { return t.ID }

// AddTask stores a new task. An empty status becomes Todo; a task created
// as Done is stamped completed.
func (s *Store) AddTask(in models.Task) models.Task {
	var out models.Task
	s.mutate(func(doc *models.Document, now time.Time) (Change, bool) {
		in.ID = s.newID()
		in.CreatedAt = now
		in.UpdatedAt = nil
		in.ProjectID = models.Ref(models.RefID(in.ProjectID))
		if in.Status == "" {
			in.Status = models.TaskTodo
		}
		in.CompletedAt = nil
		in.SetStatus(in.Status, now)
		doc.Tasks = append(doc.Tasks, in)
		out = in.Clone()
		return Change{Op: OpCreated, Collection: Tasks, IDs: []string{in.ID}}, true
	})
	return out
}

// UpdateTask merges patch into the task with the given id.
func (s *Store) UpdateTask(id string, patch models.TaskPatch) (models.Task, error) {
	var out models.Task
	var err error
	s.mutate(func(doc *models.Document, now time.Time) (Change, bool) {
		i := indexOf(doc.Tasks, id, taskID)
		if i < 0 {
			err = fmt.Errorf("task %s: %w", id, apperr.ErrNotFound)
			return Change{}, false
		}
		patch.Apply(&doc.Tasks[i], now)
		out = doc.Tasks[i].Clone()
		return Change{Op: OpUpdated, Collection: Tasks, IDs: []string{id}}, true
	})
	return out, err
}

// DeleteTask removes a single task.
func (s *Store) DeleteTask(id string) error {
	var err error
	s.mutate(func(doc *models.Document, _ time.Time) (Change, bool) {
		i := indexOf(doc.Tasks, id, taskID)
		if i < 0 {
			err = fmt.Errorf("task %s: %w", id, apperr.ErrNotFound)
			return Change{}, false
		}
		doc.Tasks = append(doc.Tasks[:i], doc.Tasks[i+1:]...)
		return Change{Op: OpDeleted, Collection: Tasks, IDs: []string{id}}, true
	})
	return err
}

func (s *Store) GetTask(id string) (models.Task, bool) {
	var out models.Task
	var ok bool
	s.view(func(doc *models.Document) {
		if i := indexOf(doc.Tasks, id, taskID); i >= 0 {
			out, ok = doc.Tasks[i].Clone(), true
		}
	})
	return out, ok
}

// ListTasks returns copies of all tasks. A non-empty projectID restricts
// the result to that project's tasks.
func (s *Store) ListTasks(projectID string) []models.Task {
	out := []models.Task{}
	s.view(func(doc *models.Document) {
		for _, t := range doc.Tasks {
			if projectID == "" || models.RefID(t.ProjectID) == projectID {
				out = append(out, t.Clone())
			}
		}
	})
	return out
}

// BatchUpdateTasks applies patch to every listed task in one mutation.
// Unknown ids are skipped. It returns the number of tasks updated.
func (s *Store) BatchUpdateTasks(ids []string, patch models.TaskPatch) int {
	set := idSet(ids)
	n := 0
	s.mutate(func(doc *models.Document, now time.Time) (Change, bool) {
		var touched []string
		for i := range doc.Tasks {
			if _, ok := set[doc.Tasks[i].ID]; !ok {
				continue
			}
			patch.Apply(&doc.Tasks[i], now)
			touched = append(touched, doc.Tasks[i].ID)
		}
		n = len(touched)
		return Change{Op: OpUpdated, Collection: Tasks, IDs: touched}, n > 0
	})
	return n
}

// BatchDeleteTasks removes every listed task in one mutation. Unknown ids
// are skipped. It returns the number of tasks removed.
func (s *Store) BatchDeleteTasks(ids []string) int {
	set := idSet(ids)
	n := 0
	s.mutate(func(doc *models.Document, _ time.Time) (Change, bool) {
		var removed []string
		doc.Tasks, n = removeWhere(doc.Tasks, func(t models.Task) bool {
			if _, ok := set[t.ID]; ok {
				removed = append(removed, t.ID)
				return true
			}
			return false
		})
		return Change{Op: OpDeleted, Collection: Tasks, IDs: removed}, n > 0
	})
	return n
}
