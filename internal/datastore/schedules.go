package datastore

import (
	"fmt"
	"time"

	"github.com/starford/devspace/internal/apperr"
	"github.com/starford/devspace/internal/models"
)

func scheduleID(e models.ScheduleEvent) string { return e.ID }

func (s *Store) AddSchedule(in models.ScheduleEvent) models.ScheduleEvent {
	var out models.ScheduleEvent
	s.mutate(func(doc *models.Document, now time.Time) (Change, bool) {
		in.ID = s.newID()
		in.CreatedAt = now
		in.UpdatedAt = nil
		in.ProjectID = models.Ref(models.RefID(in.ProjectID))
		doc.Schedules = append(doc.Schedules, in)
		out = in.Clone()
		return Change{Op: OpCreated, Collection: Schedules, IDs: []string{in.ID}}, true
	})
	return out
}

func (s *Store) UpdateSchedule(id string, patch models.SchedulePatch) (models.ScheduleEvent, error) {
	var out models.ScheduleEvent
	var err error
	s.mutate(func(doc *models.Document, now time.Time) (Change, bool) {
		i := indexOf(doc.Schedules, id, scheduleID)
		if i < 0 {
			err = fmt.Errorf("schedule %s: %w", id, apperr.ErrNotFound)
			return Change{}, false
		}
		patch.Apply(&doc.Schedules[i], now)
		out = doc.Schedules[i].Clone()
		return Change{Op: OpUpdated, Collection: Schedules, IDs: []string{id}}, true
	})
	return out, err
}

func (s *Store) DeleteSchedule(id string) error {
	var err error
	s.mutate(func(doc *models.Document, _ time.Time) (Change, bool) {
		i := indexOf(doc.Schedules, id, scheduleID)
		if i < 0 {
			err = fmt.Errorf("schedule %s: %w", id, apperr.ErrNotFound)
			return Change{}, false
		}
		doc.Schedules = append(doc.Schedules[:i], doc.Schedules[i+1:]...)
		return Change{Op: OpDeleted, Collection: Schedules, IDs: []string{id}}, true
	})
	return err
}

func (s *Store) GetSchedule(id string) (models.ScheduleEvent, bool) {
	var out models.ScheduleEvent
	var ok bool
	s.view(func(doc *models.Document) {
		if i := indexOf(doc.Schedules, id, scheduleID); i >= 0 {
			out, ok = doc.Schedules[i].Clone(), true
		}
	})
	return out, ok
}

// ListSchedules returns copies of all schedule events, optionally limited
// to one project.
func (s *Store) ListSchedules(projectID string) []models.ScheduleEvent {
	out := []models.ScheduleEvent{}
	s.view(func(doc *models.Document) {
		for _, e := range doc.Schedules {
			if projectID == "" || models.RefID(e.ProjectID) == projectID {
				out = append(out, e.Clone())
			}
		}
	})
	return out
}
