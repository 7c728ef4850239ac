package models

import "time"

// ScheduleEvent is a calendar entry, optionally attached to a project.
type ScheduleEvent struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	Description      string            `json:"description,omitempty"`
	ProjectID        *string           `json:"projectId"`
	Date             string            `json:"date"`
	StartTime        string            `json:"startTime,omitempty"`
	EndTime          string            `json:"endTime,omitempty"`
	Type             ScheduleType      `json:"type,omitempty"`
	IsRecurring      bool              `json:"isRecurring"`
	RecurringPattern RecurrencePattern `json:"recurringPattern,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        *time.Time        `json:"updatedAt,omitempty"`
}

func (s ScheduleEvent) Clone() ScheduleEvent {
	s.ProjectID = cloneString(s.ProjectID)
	s.UpdatedAt = cloneTime(s.UpdatedAt)
	return s
}

type SchedulePatch struct {
	Title            *string            `json:"title,omitempty"`
	Description      *string            `json:"description,omitempty"`
	ProjectID        *string            `json:"projectId,omitempty"`
	Date             *string            `json:"date,omitempty"`
	StartTime        *string            `json:"startTime,omitempty"`
	EndTime          *string            `json:"endTime,omitempty"`
	Type             *ScheduleType      `json:"type,omitempty"`
	IsRecurring      *bool              `json:"isRecurring,omitempty"`
	RecurringPattern *RecurrencePattern `json:"recurringPattern,omitempty"`
}

// Apply merges the patch into s and stamps UpdatedAt.
func (sp SchedulePatch) Apply(s *ScheduleEvent, now time.Time) {
	if sp.Title != nil {
		s.Title = *sp.Title
	}
	if sp.Description != nil {
		s.Description = *sp.Description
	}
	applyRef(&s.ProjectID, sp.ProjectID)
	if sp.Date != nil {
		s.Date = *sp.Date
	}
	if sp.StartTime != nil {
		s.StartTime = *sp.StartTime
	}
	if sp.EndTime != nil {
		s.EndTime = *sp.EndTime
	}
	if sp.Type != nil {
		s.Type = *sp.Type
	}
	if sp.IsRecurring != nil {
		s.IsRecurring = *sp.IsRecurring
	}
	if sp.RecurringPattern != nil {
		s.RecurringPattern = *sp.RecurringPattern
	}
	s.UpdatedAt = &now
}
