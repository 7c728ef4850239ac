// Package stats derives read-only aggregates from a document.
package stats

import (
	"strconv"
	"time"

	"github.com/starford/devspace/internal/models"
)

type Counts struct {
	TotalProjects          int `json:"totalProjects"`
	ActiveProjects         int `json:"activeProjects"`
	TotalTasks             int `json:"totalTasks"`
	CompletedTasks         int `json:"completedTasks"`
	TasksThisWeek          int `json:"tasksThisWeek"`
	CompletedTasksThisWeek int `json:"completedTasksThisWeek"`
	TotalSchedules         int `json:"totalSchedules"`
	TotalPayments          int `json:"totalPayments"`
}

type Rates struct {
	// CompletionRate is a percentage rendered with one decimal, e.g. "66.7".
	CompletionRate     string  `json:"completionRate"`
	ActiveProjectsRate float64 `json:"activeProjectsRate"`
}

type Financial struct {
	TotalEarnings     float64 `json:"totalEarnings"`
	EarningsThisMonth float64 `json:"earningsThisMonth"`
	PendingPayments   float64 `json:"pendingPayments"`
}

type Timestamps struct {
	FirstCreated time.Time  `json:"firstCreated"`
	LastUpdated  time.Time  `json:"lastUpdated"`
	LastBackup   *time.Time `json:"lastBackup"`
}

type Statistics struct {
	Counts     Counts     `json:"counts"`
	Rates      Rates      `json:"rates"`
	Financial  Financial  `json:"financial"`
	Timestamps Timestamps `json:"timestamps"`
}

// StartOfWeek returns Sunday 00:00 of the week containing now, in now's location.
func StartOfWeek(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d-int(now.Weekday()), 0, 0, 0, 0, now.Location())
}

// StartOfMonth returns the first instant of now's calendar month.
func StartOfMonth(now time.Time) time.Time {
	y, m, _ := now.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
}

// Compute aggregates doc as seen at now. doc is not modified.
func Compute(doc *models.Document, now time.Time) Statistics {
	week := StartOfWeek(now)
	month := StartOfMonth(now)

	var s Statistics
	s.Counts.TotalProjects = len(doc.Projects)
	s.Counts.TotalTasks = len(doc.Tasks)
	s.Counts.TotalSchedules = len(doc.Schedules)
	s.Counts.TotalPayments = len(doc.Payments)

	for _, p := range doc.Projects {
		if p.Status.Active() {
			s.Counts.ActiveProjects++
		}
	}

	for _, t := range doc.Tasks {
		if !t.CreatedAt.IsZero() && !t.CreatedAt.Before(week) {
			s.Counts.TasksThisWeek++
		}
		if t.Status != models.TaskDone {
			continue
		}
		s.Counts.CompletedTasks++
		if at := completedAt(t); at != nil && !at.Before(week) {
			s.Counts.CompletedTasksThisWeek++
		}
	}

	rate := 0.0
	if s.Counts.TotalTasks > 0 {
		rate = float64(s.Counts.CompletedTasks) / float64(s.Counts.TotalTasks) * 100
	}
	s.Rates.CompletionRate = strconv.FormatFloat(rate, 'f', 1, 64)
	if s.Counts.TotalProjects > 0 {
		s.Rates.ActiveProjectsRate = float64(s.Counts.ActiveProjects) / float64(s.Counts.TotalProjects) * 100
	}

	for _, p := range doc.Payments {
		amount := p.Amount.Float()
		switch p.Status {
		case models.PaymentPaid:
			s.Financial.TotalEarnings += amount
			if !p.CreatedAt.IsZero() && !p.CreatedAt.Before(month) {
				s.Financial.EarningsThisMonth += amount
			}
		case models.PaymentPending:
			s.Financial.PendingPayments += amount
		}
	}

	s.Timestamps = Timestamps{
		FirstCreated: doc.Metadata.CreatedAt,
		LastUpdated:  doc.Metadata.UpdatedAt,
		LastBackup:   doc.Metadata.LastBackup,
	}
	return s
}

// completedAt falls back to the last update for tasks finished before
// completion stamps existed.
func completedAt(t models.Task) *time.Time {
	if t.CompletedAt != nil {
		return t.CompletedAt
	}
	return t.UpdatedAt
}
