// Package integrity scans a document for dangling project references and
// incomplete records, and repairs the references it can.
package integrity

import (
	"time"

	"github.com/starford/devspace/internal/models"
)

// IssueType names a class of integrity problem.
type IssueType string

const (
	OrphanedTasks     IssueType = "orphanedTasks"
	OrphanedSchedules IssueType = "orphanedSchedules"
	OrphanedPayments  IssueType = "orphanedPayments"
	InvalidProjects   IssueType = "invalidProjects"
	InvalidDateTasks  IssueType = "invalidDateTasks"
)

// Issue groups the offending records of one type.
type Issue struct {
	Type  IssueType `json:"type"`
	Count int       `json:"count"`
	IDs   []string  `json:"ids"`
	Items any       `json:"items"`
}

// Report is the result of a validation pass.
type Report struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues"`
}

// Issue returns the issue of type t, if reported.
func (r Report) Issue(t IssueType) (Issue, bool) {
	for _, is := range r.Issues {
		if is.Type == t {
			return is, true
		}
	}
	return Issue{}, false
}

// BrokenReferences returns the refs whose key is set but not in valid.
// Unset keys are not broken.
func BrokenReferences[T any](valid map[string]struct{}, refs []T, key func(T) string) []T {
	var out []T
	for _, r := range refs {
		k := key(r)
		if k == "" {
			continue
		}
		if _, ok := valid[k]; !ok {
			out = append(out, r)
		}
	}
	return out
}

func taskRef(t models.Task) string              { return models.RefID(t.ProjectID) }
func scheduleRef(s models.ScheduleEvent) string { return models.RefID(s.ProjectID) }
func paymentRef(p models.Payment) string        { return models.RefID(p.ProjectID) }

// Check validates doc without modifying it.
func Check(doc *models.Document) Report {
	projects := doc.ProjectIDs()
	var issues []Issue

	if items := BrokenReferences(projects, doc.Tasks, taskRef); len(items) > 0 {
		issues = append(issues, newIssue(OrphanedTasks, items, func(t models.Task) string { return t.ID }))
	}
	if items := BrokenReferences(projects, doc.Schedules, scheduleRef); len(items) > 0 {
		issues = append(issues, newIssue(OrphanedSchedules, items, func(s models.ScheduleEvent) string { return s.ID }))
	}
	if items := BrokenReferences(projects, doc.Payments, paymentRef); len(items) > 0 {
		issues = append(issues, newIssue(OrphanedPayments, items, func(p models.Payment) string { return p.ID }))
	}

	var invalid []models.Project
	for _, p := range doc.Projects {
		if p.Name == "" || p.Client == "" {
			invalid = append(invalid, p)
		}
	}
	if len(invalid) > 0 {
		issues = append(issues, newIssue(InvalidProjects, invalid, func(p models.Project) string { return p.ID }))
	}

	var badDates []models.Task
	for _, t := range doc.Tasks {
		if t.DueDate == "" {
			continue
		}
		if _, err := models.ParseDate(t.DueDate); err != nil {
			badDates = append(badDates, t)
		}
	}
	if len(badDates) > 0 {
		issues = append(issues, newIssue(InvalidDateTasks, badDates, func(t models.Task) string { return t.ID }))
	}

	if issues == nil {
		issues = []Issue{}
	}
	return Report{Valid: len(issues) == 0, Issues: issues}
}

func newIssue[T any](typ IssueType, items []T, id func(T) string) Issue {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = id(it)
	}
	return Issue{Type: typ, Count: len(items), IDs: ids, Items: items}
}

// Fix detaches every orphaned task, schedule and payment from its missing
// project and stamps it with now. Records are never deleted. It returns the
// number of records changed.
func Fix(doc *models.Document, now time.Time) int {
	projects := doc.ProjectIDs()
	orphaned := func(ref *string) bool {
		if ref == nil || *ref == "" {
			return false
		}
		_, ok := projects[*ref]
		return !ok
	}

	fixed := 0
	for i := range doc.Tasks {
		if orphaned(doc.Tasks[i].ProjectID) {
			doc.Tasks[i].ProjectID = nil
			doc.Tasks[i].UpdatedAt = &now
			fixed++
		}
	}
	for i := range doc.Schedules {
		if orphaned(doc.Schedules[i].ProjectID) {
			doc.Schedules[i].ProjectID = nil
			doc.Schedules[i].UpdatedAt = &now
			fixed++
		}
	}
	for i := range doc.Payments {
		if orphaned(doc.Payments[i].ProjectID) {
			doc.Payments[i].ProjectID = nil
			doc.Payments[i].UpdatedAt = &now
			fixed++
		}
	}
	return fixed
}
