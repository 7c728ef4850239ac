// Package models defines the persisted document and its entity types.
package models

import (
	"errors"
	"time"
)

// Version stamps.
const (
	AppVersion  = "1.0.2"
	DataVersion = "1.0.0"
)

// Metadata carries document-level bookkeeping.
type Metadata struct {
	Version    string     `json:"version"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	LastBackup *time.Time `json:"lastBackup"`
}

// IsZero reports whether the metadata block was absent from its source.
func (m Metadata) IsZero() bool {
	return m.Version == "" && m.CreatedAt.IsZero() && m.UpdatedAt.IsZero() && m.LastBackup == nil
}

// NewMetadata returns a fresh metadata block stamped at now.
func NewMetadata(now time.Time) Metadata {
	return Metadata{
		Version:   DataVersion,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Document is the single persisted aggregate.
type Document struct {
	Projects  []Project       `json:"projects"`
	Tasks     []Task          `json:"tasks"`
	Schedules []ScheduleEvent `json:"schedules"`
	Payments  []Payment       `json:"payments"`
	Metadata  Metadata        `json:"metadata"`
}

// NewDocument returns an empty document stamped at now.
func NewDocument(now time.Time) *Document {
	return &Document{
		Projects:  []Project{},
		Tasks:     []Task{},
		Schedules: []ScheduleEvent{},
		Payments:  []Payment{},
		Metadata:  NewMetadata(now),
	}
}

// EnsureMetadata stamps a document whose metadata block was absent with
// createdAt and updatedAt at now. The version stays empty so the baseline
// migration still runs. It reports whether the block was synthesised.
func (d *Document) EnsureMetadata(now time.Time) bool {
	if !d.Metadata.IsZero() {
		return false
	}
	d.Metadata = Metadata{CreatedAt: now, UpdatedAt: now}
	return true
}

// Normalize replaces nil collections with empty ones so they encode as [].
func (d *Document) Normalize() {
	if d.Projects == nil {
		d.Projects = []Project{}
	}
	if d.Tasks == nil {
		d.Tasks = []Task{}
	}
	if d.Schedules == nil {
		d.Schedules = []ScheduleEvent{}
	}
	if d.Payments == nil {
		d.Payments = []Payment{}
	}
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	out := &Document{
		Projects:  make([]Project, len(d.Projects)),
		Tasks:     make([]Task, len(d.Tasks)),
		Schedules: make([]ScheduleEvent, len(d.Schedules)),
		Payments:  make([]Payment, len(d.Payments)),
		Metadata:  d.Metadata,
	}
	out.Metadata.LastBackup = cloneTime(d.Metadata.LastBackup)
	for i, p := range d.Projects {
		out.Projects[i] = p.Clone()
	}
	for i, t := range d.Tasks {
		out.Tasks[i] = t.Clone()
	}
	for i, s := range d.Schedules {
		out.Schedules[i] = s.Clone()
	}
	for i, p := range d.Payments {
		out.Payments[i] = p.Clone()
	}
	return out
}

// ProjectIDs returns the set of project ids present in the document.
func (d *Document) ProjectIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(d.Projects))
	for _, p := range d.Projects {
		ids[p.ID] = struct{}{}
	}
	return ids
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
}

var errBadDate = errors.New("unrecognised date")

// ParseDate parses the date formats the forms and imported files use.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errBadDate
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// RefID returns the dereferenced project reference, or "" when unset.
func RefID(ref *string) string {
	if ref == nil {
		return ""
	}
	return *ref
}

// Ref returns a project reference for id; the empty id means no reference.
func Ref(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

// applyRef applies a patch reference: nil leaves dst alone, "" clears it.
func applyRef(dst **string, patch *string) {
	if patch == nil {
		return
	}
	*dst = Ref(*patch)
}
