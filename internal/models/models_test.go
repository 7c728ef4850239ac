package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTaskSetStatus(t *testing.T) {
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)

	var task Task
	task.SetStatus(TaskDone, now)
	if task.CompletedAt == nil || !task.CompletedAt.Equal(now) {
		t.Fatalf("completedAt = %v, want %v", task.CompletedAt, now)
	}

	// Re-entering Done keeps the original stamp.
	task.SetStatus(TaskDone, later)
	if !task.CompletedAt.Equal(now) {
		t.Fatalf("completedAt moved to %v", task.CompletedAt)
	}

	task.SetStatus(TaskTodo, later)
	if task.CompletedAt != nil {
		t.Fatalf("completedAt should be cleared, got %v", task.CompletedAt)
	}
}

func TestPaymentPatchStatus(t *testing.T) {
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	p := Payment{Status: PaymentPending}

	paid := PaymentPaid
	PaymentPatch{Status: &paid}.Apply(&p, now)
	if p.PaidAt == nil {
		t.Fatal("paidAt should be set")
	}
	if p.UpdatedAt == nil || !p.UpdatedAt.Equal(now) {
		t.Fatalf("updatedAt = %v", p.UpdatedAt)
	}

	desc := "renamed"
	PaymentPatch{Description: &desc}.Apply(&p, now)
	if p.PaidAt == nil {
		t.Fatal("paidAt should survive a patch without status")
	}

	pending := PaymentPending
	PaymentPatch{Status: &pending}.Apply(&p, now)
	if p.PaidAt != nil {
		t.Fatal("paidAt should be cleared")
	}
}

func TestTaskPatchProjectRef(t *testing.T) {
	now := time.Now()
	task := Task{ProjectID: Ref("p1")}

	TaskPatch{}.Apply(&task, now)
	if RefID(task.ProjectID) != "p1" {
		t.Fatalf("projectId = %q, want p1", RefID(task.ProjectID))
	}

	empty := ""
	TaskPatch{ProjectID: &empty}.Apply(&task, now)
	if task.ProjectID != nil {
		t.Fatalf("projectId should be cleared, got %q", *task.ProjectID)
	}
}

func TestNumberUnmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{`12.5`, 12.5},
		{`"40"`, 40},
		{`"abc"`, 0},
		{`null`, 0},
		{`""`, 0},
	}
	for _, tc := range tests {
		var n Number
		if err := json.Unmarshal([]byte(tc.in), &n); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.in, err)
		}
		if n.Float() != tc.want {
			t.Errorf("%s: got %v, want %v", tc.in, n.Float(), tc.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	valid := []string{"2024-01-31", "2024-01-31T08:30", "2024-01-31T08:30:00Z", "2024-01-31T08:30:00.123+02:00"}
	for _, s := range valid {
		if _, err := ParseDate(s); err != nil {
			t.Errorf("ParseDate(%q): %v", s, err)
		}
	}
	for _, s := range []string{"tomorrow", "2024-13-45", ""} {
		if _, err := ParseDate(s); err == nil {
			t.Errorf("ParseDate(%q) should fail", s)
		}
	}
}

func TestDocumentCloneIsDeep(t *testing.T) {
	now := time.Now()
	doc := NewDocument(now)
	doc.Tasks = append(doc.Tasks, Task{ID: "t1", ProjectID: Ref("p1")})

	cp := doc.Clone()
	*cp.Tasks[0].ProjectID = "p2"
	cp.Tasks[0].Name = "changed"

	if RefID(doc.Tasks[0].ProjectID) != "p1" || doc.Tasks[0].Name != "" {
		t.Fatalf("clone shares state with original: %+v", doc.Tasks[0])
	}
}

func TestProjectValidate(t *testing.T) {
	ok := Project{Name: "Site", Client: "Acme", Budget: 100, Status: ProjectPlanning, StartDate: "2024-01-01", EndDate: "2024-02-01"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid project: %v", err)
	}
	for name, p := range map[string]Project{
		"missing name":   {Client: "Acme"},
		"missing client": {Name: "Site"},
		"negative":       {Name: "Site", Client: "Acme", Budget: -1},
		"bad status":     {Name: "Site", Client: "Acme", Status: "Paused"},
		"end before":     {Name: "Site", Client: "Acme", StartDate: "2024-02-01", EndDate: "2024-01-01"},
	} {
		if err := p.Validate(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestScheduleValidate(t *testing.T) {
	ok := ScheduleEvent{Title: "Standup", Date: "2024-03-01", StartTime: "09:00", EndTime: "09:15"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid event: %v", err)
	}
	for name, s := range map[string]ScheduleEvent{
		"missing date":      {Title: "x"},
		"end missing":       {Title: "x", Date: "2024-03-01", StartTime: "09:00"},
		"end before start":  {Title: "x", Date: "2024-03-01", StartTime: "10:00", EndTime: "09:00"},
		"bad clock":         {Title: "x", Date: "2024-03-01", StartTime: "9am", EndTime: "10:00"},
		"recurring no rule": {Title: "x", Date: "2024-03-01", IsRecurring: true},
	} {
		if err := s.Validate(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestPaymentValidate(t *testing.T) {
	if err := (Payment{Description: "Invoice 1", Amount: 10, Status: PaymentPaid}).Validate(); err != nil {
		t.Fatalf("valid payment: %v", err)
	}
	if err := (Payment{Description: "Invoice 1"}).Validate(); err == nil {
		t.Error("zero amount must fail")
	}
	if err := (Payment{Description: "Invoice 1", Amount: -5}).Validate(); err == nil {
		t.Error("negative amount must fail")
	}
	if err := (Payment{Amount: 5}).Validate(); err == nil {
		t.Error("missing description must fail")
	}
}

func TestTaskValidate(t *testing.T) {
	if err := (Task{Name: "Build", Status: TaskDone, Priority: PriorityHigh}).Validate(); err != nil {
		t.Fatalf("valid task: %v", err)
	}
	if err := (Task{Name: "Build", Status: "Later"}).Validate(); err == nil {
		t.Error("unknown status must fail")
	}
	if err := (Task{}).Validate(); err == nil {
		t.Error("missing name must fail")
	}
}

func TestDocumentEnsureMetadata(t *testing.T) {
	now := time.Date(2024, 7, 4, 12, 0, 0, 0, time.UTC)

	var doc Document
	if !doc.EnsureMetadata(now) {
		t.Fatal("missing metadata not synthesised")
	}
	if !doc.Metadata.CreatedAt.Equal(now) || !doc.Metadata.UpdatedAt.Equal(now) || doc.Metadata.Version != "" {
		t.Fatalf("metadata = %+v", doc.Metadata)
	}

	kept := Document{Metadata: Metadata{Version: DataVersion}}
	if kept.EnsureMetadata(now) || !kept.Metadata.CreatedAt.IsZero() {
		t.Fatalf("present metadata overwritten: %+v", kept.Metadata)
	}
}
