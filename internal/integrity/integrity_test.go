package integrity

import (
	"testing"
	"time"

	"github.com/starford/devspace/internal/models"
)

func docWithOrphans() *models.Document {
	doc := models.NewDocument(time.Now())
	doc.Projects = []models.Project{
		{ID: "p1", Name: "Site", Client: "Acme"},
		{ID: "p2", Name: "", Client: "NoName"},
	}
	doc.Tasks = []models.Task{
		{ID: "t1", ProjectID: models.Ref("p1")},
		{ID: "t2", ProjectID: models.Ref("gone")},
		{ID: "t3"},
		{ID: "t4", DueDate: "someday"},
	}
	doc.Schedules = []models.ScheduleEvent{{ID: "s1", ProjectID: models.Ref("gone")}}
	doc.Payments = []models.Payment{
		{ID: "pay1", ProjectID: models.Ref("gone")},
		{ID: "pay2", ProjectID: models.Ref("p2")},
	}
	return doc
}

func TestCheckReportsEveryIssueType(t *testing.T) {
	r := Check(docWithOrphans())
	if r.Valid {
		t.Fatal("expected invalid report")
	}

	want := map[IssueType][]string{
		OrphanedTasks:     {"t2"},
		OrphanedSchedules: {"s1"},
		OrphanedPayments:  {"pay1"},
		InvalidProjects:   {"p2"},
		InvalidDateTasks:  {"t4"},
	}
	if len(r.Issues) != len(want) {
		t.Fatalf("issues = %d, want %d: %+v", len(r.Issues), len(want), r.Issues)
	}
	for typ, ids := range want {
		is, ok := r.Issue(typ)
		if !ok {
			t.Errorf("missing issue %s", typ)
			continue
		}
		if is.Count != len(ids) || is.IDs[0] != ids[0] {
			t.Errorf("%s: count=%d ids=%v, want %v", typ, is.Count, is.IDs, ids)
		}
	}
}

func TestCheckEmptyDocumentValid(t *testing.T) {
	r := Check(models.NewDocument(time.Now()))
	if !r.Valid || len(r.Issues) != 0 {
		t.Fatalf("empty document should be valid: %+v", r)
	}
}

func TestFixIsIdempotent(t *testing.T) {
	doc := docWithOrphans()
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	if fixed := Fix(doc, now); fixed != 3 {
		t.Fatalf("first Fix = %d, want 3", fixed)
	}
	if doc.Tasks[1].ProjectID != nil || !doc.Tasks[1].UpdatedAt.Equal(now) {
		t.Fatalf("orphaned task not detached: %+v", doc.Tasks[1])
	}
	if models.RefID(doc.Tasks[0].ProjectID) != "p1" {
		t.Fatal("valid reference must be kept")
	}
	if fixed := Fix(doc, now); fixed != 0 {
		t.Fatalf("second Fix = %d, want 0", fixed)
	}

	r := Check(doc)
	for _, typ := range []IssueType{OrphanedTasks, OrphanedSchedules, OrphanedPayments} {
		if _, ok := r.Issue(typ); ok {
			t.Errorf("%s still reported after Fix", typ)
		}
	}
}

func TestBrokenReferencesSkipsUnset(t *testing.T) {
	valid := map[string]struct{}{"a": {}}
	refs := []string{"", "a", "b"}
	got := BrokenReferences(valid, refs, func(s string) string { return s })
	if len(got) != 1 || got[0] != "b" {
		t.Fatalf("got %v, want [b]", got)
	}
}
