package backup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/devspace/internal/apperr"
	"github.com/starford/devspace/internal/datastore"
	"github.com/starford/devspace/internal/models"
	"github.com/starford/devspace/internal/syncstatus"
)

var testNow = time.Date(2024, 7, 4, 15, 30, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newStore() *datastore.Store {
	return datastore.New(
		datastore.WithClock(func() time.Time { return testNow }),
		datastore.WithLogger(testLogger()),
	)
}

type failingTarget struct{ Target }

func (failingTarget) Put(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestFileName(t *testing.T) {
	if got := FileName(testNow); got != "devspace-backup-2024-07-04.json" {
		t.Fatalf("FileName = %q", got)
	}
}

func TestBackupAndRestoreFS(t *testing.T) {
	dir := t.TempDir()
	target, err := NewFSTarget(dir)
	if err != nil {
		t.Fatalf("NewFSTarget: %v", err)
	}
	store := newStore()
	p := store.AddProject(models.Project{Name: "Site", Client: "Acme"})
	store.AddTask(models.Task{Name: "Build", ProjectID: &p.ID})
	svc := New(store, target, WithLogger(testLogger()))

	name, err := svc.Backup(context.Background())
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if !strings.Contains(string(data), "\n  \"projects\": [") || !strings.Contains(string(data), `"lastBackup": "2024-07-04T15:30:00Z"`) {
		t.Fatalf("backup is not a pretty, stamped export:\n%s", data)
	}
	if lb := store.Export().Metadata.LastBackup; lb == nil || !lb.Equal(testNow) {
		t.Fatalf("store lastBackup = %v", lb)
	}
	if st := svc.Tracker().Current(); st.State != syncstatus.Success {
		t.Fatalf("status = %+v", st)
	}

	entries, err := svc.List(context.Background())
	if err != nil || len(entries) != 1 || entries[0].Name != name {
		t.Fatalf("List = %+v, %v", entries, err)
	}

	store.Reset()
	if err := svc.RestoreNamed(context.Background(), name); err != nil {
		t.Fatalf("RestoreNamed: %v", err)
	}
	doc := store.Export()
	if len(doc.Projects) != 1 || len(doc.Tasks) != 1 || doc.Projects[0].Name != "Site" {
		t.Fatalf("restored document = %+v", doc)
	}
}

func TestBackupFailureLeavesStampUntouched(t *testing.T) {
	store := newStore()
	svc := New(store, failingTarget{}, WithLogger(testLogger()))

	if _, err := svc.Backup(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if store.Export().Metadata.LastBackup != nil {
		t.Fatal("lastBackup must not be stamped when the write fails")
	}
	if st := svc.Tracker().Current(); st.State != syncstatus.Error {
		t.Fatalf("status = %+v", st)
	}
}

func TestRestoreMalformedKeepsDocument(t *testing.T) {
	store := newStore()
	store.AddProject(models.Project{Name: "Keep", Client: "Me"})
	target, _ := NewFSTarget(t.TempDir())
	svc := New(store, target, WithLogger(testLogger()))

	err := svc.Restore(context.Background(), strings.NewReader(`{"projects":[]}`))
	if !errors.Is(err, apperr.ErrImportFormat) {
		t.Fatalf("Restore err = %v, want ErrImportFormat", err)
	}
	if len(store.ListProjects()) != 1 {
		t.Fatal("failed restore must not touch the document")
	}
	if st := svc.Tracker().Current(); st.State != syncstatus.Error {
		t.Fatalf("status = %+v", st)
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestRestoreReadErrorPropagates(t *testing.T) {
	target, _ := NewFSTarget(t.TempDir())
	svc := New(newStore(), target, WithLogger(testLogger()))
	if err := svc.Restore(context.Background(), errReader{}); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("Restore err = %v", err)
	}
}

func TestRestoreCancelled(t *testing.T) {
	store := newStore()
	target, _ := NewFSTarget(t.TempDir())
	svc := New(store, target, WithLogger(testLogger()))
	data, _ := store.ExportJSON()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Restore(ctx, strings.NewReader(string(data))); !errors.Is(err, context.Canceled) {
		t.Fatalf("Restore err = %v, want context.Canceled", err)
	}
}

func TestRestoreNamedMissing(t *testing.T) {
	target, _ := NewFSTarget(t.TempDir())
	svc := New(newStore(), target, WithLogger(testLogger()))
	if err := svc.RestoreNamed(context.Background(), "devspace-backup-1999-01-01.json"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFSTargetRejectsTraversal(t *testing.T) {
	target, _ := NewFSTarget(t.TempDir())
	for _, name := range []string{"../x.json", "a/b.json", ".hidden", ""} {
		if err := target.Put(context.Background(), name, []byte("{}")); err == nil {
			t.Errorf("Put(%q) should fail", name)
		}
	}
}
