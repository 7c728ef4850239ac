package persist

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/devspace/internal/codec"
	"github.com/starford/devspace/internal/datastore"
	"github.com/starford/devspace/internal/kv"
	"github.com/starford/devspace/internal/models"
	"github.com/starford/devspace/internal/syncstatus"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

// countingSlot wraps a Memory slot and counts writes of the data key.
type countingSlot struct {
	*kv.Memory
	mu     sync.Mutex
	writes int
	fail   error
}

func (c *countingSlot) Write(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	if key == DefaultKeys().Data {
		c.writes++
	}
	return c.Memory.Write(key, value)
}

func (c *countingSlot) setFail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = err
}

func (c *countingSlot) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

func TestLoadEmptySlot(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got := Load(kv.NewMemory(), DefaultKeys(), now, testLogger())
	if got.Source != SourceEmpty || len(got.Doc.Projects) != 0 || got.Compress {
		t.Fatalf("Load = %+v", got)
	}
	if !got.Doc.Metadata.CreatedAt.Equal(now) {
		t.Fatalf("createdAt = %v", got.Doc.Metadata.CreatedAt)
	}
}

func TestLoadCorruptFallsBackToEmpty(t *testing.T) {
	slot := kv.NewMemory()
	_ = slot.Write("app-data", "%%% not a document")
	got := Load(slot, DefaultKeys(), time.Now(), testLogger())
	if got.Source != SourceCorrupt || got.Doc == nil || len(got.Doc.Tasks) != 0 {
		t.Fatalf("Load = %+v", got)
	}
}

func TestLoadUnavailable(t *testing.T) {
	got := Load(kv.Unavailable{}, DefaultKeys(), time.Now(), testLogger())
	if got.Source != SourceUnavailable || got.Doc == nil {
		t.Fatalf("Load = %+v", got)
	}
}

func TestLoadCompressedWithFlag(t *testing.T) {
	doc := models.NewDocument(time.Now().UTC())
	doc.Projects = append(doc.Projects, models.Project{ID: "p1", Name: "A", Client: "B"})
	raw, _ := codec.Encode(doc, true)

	slot := kv.NewMemory()
	_ = slot.Write("app-data", raw)
	_ = slot.Write("use-compression", "true")

	got := Load(slot, DefaultKeys(), time.Now(), testLogger())
	if got.Source != SourceSlot || !got.Compress || len(got.Doc.Projects) != 1 || got.Checksum == "" {
		t.Fatalf("Load = %+v", got)
	}
}

func TestRunDebouncesWrites(t *testing.T) {
	slot := &countingSlot{Memory: kv.NewMemory()}
	store := datastore.New(datastore.WithLogger(testLogger()))
	p := New(store, slot, WithDebounce(50*time.Millisecond), WithLogger(testLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	for i := 0; i < 20; i++ {
		store.AddTask(models.Task{Name: "t"})
	}

	eventually(t, 2*time.Second, 20*time.Millisecond, func() bool {
		return slot.Writes() >= 1
	}, "debounced write never happened")
	time.Sleep(150 * time.Millisecond)
	if n := slot.Writes(); n != 1 {
		t.Fatalf("writes = %d, want a single coalesced write", n)
	}

	raw, _, _ := slot.Read("app-data")
	doc, err := codec.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(doc.Tasks) != 20 {
		t.Fatalf("persisted tasks = %d, want 20", len(doc.Tasks))
	}

	cancel()
	<-done
}

func TestRunFlushesOnShutdown(t *testing.T) {
	slot := kv.NewMemory()
	store := datastore.New(datastore.WithLogger(testLogger()))
	p := New(store, slot, WithDebounce(time.Hour), WithLogger(testLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	store.AddProject(models.Project{Name: "A", Client: "B"})
	store.SetCompression(true)
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	raw, ok, _ := slot.Read("app-data")
	if !ok || !strings.HasPrefix(raw, codec.EnvelopePrefix) {
		t.Fatalf("expected compressed document after shutdown flush, got %.20q", raw)
	}
	flag, _, _ := slot.Read("use-compression")
	if flag != "true" {
		t.Fatalf("compression flag = %q", flag)
	}
}

func TestFlushReportsStatus(t *testing.T) {
	slot := &countingSlot{Memory: kv.NewMemory()}
	store := datastore.New(datastore.WithLogger(testLogger()))
	tracker := syncstatus.New(time.Second, nil)
	p := New(store, slot, WithTracker(tracker), WithLogger(testLogger()))

	store.AddProject(models.Project{Name: "A", Client: "B"})
	if err := p.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if st := tracker.Current(); st.State != syncstatus.Success || st.Operation != OpSave {
		t.Fatalf("status = %+v", st)
	}

	slot.fail = errors.New("disk full")
	store.AddProject(models.Project{Name: "C", Client: "D"})
	if err := p.Flush(); err == nil {
		t.Fatal("expected write error")
	}
	if st := tracker.Current(); st.State != syncstatus.Error || !strings.Contains(st.Message, "disk full") {
		t.Fatalf("status = %+v", st)
	}
}

func TestFlushSkipsUnchanged(t *testing.T) {
	slot := &countingSlot{Memory: kv.NewMemory()}
	store := datastore.New(datastore.WithLogger(testLogger()))
	p := New(store, slot, WithLogger(testLogger()))

	_ = p.Flush()
	_ = p.Flush()
	if n := slot.Writes(); n != 1 {
		t.Fatalf("writes = %d, want 1", n)
	}
}

func TestFlushWithoutStorageIsNoop(t *testing.T) {
	store := datastore.New(datastore.WithLogger(testLogger()))
	p := New(store, kv.Unavailable{}, WithLogger(testLogger()))
	store.AddTask(models.Task{Name: "t"})
	if err := p.Flush(); err != nil {
		t.Fatalf("Flush without storage should not fail: %v", err)
	}
}

func TestReconcileReloadsExternalChange(t *testing.T) {
	slot := kv.NewMemory()
	store := datastore.New(datastore.WithLogger(testLogger()))
	p := New(store, slot, WithLogger(testLogger()))

	store.AddProject(models.Project{Name: "Mine", Client: "Me"})
	if err := p.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if changed, _ := p.Reconcile(); changed {
		t.Fatal("own write should not trigger a reload")
	}

	external := models.NewDocument(time.Now().UTC())
	external.Projects = []models.Project{{ID: "x", Name: "Theirs", Client: "Them"}}
	raw, _ := codec.Encode(external, false)
	_ = slot.Write("app-data", raw)

	changed, err := p.Reconcile()
	if err != nil || !changed {
		t.Fatalf("Reconcile = %v, %v", changed, err)
	}
	projects := store.ListProjects()
	if len(projects) != 1 || projects[0].Name != "Theirs" {
		t.Fatalf("projects after reload = %+v", projects)
	}
}

func TestReconcileKeepsUnsavedChanges(t *testing.T) {
	slot := kv.NewMemory()
	store := datastore.New(datastore.WithLogger(testLogger()))
	p := New(store, slot, WithLogger(testLogger()))

	store.AddProject(models.Project{Name: "Saved", Client: "Me"})
	if err := p.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	store.AddProject(models.Project{Name: "Unflushed", Client: "Me"})

	external := models.NewDocument(time.Now().UTC())
	external.Projects = []models.Project{{ID: "x", Name: "Theirs", Client: "Them"}}
	raw, _ := codec.Encode(external, false)
	_ = slot.Write("app-data", raw)

	changed, err := p.Reconcile()
	if err != nil || changed {
		t.Fatalf("Reconcile with pending changes = %v, %v; want no reload", changed, err)
	}
	if n := len(store.ListProjects()); n != 2 {
		t.Fatalf("projects after ignored reload = %d, want 2", n)
	}

	// The pending flush overwrites the external edit.
	if err := p.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	stored, _, _ := slot.Read("app-data")
	doc, err := codec.Decode(stored)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(doc.Projects) != 2 {
		t.Fatalf("persisted projects = %+v", doc.Projects)
	}
	if changed, _ := p.Reconcile(); changed {
		t.Fatal("own write after the conflict should not reload")
	}
}

func TestLoadStampsMissingMetadata(t *testing.T) {
	now := time.Date(2024, 7, 4, 12, 0, 0, 0, time.UTC)
	slot := kv.NewMemory()
	_ = slot.Write("app-data", `{"projects":[],"tasks":[],"schedules":[],"payments":[]}`)

	got := Load(slot, DefaultKeys(), now, testLogger())
	if got.Source != SourceSlot {
		t.Fatalf("source = %v", got.Source)
	}
	md := got.Doc.Metadata
	if !md.CreatedAt.Equal(now) || !md.UpdatedAt.Equal(now) || md.Version != models.DataVersion {
		t.Fatalf("metadata = %+v", md)
	}
}

func TestReconcileStampsMissingMetadata(t *testing.T) {
	now := time.Date(2024, 7, 4, 12, 0, 0, 0, time.UTC)
	clock := now.Add(-time.Hour)
	slot := kv.NewMemory()
	store := datastore.New(
		datastore.WithClock(func() time.Time { return clock }),
		datastore.WithLogger(testLogger()),
	)
	p := New(store, slot, WithLogger(testLogger()))
	clock = now

	_ = slot.Write("app-data", `{"projects":[{"id":"x","name":"Theirs","client":"Them"}],"tasks":[],"schedules":[],"payments":[]}`)
	if changed, err := p.Reconcile(); err != nil || !changed {
		t.Fatalf("Reconcile = %v, %v", changed, err)
	}
	if created := store.Export().Metadata.CreatedAt; !created.Equal(now) {
		t.Fatalf("createdAt = %v, want %v", created, now)
	}
}

func TestRunRetriesFailedWrite(t *testing.T) {
	slot := &countingSlot{Memory: kv.NewMemory()}
	slot.setFail(errors.New("disk full"))
	store := datastore.New(datastore.WithLogger(testLogger()))
	tracker := syncstatus.New(time.Second, nil)
	p := New(store, slot,
		WithDebounce(10*time.Millisecond),
		WithRetry(30*time.Millisecond),
		WithTracker(tracker),
		WithLogger(testLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	store.AddProject(models.Project{Name: "A", Client: "B"})
	eventually(t, time.Second, 5*time.Millisecond, func() bool {
		return tracker.Current().State == syncstatus.Error
	}, "failed write never reported")

	// No further mutation: only the retry can save the project.
	slot.setFail(nil)
	eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return slot.Writes() == 1
	}, "failed write was never retried")
	if st := tracker.Current(); st.State != syncstatus.Success {
		t.Errorf("status after retry = %+v", st)
	}
}
