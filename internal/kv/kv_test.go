package kv

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/devspace/internal/apperr"
)

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

func openAll(t *testing.T) map[string]Store {
	t.Helper()
	stores := make(map[string]Store)
	for _, driver := range []string{DriverFile, DriverSQLite, DriverMemory} {
		s, err := Open(Options{Driver: driver, Dir: filepath.Join(t.TempDir(), "data")})
		if err != nil {
			t.Fatalf("Open(%s): %v", driver, err)
		}
		t.Cleanup(func() { s.Close() })
		stores[driver] = s
	}
	return stores
}

func TestStoreReadWrite(t *testing.T) {
	for driver, s := range openAll(t) {
		if _, ok, err := s.Read("app-data"); err != nil || ok {
			t.Fatalf("%s: fresh read = ok:%v err:%v", driver, ok, err)
		}
		if err := s.Write("app-data", `{"projects":[]}`); err != nil {
			t.Fatalf("%s: Write: %v", driver, err)
		}
		if err := s.Write("app-data", `{"tasks":[]}`); err != nil {
			t.Fatalf("%s: overwrite: %v", driver, err)
		}
		got, ok, err := s.Read("app-data")
		if err != nil || !ok {
			t.Fatalf("%s: Read: ok:%v err:%v", driver, ok, err)
		}
		if got != `{"tasks":[]}` {
			t.Errorf("%s: value = %q", driver, got)
		}
	}
}

func TestInvalidKeyRejected(t *testing.T) {
	s, err := NewFile(t.TempDir())
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	for _, key := range []string{"../escape", "a/b", "", ".hidden"} {
		if err := s.Write(key, "x"); err == nil {
			t.Errorf("Write(%q) should fail", key)
		}
	}
}

func TestFileWriteLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewFile(dir)
	if err := s.Write("app-data", "payload"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, TempPattern))
	if len(matches) != 0 {
		t.Fatalf("temp files left behind: %v", matches)
	}
}

func TestSQLiteHistory(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), DatabaseFile))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()

	_ = s.Write("app-data", "one")
	_ = s.Write("app-data", "three")
	_ = s.Write("use-compression", "true")

	hist, err := s.History("app-data", 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("history len = %d, want 2", len(hist))
	}
	if hist[0].Size != 5 {
		t.Errorf("newest entry size = %d, want 5", hist[0].Size)
	}
	if hist[0].WrittenAt.IsZero() {
		t.Error("history entry has no write time")
	}
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), DatabaseFile)
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	_ = s.Write("app-data", "persisted")
	s.Close()

	s2, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, ok, _ := s2.Read("app-data")
	if !ok || got != "persisted" {
		t.Fatalf("after reopen = %q ok:%v", got, ok)
	}
}

func TestUnavailable(t *testing.T) {
	s, err := Open(Options{Driver: DriverNone})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, _, err := s.Read("app-data"); !errors.Is(err, apperr.ErrPersistenceUnavailable) {
		t.Errorf("Read err = %v", err)
	}
	if err := s.Write("app-data", "x"); !errors.Is(err, apperr.ErrPersistenceUnavailable) {
		t.Errorf("Write err = %v", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Options{Driver: "redis"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestAcquireLock(t *testing.T) {
	dir := t.TempDir()
	l, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	if _, err := AcquireLock(dir); !errors.Is(err, apperr.ErrLocked) {
		t.Fatalf("second AcquireLock err = %v, want ErrLocked", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	l2, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("AcquireLock after release: %v", err)
	}
	l2.Release()
}

func TestWatchReportsExternalWrite(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewFile(dir)
	_ = s.Write("app-data", "v1")
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	go Watch(ctx, s.Path("app-data"), logger, func() { calls.Add(1) })
	time.Sleep(100 * time.Millisecond)

	// Unrelated files in the directory are ignored.
	_ = os.WriteFile(filepath.Join(dir, "other"), []byte("x"), 0o644)
	_ = os.WriteFile(s.Path("app-data"), []byte("v2"), 0o644)

	eventually(t, 3*time.Second, 50*time.Millisecond, func() bool {
		return calls.Load() >= 1
	}, "watcher did not report the change")
}
