// Package testutil provides shared test helpers for setting up stores and backup services.
package testutil

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/starford/devspace/internal/backup"
	"github.com/starford/devspace/internal/datastore"
)

// Now is the fixed instant returned by stores built with NewStore.
var Now = time.Date(2024, 7, 4, 12, 0, 0, 0, time.UTC)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// NewStore creates an empty in-memory store whose clock is frozen at Now.
func NewStore(t *testing.T) *datastore.Store {
	t.Helper()
	return datastore.New(
		datastore.WithClock(func() time.Time { return Now }),
		datastore.WithLogger(Logger()),
	)
}

// NewBackups creates a backup service writing into a temporary directory.
func NewBackups(t *testing.T, store *datastore.Store) *backup.Service {
	t.Helper()
	target, err := backup.NewFSTarget(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSTarget: %v", err)
	}
	return backup.New(store, target, backup.WithLogger(Logger()))
}
