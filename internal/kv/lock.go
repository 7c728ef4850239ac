package kv

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/starford/devspace/internal/apperr"
)

// LockFile is the lock file name inside the data directory.
const LockFile = "devspace.lock"

// Lock is an exclusive hold on a data directory.
type Lock struct {
	f *flock.Flock
}

// AcquireLock takes the single-instance lock for dir. It fails with
// apperr.ErrLocked when another process holds it.
func AcquireLock(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("kv: mkdir: %w", err)
	}
	f := flock.New(filepath.Join(dir, LockFile))
	locked, err := f.TryLock()
	if err != nil {
		return nil, fmt.Errorf("kv: acquire lock: %w", err)
	}
	if !locked {
		return nil, apperr.ErrLocked
	}
	return &Lock{f: f}, nil
}

// Release drops the lock. It is safe to call on a nil Lock.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	return l.f.Unlock()
}
