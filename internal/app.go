package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/starford/devspace/internal/apperr"
	"github.com/starford/devspace/internal/backup"
	"github.com/starford/devspace/internal/datastore"
	"github.com/starford/devspace/internal/kv"
	"github.com/starford/devspace/internal/metrics"
	"github.com/starford/devspace/internal/persist"
	"github.com/starford/devspace/internal/syncstatus"
)

// App is one open session on the data directory: the store, its persister
// and the services built on it.
type App struct {
	Config    *Config
	Logger    *slog.Logger
	Store     *datastore.Store
	Persister *persist.Persister
	Tracker   *syncstatus.Tracker
	Backups   *backup.Service
	Metrics   *metrics.Metrics

	slot kv.Store
	lock *kv.Lock
}

// NewLogger builds the structured JSON logger used by every entry point.
func NewLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

// Open loads the document from the configured storage and wires the
// services around it. Durable storage is locked for the lifetime of the App
// so that only one process mutates the document.
func Open(ctx context.Context, cfg *Config, logger *slog.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: logger}

	if cfg.Storage.Durable() {
		lock, err := kv.AcquireLock(cfg.Storage.Path)
		if err != nil {
			if errors.Is(err, apperr.ErrLocked) {
				return nil, fmt.Errorf("data directory %s is in use by another process: %w", cfg.Storage.Path, err)
			}
			return nil, err
		}
		app.lock = lock
	}

	slot, err := kv.Open(kv.Options{Driver: cfg.Storage.Driver, Dir: cfg.Storage.Path})
	if err != nil {
		_ = app.lock.Release()
		return nil, fmt.Errorf("open storage: %w", err)
	}
	app.slot = slot

	keys := cfg.Storage.Keys()
	loaded := persist.Load(slot, keys, time.Now().UTC().Truncate(time.Millisecond), logger)
	logger.Info("Document loaded",
		slog.String("source", string(loaded.Source)),
		slog.Int("projects", len(loaded.Doc.Projects)),
		slog.Int("tasks", len(loaded.Doc.Tasks)),
		slog.Bool("compressed", loaded.Compress))

	app.Metrics = metrics.New()
	app.Tracker = syncstatus.New(cfg.Backup.StatusWindow, nil)
	app.Store = datastore.New(
		datastore.WithDocument(loaded.Doc),
		datastore.WithCompression(loaded.Compress),
		datastore.WithLogger(logger),
	)
	app.Persister = persist.New(app.Store, slot,
		persist.WithKeys(keys),
		persist.WithDebounce(cfg.Persist.Debounce),
		persist.WithRetry(cfg.Persist.Retry),
		persist.WithLogger(logger),
		persist.WithTracker(app.Tracker),
		persist.WithMetrics(app.Metrics),
		persist.WithChecksum(loaded.Checksum),
	)

	target, err := newBackupTarget(ctx, &cfg.Backup)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Backups = backup.New(app.Store, target,
		backup.WithTracker(app.Tracker),
		backup.WithMetrics(app.Metrics),
		backup.WithLogger(logger),
	)
	return app, nil
}

func newBackupTarget(ctx context.Context, cfg *BackupConfig) (backup.Target, error) {
	if cfg.Driver == BackupDriverS3 {
		t, err := backup.NewS3Target(ctx, cfg.S3.Target())
		if err != nil {
			return nil, fmt.Errorf("init backup target: %w", err)
		}
		return t, nil
	}
	t, err := backup.NewFSTarget(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("init backup target: %w", err)
	}
	return t, nil
}

// DataFile returns the path of the document file for the file driver, and
// false for every other driver.
func (a *App) DataFile() (string, bool) {
	f, ok := a.slot.(*kv.File)
	if !ok {
		return "", false
	}
	return f.Path(a.Config.Storage.DataKey), true
}

// ErrNoHistory is returned by History for drivers that keep no write log.
var ErrNoHistory = errors.New("write history requires the sqlite storage driver")

// History returns the most recent writes of the document slot, newest first.
func (a *App) History(limit int) ([]kv.HistoryEntry, error) {
	db, ok := a.slot.(*kv.SQLite)
	if !ok {
		return nil, ErrNoHistory
	}
	if limit <= 0 {
		limit = 20
	}
	return db.History(a.Config.Storage.DataKey, limit)
}

// Close flushes pending changes and releases storage. It is safe to call
// more than once.
func (a *App) Close() error {
	var errs []error
	if a.Persister != nil {
		if err := a.Persister.Flush(); err != nil {
			errs = append(errs, err)
		}
		a.Persister = nil
	}
	if a.slot != nil {
		if err := a.slot.Close(); err != nil {
			errs = append(errs, err)
		}
		a.slot = nil
	}
	if err := a.lock.Release(); err != nil {
		errs = append(errs, err)
	}
	a.lock = nil
	return errors.Join(errs...)
}
