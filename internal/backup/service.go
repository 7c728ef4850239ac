// Package backup exports the document to backup files and restores it
// from them.
package backup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/starford/devspace/internal/codec"
	"github.com/starford/devspace/internal/datastore"
	"github.com/starford/devspace/internal/metrics"
	"github.com/starford/devspace/internal/syncstatus"
)

// Sync status operation names.
const (
	OpBackup  = "backup"
	OpRestore = "restore"
)

// FilePrefix starts the name of every backup file.
const FilePrefix = "devspace-backup-"

// MaxRestoreSize bounds how much of a restore source is read.
const MaxRestoreSize = 64 << 20

// FileName returns the backup file name for a backup taken at t.
func FileName(t time.Time) string {
	return FilePrefix + t.Format("2006-01-02") + ".json"
}

// Service runs backups and restores against a Target.
type Service struct {
	store   *datastore.Store
	target  Target
	tracker *syncstatus.Tracker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Option func(*Service)

func WithTracker(t *syncstatus.Tracker) Option {
	return func(s *Service) { s.tracker = t }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func New(store *datastore.Store, target Target, opts ...Option) *Service {
	s := &Service{
		store:   store,
		target:  target,
		tracker: syncstatus.New(0, nil),
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Tracker returns the status tracker the service reports to.
func (s *Service) Tracker() *syncstatus.Tracker { return s.tracker }

// Backup writes the document, stamped with the backup time, to the target.
// metadata.lastBackup is only updated in the store once the write succeeded.
func (s *Service) Backup(ctx context.Context) (string, error) {
	s.tracker.Begin(OpBackup)

	now := s.store.Now()
	doc := s.store.Export()
	doc.Metadata.LastBackup = &now
	name := FileName(now)

	data, err := codec.EncodePretty(doc)
	if err == nil {
		err = s.target.Put(ctx, name, data)
	}
	s.metrics.Backup(OpBackup, err)
	if err != nil {
		s.logger.Error("backup: failed", slog.String("name", name), slog.String("error", err.Error()))
		s.tracker.Fail(OpBackup, err)
		return "", err
	}

	s.store.MarkBackedUp(now)
	s.logger.Info("backup: written", slog.String("name", name), slog.Int("bytes", len(data)))
	s.tracker.Succeed(OpBackup, name)
	return name, nil
}

// Restore replaces the document with the backup read from r. The document
// is left untouched when r cannot be read or does not hold a valid export.
func (s *Service) Restore(ctx context.Context, r io.Reader) error {
	s.tracker.Begin(OpRestore)
	err := s.restore(ctx, r)
	s.metrics.Backup(OpRestore, err)
	if err != nil {
		s.logger.Error("restore: failed", slog.String("error", err.Error()))
		s.tracker.Fail(OpRestore, err)
		return err
	}
	s.logger.Info("restore: document replaced")
	s.tracker.Succeed(OpRestore, "restored")
	return nil
}

func (s *Service) restore(ctx context.Context, r io.Reader) error {
	data, err := io.ReadAll(io.LimitReader(r, MaxRestoreSize+1))
	if err != nil {
		return fmt.Errorf("restore: read: %w", err)
	}
	if len(data) > MaxRestoreSize {
		return fmt.Errorf("restore: backup exceeds %d bytes", MaxRestoreSize)
	}
	// The caller may have given up while the source was read.
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.ImportData(data)
}

// RestoreNamed restores the backup stored under name.
func (s *Service) RestoreNamed(ctx context.Context, name string) error {
	rc, err := s.target.Get(ctx, name)
	if err != nil {
		s.tracker.Fail(OpRestore, err)
		s.metrics.Backup(OpRestore, err)
		return err
	}
	defer rc.Close()
	return s.Restore(ctx, rc)
}

// List returns the stored backups, oldest first.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	return s.target.List(ctx, FilePrefix)
}
