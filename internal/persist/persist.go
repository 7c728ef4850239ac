// Package persist writes the document to its storage slot after mutations
// and reloads it when the slot changes underneath.
package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/starford/devspace/internal/apperr"
	"github.com/starford/devspace/internal/checksum"
	"github.com/starford/devspace/internal/codec"
	"github.com/starford/devspace/internal/datastore"
	"github.com/starford/devspace/internal/kv"
	"github.com/starford/devspace/internal/metrics"
	"github.com/starford/devspace/internal/migrate"
	"github.com/starford/devspace/internal/models"
	"github.com/starford/devspace/internal/syncstatus"
)

// Keys names the two slots the document uses.
type Keys struct {
	Data        string
	Compression string
}

// DefaultKeys returns the slot names desktop builds have always used.
func DefaultKeys() Keys {
	return Keys{Data: "app-data", Compression: "use-compression"}
}

// DefaultDebounce is how long the persister waits for mutations to settle.
const DefaultDebounce = 250 * time.Millisecond

// DefaultRetry is how long Run waits before retrying a failed write.
const DefaultRetry = 2 * time.Second

// OpSave is the sync status operation name for autosaves.
const OpSave = "save"

// Source describes where Load found the document.
type Source string

const (
	SourceSlot        Source = "slot"
	SourceEmpty       Source = "empty"
	SourceCorrupt     Source = "corrupt"
	SourceUnavailable Source = "unavailable"
)

// Loaded is the result of Load.
type Loaded struct {
	Doc      *models.Document
	Compress bool
	Source   Source
	// Checksum of the raw slot value, empty when nothing was read.
	Checksum string
}

// Load reads the document and compression preference from slot. Missing,
// unreadable or unavailable storage yields an empty document stamped at now;
// it never fails.
func Load(slot kv.Store, keys Keys, now time.Time, logger *slog.Logger) Loaded {
	out := Loaded{Doc: models.NewDocument(now), Source: SourceEmpty}

	if v, ok, err := slot.Read(keys.Compression); err == nil && ok {
		out.Compress, _ = strconv.ParseBool(v)
	}

	raw, ok, err := slot.Read(keys.Data)
	switch {
	case errors.Is(err, apperr.ErrPersistenceUnavailable):
		logger.Warn("persist: no durable storage, running in memory")
		out.Source = SourceUnavailable
		return out
	case err != nil:
		logger.Error("persist: read failed, starting empty", slog.String("error", err.Error()))
		out.Source = SourceUnavailable
		return out
	case !ok:
		return out
	}

	doc, err := codec.Decode(raw)
	if err != nil {
		logger.Error("persist: stored document unreadable, starting empty",
			slog.String("format", string(codec.Detect(raw))),
			slog.String("error", err.Error()))
		out.Source = SourceCorrupt
		return out
	}
	if doc.EnsureMetadata(now) {
		logger.Warn("persist: stored document had no metadata, stamped fresh")
	}
	migrated, res := migrate.Run(doc, migrate.Default(), logger)
	if len(res.Applied) > 0 {
		logger.Info("persist: document migrated",
			slog.String("from", res.From), slog.String("to", res.To))
	}
	out.Doc = migrated
	out.Source = SourceSlot
	out.Checksum = checksum.Sum(raw)
	return out
}

// Persister mirrors a datastore.Store into a kv.Store.
type Persister struct {
	store    *datastore.Store
	slot     kv.Store
	keys     Keys
	debounce time.Duration
	retry    time.Duration
	logger   *slog.Logger
	tracker  *syncstatus.Tracker
	metrics  *metrics.Metrics

	notify chan struct{}

	dirty atomic.Bool

	mu           sync.Mutex // serialises Flush and Reconcile
	lastSum      string
	lastCompress string
	warnedAbsent bool
}

type Option func(*Persister)

func WithKeys(k Keys) Option {
	return func(p *Persister) { p.keys = k }
}

func WithDebounce(d time.Duration) Option {
	return func(p *Persister) { p.debounce = d }
}

func WithRetry(d time.Duration) Option {
	return func(p *Persister) {
		if d > 0 {
			p.retry = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Persister) { p.logger = l }
}

// WithTracker reports autosaves on t.
func WithTracker(t *syncstatus.Tracker) Option {
	return func(p *Persister) { p.tracker = t }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Persister) { p.metrics = m }
}

// WithChecksum primes the persister with the checksum of the value already
// in the slot, as returned by Load.
func WithChecksum(sum string) Option {
	return func(p *Persister) { p.lastSum = sum }
}

// New creates a Persister and subscribes it to store changes.
func New(store *datastore.Store, slot kv.Store, opts ...Option) *Persister {
	p := &Persister{
		store:    store,
		slot:     slot,
		keys:     DefaultKeys(),
		debounce: DefaultDebounce,
		retry:    DefaultRetry,
		logger:   slog.Default(),
		notify:   make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(p)
	}
	store.Subscribe(p.onChange)
	return p
}

func (p *Persister) onChange(c datastore.Change) {
	p.metrics.Mutation(string(c.Op), c.Collection)
	if c.Op == datastore.OpReloaded {
		return
	}
	p.dirty.Store(true)
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// Run flushes pending changes once they have been quiet for the debounce
// interval. On ctx cancellation it flushes whatever is left and returns.
func (p *Persister) Run(ctx context.Context) error {
	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			if err := p.flushIfDirty(); err != nil {
				p.logger.Error("persist: final flush failed", slog.String("error", err.Error()))
			}
			return nil

		case <-p.notify:
			if timer == nil {
				timer = time.NewTimer(p.debounce)
				timerCh = timer.C
			} else {
				timer.Reset(p.debounce)
			}

		case <-timerCh:
			if err := p.flushIfDirty(); err != nil {
				p.logger.Error("persist: flush failed, retrying",
					slog.String("error", err.Error()),
					slog.Duration("retry_in", p.retry))
				timer.Reset(p.retry)
			}
		}
	}
}

func (p *Persister) flushIfDirty() error {
	if !p.dirty.Load() {
		return nil
	}
	return p.Flush()
}

// Flush writes the current document and compression preference to the slot.
// A slot without durable storage is logged once and otherwise ignored.
func (p *Persister) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.dirty.Store(false)
	doc := p.store.Export()
	compress := p.store.Compression()

	raw, err := codec.Encode(doc, compress)
	if err != nil {
		return err
	}
	sum := checksum.Sum(raw)
	flag := strconv.FormatBool(compress)
	if sum == p.lastSum && flag == p.lastCompress {
		return nil
	}

	p.begin()
	err = p.slot.Write(p.keys.Data, raw)
	if err == nil {
		err = p.slot.Write(p.keys.Compression, flag)
	}
	if errors.Is(err, apperr.ErrPersistenceUnavailable) {
		if !p.warnedAbsent {
			p.logger.Warn("persist: no durable storage, changes kept in memory only")
			p.warnedAbsent = true
		}
		p.lastSum, p.lastCompress = sum, flag
		p.succeed("kept in memory")
		return nil
	}
	p.metrics.Write(len(raw), err)
	if err != nil {
		p.dirty.Store(true)
		p.fail(err)
		return fmt.Errorf("persist: write: %w", err)
	}

	p.lastSum, p.lastCompress = sum, flag
	p.logger.Debug("persist: saved", slog.Int("bytes", len(raw)), slog.Bool("compressed", compress))
	p.succeed("saved")
	return nil
}

// Reconcile reloads the document when the slot holds something other than
// what was last written or read. While local changes are waiting to be
// flushed the external edit is ignored and later overwritten. It reports
// whether the store was replaced.
func (p *Persister) Reconcile() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	raw, ok, err := p.slot.Read(p.keys.Data)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if !checksum.Changed(raw, p.lastSum) {
		return false, nil
	}

	doc, err := codec.Decode(raw)
	if err != nil {
		p.logger.Warn("persist: ignoring unreadable external change", slog.String("error", err.Error()))
		return false, err
	}
	doc.EnsureMetadata(p.store.Now())
	doc, _ = migrate.Run(doc, migrate.Default(), p.logger)

	// Unsaved local changes win: the pending flush overwrites the external
	// edit instead of the edit discarding acknowledged mutations.
	if !p.store.ReplaceUnless(doc, p.dirty.Load) {
		p.logger.Warn("persist: external change ignored, unsaved local changes pending")
		return false, nil
	}
	p.lastSum = checksum.Sum(raw)
	p.metrics.Reload()
	p.logger.Info("persist: reloaded external change")
	return true, nil
}

func (p *Persister) begin() {
	if p.tracker != nil {
		p.tracker.Begin(OpSave)
	}
}

func (p *Persister) succeed(msg string) {
	if p.tracker != nil {
		p.tracker.Succeed(OpSave, msg)
	}
}

func (p *Persister) fail(err error) {
	if p.tracker != nil {
		p.tracker.Fail(OpSave, err)
	}
}
