// Package datastore owns the in-memory document and every mutation on it.
//
// A Store is safe for concurrent use. Mutations are serialised and each one
// stamps metadata.updatedAt in the same critical section, so readers never
// see a half-applied change. Listeners registered with Subscribe run after
// the document lock is released, in mutation order, and must not mutate the
// store themselves.
package datastore

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/devspace/internal/migrate"
	"github.com/starford/devspace/internal/models"
)

// Op names the kind of change a mutation made.
type Op string

const (
	OpCreated  Op = "created"
	OpUpdated  Op = "updated"
	OpDeleted  Op = "deleted"
	OpImported Op = "imported"
	OpReset    Op = "reset"
	OpFixed    Op = "fixed"
	OpReloaded Op = "reloaded"
	OpSettings Op = "settings"
	OpBackedUp Op = "backed_up"
)

// Collection names.
const (
	Projects  = "projects"
	Tasks     = "tasks"
	Schedules = "schedules"
	Payments  = "payments"
)

// Change describes a completed mutation.
type Change struct {
	Op         Op       `json:"op"`
	Collection string   `json:"collection,omitempty"`
	IDs        []string `json:"ids,omitempty"`
}

// Listener is called once per completed mutation.
type Listener func(Change)

// Store holds the document.
type Store struct {
	mu       sync.RWMutex
	doc      *models.Document
	compress bool

	clock      func() time.Time
	newID      func() string
	logger     *slog.Logger
	migrations []migrate.Migration

	// writeMu spans a mutation and its notification.
	writeMu   sync.Mutex
	lmu       sync.Mutex
	listeners map[int]Listener
	nextLID   int
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// WithIDGenerator overrides the random UUID generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithDocument seeds the store. The document is used as-is; callers run
// migrations beforehand.
func WithDocument(doc *models.Document) Option {
	return func(s *Store) { s.doc = doc }
}

// WithCompression sets the initial compression preference.
func WithCompression(on bool) Option {
	return func(s *Store) { s.compress = on }
}

// WithMigrations replaces the migrations run on imported documents.
func WithMigrations(m []migrate.Migration) Option {
	return func(s *Store) { s.migrations = m }
}

// New creates a Store. Without WithDocument it starts empty.
func New(opts ...Option) *Store {
	s := &Store{
		clock:      time.Now,
		newID:      uuid.NewString,
		logger:     slog.Default(),
		migrations: migrate.Default(),
		listeners:  make(map[int]Listener),
	}
	for _, o := range opts {
		o(s)
	}
	if s.doc == nil {
		s.doc = models.NewDocument(s.now())
	}
	s.doc.Normalize()
	return s
}

// now returns the current time at the millisecond precision persisted
// documents carry.
func (s *Store) now() time.Time {
	return s.clock().UTC().Truncate(time.Millisecond)
}

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.lmu.Lock()
	id := s.nextLID
	s.nextLID++
	s.listeners[id] = fn
	s.lmu.Unlock()
	return func() {
		s.lmu.Lock()
		delete(s.listeners, id)
		s.lmu.Unlock()
	}
}

func (s *Store) emit(c Change) {
	s.lmu.Lock()
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.lmu.Unlock()

	for _, l := range ls {
		l(c)
	}
}

// mutate runs fn under the write lock and, when fn reports a change,
// stamps metadata.updatedAt and notifies listeners.
func (s *Store) mutate(fn func(doc *models.Document, now time.Time) (Change, bool)) {
	s.write(true, fn)
}

func (s *Store) write(stamp bool, fn func(doc *models.Document, now time.Time) (Change, bool)) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	now := s.now()
	c, changed := fn(s.doc, now)
	if changed && stamp {
		s.doc.Metadata.UpdatedAt = now
	}
	s.mu.Unlock()

	if changed {
		s.emit(c)
	}
}

// view runs fn under the read lock.
func (s *Store) view(fn func(doc *models.Document)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.doc)
}

func indexOf[T any](items []T, id string, idOf func(T) string) int {
	for i, it := range items {
		if idOf(it) == id {
			return i
		}
	}
	return -1
}

func idSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
