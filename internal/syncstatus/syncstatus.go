// Package syncstatus tracks the Idle/Syncing/Success/Error state shown for
// save, backup and restore operations.
//
// The tracker owns no timer. A Success status carries the display window
// after which it counts as Idle; Current applies the window lazily and
// subscribers decide themselves when to clear the indicator.
package syncstatus

import (
	"sync"
	"time"
)

type State string

const (
	Idle    State = "idle"
	Syncing State = "syncing"
	Success State = "success"
	Error   State = "error"
)

// DefaultWindow is how long a Success status is displayed.
const DefaultWindow = 3 * time.Second

// Status is a snapshot of the tracker.
type Status struct {
	State     State     `json:"state"`
	Operation string    `json:"operation,omitempty"`
	Message   string    `json:"message,omitempty"`
	At        time.Time `json:"at"`
	// RevertAfterMs is set on Success: the status reverts to Idle this many
	// milliseconds after At.
	RevertAfterMs int64 `json:"revertAfterMs,omitempty"`
}

// Tracker is safe for concurrent use. Subscribers see transitions in the
// order they were applied, so the last one delivered always equals Current.
type Tracker struct {
	deliverMu sync.Mutex // held from the state change through the fan-out

	mu     sync.Mutex
	status Status
	window time.Duration
	clock  func() time.Time

	subs   map[int]func(Status)
	nextID int
}

// New creates an Idle tracker. A non-positive window uses DefaultWindow.
func New(window time.Duration, clock func() time.Time) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	if clock == nil {
		clock = time.Now
	}
	return &Tracker{
		status: Status{State: Idle, At: clock()},
		window: window,
		clock:  clock,
		subs:   make(map[int]func(Status)),
	}
}

// Begin moves to Syncing for op. It is valid from any state.
func (t *Tracker) Begin(op string) {
	t.set(Status{State: Syncing, Operation: op})
}

// Succeed moves to Success.
func (t *Tracker) Succeed(op, msg string) {
	t.set(Status{State: Success, Operation: op, Message: msg, RevertAfterMs: t.window.Milliseconds()})
}

// Fail moves to Error, where the tracker stays until the next Begin.
func (t *Tracker) Fail(op string, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	t.set(Status{State: Error, Operation: op, Message: msg})
}

// Current returns the status, reporting Idle once a Success has been shown
// for the full window.
func (t *Tracker) Current() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.status
	if s.State == Success && t.clock().Sub(s.At) >= t.window {
		return Status{State: Idle, At: s.At.Add(t.window)}
	}
	return s
}

// Subscribe registers fn for every transition and returns a function that
// removes it. fn must not block and must not change the tracker.
func (t *Tracker) Subscribe(fn func(Status)) func() {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = fn
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

func (t *Tracker) set(s Status) {
	t.deliverMu.Lock()
	defer t.deliverMu.Unlock()

	t.mu.Lock()
	s.At = t.clock()
	t.status = s
	subs := make([]func(Status), 0, len(t.subs))
	for _, fn := range t.subs {
		subs = append(subs, fn)
	}
	t.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}
