package download

import (
	"sync"
	"time"
)

// Status is the user-visible state of a scope.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusInProgress Status = "in-progress"
	StatusNotFound   Status = "not-found"
	StatusEmpty      Status = "empty"
	StatusError      Status = "error"
	StatusDone       Status = "done"
)

// DefaultRevertDelay is how long a terminal status stays visible.
const DefaultRevertDelay = 2 * time.Second

func statusFor(o Outcome) Status {
	switch o {
	case OutcomeDone:
		return StatusDone
	case OutcomeNotFound:
		return StatusNotFound
	case OutcomeEmpty:
		return StatusEmpty
	default:
		return StatusError
	}
}

type scopeState struct {
	status Status
	gen    uint64
	timer  *time.Timer
}

// Tracker holds the status of every scope. Terminal statuses revert to idle
// after Delay unless the scope changed again in the meantime.
type Tracker struct {
	mu     sync.Mutex
	delay  time.Duration
	scopes map[string]*scopeState
	// OnChange, if set, is called after every transition, outside the lock.
	OnChange func(key string, s Status)
}

// NewTracker returns a Tracker; a non-positive delay selects DefaultRevertDelay.
func NewTracker(delay time.Duration) *Tracker {
	if delay <= 0 {
		delay = DefaultRevertDelay
	}
	return &Tracker{delay: delay, scopes: make(map[string]*scopeState)}
}

// Set records a transition for key.
func (t *Tracker) Set(key string, s Status) {
	t.mu.Lock()
	st, ok := t.scopes[key]
	if !ok {
		st = &scopeState{}
		t.scopes[key] = st
	}
	st.gen++
	st.status = s
	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}
	if s != StatusIdle && s != StatusInProgress {
		gen := st.gen
		st.timer = time.AfterFunc(t.delay, func() { t.revert(key, gen) })
	}
	t.mu.Unlock()

	t.notify(key, s)
}

func (t *Tracker) revert(key string, gen uint64) {
	t.mu.Lock()
	st, ok := t.scopes[key]
	if !ok || st.gen != gen {
		t.mu.Unlock()
		return
	}
	st.gen++
	st.status = StatusIdle
	st.timer = nil
	t.mu.Unlock()

	t.notify(key, StatusIdle)
}

func (t *Tracker) notify(key string, s Status) {
	if t.OnChange != nil {
		t.OnChange(key, s)
	}
}

// Get returns the status of key; unknown keys are idle.
func (t *Tracker) Get(key string) Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.scopes[key]; ok {
		return st.status
	}
	return StatusIdle
}

// Snapshot returns the status of every scope seen so far.
func (t *Tracker) Snapshot() map[string]Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]Status, len(t.scopes))
	for k, st := range t.scopes {
		out[k] = st.status
	}
	return out
}
