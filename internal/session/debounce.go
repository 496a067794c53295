package session

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of triggers into one callback after a quiet
// interval. Parameter edits apply to the controller immediately; only the
// recompute they request is debounced, so dragging a slider costs one
// recompute instead of hundreds.
type Debouncer struct {
	mu      sync.Mutex
	d       time.Duration
	fn      func()
	timer   *time.Timer
	pending bool
}

// NewDebouncer wraps fn with a quiet interval d. A non-positive d makes
// Trigger call fn synchronously.
func NewDebouncer(d time.Duration, fn func()) *Debouncer {
	return &Debouncer{d: d, fn: fn}
}

// Trigger requests a callback. Repeated triggers within the quiet interval
// restart it; the callback fires once after the last trigger.
func (db *Debouncer) Trigger() {
	if db.d <= 0 {
		db.fn()
		return
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	db.pending = true
	if db.timer == nil {
		db.timer = time.AfterFunc(db.d, db.fire)
		return
	}
	db.timer.Reset(db.d)
}

func (db *Debouncer) fire() {
	db.mu.Lock()
	if !db.pending {
		db.mu.Unlock()
		return
	}
	db.pending = false
	db.mu.Unlock()
	db.fn()
}

// Flush runs a pending callback immediately. Tests use this instead of
// sleeping out the quiet interval.
func (db *Debouncer) Flush() {
	db.mu.Lock()
	if db.timer != nil {
		db.timer.Stop()
	}
	run := db.pending
	db.pending = false
	db.mu.Unlock()
	if run {
		db.fn()
	}
}

// Stop cancels any pending callback without running it.
func (db *Debouncer) Stop() {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.timer != nil {
		db.timer.Stop()
	}
	db.pending = false
}
