package flow

import (
	"sync"
	"time"
)

// Timer is a single-shot, replaceable, cancellable delay. Scheduling again
// replaces the pending callback; Stop guarantees a pending callback never runs,
// even if the underlying time.Timer has already fired and is waiting on mu.
type Timer struct {
	mu      sync.Mutex
	t       *time.Timer
	gen     uint64
	pending bool
}

// Schedule runs fn after d. A non-positive d runs fn synchronously.
func (t *Timer) Schedule(d time.Duration, fn func()) {
	if fn == nil {
		return
	}
	t.mu.Lock()
	t.stopLocked()
	if d <= 0 {
		t.mu.Unlock()
		fn()
		return
	}
	t.gen++
	gen := t.gen
	t.pending = true
	t.t = time.AfterFunc(d, func() {
		t.mu.Lock()
		if !t.pending || t.gen != gen {
			t.mu.Unlock()
			return
		}
		t.pending = false
		t.t = nil
		t.mu.Unlock()
		fn()
	})
	t.mu.Unlock()
}

// Stop cancels the pending callback and reports whether one was pending.
func (t *Timer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopLocked()
}

func (t *Timer) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}

func (t *Timer) stopLocked() bool {
	was := t.pending
	if t.t != nil {
		t.t.Stop()
		t.t = nil
	}
	t.pending = false
	t.gen++
	return was
}
