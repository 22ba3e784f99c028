package phase

import (
	"sync"
	"time"
)

// Timer is a replaceable single-shot timer with generation identity.
// The zero value is ready to use.
type Timer struct {
	mu sync.Mutex

	gen     uint64
	live    bool
	t       *time.Timer
	armedAt time.Time
	d       time.Duration
}

// Arm cancels any pending expiry and schedules fn after d. fn runs on its
// own goroutine with the id Arm returned.
func (t *Timer) Arm(d time.Duration, fn func(id uint64)) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.t != nil {
		t.t.Stop()
	}
	t.gen++
	id := t.gen
	t.live = true
	t.armedAt = time.Now()
	t.d = d
	t.t = time.AfterFunc(d, func() { fn(id) })
	return id
}

// Claim consumes generation id. It returns false when id was replaced,
// cancelled or already claimed.
func (t *Timer) Claim(id uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.live || id != t.gen {
		return false
	}
	t.live = false
	t.t = nil
	return true
}

// Cancel stops the pending expiry, if any.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.t != nil {
		t.t.Stop()
		t.t = nil
	}
	t.live = false
	t.gen++
}

// Armed reports whether an expiry is pending.
func (t *Timer) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.live
}

// Remaining returns the time left before expiry, or 0 when not armed.
func (t *Timer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.live {
		return 0
	}
	remaining := t.d - time.Since(t.armedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}
