package phase

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTimerFires(t *testing.T) {
	var tm Timer
	fired := make(chan uint64, 1)

	id := tm.Arm(10*time.Millisecond, func(id uint64) { fired <- id })
	if !tm.Armed() {
		t.Fatal("Armed() = false after Arm")
	}

	select {
	case got := <-fired:
		if got != id {
			t.Errorf("fired id = %d, want %d", got, id)
		}
		if !tm.Claim(got) {
			t.Error("Claim() = false for current generation")
		}
		if tm.Claim(got) {
			t.Error("Claim() succeeded twice")
		}
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}

	if tm.Armed() {
		t.Error("Armed() = true after claim")
	}
}

func TestTimerRearmMakesOldFireStale(t *testing.T) {
	var tm Timer
	var mu sync.Mutex
	var claimed []uint64

	first := tm.Arm(time.Hour, func(uint64) {})
	second := tm.Arm(5*time.Millisecond, func(id uint64) {
		mu.Lock()
		defer mu.Unlock()
		if tm.Claim(id) {
			claimed = append(claimed, id)
		}
	})

	if first == second {
		t.Fatal("Arm returned the same id twice")
	}
	if tm.Claim(first) {
		t.Error("Claim(first) succeeded after re-arm")
	}

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if len(claimed) != 1 || claimed[0] != second {
		t.Errorf("claimed = %v, want [%d]", claimed, second)
	}
}

func TestTimerCancel(t *testing.T) {
	var tm Timer
	var fired atomic.Bool

	id := tm.Arm(5*time.Millisecond, func(id uint64) {
		if tm.Claim(id) {
			fired.Store(true)
		}
	})
	tm.Cancel()

	time.Sleep(30 * time.Millisecond)
	if fired.Load() {
		t.Error("cancelled timer was claimed")
	}
	if tm.Claim(id) {
		t.Error("Claim() succeeded after Cancel")
	}
	if tm.Remaining() != 0 {
		t.Errorf("Remaining() = %v, want 0", tm.Remaining())
	}
}

func TestTimerRemaining(t *testing.T) {
	var tm Timer
	tm.Arm(time.Hour, func(uint64) {})
	defer tm.Cancel()

	r := tm.Remaining()
	if r <= 59*time.Minute || r > time.Hour {
		t.Errorf("Remaining() = %v, want just under 1h", r)
	}
}
