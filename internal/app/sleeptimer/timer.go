// Package sleeptimer provides the cancellable one-shot sleep deadline.
package sleeptimer

import (
	"context"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// Timer arms at most one deadline at a time. When the deadline elapses
// the fire callback runs exactly once; replacing or cancelling the
// deadline invalidates the previous one atomically.
type Timer struct {
	mu       sync.Mutex
	gen      uint64
	cancel   context.CancelFunc
	deadline time.Time
	onFire   func()
}

// New creates a timer firing the given callback. The callback is
// invoked from the timer's own goroutine without internal locks held.
func New(onFire func()) *Timer {
	return &Timer{onFire: onFire}
}

// Set arms the timer for now+d, superseding any pending deadline.
// Non-positive durations are rejected and leave an existing deadline
// untouched.
func (t *Timer) Set(d time.Duration) bool {
	if d <= 0 {
		return false
	}

	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.deadline = time.Now().Add(d)
	t.gen++
	gen := t.gen
	t.mu.Unlock()

	zlog.Info().Msgf("sleep timer set for %v", d)

	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(d):
		}

		t.mu.Lock()
		if t.gen != gen {
			// Superseded between firing and locking.
			t.mu.Unlock()
			return
		}
		t.cancel = nil
		t.deadline = time.Time{}
		t.mu.Unlock()

		zlog.Info().Msg("sleep timer expired")
		t.onFire()
	}()

	return true
}

// Cancel invalidates the pending deadline. It reports whether one was
// actually cancelled, so callers can decide whether to notify observers.
func (t *Timer) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel == nil {
		return false
	}
	t.cancel()
	t.cancel = nil
	t.deadline = time.Time{}
	t.gen++
	zlog.Info().Msg("sleep timer cancelled")
	return true
}

// Active reports whether a deadline is armed.
func (t *Timer) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

// RemainingMinutes returns the floor of the time to the deadline in
// minutes, 0 when nothing is armed or the deadline already passed.
func (t *Timer) RemainingMinutes() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.deadline.IsZero() {
		return 0
	}
	remaining := time.Until(t.deadline)
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Minutes())
}
