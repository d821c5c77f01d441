package service

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// epochTimer is a re-armable one-shot timer guarded by a monotonically
// increasing epoch. Stopping the underlying timer is not enough to cancel: a
// callback may already be in flight, so every fire re-checks its own epoch
// and becomes a no-op when stale.
type epochTimer struct {
	clock clockwork.Clock

	mu    sync.Mutex
	timer clockwork.Timer
	epoch uint64
}

func newEpochTimer(clock clockwork.Clock) *epochTimer {
	return &epochTimer{clock: clock}
}

// Arm cancels any pending fire and schedules fn after d.
func (t *epochTimer) Arm(d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	t.epoch++
	armed := t.epoch
	t.timer = t.clock.AfterFunc(d, func() {
		t.mu.Lock()
		stale := t.epoch != armed
		t.mu.Unlock()
		if stale {
			return
		}
		fn()
	})
}

// Cancel invalidates any pending or in-flight fire.
func (t *epochTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.epoch++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
