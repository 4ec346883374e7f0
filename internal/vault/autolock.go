package vault

import (
	"sync"
	"time"

	"github.com/Klingon-tech/klingvault/internal/clock"
)

// AutoLock fires a callback after a period of inactivity.
//
// Every Arm, Reset and Disarm starts a new generation. The callback
// receives the generation it was armed with; a holder that serializes
// expiry with its own lock passes it to Current to ignore timers that
// were superseded while the callback was waiting for that lock.
type AutoLock struct {
	mu       sync.Mutex
	clock    clock.Clock
	timer    *clock.Timer
	gen      uint64
	d        time.Duration
	onExpire func(gen uint64)
}

// NewAutoLock returns a disarmed AutoLock driven by c.
func NewAutoLock(c clock.Clock) *AutoLock {
	return &AutoLock{clock: c}
}

// Arm schedules onExpire to run after d, replacing any pending timer.
// A non-positive d disarms.
func (a *AutoLock) Arm(d time.Duration, onExpire func(gen uint64)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.armLocked(d, onExpire)
}

// Reset cancels the pending timer and re-arms it with d and onExpire.
func (a *AutoLock) Reset(d time.Duration, onExpire func(gen uint64)) {
	a.Arm(d, onExpire)
}

// Touch restarts the countdown with the last armed duration. It does
// nothing when disarmed.
func (a *AutoLock) Touch() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.armLocked(a.d, a.onExpire)
	}
}

// Disarm cancels the pending timer. It is safe to call when disarmed.
func (a *AutoLock) Disarm() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
}

// Armed reports whether a timer is pending.
func (a *AutoLock) Armed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timer != nil
}

// Current reports whether gen is still the live generation.
func (a *AutoLock) Current(gen uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return gen == a.gen
}

func (a *AutoLock) armLocked(d time.Duration, onExpire func(gen uint64)) {
	a.stopLocked()
	if d <= 0 || onExpire == nil {
		return
	}
	a.d, a.onExpire = d, onExpire
	gen := a.gen
	a.timer = a.clock.AfterFunc(d, func() { a.fire(gen) })
}

func (a *AutoLock) stopLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.gen++
	a.onExpire = nil
}

func (a *AutoLock) fire(gen uint64) {
	a.mu.Lock()
	if gen != a.gen || a.timer == nil {
		a.mu.Unlock()
		return
	}
	fn := a.onExpire
	a.timer = nil
	a.mu.Unlock()
	if fn != nil {
		fn(gen)
	}
}
