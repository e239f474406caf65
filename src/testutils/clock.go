package testutils

import (
	"sort"
	"sync"
	"time"

	"trade-dashboard/src/utils"
)

// -----------------------------------------------------------------------------
// FakeClock implements utils.Clock. Time only moves on Advance, which fires
// due callbacks synchronously in deadline order.
// -----------------------------------------------------------------------------

type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *FakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

var _ utils.Clock = (*FakeClock)(nil)

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) AfterFunc(d time.Duration, f func()) utils.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward by d, running every callback that becomes
// due on the way.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDueLocked(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.at
		next.fired = true
		c.mu.Unlock()

		next.f()
	}
}

func (c *FakeClock) nextDueLocked(target time.Time) *fakeTimer {
	pending := make([]*fakeTimer, 0, len(c.timers))
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			pending = append(pending, t)
		}
	}
	c.timers = pending

	sort.SliceStable(pending, func(i, j int) bool { return pending[i].at.Before(pending[j].at) })
	if len(pending) == 0 || pending[0].at.After(target) {
		return nil
	}
	return pending[0]
}

// Pending returns the deadlines of armed timers relative to now.
func (c *FakeClock) Pending() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []time.Duration
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			out = append(out, t.at.Sub(c.now))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
