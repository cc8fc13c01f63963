package fakeclock

import (
	"sort"
	"sync"
	"time"

	"github.com/jrsteele09/go-estate-session/internal/clock"
)

var _ clock.Clock = (*FakeClock)(nil)

// FakeClock is a manually advanced clock. Callbacks of due timers run synchronously
// on the goroutine calling Advance or Set, in order of their due time.
type FakeClock struct {
	now    time.Time
	timers []*fakeTimer
	nextID int
	lock   sync.Mutex
}

type fakeTimer struct {
	id      int
	due     time.Time
	f       func()
	clock   *FakeClock
	stopped bool
	fired   bool
}

func New(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

func (c *FakeClock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

func (c *FakeClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	c.lock.Lock()
	defer c.lock.Unlock()

	if d < 0 {
		d = 0
	}
	c.nextID++
	t := &fakeTimer{id: c.nextID, due: c.now.Add(d), f: f, clock: c}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward by d and fires every timer that became due.
func (c *FakeClock) Advance(d time.Duration) {
	c.lock.Lock()
	target := c.now.Add(d)
	c.lock.Unlock()
	c.Set(target)
}

// Set moves the clock to t and fires every timer due at or before t. Timers
// scheduled by a firing callback are fired too if they fall due by t.
func (c *FakeClock) Set(t time.Time) {
	for {
		c.lock.Lock()
		next := c.nextDueLocked(t)
		if next == nil {
			c.now = t
			c.lock.Unlock()
			return
		}
		if next.due.After(c.now) {
			c.now = next.due
		}
		next.fired = true
		c.lock.Unlock()

		next.f()
	}
}

// Pending returns the number of timers that have neither fired nor been stopped.
func (c *FakeClock) Pending() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// NextDue returns the due instant of the earliest pending timer.
func (c *FakeClock) NextDue() (time.Time, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	pending := c.pendingLocked()
	if len(pending) == 0 {
		return time.Time{}, false
	}
	return pending[0].due, true
}

func (c *FakeClock) nextDueLocked(limit time.Time) *fakeTimer {
	for _, t := range c.pendingLocked() {
		if !t.due.After(limit) {
			return t
		}
		break
	}
	return nil
}

func (c *FakeClock) pendingLocked() []*fakeTimer {
	pending := make([]*fakeTimer, 0, len(c.timers))
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			pending = append(pending, t)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		if pending[i].due.Equal(pending[j].due) {
			return pending[i].id < pending[j].id
		}
		return pending[i].due.Before(pending[j].due)
	})
	return pending
}

func (t *fakeTimer) Stop() bool {
	t.clock.lock.Lock()
	defer t.clock.lock.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}
