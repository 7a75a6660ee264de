package timing

import (
	"sync"
	"time"
)

// ZuluClock reports the wall-clock time that Zulu events are scheduled
// against.
type ZuluClock interface {
	Now() DateTime
}

// WallClock reads the host computer clock.
type WallClock struct{}

// Now returns the current host time.
func (WallClock) Now() DateTime {
	return DateTimeFromTime(time.Now())
}

// ManualClock is a Zulu clock that only moves when told to. It makes runs with
// Zulu events reproducible.
type ManualClock struct {
	lock sync.RWMutex
	now  DateTime
}

// NewManualClock creates a ManualClock showing the given time.
func NewManualClock(now DateTime) *ManualClock {
	return &ManualClock{now: now}
}

// Now returns the time the clock is set to.
func (c *ManualClock) Now() DateTime {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.now
}

// Set moves the clock to t.
func (c *ManualClock) Set(t DateTime) {
	c.lock.Lock()
	c.now = t
	c.lock.Unlock()
}

// Advance moves the clock forward by d and returns the new time.
func (c *ManualClock) Advance(d Duration) DateTime {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.now = c.now.Add(d)

	return c.now
}
