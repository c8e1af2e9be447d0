package testutil

import (
	"sync"
	"time"
)

// FakeClock implements interfaces.Clock. After advances the clock
// immediately instead of blocking.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	Sleeps []time.Duration

	// OnSleep, if set, runs after every After with the new time
	OnSleep func(now time.Time)
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

// After advances the clock by d, records the wait and returns a channel
// that is already ready
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.Sleeps = append(c.Sleeps, d)
	now := c.now
	hook := c.OnSleep
	c.mu.Unlock()

	if hook != nil {
		hook(now)
	}

	ch := make(chan time.Time, 1)
	ch <- c.Now()

	return ch
}

// Advance moves the clock forward without recording a sleep
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// TotalSlept returns the sum of every recorded sleep
func (c *FakeClock) TotalSlept() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total time.Duration
	for _, d := range c.Sleeps {
		total += d
	}

	return total
}
