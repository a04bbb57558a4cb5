// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"slices"
	"sync"
	"time"
)

// FakeClock is a Clock whose time moves only when Advance is called.
// Safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	timers  []fakeTimer
	changed *sync.Cond
}

type fakeTimer struct {
	fireAt time.Time
	fire   chan time.Time
}

// Fake returns a FakeClock reading start.
func Fake(start time.Time) *FakeClock {
	c := &FakeClock{now: start}
	c.changed = sync.NewCond(&c.mu)
	return c
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After registers a timer due at Now()+d. A non-positive d fires at once
// and registers nothing.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	fire := make(chan time.Time, 1)
	if d <= 0 {
		fire <- c.now
		return fire
	}
	c.timers = append(c.timers, fakeTimer{fireAt: c.now.Add(d), fire: fire})
	c.changed.Broadcast()
	return fire
}

// Advance moves time forward by d and fires every timer now due, earliest
// first.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	var due []fakeTimer
	c.timers = slices.DeleteFunc(c.timers, func(timer fakeTimer) bool {
		if timer.fireAt.After(now) {
			return false
		}
		due = append(due, timer)
		return true
	})
	c.mu.Unlock()

	slices.SortStableFunc(due, func(a, b fakeTimer) int {
		return a.fireAt.Compare(b.fireAt)
	})
	for _, timer := range due {
		timer.fire <- now
	}
}

// WaitForTimers blocks until at least n timers are registered. Call it
// before Advance so a poller's wait is in place when time moves.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.timers) < n {
		c.changed.Wait()
	}
}

// PendingCount returns the number of registered timers not yet fired.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}
