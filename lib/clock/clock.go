// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source for the polling loops
// in the publish and catalog pipelines.
//
// Production code uses Real(). Tests use Fake(), which advances only when
// Advance is called:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go pollSomething(ctx, c)
//	c.WaitForTimers(1)         // wait for the poller to register its wait
//	c.Advance(2 * time.Second) // fire it
package clock

import (
	"context"
	"time"
)

// Clock abstracts the time operations used by pollers.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time after d
	// elapses. If d <= 0 the channel receives immediately.
	After(d time.Duration) <-chan time.Time
}

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Wait blocks for d on c, returning early with ctx.Err() if ctx is done
// first.
func Wait(ctx context.Context, c Clock, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.After(d):
		return nil
	}
}
