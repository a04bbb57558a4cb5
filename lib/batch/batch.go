// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package batch runs a set of independent jobs concurrently with
// fail-fast, cooperative-drain semantics.
//
// [ForEach] starts one job per item, bounded by a worker limit. The first
// job to fail cancels the context shared by the batch; jobs that have not
// started yet are never started, jobs already running observe the
// cancelled context and drain on their own, and ForEach returns the first
// error once every started job has returned.
//
// [All] is the isolating variant: every item runs to completion and the
// failures are joined.
//
// Batches do not cancel each other. A failed batch cancels only the
// context it derived; the caller's context is untouched.
package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Unbounded runs one goroutine per item.
const Unbounded = 0

// ForEach calls fn once per item with at most limit calls in flight. A
// limit of [Unbounded] (or any non-positive value) places no bound
// beyond the number of items.
//
// The returned error is the first error returned by any fn. Calls are
// unordered. fn must not write state shared with other items unless that
// state is keyed by the item.
func ForEach[T any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, item T) error) error {
	group, groupContext := errgroup.WithContext(ctx)
	if limit > 0 {
		group.SetLimit(limit)
	}

	var skipped atomic.Bool
	for _, item := range items {
		// Go blocks while the group is at its limit. Once a job fails
		// the group context is done and nothing further is scheduled.
		if groupContext.Err() != nil {
			skipped.Store(true)
			break
		}
		group.Go(func() error {
			if groupContext.Err() != nil {
				skipped.Store(true)
				return nil
			}
			return fn(groupContext, item)
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}
	// No job failed, but work was dropped because the caller's context
	// ended.
	if skipped.Load() {
		return ctx.Err()
	}
	return nil
}

// All calls fn once per item with at most limit calls in flight, like
// [ForEach], but a failure does not cancel or skip the other items. Every
// item runs to completion and the failures are returned joined, in item
// order. Only the caller's context stops scheduling.
func All[T any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, item T) error) error {
	errs := make([]error, len(items))
	var wait sync.WaitGroup
	var slots chan struct{}
	if limit > 0 {
		slots = make(chan struct{}, limit)
	}

	for index, item := range items {
		if err := ctx.Err(); err != nil {
			errs[index] = err
			continue
		}
		if slots != nil {
			select {
			case slots <- struct{}{}:
			case <-ctx.Done():
				errs[index] = ctx.Err()
				continue
			}
		}
		wait.Add(1)
		go func() {
			defer wait.Done()
			if slots != nil {
				defer func() { <-slots }()
			}
			errs[index] = fn(ctx, item)
		}()
	}
	wait.Wait()
	return errors.Join(errs...)
}

// Do runs each job concurrently under the same rules as [ForEach].
func Do(ctx context.Context, limit int, jobs ...func(ctx context.Context) error) error {
	return ForEach(ctx, limit, jobs, func(ctx context.Context, job func(ctx context.Context) error) error {
		return job(ctx)
	})
}
