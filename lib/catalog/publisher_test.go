// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/bureau-foundation/layercast/lib/clock"
	"github.com/bureau-foundation/layercast/lib/cloud/cloudtest"
	"github.com/bureau-foundation/layercast/lib/testutil"
)

const pollInterval = 2 * time.Second

func newPublisher(fake *cloudtest.Cloud, c clock.Clock) *Publisher {
	env := fake.Environment("ca-central-1")
	return &Publisher{
		Objects:        env.Objects,
		CDN:            env.CDN,
		Clock:          c,
		Region:         "ca-central-1",
		Bucket:         "layer-metadata",
		DistributionID: "E123",
		Paths:          []string{"/*"},
		PollInterval:   pollInterval,
		Workers:        2,
		Logger:         slog.New(slog.DiscardHandler),
	}
}

func testDocuments() []Document {
	return []Document{
		{Key: "layers.json", Body: []byte(`{}`)},
		{Key: "packages/a.json", Body: []byte(`{"package":"a"}`)},
		{Key: "packages/b.json", Body: []byte(`{"package":"b"}`)},
	}
}

func TestPublishUploadsAndInvalidates(t *testing.T) {
	t.Parallel()
	fake := cloudtest.New("ca-central-1")
	fake.InvalidationPolls = 2
	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	done := make(chan error, 1)
	go func() { done <- newPublisher(fake, c).Publish(context.Background(), testDocuments()) }()
	for range 2 {
		c.WaitForTimers(1)
		c.Advance(pollInterval)
	}

	if err := testutil.RequireReceive(t, done, 5*time.Second, "waiting for catalog publish"); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	if counts := fake.Count(); counts.Documents != 3 || counts.Invalidations != 1 {
		t.Errorf("counts = %+v, want 3 documents and 1 invalidation", counts)
	}
	body, ok := fake.Object("layer-metadata", "packages/b.json")
	if !ok || string(body) != `{"package":"b"}` {
		t.Errorf("packages/b.json = %q, %v", body, ok)
	}
}

func TestInvalidateFailureStatus(t *testing.T) {
	t.Parallel()
	fake := cloudtest.New("ca-central-1")
	fake.InvalidationStatus = "Failed"

	err := newPublisher(fake, clock.Fake(time.Unix(0, 0))).Invalidate(context.Background())
	var invalidationErr *InvalidationError
	if !errors.As(err, &invalidationErr) || invalidationErr.Status != "Failed" {
		t.Fatalf("error = %v, want *InvalidationError with status Failed", err)
	}
}

func TestInvalidateCancelled(t *testing.T) {
	t.Parallel()
	fake := cloudtest.New("ca-central-1")
	fake.InvalidationPolls = 100
	c := clock.Fake(time.Unix(0, 0))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- newPublisher(fake, c).Invalidate(ctx) }()
	c.WaitForTimers(1)
	cancel()

	if err := testutil.RequireReceive(t, done, 5*time.Second, "waiting for cancelled invalidation"); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestUploadCancelled(t *testing.T) {
	t.Parallel()
	fake := cloudtest.New("ca-central-1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := newPublisher(fake, clock.Real()).Upload(ctx, testDocuments()); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if fake.Count().Documents != 0 {
		t.Error("no documents should be uploaded with a cancelled context")
	}
}
