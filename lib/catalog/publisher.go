// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/bureau-foundation/layercast/lib/batch"
	"github.com/bureau-foundation/layercast/lib/clock"
	"github.com/bureau-foundation/layercast/lib/cloud"
)

const contentType = "application/json"

// Publisher uploads catalog documents and invalidates the CDN in front
// of them.
type Publisher struct {
	Objects cloud.ObjectStore
	CDN     cloud.CDN
	Clock   clock.Clock

	// Region and Bucket locate the metadata bucket.
	Region string
	Bucket string

	DistributionID string

	// Paths are the invalidated path patterns.
	Paths []string

	// PollInterval is the wait between invalidation status checks.
	PollInterval time.Duration

	// Workers bounds concurrent uploads.
	Workers int

	Logger *slog.Logger
}

// InvalidationError is an invalidation that reported a status other than
// in progress or completed.
type InvalidationError struct {
	InvalidationID string
	Status         string
}

func (e *InvalidationError) Error() string {
	return fmt.Sprintf("invalidation %s failed with status %q", e.InvalidationID, e.Status)
}

// Publish uploads every document, then invalidates the CDN and waits for
// the invalidation to complete.
func (p *Publisher) Publish(ctx context.Context, documents []Document) error {
	if err := p.Upload(ctx, documents); err != nil {
		return err
	}
	return p.Invalidate(ctx)
}

// Upload puts every document concurrently.
func (p *Publisher) Upload(ctx context.Context, documents []Document) error {
	var total uint64
	for _, document := range documents {
		total += uint64(len(document.Body))
	}
	p.Logger.Info("uploading catalog",
		"bucket", p.Bucket, "documents", len(documents), "size", humanize.IBytes(total))

	return batch.ForEach(ctx, p.Workers, documents, func(ctx context.Context, document Document) error {
		ref := cloud.ObjectRef{Region: p.Region, Bucket: p.Bucket, Key: document.Key}
		if _, err := p.Objects.PutBytes(ctx, ref, document.Body, contentType); err != nil {
			return fmt.Errorf("uploading catalog document %s: %w", document.Key, err)
		}
		return nil
	})
}

// Invalidate creates an invalidation for Paths and polls until it
// completes.
func (p *Publisher) Invalidate(ctx context.Context) error {
	id, err := p.CDN.CreateInvalidation(ctx, p.DistributionID, p.Paths, uuid.NewString())
	if err != nil {
		return fmt.Errorf("invalidating distribution %s: %w", p.DistributionID, err)
	}
	p.Logger.Info("invalidating catalog cache", "distribution", p.DistributionID, "invalidation", id)

	for {
		status, err := p.CDN.GetInvalidation(ctx, p.DistributionID, id)
		if err != nil {
			return fmt.Errorf("checking invalidation %s: %w", id, err)
		}
		switch status {
		case cloud.InvalidationCompleted:
			p.Logger.Info("catalog cache invalidated", "invalidation", id)
			return nil
		case cloud.InvalidationInProgress:
		default:
			return &InvalidationError{InvalidationID: id, Status: status}
		}
		if err := clock.Wait(ctx, p.Clock, p.PollInterval); err != nil {
			return err
		}
	}
}
