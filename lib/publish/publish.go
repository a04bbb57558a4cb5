// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package publish signs built layer archives and publishes them to every
// region that needs a new version.
//
// Each Target is signed once, in the primary region. The signed archive
// is then copied into each pending region's artifact bucket, published as
// a new layer version, and granted public access. A region's state on the
// Target becomes Published only after all three steps succeed there.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/layercast/lib/batch"
	"github.com/bureau-foundation/layercast/lib/clock"
	"github.com/bureau-foundation/layercast/lib/cloud"
	"github.com/bureau-foundation/layercast/lib/target"
)

// Key prefixes in the primary artifact bucket.
const (
	UnsignedPrefix = "unsigned/"
	SignedPrefix   = "signed/"
)

// nullVersion is the object version of an object in an unversioned
// bucket.
const nullVersion = "null"

// Pipeline publishes Targets.
type Pipeline struct {
	Env   *cloud.Environment
	Clock clock.Clock

	// SigningProfile names the signing profile used for every job.
	SigningProfile string

	// PollInterval is the wait between signing job status checks.
	PollInterval time.Duration

	// Grant is attached to every published version.
	Grant cloud.Grant

	// LicenseInfo is recorded on every published version.
	LicenseInfo string

	Logger *slog.Logger
}

// SigningError is a signing job that finished without succeeding.
type SigningError struct {
	LayerName string
	JobID     string
	Status    cloud.SigningStatus
	Reason    string
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("signing %s: job %s ended %s: %s", e.LayerName, e.JobID, e.Status, e.Reason)
}

// PublishAll publishes every Target with pending regions. Targets are
// independent: they run concurrently, a failed Target does not cancel
// the others, and every failure is returned joined once all Targets
// finish.
func (p *Pipeline) PublishAll(ctx context.Context, targets []*target.Target) error {
	var pending []*target.Target
	for _, t := range targets {
		if t.NeedsBuild() {
			pending = append(pending, t)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	p.Logger.Info("publishing layers", "count", len(pending))
	return batch.All(ctx, batch.Unbounded, pending, p.PublishTarget)
}

// PublishTarget signs t's archive and publishes it to each of its
// pending regions.
func (p *Pipeline) PublishTarget(ctx context.Context, t *target.Target) error {
	regions := t.PendingRegions()
	if len(regions) == 0 {
		return nil
	}

	signed, err := p.sign(ctx, t)
	if err != nil {
		return err
	}

	err = batch.ForEach(ctx, batch.Unbounded, regions, func(ctx context.Context, region string) error {
		return p.publishRegion(ctx, t, region, signed)
	})
	if err != nil {
		return fmt.Errorf("publishing %s: %w", t.Name, err)
	}
	return nil
}

// sign uploads the unsigned archive to the primary bucket, starts one
// signing job, and waits for it to finish.
func (p *Pipeline) sign(ctx context.Context, t *target.Target) (cloud.ObjectRef, error) {
	logger := p.Logger.With("layer", t.Name)
	bucket := p.Env.ArtifactBucket(p.Env.PrimaryRegion)

	unsigned := cloud.ObjectRef{
		Region: p.Env.PrimaryRegion,
		Bucket: bucket,
		Key:    UnsignedPrefix + t.Name + "/" + uuid.NewString() + ".zip",
	}
	logger.Info("uploading unsigned layer archive", "object", unsigned.String())
	put, err := p.Env.Objects.PutFile(ctx, unsigned, t.ArchivePath, "application/zip")
	if err != nil {
		return cloud.ObjectRef{}, fmt.Errorf("uploading %s: %w", t.Name, err)
	}
	sourceVersion := put.VersionID
	if sourceVersion == "" {
		sourceVersion = nullVersion
	}

	jobID, err := p.Env.Signer.StartSigningJob(ctx, cloud.StartSigningInput{
		Source:        unsigned,
		SourceVersion: sourceVersion,
		Destination: cloud.ObjectRef{
			Region: p.Env.PrimaryRegion,
			Bucket: bucket,
			Key:    SignedPrefix,
		},
		ProfileName:        p.SigningProfile,
		ClientRequestToken: uuid.NewString(),
	})
	if err != nil {
		return cloud.ObjectRef{}, fmt.Errorf("starting signing job for %s: %w", t.Name, err)
	}
	logger.Info("signing layer archive", "job", jobID)

	for {
		job, err := p.Env.Signer.DescribeSigningJob(ctx, jobID)
		if err != nil {
			return cloud.ObjectRef{}, fmt.Errorf("checking signing job %s for %s: %w", jobID, t.Name, err)
		}
		switch job.Status {
		case cloud.SigningSucceeded:
			logger.Info("signed layer archive", "job", jobID, "object", job.Signed.String())
			return job.Signed, nil
		case cloud.SigningInProgress, cloud.SigningSubmitted:
		case cloud.SigningFailed:
			return cloud.ObjectRef{}, &SigningError{LayerName: t.Name, JobID: jobID, Status: job.Status, Reason: job.Reason}
		default:
			return cloud.ObjectRef{}, fmt.Errorf("signing job %s for %s reported unknown status %q", jobID, t.Name, job.Status)
		}
		if err := clock.Wait(ctx, p.Clock, p.PollInterval); err != nil {
			return cloud.ObjectRef{}, err
		}
	}
}

func (p *Pipeline) publishRegion(ctx context.Context, t *target.Target, region string, signed cloud.ObjectRef) error {
	logger := p.Logger.With("layer", t.Name, "region", region)
	service, err := p.Env.LayerService(region)
	if err != nil {
		return err
	}

	regional := cloud.ObjectRef{Region: region, Bucket: p.Env.ArtifactBucket(region), Key: signed.Key}
	if err := p.Env.Objects.Copy(ctx, signed, regional); err != nil {
		return fmt.Errorf("copying signed archive to %s: %w", region, err)
	}

	version, err := service.PublishLayerVersion(ctx, cloud.PublishInput{
		LayerName:               t.Name,
		Description:             t.Descriptor().Encode(),
		LicenseInfo:             p.LicenseInfo,
		Content:                 regional,
		CompatibleRuntimes:      []string{t.Runtime},
		CompatibleArchitectures: []string{t.Architecture},
	})
	if err != nil {
		return fmt.Errorf("publishing layer version in %s: %w", region, err)
	}

	if err := service.AddPermission(ctx, t.Name, version.Version, p.Grant); err != nil {
		return fmt.Errorf("granting public access to version %d in %s: %w", version.Version, region, err)
	}

	t.SetRegional(region, target.Regional{State: target.Published, Version: &version})
	logger.Info("published layer version", "version", version.Version, "arn", version.LayerVersionARN)
	return nil
}
