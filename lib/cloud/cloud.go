// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cloud defines the narrow surfaces layercast needs from the
// cloud: object storage, per-region layer publishing, code signing, CDN
// invalidation, and region discovery. Implementations live in
// subpackages (awscloud for production, cloudtest for tests).
//
// All implementations are safe for concurrent use. Transient failures are
// retried inside the implementation; an error returned here is final.
package cloud

import (
	"context"
	"errors"
)

// ErrNotFound is returned (possibly wrapped) when the requested object,
// layer version, or policy does not exist.
var ErrNotFound = errors.New("not found")

// ObjectRef addresses one object. Region selects the endpoint and
// credential context used to reach the bucket.
type ObjectRef struct {
	Region string
	Bucket string
	Key    string
}

func (r ObjectRef) String() string {
	return "s3://" + r.Bucket + "/" + r.Key + " (" + r.Region + ")"
}

// PutResult describes a stored object.
type PutResult struct {
	// VersionID is the object version, or "" for unversioned buckets.
	VersionID string
	Size      int64
}

// ObjectStore stores layer archives and metadata documents.
type ObjectStore interface {
	PutFile(ctx context.Context, ref ObjectRef, path, contentType string) (PutResult, error)
	PutBytes(ctx context.Context, ref ObjectRef, data []byte, contentType string) (PutResult, error)

	// Copy copies source to destination. The two may be in different
	// regions.
	Copy(ctx context.Context, source, destination ObjectRef) error

	Get(ctx context.Context, ref ObjectRef) ([]byte, error)
}

// LayerSummary is one entry of a region's layer listing.
type LayerSummary struct {
	Name     string
	LayerARN string
	Latest   LayerVersion
}

// LayerVersion is one published version of a layer. Listing fills the
// descriptive fields; GetLayerVersion and PublishLayerVersion also fill
// the content and signing fields.
type LayerVersion struct {
	LayerName       string
	LayerARN        string
	LayerVersionARN string
	Version         int64
	Description     string
	CreatedDate     string
	LicenseInfo     string

	CompatibleRuntimes      []string
	CompatibleArchitectures []string

	CodeSHA256               string
	CodeSize                 int64
	SigningJobARN            string
	SigningProfileVersionARN string
}

// PublishInput describes a new layer version.
type PublishInput struct {
	LayerName               string
	Description             string
	LicenseInfo             string
	Content                 ObjectRef
	CompatibleRuntimes      []string
	CompatibleArchitectures []string
}

// LayerService is one region's layer API.
type LayerService interface {
	// ListLayers returns every layer in the region with its latest
	// version, across all pages.
	ListLayers(ctx context.Context) ([]LayerSummary, error)

	// GetLayerVersion returns the full record of one version.
	GetLayerVersion(ctx context.Context, name string, version int64) (LayerVersion, error)

	// GetLayerVersionPolicy returns the raw resource policy document of
	// one version, or ErrNotFound if it has none.
	GetLayerVersionPolicy(ctx context.Context, name string, version int64) (string, error)

	PublishLayerVersion(ctx context.Context, input PublishInput) (LayerVersion, error)

	AddPermission(ctx context.Context, name string, version int64, grant Grant) error
	RemovePermission(ctx context.Context, name string, version int64, statementID string) error
}

// SigningStatus is the state of a signing job.
type SigningStatus string

const (
	SigningSubmitted  SigningStatus = "Submitted"
	SigningInProgress SigningStatus = "InProgress"
	SigningSucceeded  SigningStatus = "Succeeded"
	SigningFailed     SigningStatus = "Failed"
)

// StartSigningInput requests one signing job.
type StartSigningInput struct {
	Source        ObjectRef
	SourceVersion string

	// Destination is the bucket and key prefix the signed object is
	// written under.
	Destination ObjectRef

	ProfileName        string
	ClientRequestToken string
}

// SigningJob is the observed state of a signing job.
type SigningJob struct {
	JobID  string
	Status SigningStatus

	// Reason explains a failure.
	Reason string

	// Signed is the signed object once Status is SigningSucceeded.
	Signed ObjectRef
}

// Signer runs code signing jobs.
type Signer interface {
	StartSigningJob(ctx context.Context, input StartSigningInput) (string, error)
	DescribeSigningJob(ctx context.Context, jobID string) (SigningJob, error)
}

// Invalidation statuses reported by a CDN.
const (
	InvalidationInProgress = "InProgress"
	InvalidationCompleted  = "Completed"
)

// CDN invalidates cached paths in front of the metadata bucket.
type CDN interface {
	CreateInvalidation(ctx context.Context, distributionID string, paths []string, callerReference string) (string, error)
	GetInvalidation(ctx context.Context, distributionID, invalidationID string) (string, error)
}

// RegionDirectory discovers regions.
type RegionDirectory interface {
	// EnabledRegions lists the regions enabled for the account.
	EnabledRegions(ctx context.Context) ([]string, error)

	// ServiceRegions lists the regions where a service is offered.
	ServiceRegions(ctx context.Context, service string) ([]string, error)
}
