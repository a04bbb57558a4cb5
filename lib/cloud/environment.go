// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cloud

import (
	"context"
	"fmt"
	"slices"
	"sort"
)

// SignerService is the service name region discovery looks up to decide
// which regions can sign layers.
const SignerService = "signer"

// Environment is everything a run needs to reach the cloud. It is built
// once per run and passed to each pipeline stage.
type Environment struct {
	// PrimaryRegion hosts the unsigned upload, the signing job, and the
	// metadata bucket.
	PrimaryRegion string

	// Regions are the deployment regions, sorted.
	Regions []string

	// SigningRegions are the deployment regions where published layers
	// must be signed.
	SigningRegions map[string]bool

	// ArtifactBucketPrefix is prepended to a region code to name that
	// region's artifact bucket.
	ArtifactBucketPrefix string

	Layers  map[string]LayerService
	Objects ObjectStore
	Signer  Signer
	CDN     CDN
}

// ArtifactBucket returns the artifact bucket for region.
func (e *Environment) ArtifactBucket(region string) string {
	return e.ArtifactBucketPrefix + region
}

// LayerService returns region's layer API.
func (e *Environment) LayerService(region string) (LayerService, error) {
	service, ok := e.Layers[region]
	if !ok {
		return nil, fmt.Errorf("no layer service configured for region %s", region)
	}
	return service, nil
}

// SigningCapable reports whether layers in region must be signed.
func (e *Environment) SigningCapable(region string) bool {
	return e.SigningRegions[region]
}

// RegionFilter narrows discovered regions.
type RegionFilter struct {
	// Include, when non-empty, keeps only these regions.
	Include []string

	// Exclude drops these regions.
	Exclude []string

	// Unsigned marks regions whose layers are published unsigned even if
	// the signer service is offered there.
	Unsigned []string
}

// Regions is the outcome of region discovery.
type Regions struct {
	Deploy  []string
	Signing map[string]bool
}

// DiscoverRegions lists the deployment regions and the signing-capable
// subset. The primary region must survive filtering.
func DiscoverRegions(ctx context.Context, directory RegionDirectory, primary string, filter RegionFilter) (Regions, error) {
	enabled, err := directory.EnabledRegions(ctx)
	if err != nil {
		return Regions{}, fmt.Errorf("listing enabled regions: %w", err)
	}
	signerRegions, err := directory.ServiceRegions(ctx, SignerService)
	if err != nil {
		return Regions{}, fmt.Errorf("listing %s service regions: %w", SignerService, err)
	}

	var deploy []string
	for _, region := range enabled {
		if len(filter.Include) > 0 && !slices.Contains(filter.Include, region) {
			continue
		}
		if slices.Contains(filter.Exclude, region) {
			continue
		}
		deploy = append(deploy, region)
	}
	sort.Strings(deploy)
	deploy = slices.Compact(deploy)

	if !slices.Contains(deploy, primary) {
		return Regions{}, fmt.Errorf("primary region %s is not among the deployment regions %v", primary, deploy)
	}

	signing := make(map[string]bool)
	for _, region := range deploy {
		if slices.Contains(signerRegions, region) && !slices.Contains(filter.Unsigned, region) {
			signing[region] = true
		}
	}
	if !signing[primary] {
		return Regions{}, fmt.Errorf("primary region %s cannot sign layers", primary)
	}

	return Regions{Deploy: deploy, Signing: signing}, nil
}
