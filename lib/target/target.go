// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package target turns package declarations into Targets: one fully
// resolved (package, version, runtime, architecture) layer with its build
// recipe, fingerprint, and per-region deployment state.
//
// A Target is immutable after [Expand] except for its regional map, which
// the reconciler populates and the publish pipeline updates one region at
// a time.
package target

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bureau-foundation/layercast/lib/cloud"
)

// Identity is the unique key of a Target within a run.
type Identity struct {
	Package      string
	Version      string
	Runtime      string
	Architecture string
}

func (i Identity) String() string {
	return i.Package + "/" + i.Version + "/" + i.Runtime + "/" + i.Architecture
}

// Name returns the canonical layer name:
// <package>_<version>_<runtime>_<architecture> with dots in the version
// and runtime replaced by hyphens.
func (i Identity) Name() string {
	return strings.Join([]string{
		i.Package,
		strings.ReplaceAll(i.Version, ".", "-"),
		strings.ReplaceAll(i.Runtime, ".", "-"),
		i.Architecture,
	}, "_")
}

// Target is one resolved build and deploy unit.
type Target struct {
	Identity

	// Name is the canonical layer name, see [Identity.Name].
	Name string

	// Platform is the build platform string (e.g. "linux/arm64").
	Platform string

	Image           string
	SourceDirectory string
	TargetDirectory string

	// Recipe is the assembled build recipe.
	Recipe Recipe

	// Fingerprint is the hash of the recipe text.
	Fingerprint string

	// ArchivePath is where the build pipeline leaves the layer archive.
	ArchivePath string

	// Source is the declaration file the Target came from.
	Source string

	mu       sync.Mutex
	regional map[string]Regional
}

// Descriptor returns the structured fingerprint record stored in each
// published version's description.
func (t *Target) Descriptor() Descriptor {
	return Descriptor{
		Format:       DescriptorFormat,
		RecipeHash:   t.Fingerprint,
		Package:      t.Package,
		Runtime:      t.Runtime,
		Version:      t.Version,
		Architecture: t.Architecture,
	}
}

// State is the deployment state of a Target in one region.
type State int

const (
	// Absent means no version of the layer exists in the region.
	Absent State = iota

	// Matching means the latest version carries the Target's current
	// descriptor.
	Matching

	// Stale means a version exists but its descriptor is unreadable,
	// differs from the Target's, or it must be republished to be signed.
	Stale

	// Published means this run published a new version.
	Published
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Matching:
		return "matching"
	case Stale:
		return "stale"
	case Published:
		return "published"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// NeedsPublish reports whether a region in this state must receive a
// new version.
func (s State) NeedsPublish() bool {
	return s == Absent || s == Stale
}

// Regional is a Target's state in one region. Version is set for
// Matching and Published.
type Regional struct {
	State   State
	Version *cloud.LayerVersion
}

// SetRegional records the state for region. Each region is written by
// one job at a time.
func (t *Target) SetRegional(region string, regional Regional) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.regional == nil {
		t.regional = make(map[string]Regional)
	}
	t.regional[region] = regional
}

// Regional returns the state recorded for region.
func (t *Target) Regional(region string) (Regional, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	regional, ok := t.regional[region]
	return regional, ok
}

// Regions returns every region with recorded state, sorted.
func (t *Target) Regions() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	regions := make([]string, 0, len(t.regional))
	for region := range t.regional {
		regions = append(regions, region)
	}
	sort.Strings(regions)
	return regions
}

// PendingRegions returns the regions that need a new version, sorted.
func (t *Target) PendingRegions() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var regions []string
	for region, regional := range t.regional {
		if regional.State.NeedsPublish() {
			regions = append(regions, region)
		}
	}
	sort.Strings(regions)
	return regions
}

// NeedsBuild reports whether any region needs a new version.
func (t *Target) NeedsBuild() bool {
	return len(t.PendingRegions()) > 0
}
