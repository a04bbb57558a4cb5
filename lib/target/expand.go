// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package target

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/bureau-foundation/layercast/lib/layerdef"
)

// maxLayerNameLength is the longest layer name the publish API accepts.
const maxLayerNameLength = 140

// Set is the output of Expand, keyed by identity.
type Set map[Identity]*Target

// Sorted returns the Targets ordered by name.
func (s Set) Sorted() []*Target {
	targets := make([]*Target, 0, len(s))
	for _, target := range s {
		targets = append(targets, target)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].Name < targets[j].Name })
	return targets
}

// ByName returns the Target with the given canonical name.
func (s Set) ByName(name string) (*Target, bool) {
	for _, target := range s {
		if target.Name == name {
			return target, true
		}
	}
	return nil, false
}

// Options controls Expand.
type Options struct {
	// ArchiveDir is the directory Targets' ArchivePath is placed in.
	ArchiveDir string
}

// Expand flattens declarations into Targets, one per architecture leaf.
// A leaf whose image or directories cannot be resolved anywhere up its
// chain is an error naming the Target and its declaration file.
func Expand(packages []*layerdef.Package, options Options) (Set, error) {
	set := make(Set)
	for _, pkg := range packages {
		for _, runtimeName := range pkg.RuntimeNames() {
			runtime := pkg.Runtimes[runtimeName]
			for _, versionName := range runtime.VersionNames() {
				version := runtime.Versions[versionName]
				for _, architectureName := range version.ArchitectureNames() {
					identity := Identity{
						Package:      pkg.Name,
						Version:      versionName,
						Runtime:      runtimeName,
						Architecture: architectureName,
					}
					target, err := newTarget(identity, chain{
						pkg:          pkg,
						runtime:      runtime,
						version:      version,
						architecture: version.Architectures[architectureName],
					}, options)
					if err != nil {
						return nil, fmt.Errorf("%s: %w", pkg.Source, err)
					}
					set[identity] = target
				}
			}
		}
	}
	return set, nil
}

func newTarget(identity Identity, chain chain, options Options) (*Target, error) {
	name := identity.Name()
	if len(name) > maxLayerNameLength {
		return nil, fmt.Errorf("target %s: layer name is %d characters, limit is %d", name, len(name), maxLayerNameLength)
	}

	platform, ok := layerdef.Platform(identity.Architecture)
	if !ok {
		return nil, fmt.Errorf("target %s: unsupported architecture %q", name, identity.Architecture)
	}

	image, err := chain.require("image", chain.image)
	if err != nil {
		return nil, fmt.Errorf("target %s: %w", name, err)
	}
	sourceDirectory, err := chain.require("layer source directory", chain.sourceDirectory)
	if err != nil {
		return nil, fmt.Errorf("target %s: %w", name, err)
	}
	targetDirectory, err := chain.require("layer target directory", chain.targetDirectory)
	if err != nil {
		return nil, fmt.Errorf("target %s: %w", name, err)
	}

	recipe := assembleRecipe(image, sourceDirectory, targetDirectory, chain)
	target := &Target{
		Identity:        identity,
		Name:            name,
		Platform:        platform,
		Image:           image,
		SourceDirectory: sourceDirectory,
		TargetDirectory: targetDirectory,
		Recipe:          recipe,
		Fingerprint:     Fingerprint(recipe),
		ArchivePath:     filepath.Join(options.ArchiveDir, name+".zip"),
		Source:          chain.pkg.Source,
	}

	if encoded := target.Descriptor().Encode(); len(encoded) > MaxDescriptorLength {
		return nil, fmt.Errorf("target %s: descriptor is %d characters, limit is %d", name, len(encoded), MaxDescriptorLength)
	}
	return target, nil
}
