// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package layerdef

import (
	"encoding/json"
	"sort"
)

// Inherited holds the fields a package, runtime, or version node passes
// down to the architectures beneath it. Every field is optional at every
// level.
type Inherited struct {
	DefaultImage                string   `json:"default_image,omitempty"`
	DefaultLayerSourceDirectory string   `json:"default_layer_source_directory,omitempty"`
	DefaultLayerTargetDirectory string   `json:"default_layer_target_directory,omitempty"`
	InstructionsPre             []string `json:"common_instructions_pre,omitempty"`
	InstructionsPost            []string `json:"common_instructions_post,omitempty"`
}

// Package is one declaration file: the root of the
// package → runtime → version → architecture tree.
type Package struct {
	// Name is the package identifier, taken from the file name.
	Name string `json:"-"`

	// Source is the path the declaration was read from.
	Source string `json:"-"`

	Schema      string          `json:"$schema,omitempty"`
	Definitions json.RawMessage `json:"definitions,omitempty"`

	Inherited
	Runtimes map[string]*Runtime `json:"runtimes"`
}

// Runtime is a language runtime (e.g. "python3.12") within a package.
type Runtime struct {
	Inherited
	Versions map[string]*Version `json:"versions"`
}

// Version is one release of the package for a runtime.
type Version struct {
	Inherited
	Architectures map[string]*Architecture `json:"architectures"`
}

// Architecture is a leaf of the declaration tree. Its fields override
// everything inherited from above.
type Architecture struct {
	Image                string   `json:"image,omitempty"`
	LayerSourceDirectory string   `json:"layer_source_directory,omitempty"`
	LayerTargetDirectory string   `json:"layer_target_directory,omitempty"`
	Instructions         []string `json:"instructions,omitempty"`
}

var platforms = map[string]string{
	"x86_64": "linux/amd64",
	"arm64":  "linux/arm64",
}

// Platform returns the build platform string for an architecture
// identifier.
func Platform(architecture string) (string, bool) {
	platform, ok := platforms[architecture]
	return platform, ok
}

// Architectures returns the supported architecture identifiers, sorted.
func Architectures() []string {
	return sortedKeys(platforms)
}

// RuntimeNames returns the package's runtime identifiers, sorted.
func (p *Package) RuntimeNames() []string { return sortedKeys(p.Runtimes) }

// VersionNames returns the runtime's version identifiers, sorted.
func (r *Runtime) VersionNames() []string { return sortedKeys(r.Versions) }

// ArchitectureNames returns the version's architecture identifiers,
// sorted.
func (v *Version) ArchitectureNames() []string { return sortedKeys(v.Architectures) }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
