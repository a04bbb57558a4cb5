// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package target

import (
	"fmt"

	"github.com/bureau-foundation/layercast/lib/layerdef"
)

// chain is the path from a package down to one architecture leaf.
type chain struct {
	pkg          *layerdef.Package
	runtime      *layerdef.Runtime
	version      *layerdef.Version
	architecture *layerdef.Architecture
}

// firstSet returns the first non-empty value.
func firstSet(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

// image resolves architecture → version → runtime → package.
func (c chain) image() string {
	return firstSet(
		c.architecture.Image,
		c.version.DefaultImage,
		c.runtime.DefaultImage,
		c.pkg.DefaultImage,
	)
}

// sourceDirectory resolves architecture → version → runtime → package.
func (c chain) sourceDirectory() string {
	return firstSet(
		c.architecture.LayerSourceDirectory,
		c.version.DefaultLayerSourceDirectory,
		c.runtime.DefaultLayerSourceDirectory,
		c.pkg.DefaultLayerSourceDirectory,
	)
}

// targetDirectory resolves architecture → version → runtime → package.
func (c chain) targetDirectory() string {
	return firstSet(
		c.architecture.LayerTargetDirectory,
		c.version.DefaultLayerTargetDirectory,
		c.runtime.DefaultLayerTargetDirectory,
		c.pkg.DefaultLayerTargetDirectory,
	)
}

func (c chain) require(field string, resolve func() string) (string, error) {
	if value := resolve(); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("%s is not set on the architecture, version, runtime, or package", field)
}
