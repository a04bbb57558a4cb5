// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package catalog builds the public layer catalog from the final
// per-region state of every Target and publishes it behind a CDN.
//
// The catalog nests package → version → runtime → architecture → region.
// Besides the full document, every node of the tree is published on its
// own under the catalog prefix, tagged with the keys that locate it:
//
//	layers.json
//	packages/<package>.json
//	packages/<package>/<version>.json
//	packages/<package>/<version>/<runtime>.json
//	packages/<package>/<version>/<runtime>/<architecture>.json
//	packages/<package>/<version>/<runtime>/<architecture>/<region>.json
package catalog

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"

	"github.com/bureau-foundation/layercast/lib/cloud"
	"github.com/bureau-foundation/layercast/lib/target"
)

// Entry describes one layer version in one region.
type Entry struct {
	Description              string `json:"description"`
	LicenseInfo              string `json:"license_info"`
	LayerARN                 string `json:"layer_arn"`
	LayerVersionARN          string `json:"layer_version_arn"`
	LayerVersion             int64  `json:"layer_version"`
	CreatedDate              string `json:"created_date"`
	LayerName                string `json:"layer_name"`
	SigningJobARN            string `json:"signing_job_arn,omitempty"`
	SigningProfileVersionARN string `json:"signing_profile_version_arn,omitempty"`
	SourceCodeHash           string `json:"source_code_hash"`
	SourceCodeSize           int64  `json:"source_code_size"`
}

// Catalog maps package → version → runtime → architecture → region to
// the deployed layer version.
type Catalog map[string]map[string]map[string]map[string]map[string]Entry

// Build folds the Targets' regional state into a Catalog. Every Target
// must be Matching or Published in every one of regions.
func Build(targets []*target.Target, regions []string) (Catalog, error) {
	catalog := make(Catalog)
	for _, t := range targets {
		for _, region := range regions {
			regional, ok := t.Regional(region)
			if !ok {
				return nil, fmt.Errorf("%s has no recorded state in %s", t.Name, region)
			}
			if (regional.State != target.Matching && regional.State != target.Published) || regional.Version == nil {
				return nil, fmt.Errorf("%s is still %s in %s after publishing", t.Name, regional.State, region)
			}
			catalog.add(t.Identity, region, entryFor(regional.Version))
		}
	}
	return catalog, nil
}

func (c Catalog) add(identity target.Identity, region string, entry Entry) {
	versions, ok := c[identity.Package]
	if !ok {
		versions = make(map[string]map[string]map[string]map[string]Entry)
		c[identity.Package] = versions
	}
	runtimes, ok := versions[identity.Version]
	if !ok {
		runtimes = make(map[string]map[string]map[string]Entry)
		versions[identity.Version] = runtimes
	}
	architectures, ok := runtimes[identity.Runtime]
	if !ok {
		architectures = make(map[string]map[string]Entry)
		runtimes[identity.Runtime] = architectures
	}
	regionEntries, ok := architectures[identity.Architecture]
	if !ok {
		regionEntries = make(map[string]Entry)
		architectures[identity.Architecture] = regionEntries
	}
	regionEntries[region] = entry
}

func entryFor(version *cloud.LayerVersion) Entry {
	return Entry{
		Description:              version.Description,
		LicenseInfo:              version.LicenseInfo,
		LayerARN:                 version.LayerARN,
		LayerVersionARN:          version.LayerVersionARN,
		LayerVersion:             version.Version,
		CreatedDate:              version.CreatedDate,
		LayerName:                version.LayerName,
		SigningJobARN:            version.SigningJobARN,
		SigningProfileVersionARN: version.SigningProfileVersionARN,
		SourceCodeHash:           version.CodeSHA256,
		SourceCodeSize:           version.CodeSize,
	}
}

// Layout places catalog documents in the metadata bucket.
type Layout struct {
	// RootObject is the key of the full catalog.
	RootObject string

	// Prefix is the key prefix of the per-node documents.
	Prefix string
}

// Document is one catalog object to upload.
type Document struct {
	Key  string
	Body []byte
}

// Self-description keys added to node documents.
const (
	keyPackage      = "package"
	keyVersion      = "package_version"
	keyRuntime      = "runtime"
	keyArchitecture = "architecture"
)

type regionDocument struct {
	Entry
	Package      string `json:"package"`
	Version      string `json:"package_version"`
	Runtime      string `json:"runtime"`
	Architecture string `json:"architecture"`
	Region       string `json:"region"`
}

// Documents materializes the root document and one document per node,
// sorted by key.
func (c Catalog) Documents(layout Layout) ([]Document, error) {
	var documents []Document
	emit := func(key string, value any) error {
		body, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", key, err)
		}
		documents = append(documents, Document{Key: key, Body: body})
		return nil
	}

	if err := emit(layout.RootObject, c); err != nil {
		return nil, err
	}
	for packageName, versions := range c {
		packageKey := path.Join(layout.Prefix, packageName)
		packageLabels := map[string]string{keyPackage: packageName}
		if err := emitNode(emit, packageKey, versions, packageLabels); err != nil {
			return nil, err
		}
		for versionName, runtimes := range versions {
			versionKey := path.Join(packageKey, versionName)
			versionLabels := extend(packageLabels, keyVersion, versionName)
			if err := emitNode(emit, versionKey, runtimes, versionLabels); err != nil {
				return nil, err
			}
			for runtimeName, architectures := range runtimes {
				runtimeKey := path.Join(versionKey, runtimeName)
				runtimeLabels := extend(versionLabels, keyRuntime, runtimeName)
				if err := emitNode(emit, runtimeKey, architectures, runtimeLabels); err != nil {
					return nil, err
				}
				for architectureName, regions := range architectures {
					architectureKey := path.Join(runtimeKey, architectureName)
					architectureLabels := extend(runtimeLabels, keyArchitecture, architectureName)
					if err := emitNode(emit, architectureKey, regions, architectureLabels); err != nil {
						return nil, err
					}
					for region, entry := range regions {
						err := emit(path.Join(architectureKey, region)+".json", regionDocument{
							Entry:        entry,
							Package:      packageName,
							Version:      versionName,
							Runtime:      runtimeName,
							Architecture: architectureName,
							Region:       region,
						})
						if err != nil {
							return nil, err
						}
					}
				}
			}
		}
	}

	sort.Slice(documents, func(i, j int) bool { return documents[i].Key < documents[j].Key })
	return documents, nil
}

// emitNode writes children merged with the node's labels. A child named
// like a label would be shadowed, so it is an error.
func emitNode[V any](emit func(string, any) error, key string, children map[string]V, labels map[string]string) error {
	node := make(map[string]any, len(children)+len(labels))
	for name, child := range children {
		node[name] = child
	}
	for label, value := range labels {
		if _, exists := node[label]; exists {
			return fmt.Errorf("catalog node %s: child %q collides with a label", key, label)
		}
		node[label] = value
	}
	return emit(key+".json", node)
}

func extend(labels map[string]string, key, value string) map[string]string {
	extended := make(map[string]string, len(labels)+1)
	for k, v := range labels {
		extended[k] = v
	}
	extended[key] = value
	return extended
}
