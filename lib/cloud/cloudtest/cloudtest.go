// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cloudtest provides an in-memory cloud for tests: object
// storage, per-region layer services, a signer, a CDN, and a region
// directory, all sharing one state and counting every mutating call.
//
//	fake := cloudtest.New("ca-central-1", "us-east-1")
//	environment := fake.Environment("ca-central-1")
//	// ... run a pipeline stage ...
//	if fake.Count().Publishes != 2 { ... }
package cloudtest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bureau-foundation/layercast/lib/cloud"
)

const (
	accountID         = "123456789012"
	signingProfileARN = "arn:aws:signer:ca-central-1:123456789012:/signing-profiles/test/abc123"
)

// Counts tallies the mutating calls made against a Cloud.
type Counts struct {
	Uploads       int
	Documents     int
	Copies        int
	SigningJobs   int
	Publishes     int
	Grants        int
	Removals      int
	Invalidations int
}

// Cloud is the shared in-memory state.
type Cloud struct {
	mu      sync.Mutex
	regions []string
	signing map[string]bool
	objects map[string]object
	layers  map[string]map[string][]*layerVersion
	jobs    map[string]*signingJob
	counts  Counts
	now     time.Time

	invalidations map[string]int

	// SigningPolls is how many DescribeSigningJob calls report
	// InProgress before a job finishes.
	SigningPolls int

	// SigningFailure, when set, makes every job fail with this reason.
	SigningFailure string

	// SigningStatuses, when non-nil, scripts the status each poll of a
	// job reports. Polls past the end repeat the last entry.
	SigningStatuses []cloud.SigningStatus

	// InvalidationPolls is how many GetInvalidation calls report
	// InProgress before Completed.
	InvalidationPolls int

	// InvalidationStatus, when set, is reported once the in-progress
	// polls are exhausted instead of Completed.
	InvalidationStatus string

	// PublishErrors fails PublishLayerVersion in the given regions.
	PublishErrors map[string]error

	// Services lists service regions for ServiceRegions. Defaults to
	// every region for the signer.
	Services map[string][]string
}

type object struct {
	data   []byte
	signed bool
}

type layerVersion struct {
	record    cloud.LayerVersion
	policy    []cloud.Statement
	rawPolicy string
}

type signingJob struct {
	input cloud.StartSigningInput
	polls int
}

// New returns an empty cloud spanning regions. Every region is
// signing-capable until MarkUnsigned is called.
func New(regions ...string) *Cloud {
	signing := make(map[string]bool, len(regions))
	layers := make(map[string]map[string][]*layerVersion, len(regions))
	for _, region := range regions {
		signing[region] = true
		layers[region] = make(map[string][]*layerVersion)
	}
	sorted := append([]string(nil), regions...)
	sort.Strings(sorted)
	return &Cloud{
		regions:       sorted,
		signing:       signing,
		objects:       make(map[string]object),
		layers:        layers,
		jobs:          make(map[string]*signingJob),
		invalidations: make(map[string]int),
		now:           time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// MarkUnsigned makes region not signing-capable.
func (c *Cloud) MarkUnsigned(region string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.signing, region)
}

// Environment returns a cloud.Environment backed by this Cloud.
func (c *Cloud) Environment(primary string) *cloud.Environment {
	c.mu.Lock()
	defer c.mu.Unlock()
	layers := make(map[string]cloud.LayerService, len(c.regions))
	signing := make(map[string]bool, len(c.signing))
	for _, region := range c.regions {
		layers[region] = &regionLayers{cloud: c, region: region}
		if c.signing[region] {
			signing[region] = true
		}
	}
	return &cloud.Environment{
		PrimaryRegion:        primary,
		Regions:              append([]string(nil), c.regions...),
		SigningRegions:       signing,
		ArtifactBucketPrefix: "artifacts-",
		Layers:               layers,
		Objects:              (*objectStore)(c),
		Signer:               (*signer)(c),
		CDN:                  (*cdn)(c),
	}
}

// Directory returns a region directory over this Cloud's regions.
func (c *Cloud) Directory() cloud.RegionDirectory {
	return (*directory)(c)
}

// Count returns a snapshot of the call counters.
func (c *Cloud) Count() Counts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts
}

// ResetCounts zeroes the call counters, keeping all state.
func (c *Cloud) ResetCounts() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = Counts{}
}

// Object returns a stored object's bytes.
func (c *Cloud) Object(bucket, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stored, ok := c.objects[bucket+"/"+key]
	return stored.data, ok
}

// ObjectKeys returns every stored key in bucket, sorted.
func (c *Cloud) ObjectKeys(bucket string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var keys []string
	prefix := bucket + "/"
	for path := range c.objects {
		if len(path) > len(prefix) && path[:len(prefix)] == prefix {
			keys = append(keys, path[len(prefix):])
		}
	}
	sort.Strings(keys)
	return keys
}

// SeedLayer adds an existing layer version to region, with optional
// policy statements.
func (c *Cloud) SeedLayer(region string, record cloud.LayerVersion, statements ...cloud.Statement) cloud.LayerVersion {
	c.mu.Lock()
	defer c.mu.Unlock()
	versions := c.layers[region][record.LayerName]
	record.Version = int64(len(versions) + 1)
	record.LayerARN = layerARN(region, record.LayerName)
	record.LayerVersionARN = fmt.Sprintf("%s:%d", record.LayerARN, record.Version)
	if record.CreatedDate == "" {
		record.CreatedDate = c.now.Format("2006-01-02T15:04:05.000-0700")
	}
	c.layers[region][record.LayerName] = append(versions, &layerVersion{record: record, policy: statements})
	return record
}

// SetRawPolicy replaces the policy document of the latest version of a
// layer with raw text, which need not be valid JSON.
func (c *Cloud) SetRawPolicy(region, name, raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	versions := c.layers[region][name]
	versions[len(versions)-1].rawPolicy = raw
}

// Latest returns the latest version of a layer in region and its policy.
func (c *Cloud) Latest(region, name string) (cloud.LayerVersion, []cloud.Statement, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	versions := c.layers[region][name]
	if len(versions) == 0 {
		return cloud.LayerVersion{}, nil, false
	}
	latest := versions[len(versions)-1]
	return latest.record, append([]cloud.Statement(nil), latest.policy...), true
}

// VersionCount returns how many versions of a layer exist in region.
func (c *Cloud) VersionCount(region, name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.layers[region][name])
}

// PublicStatement builds a policy statement granting grant.
func PublicStatement(grant cloud.Grant) cloud.Statement {
	return Statement(grant.StatementID, grant.Principal, grant.Action)
}

// Statement builds an Allow statement.
func Statement(sid, principal, action string) cloud.Statement {
	return cloud.Statement{
		Sid:       sid,
		Effect:    "Allow",
		Principal: mustJSON(principal),
		Action:    mustJSON(action),
	}
}

func mustJSON(value any) json.RawMessage {
	data, err := json.Marshal(value)
	if err != nil {
		panic(err)
	}
	return data
}

func layerARN(region, name string) string {
	return fmt.Sprintf("arn:aws:lambda:%s:%s:layer:%s", region, accountID, name)
}

func (c *Cloud) findVersion(region, name string, version int64) (*layerVersion, error) {
	regionLayers, ok := c.layers[region]
	if !ok {
		return nil, fmt.Errorf("unknown region %s", region)
	}
	versions := regionLayers[name]
	if version < 1 || version > int64(len(versions)) {
		return nil, fmt.Errorf("layer %s version %d in %s: %w", name, version, region, cloud.ErrNotFound)
	}
	return versions[version-1], nil
}

func (c *Cloud) latestSummaries(region string) []cloud.LayerSummary {
	var summaries []cloud.LayerSummary
	for name, versions := range c.layers[region] {
		latest := versions[len(versions)-1].record
		summaries = append(summaries, cloud.LayerSummary{
			Name:     name,
			LayerARN: latest.LayerARN,
			Latest: cloud.LayerVersion{
				LayerName:               latest.LayerName,
				LayerARN:                latest.LayerARN,
				LayerVersionARN:         latest.LayerVersionARN,
				Version:                 latest.Version,
				Description:             latest.Description,
				CreatedDate:             latest.CreatedDate,
				LicenseInfo:             latest.LicenseInfo,
				CompatibleRuntimes:      latest.CompatibleRuntimes,
				CompatibleArchitectures: latest.CompatibleArchitectures,
			},
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	return summaries
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
