// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/layercast/lib/testutil"
)

func validCloudYAML() string {
	return `
primary_region: ca-central-1
artifacts:
  bucket_prefix: example-layers-
metadata:
  bucket: example-layer-metadata
  distribution_id: E123EXAMPLE
signing:
  profile: layers
`
}

func TestDefault(t *testing.T) {
	t.Parallel()
	cfg := Default()

	if cfg.Permission.StatementID != "public-access" {
		t.Errorf("statement id = %q, want public-access", cfg.Permission.StatementID)
	}
	if cfg.Permission.Action != "lambda:GetLayerVersion" || cfg.Permission.Principal != "*" {
		t.Errorf("permission = %+v", cfg.Permission)
	}
	if cfg.Workers != (WorkersConfig{Build: 4, Policy: 100, Upload: 100}) {
		t.Errorf("workers = %+v", cfg.Workers)
	}
	if cfg.Client.MaxAttempts != 10 {
		t.Errorf("max attempts = %d, want 10", cfg.Client.MaxAttempts)
	}
	if cfg.Signing.PollInterval != time.Second || cfg.Invalidation.PollInterval != 2*time.Second {
		t.Errorf("poll intervals = %v / %v", cfg.Signing.PollInterval, cfg.Invalidation.PollInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults: %v", err)
	}
	if err := cfg.ValidateCloud(); err == nil {
		t.Error("ValidateCloud() on defaults should fail without buckets and profile")
	}
}

func TestLoadRequiresVariable(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when LAYERCAST_CONFIG is not set")
	}
	if !strings.HasPrefix(err.Error(), "LAYERCAST_CONFIG environment variable not set") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadFromVariable(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "layercast.yaml", validCloudYAML())
	t.Setenv(EnvironmentVariable, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.PrimaryRegion != "ca-central-1" {
		t.Errorf("primary region = %q", cfg.PrimaryRegion)
	}
	if err := cfg.ValidateCloud(); err != nil {
		t.Errorf("ValidateCloud() error: %v", err)
	}
}

func TestLoadFileMergesDefaults(t *testing.T) {
	t.Parallel()
	path := testutil.WriteFile(t, t.TempDir(), "layercast.yaml", `
workers:
  build: 2
signing:
  poll_interval: 250ms
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if cfg.Workers.Build != 2 {
		t.Errorf("workers.build = %d, want 2", cfg.Workers.Build)
	}
	if cfg.Workers.Policy != 100 {
		t.Errorf("workers.policy = %d, want default 100", cfg.Workers.Policy)
	}
	if cfg.Signing.PollInterval != 250*time.Millisecond {
		t.Errorf("signing.poll_interval = %v", cfg.Signing.PollInterval)
	}
}

func TestLoadFileErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	malformed := testutil.WriteFile(t, dir, "bad.yaml", "workers: [unclosed\n")
	if _, err := LoadFile(malformed); err == nil {
		t.Error("expected error for malformed YAML")
	}

	unknown := testutil.WriteFile(t, dir, "env.yaml", "environment: qa\n")
	_, err := LoadFile(unknown)
	if err == nil || !strings.Contains(err.Error(), `invalid environment "qa"`) {
		t.Errorf("expected invalid environment error, got %v", err)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Parallel()
	content := validCloudYAML() + `
regions:
  exclude: [me-south-1]
staging:
  artifacts:
    bucket_prefix: example-layers-staging-
  metadata:
    bucket: example-layer-metadata-staging
  regions:
    include: [ca-central-1, us-east-1]
`
	tests := []struct {
		environment  string
		bucketPrefix string
		bucket       string
		include      []string
		exclude      []string
	}{
		{"", "example-layers-", "example-layer-metadata", nil, []string{"me-south-1"}},
		{"production", "example-layers-", "example-layer-metadata", nil, []string{"me-south-1"}},
		{"staging", "example-layers-staging-", "example-layer-metadata-staging", []string{"ca-central-1", "us-east-1"}, nil},
	}
	for _, test := range tests {
		t.Run("env="+test.environment, func(t *testing.T) {
			t.Parallel()
			body := content
			if test.environment != "" {
				body = "environment: " + test.environment + "\n" + body
			}
			path := testutil.WriteFile(t, t.TempDir(), "layercast.yaml", body)
			cfg, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile() error: %v", err)
			}
			if cfg.Artifacts.BucketPrefix != test.bucketPrefix {
				t.Errorf("bucket prefix = %q, want %q", cfg.Artifacts.BucketPrefix, test.bucketPrefix)
			}
			if cfg.Metadata.Bucket != test.bucket {
				t.Errorf("metadata bucket = %q, want %q", cfg.Metadata.Bucket, test.bucket)
			}
			if strings.Join(cfg.Regions.Include, ",") != strings.Join(test.include, ",") {
				t.Errorf("include = %v, want %v", cfg.Regions.Include, test.include)
			}
			if strings.Join(cfg.Regions.Exclude, ",") != strings.Join(test.exclude, ",") {
				t.Errorf("exclude = %v, want %v", cfg.Regions.Exclude, test.exclude)
			}
			if cfg.Metadata.DistributionID != "E123EXAMPLE" {
				t.Errorf("distribution id = %q, want base value kept", cfg.Metadata.DistributionID)
			}
		})
	}
}

func TestVariableExpansion(t *testing.T) {
	t.Setenv("LAYERCAST_TEST_ROOT", "/srv/layers")
	t.Setenv("LAYERCAST_TEST_UNSET", "")

	path := testutil.WriteFile(t, t.TempDir(), "layercast.yaml", `
paths:
  layers: ${LAYERCAST_TEST_ROOT}/declarations
  work: ${LAYERCAST_TEST_UNSET:-/tmp/layercast}
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if cfg.Paths.Layers != "/srv/layers/declarations" {
		t.Errorf("paths.layers = %q", cfg.Paths.Layers)
	}
	if cfg.Paths.Work != "/tmp/layercast" {
		t.Errorf("paths.work = %q", cfg.Paths.Work)
	}
}

func TestValidateCloudReportsEveryField(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.Client.MaxAttempts = 0
	cfg.Invalidation.Paths = nil

	err := cfg.ValidateCloud()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{
		"artifacts.bucket_prefix",
		"metadata.bucket",
		"metadata.distribution_id",
		"signing.profile",
		"invalidation.paths",
		"client.max_attempts",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestValidateRejectsNegativeWorkers(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.Workers.Upload = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative worker count")
	}
}
