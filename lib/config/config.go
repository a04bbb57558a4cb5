// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the variable Load reads the config path from.
const EnvironmentVariable = "LAYERCAST_CONFIG"

// Environment selects an override section.
type Environment string

const (
	Staging    Environment = "staging"
	Production Environment = "production"
)

// Config is the complete tool configuration.
type Config struct {
	// Environment selects the override section applied after loading.
	// Empty applies none.
	Environment Environment `yaml:"environment"`

	// PrimaryRegion hosts the unsigned upload, the signing job, and the
	// metadata bucket.
	PrimaryRegion string `yaml:"primary_region"`

	Regions      RegionsConfig      `yaml:"regions"`
	Artifacts    ArtifactsConfig    `yaml:"artifacts"`
	Metadata     MetadataConfig     `yaml:"metadata"`
	Signing      SigningConfig      `yaml:"signing"`
	Publish      PublishConfig      `yaml:"publish"`
	Permission   PermissionConfig   `yaml:"permission"`
	Invalidation InvalidationConfig `yaml:"invalidation"`
	Workers      WorkersConfig      `yaml:"workers"`
	Paths        PathsConfig        `yaml:"paths"`
	Client       ClientConfig       `yaml:"client"`

	Staging    *Overrides `yaml:"staging,omitempty"`
	Production *Overrides `yaml:"production,omitempty"`
}

// Overrides holds the fields an environment section may replace.
type Overrides struct {
	PrimaryRegion string           `yaml:"primary_region,omitempty"`
	Regions       *RegionsConfig   `yaml:"regions,omitempty"`
	Artifacts     *ArtifactsConfig `yaml:"artifacts,omitempty"`
	Metadata      *MetadataConfig  `yaml:"metadata,omitempty"`
	Signing       *SigningConfig   `yaml:"signing,omitempty"`
}

// RegionsConfig filters the regions discovered from the account.
type RegionsConfig struct {
	// Include, when non-empty, keeps only these regions.
	Include []string `yaml:"include,omitempty"`

	// Exclude drops these regions.
	Exclude []string `yaml:"exclude,omitempty"`

	// Unsigned publishes unsigned layers in these regions even where the
	// signer is available.
	Unsigned []string `yaml:"unsigned,omitempty"`
}

// ArtifactsConfig names the per-region artifact buckets.
type ArtifactsConfig struct {
	// BucketPrefix is prepended to the region code, e.g.
	// "example-layers-" gives "example-layers-us-east-1".
	BucketPrefix string `yaml:"bucket_prefix"`
}

// MetadataConfig locates the published catalog.
type MetadataConfig struct {
	Bucket string `yaml:"bucket"`

	// RootObject is the key of the full catalog document.
	// Default: layers.json
	RootObject string `yaml:"root_object"`

	// Prefix is the key prefix of the per-node documents.
	// Default: packages
	Prefix string `yaml:"prefix"`

	// DistributionID is the CDN distribution in front of Bucket.
	DistributionID string `yaml:"distribution_id"`
}

// SigningConfig configures the code signing job.
type SigningConfig struct {
	Profile string `yaml:"profile"`

	// PollInterval is how often job status is checked.
	// Default: 1s
	PollInterval time.Duration `yaml:"poll_interval"`
}

// PublishConfig configures published layer versions.
type PublishConfig struct {
	LicenseURL string `yaml:"license_url"`
}

// PermissionConfig is the public-access grant every version carries.
type PermissionConfig struct {
	StatementID string `yaml:"statement_id"`
	Action      string `yaml:"action"`
	Principal   string `yaml:"principal"`
}

// InvalidationConfig configures the catalog cache invalidation.
type InvalidationConfig struct {
	// Default: 2s
	PollInterval time.Duration `yaml:"poll_interval"`

	// Default: ["/*"]
	Paths []string `yaml:"paths"`
}

// WorkersConfig bounds concurrency per stage. Zero means one worker per
// job.
type WorkersConfig struct {
	// Build bounds concurrent Target builds. Default: 4
	Build int `yaml:"build"`

	// Policy bounds concurrent policy inspections and fixes.
	// Default: 100
	Policy int `yaml:"policy"`

	// Upload bounds concurrent catalog document uploads. Default: 100
	Upload int `yaml:"upload"`
}

// PathsConfig locates local inputs and scratch space.
type PathsConfig struct {
	// Layers is the directory of package declarations.
	// Default: layers
	Layers string `yaml:"layers"`

	// Schema replaces the built-in declaration schema when set.
	Schema string `yaml:"schema"`

	// Context is the docker build context directory. Default: .
	Context string `yaml:"context"`

	// Work is the scratch root for recipes and archives. Default: the OS
	// temporary directory.
	Work string `yaml:"work"`

	// Docker is the docker executable. Default: docker
	Docker string `yaml:"docker"`
}

// ClientConfig configures the cloud API clients.
type ClientConfig struct {
	// MaxAttempts bounds retries of transient API failures. Default: 10
	MaxAttempts int `yaml:"max_attempts"`
}

// Default returns the configuration used when no file is given and the
// base every file is merged onto.
func Default() *Config {
	return &Config{
		PrimaryRegion: "us-east-1",
		Metadata: MetadataConfig{
			RootObject: "layers.json",
			Prefix:     "packages",
		},
		Signing: SigningConfig{
			PollInterval: time.Second,
		},
		Permission: PermissionConfig{
			StatementID: "public-access",
			Action:      "lambda:GetLayerVersion",
			Principal:   "*",
		},
		Invalidation: InvalidationConfig{
			PollInterval: 2 * time.Second,
			Paths:        []string{"/*"},
		},
		Workers: WorkersConfig{
			Build:  4,
			Policy: 100,
			Upload: 100,
		},
		Paths: PathsConfig{
			Layers:  "layers",
			Context: ".",
			Docker:  "docker",
		},
		Client: ClientConfig{
			MaxAttempts: 10,
		},
	}
}

// Load loads the file named by LAYERCAST_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your layercast.yaml, or use --config", EnvironmentVariable)
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path, merged onto Default().
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.applyEnvironmentOverrides(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() error {
	var overrides *Overrides
	switch c.Environment {
	case "":
		return nil
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	default:
		return fmt.Errorf("invalid environment %q (want %q or %q)", c.Environment, Staging, Production)
	}
	if overrides == nil {
		return nil
	}

	if overrides.PrimaryRegion != "" {
		c.PrimaryRegion = overrides.PrimaryRegion
	}
	if overrides.Regions != nil {
		c.Regions = *overrides.Regions
	}
	if overrides.Artifacts != nil && overrides.Artifacts.BucketPrefix != "" {
		c.Artifacts.BucketPrefix = overrides.Artifacts.BucketPrefix
	}
	if overrides.Metadata != nil {
		if overrides.Metadata.Bucket != "" {
			c.Metadata.Bucket = overrides.Metadata.Bucket
		}
		if overrides.Metadata.RootObject != "" {
			c.Metadata.RootObject = overrides.Metadata.RootObject
		}
		if overrides.Metadata.Prefix != "" {
			c.Metadata.Prefix = overrides.Metadata.Prefix
		}
		if overrides.Metadata.DistributionID != "" {
			c.Metadata.DistributionID = overrides.Metadata.DistributionID
		}
	}
	if overrides.Signing != nil {
		if overrides.Signing.Profile != "" {
			c.Signing.Profile = overrides.Signing.Profile
		}
		if overrides.Signing.PollInterval != 0 {
			c.Signing.PollInterval = overrides.Signing.PollInterval
		}
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} in path fields.
func (c *Config) expandVariables() {
	c.Paths.Layers = expandVars(c.Paths.Layers)
	c.Paths.Schema = expandVars(c.Paths.Schema)
	c.Paths.Context = expandVars(c.Paths.Context)
	c.Paths.Work = expandVars(c.Paths.Work)
	c.Paths.Docker = expandVars(c.Paths.Docker)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate checks the fields every command uses.
func (c *Config) Validate() error {
	var errs []error
	if c.Paths.Layers == "" {
		errs = append(errs, errors.New("paths.layers is required"))
	}
	if c.Workers.Build < 0 || c.Workers.Policy < 0 || c.Workers.Upload < 0 {
		errs = append(errs, errors.New("workers counts must not be negative"))
	}
	return errors.Join(errs...)
}

// ValidateCloud checks the fields needed to reconcile and publish.
func (c *Config) ValidateCloud() error {
	errs := []error{c.Validate()}
	required := []struct {
		name  string
		value string
	}{
		{"primary_region", c.PrimaryRegion},
		{"artifacts.bucket_prefix", c.Artifacts.BucketPrefix},
		{"metadata.bucket", c.Metadata.Bucket},
		{"metadata.root_object", c.Metadata.RootObject},
		{"metadata.distribution_id", c.Metadata.DistributionID},
		{"signing.profile", c.Signing.Profile},
		{"permission.statement_id", c.Permission.StatementID},
		{"permission.action", c.Permission.Action},
		{"permission.principal", c.Permission.Principal},
	}
	for _, field := range required {
		if field.value == "" {
			errs = append(errs, fmt.Errorf("%s is required", field.name))
		}
	}
	if c.Signing.PollInterval <= 0 {
		errs = append(errs, errors.New("signing.poll_interval must be positive"))
	}
	if c.Invalidation.PollInterval <= 0 {
		errs = append(errs, errors.New("invalidation.poll_interval must be positive"))
	}
	if len(c.Invalidation.Paths) == 0 {
		errs = append(errs, errors.New("invalidation.paths must not be empty"))
	}
	if c.Client.MaxAttempts < 1 {
		errs = append(errs, errors.New("client.max_attempts must be at least 1"))
	}
	return errors.Join(errs...)
}
