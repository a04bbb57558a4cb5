// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/bureau-foundation/layercast/cmd/layercast/cli"
	"github.com/bureau-foundation/layercast/lib/build"
	"github.com/bureau-foundation/layercast/lib/catalog"
	"github.com/bureau-foundation/layercast/lib/clock"
	"github.com/bureau-foundation/layercast/lib/cloud"
	"github.com/bureau-foundation/layercast/lib/cloud/awscloud"
	"github.com/bureau-foundation/layercast/lib/config"
	"github.com/bureau-foundation/layercast/lib/deploy"
	"github.com/bureau-foundation/layercast/lib/dockercli"
	"github.com/bureau-foundation/layercast/lib/publish"
	"github.com/bureau-foundation/layercast/lib/version"
)

// configParams are the flags shared by every command that reads the
// tool configuration.
type configParams struct {
	ConfigPath string `flag:"config,c" desc:"path to layercast.yaml (default: $LAYERCAST_CONFIG)"`
	EnvFile    string `flag:"env-file" desc:"load environment variables (credentials, profile) from this file first"`
	Verbose    bool   `flag:"verbose,v" desc:"log at debug level"`
}

// selectionParams narrow a run to some Targets.
type selectionParams struct {
	Only []string `flag:"only" desc:"glob of layer names to include (repeatable)"`
}

func (p *configParams) logger(command string) *slog.Logger {
	level := slog.LevelInfo
	if p.Verbose {
		level = slog.LevelDebug
	}
	return cli.NewCommandLogger(level).With("command", command)
}

// loadConfig reads the env file and then the configuration. Without a
// config path, required=false falls back to the defaults.
func (p *configParams) loadConfig(required bool) (*config.Config, error) {
	if p.EnvFile != "" {
		if err := godotenv.Load(p.EnvFile); err != nil {
			return nil, fmt.Errorf("loading env file %s: %w", p.EnvFile, err)
		}
	}

	var cfg *config.Config
	var err error
	switch {
	case p.ConfigPath != "":
		cfg, err = config.LoadFile(p.ConfigPath)
	case os.Getenv(config.EnvironmentVariable) != "" || required:
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, err
	}

	if required {
		err = cfg.ValidateCloud()
	} else {
		err = cfg.Validate()
	}
	if err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

// loadDeclarations expands the declarations named by cfg. archiveDir
// receives built archives.
func loadDeclarations(cfg *config.Config, archiveDir string, only []string) (*deploy.Declarations, error) {
	return deploy.Load(deploy.LoadOptions{
		LayersDir:  cfg.Paths.Layers,
		SchemaPath: cfg.Paths.Schema,
		ArchiveDir: archiveDir,
		Only:       only,
	})
}

// workspace creates the scratch directory of one run. The returned
// function removes it.
func workspace(cfg *config.Config) (string, func(), error) {
	if cfg.Paths.Work != "" {
		if err := os.MkdirAll(cfg.Paths.Work, 0o755); err != nil {
			return "", nil, fmt.Errorf("creating work directory: %w", err)
		}
	}
	dir, err := os.MkdirTemp(cfg.Paths.Work, "layercast-")
	if err != nil {
		return "", nil, fmt.Errorf("creating work directory: %w", err)
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}

func newBuilder(cfg *config.Config, workDir string, logger *slog.Logger) *build.Pipeline {
	var output io.Writer
	if cfg.Workers.Build == 1 {
		output = os.Stderr
	}
	return &build.Pipeline{
		Tool:    dockercli.New(cfg.Paths.Docker, cfg.Paths.Context),
		WorkDir: workDir,
		Workers: cfg.Workers.Build,
		Output:  output,
		Logger:  logger.With("component", "build"),
	}
}

func newSession(ctx context.Context, cfg *config.Config) (*awscloud.Session, error) {
	return awscloud.NewSession(ctx, awscloud.Options{
		PrimaryRegion: cfg.PrimaryRegion,
		MaxAttempts:   cfg.Client.MaxAttempts,
		AppID:         version.UserAgent(),
	})
}

func discoverRegions(ctx context.Context, session *awscloud.Session, cfg *config.Config) (cloud.Regions, error) {
	return cloud.DiscoverRegions(ctx, session.Directory(), cfg.PrimaryRegion, cloud.RegionFilter{
		Include:  cfg.Regions.Include,
		Exclude:  cfg.Regions.Exclude,
		Unsigned: cfg.Regions.Unsigned,
	})
}

func grant(cfg *config.Config) cloud.Grant {
	return cloud.Grant{
		StatementID: cfg.Permission.StatementID,
		Action:      cfg.Permission.Action,
		Principal:   cfg.Permission.Principal,
	}
}

// newDeployer connects to the cloud and wires every stage.
func newDeployer(ctx context.Context, cfg *config.Config, workDir string, logger *slog.Logger) (*deploy.Deployer, error) {
	session, err := newSession(ctx, cfg)
	if err != nil {
		return nil, err
	}
	regions, err := discoverRegions(ctx, session, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("discovered regions", "deploy", len(regions.Deploy), "signing", len(regions.Signing))

	env, err := session.Environment(awscloud.EnvironmentOptions{
		Regions:              regions,
		ArtifactBucketPrefix: cfg.Artifacts.BucketPrefix,
	})
	if err != nil {
		return nil, err
	}

	realClock := clock.Real()
	return &deploy.Deployer{
		Env:     env,
		Builder: newBuilder(cfg, workDir, logger),
		Publisher: &publish.Pipeline{
			Env:            env,
			Clock:          realClock,
			SigningProfile: cfg.Signing.Profile,
			PollInterval:   cfg.Signing.PollInterval,
			Grant:          grant(cfg),
			LicenseInfo:    cfg.Publish.LicenseURL,
			Logger:         logger.With("component", "publish"),
		},
		Catalog: &catalog.Publisher{
			Objects:        env.Objects,
			CDN:            env.CDN,
			Clock:          realClock,
			Region:         cfg.PrimaryRegion,
			Bucket:         cfg.Metadata.Bucket,
			DistributionID: cfg.Metadata.DistributionID,
			Paths:          cfg.Invalidation.Paths,
			PollInterval:   cfg.Invalidation.PollInterval,
			Workers:        cfg.Workers.Upload,
			Logger:         logger.With("component", "catalog"),
		},
		Layout: catalog.Layout{
			RootObject: cfg.Metadata.RootObject,
			Prefix:     cfg.Metadata.Prefix,
		},
		Grant:         grant(cfg),
		PolicyWorkers: cfg.Workers.Policy,
		Logger:        logger.With("component", "deploy"),
	}, nil
}
