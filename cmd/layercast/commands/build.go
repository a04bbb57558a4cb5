// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/layercast/cmd/layercast/cli"
)

type buildParams struct {
	configParams
	selectionParams
	Output string `flag:"output,o" desc:"keep built archives in this directory (default: discarded)"`
}

func buildCommand() *cli.Command {
	var params buildParams
	return &cli.Command{
		Name:    "build",
		Summary: "Expand declarations and build every layer locally",
		Description: `Expand every package declaration and build each layer archive with
docker, without contacting the cloud. The run fails on the first
invalid declaration or failed build.

Archives are discarded unless --output is given. A configuration file
is optional; without one the defaults apply.`,
		Usage: "layercast build [flags]",
		Examples: []cli.Example{
			{
				Description: "Build everything and keep the archives",
				Command:     "layercast build --output dist",
			},
			{
				Description: "Build one package's layers, streaming docker output",
				Command:     "layercast build --only 'nodejs_*'",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("build", &params)
		},
		Run: func(ctx context.Context, _ []string) error {
			logger := params.logger("build")
			cfg, err := params.loadConfig(false)
			if err != nil {
				return err
			}

			workDir, cleanup, err := workspace(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			archiveDir := params.Output
			if archiveDir == "" {
				archiveDir = filepath.Join(workDir, "archives")
			}
			declarations, err := loadDeclarations(cfg, archiveDir, params.Only)
			if err != nil {
				return err
			}

			if err := newBuilder(cfg, workDir, logger).BuildAll(ctx, declarations.Targets); err != nil {
				return err
			}
			logger.Info("build complete", "layers", len(declarations.Targets))
			if params.Output != "" {
				logger.Info("archives kept", "directory", params.Output)
			}
			return nil
		},
	}
}
