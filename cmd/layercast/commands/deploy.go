// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/layercast/cmd/layercast/cli"
)

type deployParams struct {
	configParams
	selectionParams
	cli.JSONOutput
}

func deployCommand() *cli.Command {
	var params deployParams
	return &cli.Command{
		Name:    "deploy",
		Summary: "Build, sign, and publish layers to every region",
		Description: `Converge every enabled region on the declarations:

  1. Reconcile deployed layers, fixing public-access policies.
  2. Build each layer whose recipe changed in any region.
  3. Sign each built archive once and publish it to the regions that
     need it.
  4. Publish the layer catalog and invalidate the CDN.

The first failure aborts the run and the catalog is left unchanged.
With --only, the catalog is not published, since it describes the
whole declaration set.`,
		Usage: "layercast deploy [flags]",
		Examples: []cli.Example{
			{
				Description: "Deploy with credentials from a file",
				Command:     "layercast deploy --config layercast.yaml --env-file .env",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("deploy", &params)
		},
		Run: func(ctx context.Context, _ []string) error {
			logger := params.logger("deploy")
			cfg, err := params.loadConfig(true)
			if err != nil {
				return err
			}

			workDir, cleanup, err := workspace(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			declarations, err := loadDeclarations(cfg, workDir, params.Only)
			if err != nil {
				return err
			}
			deployer, err := newDeployer(ctx, cfg, workDir, logger)
			if err != nil {
				return err
			}

			summary, err := deployer.Deploy(ctx, declarations)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(summary); done {
				return err
			}
			return nil
		},
	}
}
