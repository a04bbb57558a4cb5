// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/layercast/cmd/layercast/cli"
	"github.com/bureau-foundation/layercast/lib/cloud"
)

type regionsParams struct {
	configParams
	cli.JSONOutput
}

type regionRow struct {
	Region  string `json:"region"`
	Signing bool   `json:"signing"`
	Primary bool   `json:"primary"`
}

func regionsCommand() *cli.Command {
	var params regionsParams
	return &cli.Command{
		Name:    "regions",
		Summary: "List the deployment regions and which of them sign layers",
		Description: `Discover the regions enabled for the account, apply the configured
include and exclude filters, and report which regions publish signed
layers.`,
		Usage: "layercast regions [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("regions", &params)
		},
		Run: func(ctx context.Context, _ []string) error {
			cfg, err := params.loadConfig(true)
			if err != nil {
				return err
			}
			session, err := newSession(ctx, cfg)
			if err != nil {
				return err
			}
			regions, err := discoverRegions(ctx, session, cfg)
			if err != nil {
				return err
			}

			rows := regionRows(regions, cfg.PrimaryRegion)
			if done, err := params.EmitJSON(rows); done {
				return err
			}
			writeRegions(os.Stdout, rows)
			return nil
		},
	}
}

func regionRows(regions cloud.Regions, primary string) []regionRow {
	rows := make([]regionRow, 0, len(regions.Deploy))
	for _, region := range regions.Deploy {
		rows = append(rows, regionRow{
			Region:  region,
			Signing: regions.Signing[region],
			Primary: region == primary,
		})
	}
	return rows
}

func writeRegions(w io.Writer, rows []regionRow) {
	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "REGION\tSIGNING\n")
	for _, row := range rows {
		name := row.Region
		if row.Primary {
			name += " (primary)"
		}
		signing := "no"
		if row.Signing {
			signing = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\n", name, signing)
	}
	tw.Flush()
}
