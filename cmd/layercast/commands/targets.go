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
	"github.com/bureau-foundation/layercast/lib/target"
)

type targetsParams struct {
	configParams
	selectionParams
	cli.JSONOutput
}

type targetRow struct {
	Name         string `json:"name"`
	Package      string `json:"package"`
	Version      string `json:"version"`
	Runtime      string `json:"runtime"`
	Architecture string `json:"architecture"`
	Platform     string `json:"platform"`
	Image        string `json:"image"`
	Fingerprint  string `json:"fingerprint"`
	Source       string `json:"source"`
}

func targetsCommand() *cli.Command {
	var params targetsParams
	return &cli.Command{
		Name:    "targets",
		Summary: "List the layers the declarations expand to",
		Description: `Load, validate, and expand every package declaration and list the
resulting layers with their build platform and recipe fingerprint.
Does not build anything or contact the cloud.`,
		Usage: "layercast targets [flags]",
		Examples: []cli.Example{
			{
				Description: "Show the fingerprints of the arm64 layers",
				Command:     "layercast targets --only '*_arm64' --json",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("targets", &params)
		},
		Run: func(_ context.Context, _ []string) error {
			cfg, err := params.loadConfig(false)
			if err != nil {
				return err
			}
			declarations, err := loadDeclarations(cfg, os.TempDir(), params.Only)
			if err != nil {
				return err
			}

			rows := targetRows(declarations.Targets)
			if done, err := params.EmitJSON(rows); done {
				return err
			}
			writeTargets(os.Stdout, rows)
			return nil
		},
	}
}

func targetRows(targets []*target.Target) []targetRow {
	rows := make([]targetRow, 0, len(targets))
	for _, t := range targets {
		rows = append(rows, targetRow{
			Name:         t.Name,
			Package:      t.Package,
			Version:      t.Version,
			Runtime:      t.Runtime,
			Architecture: t.Architecture,
			Platform:     t.Platform,
			Image:        t.Image,
			Fingerprint:  t.Fingerprint,
			Source:       t.Source,
		})
	}
	return rows
}

func writeTargets(w io.Writer, rows []targetRow) {
	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "LAYER\tPLATFORM\tIMAGE\tFINGERPRINT\n")
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", row.Name, row.Platform, row.Image, row.Fingerprint)
	}
	tw.Flush()
}
