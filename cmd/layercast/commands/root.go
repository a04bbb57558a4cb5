// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands assembles the layercast command tree.
package commands

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/layercast/cmd/layercast/cli"
	"github.com/bureau-foundation/layercast/lib/version"
)

// Root returns the top-level "layercast" command.
func Root() *cli.Command {
	return &cli.Command{
		Name: "layercast",
		Description: `layercast builds Lambda layers from package declarations, signs them,
publishes them to every enabled region, and publishes a catalog of the
result.

Each run is a single pass: reconcile what is deployed, build what
changed, sign and publish it, then publish the catalog. Runs are
idempotent; a run after a partial failure converges.`,
		Subcommands: []*cli.Command{
			buildCommand(),
			planCommand(),
			deployCommand(),
			targetsCommand(),
			regionsCommand(),
			versionCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Check every declaration builds, without touching the cloud",
				Command:     "layercast build",
			},
			{
				Description: "Show what a deploy would change",
				Command:     "layercast plan --config layercast.yaml",
			},
			{
				Description: "Deploy the Python layers only",
				Command:     "layercast deploy --config layercast.yaml --only 'python*'",
			},
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Run: func(_ context.Context, _ []string) error {
			fmt.Println(version.Full())
			return nil
		},
	}
}
