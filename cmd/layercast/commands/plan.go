// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/layercast/cmd/layercast/cli"
	"github.com/bureau-foundation/layercast/lib/deploy"
	"github.com/bureau-foundation/layercast/lib/reconcile"
)

// pendingExitCode is returned by "plan --exit-code" when a deploy would
// change something.
const pendingExitCode = 2

type planParams struct {
	configParams
	selectionParams
	cli.JSONOutput
	ExitCode bool `flag:"exit-code" desc:"exit 2 when a deploy would change anything"`
}

// planTarget is one Target's row in the plan output.
type planTarget struct {
	Name        string            `json:"name"`
	Fingerprint string            `json:"fingerprint"`
	Regions     map[string]string `json:"regions"`
	Pending     []string          `json:"pending,omitempty"`
}

type planOutput struct {
	Summary           deploy.Summary        `json:"summary"`
	Targets           []planTarget          `json:"targets"`
	Removals          []reconcile.PolicyFix `json:"removals,omitempty"`
	Grants            []reconcile.PolicyFix `json:"grants,omitempty"`
	Unsigned          []reconcile.LayerRef  `json:"unsigned,omitempty"`
	MalformedPolicies []reconcile.LayerRef  `json:"malformed_policies,omitempty"`
	Untracked         []reconcile.LayerRef  `json:"untracked,omitempty"`
}

func planCommand() *cli.Command {
	var params planParams
	return &cli.Command{
		Name:    "plan",
		Summary: "Show what a deploy would change",
		Description: `Reconcile the declarations against every enabled region without
changing anything. Lists the layers a deploy would build and the
regions it would publish to, the policy statements it would remove,
and the grants it would add.`,
		Usage: "layercast plan [flags]",
		Examples: []cli.Example{
			{
				Description: "Fail a CI job when the deployment has drifted",
				Command:     "layercast plan --config layercast.yaml --exit-code",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("plan", &params)
		},
		Run: func(ctx context.Context, _ []string) error {
			logger := params.logger("plan")
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

			plan, err := deployer.Plan(ctx, declarations)
			if err != nil {
				return err
			}

			output := newPlanOutput(plan)
			if done, err := params.EmitJSON(output); done {
				if err != nil {
					return err
				}
			} else {
				writePlan(os.Stdout, output)
			}

			if params.ExitCode && hasChanges(plan.Summary) {
				return &cli.ExitError{Code: pendingExitCode}
			}
			return nil
		},
	}
}

func newPlanOutput(plan *deploy.Plan) planOutput {
	output := planOutput{
		Summary:           plan.Summary,
		Targets:           make([]planTarget, 0, len(plan.Targets)),
		Removals:          plan.Result.Removals,
		Grants:            plan.Result.Grants,
		Unsigned:          plan.Result.Unsigned,
		MalformedPolicies: plan.Result.MalformedPolicies,
		Untracked:         plan.Result.Untracked,
	}
	for _, t := range plan.Targets {
		row := planTarget{
			Name:        t.Name,
			Fingerprint: t.Fingerprint,
			Regions:     make(map[string]string),
			Pending:     t.PendingRegions(),
		}
		for _, region := range t.Regions() {
			regional, _ := t.Regional(region)
			row.Regions[region] = regional.State.String()
		}
		output.Targets = append(output.Targets, row)
	}
	return output
}

func hasChanges(summary deploy.Summary) bool {
	return summary.Builds > 0 || summary.Removals > 0 || summary.Grants > 0
}

func writePlan(w io.Writer, output planOutput) {
	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "LAYER\tPENDING REGIONS\n")
	for _, row := range output.Targets {
		pending := "-"
		if len(row.Pending) > 0 {
			pending = strings.Join(row.Pending, ",")
		}
		fmt.Fprintf(tw, "%s\t%s\n", row.Name, pending)
	}
	tw.Flush()

	for _, fix := range output.Removals {
		fmt.Fprintf(w, "remove statement %s from %s:%d in %s\n", fix.StatementID, fix.LayerName, fix.Version, fix.Region)
	}
	for _, fix := range output.Grants {
		fmt.Fprintf(w, "grant %s on %s:%d in %s\n", fix.StatementID, fix.LayerName, fix.Version, fix.Region)
	}
	for _, ref := range output.Untracked {
		fmt.Fprintf(w, "untracked %s:%d in %s\n", ref.LayerName, ref.Version, ref.Region)
	}

	summary := output.Summary
	fmt.Fprintf(w, "\n%d of %d layers to build, %d regional publishes, %d statements to remove, %d grants to add\n",
		summary.Builds, summary.Targets, summary.Publishes, summary.Removals, summary.Grants)
}
