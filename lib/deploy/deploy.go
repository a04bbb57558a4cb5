// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package deploy runs the stages of a layercast run in order: reconcile
// the Targets against every region, build what changed, sign and publish
// it, then publish the catalog. Each stage finishes before the next
// starts, and the first error ends the run, so the catalog is only ever
// published from a fully converged state.
package deploy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/layercast/lib/build"
	"github.com/bureau-foundation/layercast/lib/catalog"
	"github.com/bureau-foundation/layercast/lib/cloud"
	"github.com/bureau-foundation/layercast/lib/publish"
	"github.com/bureau-foundation/layercast/lib/reconcile"
	"github.com/bureau-foundation/layercast/lib/target"
)

// Deployer wires the stages together.
type Deployer struct {
	Env       *cloud.Environment
	Builder   *build.Pipeline
	Publisher *publish.Pipeline
	Catalog   *catalog.Publisher
	Layout    catalog.Layout

	Grant         cloud.Grant
	PolicyWorkers int

	Logger *slog.Logger
}

// Summary counts what a run did, or for a plan, what it would do.
type Summary struct {
	Targets   int `json:"targets"`
	Regions   int `json:"regions"`
	Builds    int `json:"builds"`
	Publishes int `json:"publishes"`
	Removals  int `json:"removals"`
	Grants    int `json:"grants"`
	Untracked int `json:"untracked"`
	Documents int `json:"documents"`
}

// Plan is a read-only reconciliation.
type Plan struct {
	Summary Summary
	Result  *reconcile.Result

	// Targets carry their regional state.
	Targets []*target.Target
}

// Plan reconciles without changing anything.
func (d *Deployer) Plan(ctx context.Context, declarations *Declarations) (*Plan, error) {
	result, err := d.reconcile(ctx, declarations, false)
	if err != nil {
		return nil, err
	}
	return &Plan{
		Summary: d.summarize(declarations.Targets, result),
		Result:  result,
		Targets: declarations.Targets,
	}, nil
}

// Deploy converges every region on the declarations and publishes the
// catalog. A filtered run skips the catalog, which always describes the
// full declaration set.
func (d *Deployer) Deploy(ctx context.Context, declarations *Declarations) (Summary, error) {
	result, err := d.reconcile(ctx, declarations, true)
	if err != nil {
		return Summary{}, err
	}
	summary := d.summarize(declarations.Targets, result)

	var pending []*target.Target
	for _, t := range declarations.Targets {
		if t.NeedsBuild() {
			pending = append(pending, t)
		}
	}

	if err := d.Builder.BuildAll(ctx, pending); err != nil {
		return summary, fmt.Errorf("building layers: %w", err)
	}
	if err := d.Publisher.PublishAll(ctx, pending); err != nil {
		return summary, err
	}

	if declarations.Filtered {
		d.Logger.Warn("skipping catalog publish for a filtered run")
		return summary, nil
	}

	built, err := catalog.Build(declarations.Targets, d.Env.Regions)
	if err != nil {
		return summary, err
	}
	documents, err := built.Documents(d.Layout)
	if err != nil {
		return summary, err
	}
	if err := d.Catalog.Publish(ctx, documents); err != nil {
		return summary, fmt.Errorf("publishing catalog: %w", err)
	}
	summary.Documents = len(documents)

	d.Logger.Info("deploy complete",
		"builds", summary.Builds,
		"publishes", summary.Publishes,
		"grants", summary.Grants,
		"removals", summary.Removals,
		"documents", summary.Documents,
	)
	return summary, nil
}

func (d *Deployer) reconcile(ctx context.Context, declarations *Declarations, deploy bool) (*reconcile.Result, error) {
	result, err := reconcile.Reconcile(ctx, d.Env, declarations.Targets, reconcile.Options{
		Grant:         d.Grant,
		Deploy:        deploy,
		PolicyWorkers: d.PolicyWorkers,
		Declared:      declarations.Declared,
		Logger:        d.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("reconciling deployed layers: %w", err)
	}
	return result, nil
}

func (d *Deployer) summarize(targets []*target.Target, result *reconcile.Result) Summary {
	summary := Summary{
		Targets:   len(targets),
		Regions:   len(d.Env.Regions),
		Removals:  len(result.Removals),
		Grants:    len(result.Grants),
		Untracked: len(result.Untracked),
	}
	for _, t := range targets {
		if pending := len(t.PendingRegions()); pending > 0 {
			summary.Builds++
			summary.Publishes += pending
		}
	}
	return summary
}
