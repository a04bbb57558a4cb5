// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package reconcile compares Targets with the layers deployed in every
// region and records each (Target, region) pair's state on the Target.
//
// A region's latest version of a layer is Matching only when its
// description parses as the Target's current descriptor and, in regions
// that sign layers, it carries a signing job. Anything else is Stale and
// gets republished. Matching versions also have their resource policy
// inspected: statements other than the public grant are scheduled for
// removal and versions without the grant are scheduled for one. Fixes
// are applied only when [Options].Deploy is set.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/bureau-foundation/layercast/lib/batch"
	"github.com/bureau-foundation/layercast/lib/cloud"
	"github.com/bureau-foundation/layercast/lib/target"
)

// Options controls a reconciliation.
type Options struct {
	// Grant is the public-access statement every matching version must
	// carry.
	Grant cloud.Grant

	// Deploy applies the policy fixes. Without it reconciliation only
	// reads.
	Deploy bool

	// PolicyWorkers bounds concurrent policy inspections and fixes.
	PolicyWorkers int

	// Declared is every layer name in the declarations, used to report
	// untracked layers when the Targets are a filtered subset. Nil uses
	// the Targets' names.
	Declared map[string]bool

	Logger *slog.Logger
}

// PolicyFix is one permission change on a layer version.
type PolicyFix struct {
	Region      string
	LayerName   string
	Version     int64
	StatementID string
}

// LayerRef names a layer in a region.
type LayerRef struct {
	Region    string
	LayerName string
	Version   int64
}

// Result summarizes a reconciliation. Per-region states are recorded on
// the Targets themselves.
type Result struct {
	// Removals are non-grant statements on matching versions.
	Removals []PolicyFix

	// Grants are matching versions missing the public grant.
	Grants []PolicyFix

	// Unsigned are versions whose descriptor matched but which were
	// demoted to Stale because they lack a signature in a signing region.
	Unsigned []LayerRef

	// MalformedPolicies are versions demoted to Stale because their
	// policy document could not be parsed.
	MalformedPolicies []LayerRef

	// Untracked are deployed layers no declaration produces.
	Untracked []LayerRef
}

// check is one matching (Target, region) pair awaiting policy
// inspection.
type check struct {
	target  *target.Target
	region  string
	summary cloud.LayerSummary
}

// checkOutcome is written by exactly one inspection job.
type checkOutcome struct {
	removals  []PolicyFix
	grant     *PolicyFix
	unsigned  bool
	malformed bool
}

// Reconcile lists every region's layers, classifies each Target in each
// region of env, inspects the policies of matching versions, and, in
// deploy mode, removes stray statements and then adds missing grants.
func Reconcile(ctx context.Context, env *cloud.Environment, targets []*target.Target, options Options) (*Result, error) {
	logger := options.Logger

	deployed, err := listAll(ctx, env)
	if err != nil {
		return nil, err
	}

	var checks []check
	for _, t := range targets {
		descriptor := t.Descriptor()
		for _, region := range env.Regions {
			summary, ok := deployed[region][t.Name]
			if !ok {
				t.SetRegional(region, target.Regional{State: target.Absent})
				continue
			}
			existing, err := target.ParseDescriptor(summary.Latest.Description)
			if err != nil || existing != descriptor {
				logger.Debug("deployed layer is stale",
					"layer", t.Name, "region", region, "version", summary.Latest.Version, "reason", staleReason(err))
				latest := summary.Latest
				t.SetRegional(region, target.Regional{State: target.Stale, Version: &latest})
				continue
			}
			checks = append(checks, check{target: t, region: region, summary: summary})
		}
	}

	outcomes := make([]checkOutcome, len(checks))
	indexes := make([]int, len(checks))
	for i := range indexes {
		indexes[i] = i
	}
	err = batch.ForEach(ctx, options.PolicyWorkers, indexes, func(ctx context.Context, i int) error {
		outcome, err := inspect(ctx, env, checks[i], options.Grant)
		if err != nil {
			return err
		}
		outcomes[i] = outcome
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("inspecting layer policies: %w", err)
	}

	result := &Result{}
	for i, outcome := range outcomes {
		ref := LayerRef{Region: checks[i].region, LayerName: checks[i].target.Name, Version: checks[i].summary.Latest.Version}
		switch {
		case outcome.unsigned:
			result.Unsigned = append(result.Unsigned, ref)
		case outcome.malformed:
			result.MalformedPolicies = append(result.MalformedPolicies, ref)
		default:
			result.Removals = append(result.Removals, outcome.removals...)
			if outcome.grant != nil {
				result.Grants = append(result.Grants, *outcome.grant)
			}
		}
	}

	result.Untracked = untracked(env, deployed, targets, options.Declared)
	for _, ref := range result.Untracked {
		logger.Warn("untracked layer", "layer", ref.LayerName, "region", ref.Region, "version", ref.Version)
	}

	logger.Info("reconciled deployed layers",
		"targets", len(targets),
		"regions", len(env.Regions),
		"matching", len(checks)-len(result.Unsigned)-len(result.MalformedPolicies),
		"unsigned", len(result.Unsigned),
		"removals", len(result.Removals),
		"grants", len(result.Grants),
		"untracked", len(result.Untracked),
	)

	if !options.Deploy {
		return result, nil
	}
	if err := Apply(ctx, env, result, options); err != nil {
		return nil, err
	}
	return result, nil
}

// Apply removes the scheduled statements, then adds the scheduled
// grants. Each step is one batch; the first failure aborts it.
func Apply(ctx context.Context, env *cloud.Environment, result *Result, options Options) error {
	err := batch.ForEach(ctx, options.PolicyWorkers, result.Removals, func(ctx context.Context, fix PolicyFix) error {
		service, err := env.LayerService(fix.Region)
		if err != nil {
			return err
		}
		options.Logger.Info("removing layer permission",
			"layer", fix.LayerName, "region", fix.Region, "version", fix.Version, "statement", fix.StatementID)
		if err := service.RemovePermission(ctx, fix.LayerName, fix.Version, fix.StatementID); err != nil {
			return fmt.Errorf("removing statement %s from %s:%d in %s: %w",
				fix.StatementID, fix.LayerName, fix.Version, fix.Region, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	return batch.ForEach(ctx, options.PolicyWorkers, result.Grants, func(ctx context.Context, fix PolicyFix) error {
		service, err := env.LayerService(fix.Region)
		if err != nil {
			return err
		}
		options.Logger.Info("granting public access",
			"layer", fix.LayerName, "region", fix.Region, "version", fix.Version)
		if err := service.AddPermission(ctx, fix.LayerName, fix.Version, options.Grant); err != nil {
			return fmt.Errorf("granting public access to %s:%d in %s: %w", fix.LayerName, fix.Version, fix.Region, err)
		}
		return nil
	})
}

func listAll(ctx context.Context, env *cloud.Environment) (map[string]map[string]cloud.LayerSummary, error) {
	listings := make([][]cloud.LayerSummary, len(env.Regions))
	indexes := make([]int, len(env.Regions))
	for i := range indexes {
		indexes[i] = i
	}
	err := batch.ForEach(ctx, batch.Unbounded, indexes, func(ctx context.Context, i int) error {
		service, err := env.LayerService(env.Regions[i])
		if err != nil {
			return err
		}
		summaries, err := service.ListLayers(ctx)
		if err != nil {
			return fmt.Errorf("listing layers in %s: %w", env.Regions[i], err)
		}
		listings[i] = summaries
		return nil
	})
	if err != nil {
		return nil, err
	}

	deployed := make(map[string]map[string]cloud.LayerSummary, len(env.Regions))
	for i, region := range env.Regions {
		byName := make(map[string]cloud.LayerSummary, len(listings[i]))
		for _, summary := range listings[i] {
			byName[summary.Name] = summary
		}
		deployed[region] = byName
	}
	return deployed, nil
}

// inspect fetches one matching version's full record and policy and
// records its regional state on the Target.
func inspect(ctx context.Context, env *cloud.Environment, c check, grant cloud.Grant) (checkOutcome, error) {
	service, err := env.LayerService(c.region)
	if err != nil {
		return checkOutcome{}, err
	}
	name, number := c.target.Name, c.summary.Latest.Version

	version, err := service.GetLayerVersion(ctx, name, number)
	if err != nil {
		return checkOutcome{}, fmt.Errorf("getting %s:%d in %s: %w", name, number, c.region, err)
	}
	if version.SigningJobARN == "" && env.SigningCapable(c.region) {
		c.target.SetRegional(c.region, target.Regional{State: target.Stale, Version: &version})
		return checkOutcome{unsigned: true}, nil
	}

	raw, err := service.GetLayerVersionPolicy(ctx, name, number)
	if err != nil && !errors.Is(err, cloud.ErrNotFound) {
		return checkOutcome{}, fmt.Errorf("getting policy of %s:%d in %s: %w", name, number, c.region, err)
	}
	var statements []cloud.Statement
	if raw != "" {
		policy, err := cloud.ParsePolicy(raw)
		if err != nil {
			c.target.SetRegional(c.region, target.Regional{State: target.Stale, Version: &version})
			return checkOutcome{malformed: true}, nil
		}
		statements = policy.Statement
	}

	var outcome checkOutcome
	granted := false
	for _, statement := range statements {
		if grant.Matches(statement) {
			granted = true
			continue
		}
		outcome.removals = append(outcome.removals, PolicyFix{
			Region: c.region, LayerName: name, Version: number, StatementID: statement.Sid,
		})
	}
	if !granted {
		outcome.grant = &PolicyFix{Region: c.region, LayerName: name, Version: number, StatementID: grant.StatementID}
	}
	c.target.SetRegional(c.region, target.Regional{State: target.Matching, Version: &version})
	return outcome, nil
}

func untracked(env *cloud.Environment, deployed map[string]map[string]cloud.LayerSummary, targets []*target.Target, declared map[string]bool) []LayerRef {
	if declared == nil {
		declared = make(map[string]bool, len(targets))
		for _, t := range targets {
			declared[t.Name] = true
		}
	}
	var refs []LayerRef
	for _, region := range env.Regions {
		for name, summary := range deployed[region] {
			if !declared[name] {
				refs = append(refs, LayerRef{Region: region, LayerName: name, Version: summary.Latest.Version})
			}
		}
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Region != refs[j].Region {
			return refs[i].Region < refs[j].Region
		}
		return refs[i].LayerName < refs[j].LayerName
	})
	return refs
}

func staleReason(err error) string {
	if err != nil {
		return err.Error()
	}
	return "descriptor differs"
}
