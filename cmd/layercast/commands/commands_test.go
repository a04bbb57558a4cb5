// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/bureau-foundation/layercast/lib/cloud"
	"github.com/bureau-foundation/layercast/lib/config"
	"github.com/bureau-foundation/layercast/lib/deploy"
	"github.com/bureau-foundation/layercast/lib/reconcile"
	"github.com/bureau-foundation/layercast/lib/target"
	"github.com/bureau-foundation/layercast/lib/testutil"
)

const declaration = `{
	// JSONC comments are allowed.
	"default_image": "public.ecr.aws/lambda/nodejs:20",
	"default_layer_source_directory": "/opt/nodejs",
	"default_layer_target_directory": "/nodejs",
	"runtimes": {
		"nodejs20.x": {
			"versions": {
				"3.1.0": {
					"architectures": {
						"x86_64": {"instructions": ["RUN npm install --prefix /opt/nodejs sharp@3.1.0"]},
						"arm64": {"instructions": ["RUN npm install --prefix /opt/nodejs sharp@3.1.0"]}
					}
				}
			}
		}
	}
}`

func TestRootTree(t *testing.T) {
	t.Parallel()

	root := Root()
	var names []string
	for _, command := range root.Subcommands {
		if command.Summary == "" {
			t.Errorf("command %q has no summary", command.Name)
		}
		if command.Run == nil {
			t.Errorf("command %q has no Run", command.Name)
		}
		names = append(names, command.Name)
	}
	for _, want := range []string{"build", "plan", "deploy", "targets", "regions", "version"} {
		if !slices.Contains(names, want) {
			t.Errorf("root is missing %q", want)
		}
	}

	var help bytes.Buffer
	root.PrintHelp(&help)
	if !strings.Contains(help.String(), "layercast deploy --config layercast.yaml --only 'python*'") {
		t.Errorf("root help is missing examples:\n%s", help.String())
	}
}

func TestUnknownCommandSuggests(t *testing.T) {
	t.Parallel()

	err := Root().Execute(context.Background(), []string{"deplyo"})
	if err == nil || !strings.Contains(err.Error(), `did you mean "deploy"`) {
		t.Errorf("Execute(deplyo) error = %v", err)
	}
}

func TestTargetRows(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteFile(t, dir, "layers/sharp.json", declaration)
	cfg := config.Default()
	cfg.Paths.Layers = filepath.Join(dir, "layers")

	declarations, err := loadDeclarations(cfg, filepath.Join(dir, "archives"), nil)
	if err != nil {
		t.Fatalf("loadDeclarations: %v", err)
	}
	rows := targetRows(declarations.Targets)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Name != "sharp_3-1-0_nodejs20-x_arm64" || rows[0].Platform != "linux/arm64" {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	if rows[1].Name != "sharp_3-1-0_nodejs20-x_x86_64" || rows[1].Platform != "linux/amd64" {
		t.Errorf("rows[1] = %+v", rows[1])
	}
	if !strings.HasPrefix(rows[0].Fingerprint, "blake3:") {
		t.Errorf("fingerprint = %q", rows[0].Fingerprint)
	}

	var output bytes.Buffer
	writeTargets(&output, rows)
	for _, want := range []string{"LAYER", "sharp_3-1-0_nodejs20-x_arm64", "public.ecr.aws/lambda/nodejs:20"} {
		if !strings.Contains(output.String(), want) {
			t.Errorf("targets output missing %q:\n%s", want, output.String())
		}
	}
}

func TestTargetsOnlyFilter(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteFile(t, dir, "layers/sharp.json", declaration)
	cfg := config.Default()
	cfg.Paths.Layers = filepath.Join(dir, "layers")

	declarations, err := loadDeclarations(cfg, dir, []string{"*_x86_64"})
	if err != nil {
		t.Fatalf("loadDeclarations: %v", err)
	}
	if len(declarations.Targets) != 1 || !declarations.Filtered {
		t.Errorf("got %d targets (filtered=%v), want 1 filtered", len(declarations.Targets), declarations.Filtered)
	}

	if _, err := loadDeclarations(cfg, dir, []string{"ruby*"}); err == nil {
		t.Error("a pattern matching nothing was accepted")
	}
}

func TestTargetsCommand(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteFile(t, dir, "layers/sharp.json", declaration)
	configPath := testutil.WriteFile(t, dir, "layercast.yaml", "paths:\n  layers: "+filepath.Join(dir, "layers")+"\n")

	if err := Root().Execute(context.Background(), []string{"targets", "--config", configPath, "--json"}); err != nil {
		t.Errorf("targets: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")

	params := configParams{}
	cfg, err := params.loadConfig(false)
	if err != nil {
		t.Fatalf("loadConfig(optional): %v", err)
	}
	if cfg.PrimaryRegion != "us-east-1" {
		t.Errorf("PrimaryRegion = %q, want the default", cfg.PrimaryRegion)
	}

	if _, err := params.loadConfig(true); err == nil {
		t.Error("loadConfig(required) succeeded without a config file")
	}

	dir := t.TempDir()
	params.ConfigPath = testutil.WriteFile(t, dir, "layercast.yaml", "primary_region: eu-west-1\n")
	_, err = params.loadConfig(true)
	if err == nil || !strings.Contains(err.Error(), "artifacts.bucket_prefix is required") {
		t.Errorf("loadConfig(required) error = %v, want missing bucket prefix", err)
	}
}

func TestLoadConfigEnvFile(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")
	t.Setenv("LAYERCAST_TEST_LAYERS", "")
	os.Unsetenv("LAYERCAST_TEST_LAYERS")

	dir := t.TempDir()
	envFile := testutil.WriteFile(t, dir, ".env", "LAYERCAST_TEST_LAYERS="+filepath.Join(dir, "declarations")+"\n")
	configPath := testutil.WriteFile(t, dir, "layercast.yaml", "paths:\n  layers: ${LAYERCAST_TEST_LAYERS:-layers}\n")

	params := configParams{ConfigPath: configPath, EnvFile: envFile}
	cfg, err := params.loadConfig(false)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if want := filepath.Join(dir, "declarations"); cfg.Paths.Layers != want {
		t.Errorf("paths.layers = %q, want %q", cfg.Paths.Layers, want)
	}
}

func TestPlanOutput(t *testing.T) {
	t.Parallel()

	pending := &target.Target{
		Identity:    target.Identity{Package: "sharp", Version: "3.1.0", Runtime: "nodejs20.x", Architecture: "arm64"},
		Name:        "sharp_3-1-0_nodejs20-x_arm64",
		Fingerprint: "blake3:aa",
	}
	pending.SetRegional("us-east-1", target.Regional{State: target.Stale})
	pending.SetRegional("eu-west-1", target.Regional{State: target.Matching, Version: &cloud.LayerVersion{Version: 3}})

	current := &target.Target{
		Identity:    target.Identity{Package: "sharp", Version: "3.1.0", Runtime: "nodejs20.x", Architecture: "x86_64"},
		Name:        "sharp_3-1-0_nodejs20-x_x86_64",
		Fingerprint: "blake3:bb",
	}
	current.SetRegional("us-east-1", target.Regional{State: target.Matching, Version: &cloud.LayerVersion{Version: 7}})
	current.SetRegional("eu-west-1", target.Regional{State: target.Matching, Version: &cloud.LayerVersion{Version: 7}})

	plan := &deploy.Plan{
		Summary: deploy.Summary{Targets: 2, Regions: 2, Builds: 1, Publishes: 1, Grants: 1},
		Result: &reconcile.Result{
			Grants: []reconcile.PolicyFix{{Region: "eu-west-1", LayerName: current.Name, Version: 7, StatementID: "public-access"}},
		},
		Targets: []*target.Target{pending, current},
	}

	output := newPlanOutput(plan)
	if got := output.Targets[0].Pending; !slices.Equal(got, []string{"us-east-1"}) {
		t.Errorf("pending regions = %v, want [us-east-1]", got)
	}
	if got := output.Targets[0].Regions["eu-west-1"]; got != "matching" {
		t.Errorf("eu-west-1 state = %q, want matching", got)
	}
	if len(output.Targets[1].Pending) != 0 {
		t.Errorf("current target has pending regions %v", output.Targets[1].Pending)
	}

	var text bytes.Buffer
	writePlan(&text, output)
	for _, want := range []string{
		"sharp_3-1-0_nodejs20-x_arm64",
		"grant public-access on sharp_3-1-0_nodejs20-x_x86_64:7 in eu-west-1",
		"1 of 2 layers to build, 1 regional publishes",
	} {
		if !strings.Contains(text.String(), want) {
			t.Errorf("plan output missing %q:\n%s", want, text.String())
		}
	}

	if !hasChanges(plan.Summary) {
		t.Error("hasChanges = false for a plan with a build")
	}
	if hasChanges(deploy.Summary{Targets: 2, Regions: 2}) {
		t.Error("hasChanges = true for a converged plan")
	}
}

func TestRegionRows(t *testing.T) {
	t.Parallel()

	regions := cloud.Regions{
		Deploy:  []string{"ap-east-1", "us-east-1"},
		Signing: map[string]bool{"us-east-1": true},
	}
	rows := regionRows(regions, "us-east-1")
	if len(rows) != 2 || rows[0].Signing || !rows[1].Signing || !rows[1].Primary {
		t.Errorf("regionRows = %+v", rows)
	}

	var output bytes.Buffer
	writeRegions(&output, rows)
	if !strings.Contains(output.String(), "us-east-1 (primary)") {
		t.Errorf("regions output = %q", output.String())
	}
}
