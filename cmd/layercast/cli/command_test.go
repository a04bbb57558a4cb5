// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func newTree(output *bytes.Buffer) (*Command, *[]string, *string) {
	var gotArgs []string
	var params struct {
		Config string `flag:"config" desc:"config file"`
	}
	deploy := &Command{
		Name:    "deploy",
		Summary: "Build and publish layers",
		Flags: func() *pflag.FlagSet {
			return FlagsFromParams("deploy", &params)
		},
		Examples: []Example{{Description: "Deploy everything", Command: "layercast deploy"}},
		Run: func(_ context.Context, args []string) error {
			gotArgs = args
			return nil
		},
	}
	root := &Command{
		Name:        "layercast",
		Output:      output,
		Subcommands: []*Command{deploy, {Name: "plan", Summary: "Show pending changes"}},
	}
	return root, &gotArgs, &params.Config
}

func TestExecuteDispatch(t *testing.T) {
	t.Parallel()

	var output bytes.Buffer
	root, gotArgs, config := newTree(&output)
	if err := root.Execute(context.Background(), []string{"deploy", "--config", "c.yaml", "extra"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if *config != "c.yaml" {
		t.Errorf("config = %q, want c.yaml", *config)
	}
	if want := []string{"extra"}; !reflect.DeepEqual(*gotArgs, want) {
		t.Errorf("args = %v, want %v", *gotArgs, want)
	}
}

func TestExecuteUnknownCommand(t *testing.T) {
	t.Parallel()

	var output bytes.Buffer
	root, _, _ := newTree(&output)
	err := root.Execute(context.Background(), []string{"deplyo"})
	if err == nil {
		t.Fatal("Execute succeeded for unknown command")
	}
	if !strings.Contains(err.Error(), `did you mean "deploy"`) {
		t.Errorf("error = %q, want a suggestion", err)
	}
}

func TestExecuteUnknownFlag(t *testing.T) {
	t.Parallel()

	var output bytes.Buffer
	root, _, _ := newTree(&output)
	err := root.Execute(context.Background(), []string{"deploy", "--confg", "x"})
	if err == nil {
		t.Fatal("Execute succeeded for unknown flag")
	}
	if !strings.Contains(err.Error(), "did you mean --config") {
		t.Errorf("error = %q, want a flag suggestion", err)
	}
	if !strings.Contains(err.Error(), "layercast deploy --help") {
		t.Errorf("error = %q, want the full command path", err)
	}
}

func TestExecuteHelp(t *testing.T) {
	t.Parallel()

	var output bytes.Buffer
	root, _, _ := newTree(&output)
	if err := root.Execute(context.Background(), []string{"deploy", "--help"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	help := output.String()
	for _, want := range []string{"Build and publish layers", "--config", "# Deploy everything", "layercast deploy"} {
		if !strings.Contains(help, want) {
			t.Errorf("help output missing %q:\n%s", want, help)
		}
	}
}

func TestExecuteSubcommandRequired(t *testing.T) {
	t.Parallel()

	var output bytes.Buffer
	root, _, _ := newTree(&output)
	err := root.Execute(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "subcommand required") {
		t.Errorf("Execute() error = %v, want subcommand required", err)
	}
	if !strings.Contains(output.String(), "Show pending changes") {
		t.Errorf("root help missing subcommand summary:\n%s", output.String())
	}
}

func TestExecuteNoAction(t *testing.T) {
	t.Parallel()

	var output bytes.Buffer
	root, _, _ := newTree(&output)
	err := root.Execute(context.Background(), []string{"plan"})
	if err == nil || !strings.Contains(err.Error(), `no action defined for "layercast plan"`) {
		t.Errorf("Execute(plan) error = %v", err)
	}
}

func TestExitError(t *testing.T) {
	t.Parallel()

	var err error = &ExitError{Code: 2}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 2 {
		t.Errorf("ExitError round trip failed: %v", err)
	}
}

func TestWriteJSONNilSlice(t *testing.T) {
	t.Parallel()

	var output bytes.Buffer
	var rows []string
	if err := WriteJSON(&output, rows); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if got := strings.TrimSpace(output.String()); got != "[]" {
		t.Errorf("WriteJSON(nil slice) = %q, want []", got)
	}
}

func TestNewLoggerFormat(t *testing.T) {
	t.Parallel()

	var text, structured bytes.Buffer
	newLogger(&text, true, 0).Info("built", "layer", "python")
	newLogger(&structured, false, 0).Info("built", "layer", "python")

	if !strings.Contains(text.String(), "layer=python") {
		t.Errorf("text logger output = %q", text.String())
	}
	if !strings.Contains(structured.String(), `"layer":"python"`) {
		t.Errorf("JSON logger output = %q", structured.String())
	}
}
