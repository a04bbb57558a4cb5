// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestLevenshtein(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"deploy", "deploy", 0},
		{"deploy", "delpoy", 2},
		{"plan", "plna", 2},
		{"build", "buidl", 2},
		{"targets", "target", 1},
		{"kitten", "sitting", 3},
	}
	for _, test := range tests {
		if got := levenshtein(test.a, test.b); got != test.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
		}
	}
}

func TestSuggestCommand(t *testing.T) {
	t.Parallel()

	commands := []*Command{{Name: "build"}, {Name: "plan"}, {Name: "deploy"}, {Name: "targets"}}
	tests := []struct {
		input string
		want  string
	}{
		{"deplo", "deploy"},
		{"targt", "targets"},
		{"pla", "plan"},
		{"completely-different", ""},
	}
	for _, test := range tests {
		if got := suggestCommand(test.input, commands); got != test.want {
			t.Errorf("suggestCommand(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestSuggestFlag(t *testing.T) {
	t.Parallel()

	newFlags := func() *pflag.FlagSet {
		flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flagSet.String("config", "", "")
		flagSet.BoolP("verbose", "v", false, "")
		flagSet.StringSlice("only", nil, "")
		return flagSet
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"typo", []string{"--confg", "x"}, "--config"},
		{"typo with value", []string{"--onyl=foo"}, "--only"},
		{"known flags skipped", []string{"-v", "--config=x", "--verbos"}, "--verbose"},
		{"nothing close", []string{"--zzzzzzzzzz"}, ""},
		{"no flags", []string{"positional"}, ""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if got := suggestFlag(test.args, newFlags()); got != test.want {
				t.Errorf("suggestFlag(%v) = %q, want %q", test.args, got, test.want)
			}
		})
	}
}
