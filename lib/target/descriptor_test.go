// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package target

import (
	"errors"
	"testing"
)

func TestDescriptorEncode(t *testing.T) {
	t.Parallel()
	descriptor := Descriptor{
		Format:       DescriptorFormat,
		RecipeHash:   "blake3:00ff",
		Package:      "sharp",
		Runtime:      "nodejs20.x",
		Version:      "0.33.2",
		Architecture: "arm64",
	}
	want := `{"format":1,"recipe_hash":"blake3:00ff","package":"sharp","runtime":"nodejs20.x","version":"0.33.2","architecture":"arm64"}`
	if got := descriptor.Encode(); got != want {
		t.Fatalf("Encode() = %s, want %s", got, want)
	}

	parsed, err := ParseDescriptor(want)
	if err != nil {
		t.Fatalf("ParseDescriptor: %v", err)
	}
	if parsed != descriptor {
		t.Errorf("ParseDescriptor(Encode()) = %+v, want %+v", parsed, descriptor)
	}
}

func TestParseDescriptorRejects(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		description string
	}{
		{"empty", ""},
		{"free text", "Sharp image library for Node.js"},
		{"legacy unversioned", `{"recipe_hash":"abc","package":"sharp","runtime":"nodejs20.x","version":"0.33.2","architecture":"arm64"}`},
		{"future format", `{"format":2,"recipe_hash":"abc","package":"sharp","runtime":"nodejs20.x","version":"0.33.2","architecture":"arm64"}`},
		{"unknown field", `{"format":1,"recipe_hash":"abc","package":"sharp","runtime":"nodejs20.x","version":"0.33.2","architecture":"arm64","extra":true}`},
		{"trailing data", `{"format":1,"recipe_hash":"abc"} {}`},
		{"truncated", `{"format":1,"recipe_hash":"ab`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ParseDescriptor(test.description); !errors.Is(err, ErrUnrecognizedDescriptor) {
				t.Errorf("ParseDescriptor(%q) error = %v, want ErrUnrecognizedDescriptor", test.description, err)
			}
		})
	}
}

func TestTargetDescriptor(t *testing.T) {
	t.Parallel()
	set, err := Expand(nil, Options{})
	if err != nil || len(set) != 0 {
		t.Fatalf("Expand(nil) = %v, %v; want empty set", set, err)
	}

	target := &Target{
		Identity:    Identity{Package: "p", Version: "1", Runtime: "r", Architecture: "x86_64"},
		Fingerprint: "blake3:abc",
	}
	descriptor := target.Descriptor()
	if descriptor.Format != DescriptorFormat || descriptor.RecipeHash != "blake3:abc" || descriptor.Architecture != "x86_64" {
		t.Errorf("Descriptor() = %+v", descriptor)
	}
}
