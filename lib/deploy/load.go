// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"fmt"
	"path"
	"path/filepath"

	"github.com/bureau-foundation/layercast/lib/layerdef"
	"github.com/bureau-foundation/layercast/lib/target"
)

// Declarations is the expanded declaration set of a run.
type Declarations struct {
	// Targets are the Targets selected for this run, sorted by name.
	Targets []*target.Target

	// Declared holds the name of every declared Target, selected or not.
	Declared map[string]bool

	// Filtered reports whether a pattern excluded any Target.
	Filtered bool
}

// LoadOptions locates and narrows the declarations.
type LoadOptions struct {
	// LayersDir holds one declaration file per package.
	LayersDir string

	// SchemaPath replaces the built-in schema when set.
	SchemaPath string

	// ArchiveDir receives built archives.
	ArchiveDir string

	// Only keeps Targets whose name matches one of these glob patterns.
	// Empty keeps every Target.
	Only []string
}

// Load reads, validates, and expands every declaration, then applies the
// Only patterns.
func Load(options LoadOptions) (*Declarations, error) {
	schema, err := loadSchema(options.SchemaPath)
	if err != nil {
		return nil, err
	}
	packages, err := layerdef.LoadDir(options.LayersDir, schema)
	if err != nil {
		return nil, err
	}
	set, err := target.Expand(packages, target.Options{ArchiveDir: filepath.Clean(options.ArchiveDir)})
	if err != nil {
		return nil, err
	}

	declarations := &Declarations{Declared: make(map[string]bool, len(set))}
	for _, t := range set.Sorted() {
		declarations.Declared[t.Name] = true
		selected, err := matchesAny(t.Name, options.Only)
		if err != nil {
			return nil, err
		}
		if selected {
			declarations.Targets = append(declarations.Targets, t)
		} else {
			declarations.Filtered = true
		}
	}
	if len(options.Only) > 0 && len(declarations.Targets) == 0 {
		return nil, fmt.Errorf("no layers match %v", options.Only)
	}
	return declarations, nil
}

func loadSchema(schemaPath string) (*layerdef.Schema, error) {
	if schemaPath == "" {
		return layerdef.DefaultSchema()
	}
	return layerdef.LoadSchema(schemaPath)
}

func matchesAny(name string, patterns []string) (bool, error) {
	if len(patterns) == 0 {
		return true, nil
	}
	for _, pattern := range patterns {
		matched, err := path.Match(pattern, name)
		if err != nil {
			return false, fmt.Errorf("invalid --only pattern %q: %w", pattern, err)
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}
