// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package layerdef loads package declarations: one JSON (or JSONC) file
// per package describing the runtime → version → architecture tree of
// layers to build.
//
// The typical flow:
//
//  1. LoadDir or ReadFile: JSONC bytes → dereferenced document
//  2. schema validation of the dereferenced document
//  3. decode into [Package]
//  4. Validate: identifier rules
//
// Every failure is a [DefinitionError] naming the file, so that a bad
// declaration stops the run before any build or cloud call.
package layerdef

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Issue is one problem found in a declaration.
type Issue struct {
	// InstanceLocation is the JSON pointer of the offending value.
	InstanceLocation string

	// SchemaLocation is the JSON pointer of the schema keyword that
	// failed. Empty for identifier rule violations.
	SchemaLocation string

	Message string
}

func (i Issue) String() string {
	if i.SchemaLocation == "" {
		return fmt.Sprintf("at %s: %s", i.InstanceLocation, i.Message)
	}
	return fmt.Sprintf("at %s: %s (schema %s)", i.InstanceLocation, i.Message, i.SchemaLocation)
}

// DefinitionError reports an invalid declaration file.
type DefinitionError struct {
	Path   string
	Issues []Issue
}

func (e *DefinitionError) Error() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "%s: invalid package declaration", e.Path)
	for _, issue := range e.Issues {
		builder.WriteString("\n  - ")
		builder.WriteString(issue.String())
	}
	return builder.String()
}

// LoadDir reads every .json and .jsonc declaration in dir, in file name
// order. The first invalid file stops the load.
func LoadDir(dir string, schema *Schema) ([]*Package, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading declarations directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".json", ".jsonc":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	packages := make([]*Package, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, path := range paths {
		pkg, err := ReadFile(path, schema)
		if err != nil {
			return nil, err
		}
		if previous, ok := seen[pkg.Name]; ok {
			return nil, fmt.Errorf("package %q is declared by both %s and %s", pkg.Name, previous, path)
		}
		seen[pkg.Name] = path
		packages = append(packages, pkg)
	}
	return packages, nil
}

// ReadFile loads, dereferences, validates, and decodes one declaration.
func ReadFile(path string, schema *Schema) (*Package, error) {
	absolute, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	resolve := newResolver()
	document, err := resolve.load(absolute)
	if err != nil {
		return nil, &DefinitionError{Path: path, Issues: []Issue{{InstanceLocation: "/", Message: err.Error()}}}
	}
	dereferenced, err := resolve.dereference(document, absolute, nil)
	if err != nil {
		return nil, &DefinitionError{Path: path, Issues: []Issue{{InstanceLocation: "/", Message: err.Error()}}}
	}

	issues, err := schema.validate(dereferenced)
	if err != nil {
		return nil, fmt.Errorf("%s: validating against %s: %w", path, schema.location, err)
	}
	if len(issues) > 0 {
		return nil, &DefinitionError{Path: path, Issues: issues}
	}

	encoded, err := json.Marshal(dereferenced)
	if err != nil {
		return nil, fmt.Errorf("%s: re-encoding declaration: %w", path, err)
	}
	var pkg Package
	if err := json.Unmarshal(encoded, &pkg); err != nil {
		return nil, &DefinitionError{Path: path, Issues: []Issue{{InstanceLocation: "/", Message: err.Error()}}}
	}
	pkg.Name = NameFromPath(path)
	pkg.Source = path

	if problems := Validate(&pkg); len(problems) > 0 {
		return nil, &DefinitionError{Path: path, Issues: problems}
	}
	return &pkg, nil
}

// NameFromPath returns the package identifier for a declaration file:
// the base name without its extension. "layers/python-tools.json"
// returns "python-tools".
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
