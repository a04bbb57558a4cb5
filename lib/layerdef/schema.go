// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package layerdef

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"github.com/tidwall/jsonc"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema.json
var embeddedSchema []byte

const embeddedSchemaURL = "https://bureau.foundation/layercast/package.schema.json"

// Schema is a compiled declaration schema.
type Schema struct {
	location string
	compiled *jsonschema.Schema
}

var defaultSchema = sync.OnceValues(func() (*Schema, error) {
	return compileSchema(embeddedSchemaURL, embeddedSchema)
})

// DefaultSchema returns the schema built into the binary.
func DefaultSchema() (*Schema, error) {
	return defaultSchema()
}

// LoadSchema compiles a schema file, replacing the built-in schema.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema %s: %w", path, err)
	}
	absolute, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving schema path %s: %w", path, err)
	}
	return compileSchema(absolute, data)
}

func compileSchema(location string, data []byte) (*Schema, error) {
	document, err := jsonschema.UnmarshalJSON(bytes.NewReader(jsonc.ToJSON(data)))
	if err != nil {
		return nil, fmt.Errorf("parsing schema %s: %w", location, err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(location, document); err != nil {
		return nil, fmt.Errorf("loading schema %s: %w", location, err)
	}
	compiled, err := compiler.Compile(location)
	if err != nil {
		return nil, fmt.Errorf("compiling schema %s: %w", location, err)
	}
	return &Schema{location: location, compiled: compiled}, nil
}

var printer = message.NewPrinter(language.English)

// validate checks a dereferenced document. Each failing leaf keyword
// becomes one Issue carrying its instance and schema locations.
func (s *Schema) validate(document any) ([]Issue, error) {
	err := s.compiled.Validate(document)
	if err == nil {
		return nil, nil
	}
	var validationError *jsonschema.ValidationError
	if !errors.As(err, &validationError) {
		return nil, err
	}

	var issues, rejected []Issue
	collectIssues(validationError, &issues, &rejected)
	issues = append(issues, unshadowed(rejected, issues)...)
	if len(issues) == 0 {
		issues = append(issues, Issue{
			InstanceLocation: displayPointer(jsonPointer(validationError.InstanceLocation)),
			SchemaLocation:   schemaLocation(validationError),
			Message:          validationError.LocalizedError(printer),
		})
	}
	return issues, nil
}

// collectIssues walks the cause tree down to the leaves. A failed
// propertyNames keyword is reported at the offending property itself so
// the message names it. False-schema leaves go to rejected.
func collectIssues(node *jsonschema.ValidationError, issues, rejected *[]Issue) {
	if names, ok := node.ErrorKind.(*kind.PropertyNames); ok {
		location := append(slices.Clone(node.InstanceLocation), names.Property)
		message := node.ErrorKind.LocalizedString(printer)
		for _, cause := range leaves(node) {
			message += ": " + cause.ErrorKind.LocalizedString(printer)
		}
		appendIssue(issues, Issue{
			InstanceLocation: displayPointer(jsonPointer(location)),
			SchemaLocation:   schemaLocation(node),
			Message:          message,
		})
		return
	}
	if len(node.Causes) == 0 {
		issue := Issue{
			InstanceLocation: displayPointer(jsonPointer(node.InstanceLocation)),
			SchemaLocation:   schemaLocation(node),
			Message:          node.ErrorKind.LocalizedString(printer),
		}
		if _, ok := node.ErrorKind.(*kind.FalseSchema); ok {
			appendIssue(rejected, issue)
		} else {
			appendIssue(issues, issue)
		}
		return
	}
	for _, cause := range node.Causes {
		collectIssues(cause, issues, rejected)
	}
}

func leaves(node *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(node.Causes) == 0 {
		return nil
	}
	var found []*jsonschema.ValidationError
	for _, cause := range node.Causes {
		if len(cause.Causes) == 0 {
			found = append(found, cause)
			continue
		}
		found = append(found, leaves(cause)...)
	}
	return found
}

func appendIssue(issues *[]Issue, issue Issue) {
	if !slices.Contains(*issues, issue) {
		*issues = append(*issues, issue)
	}
}

// unshadowed returns the rejected properties that no issue beneath them
// explains. An unevaluatedProperties rejection of a property whose own
// subschema failed only repeats that failure.
func unshadowed(rejected, issues []Issue) []Issue {
	var kept []Issue
	for _, candidate := range rejected {
		prefix := strings.TrimSuffix(candidate.InstanceLocation, "/") + "/"
		shadowed := slices.ContainsFunc(issues, func(other Issue) bool {
			return strings.HasPrefix(other.InstanceLocation, prefix)
		})
		if !shadowed {
			kept = append(kept, candidate)
		}
	}
	return kept
}

// schemaLocation is the JSON pointer of the failing keyword within its
// schema document.
func schemaLocation(node *jsonschema.ValidationError) string {
	_, fragment, _ := strings.Cut(node.SchemaURL, "#")
	fragment = strings.TrimSuffix(fragment, "/")
	if node.ErrorKind != nil {
		if path := node.ErrorKind.KeywordPath(); len(path) > 0 {
			fragment += jsonPointer(path)
		}
	}
	return displayPointer(fragment)
}

func jsonPointer(tokens []string) string {
	var builder strings.Builder
	for _, token := range tokens {
		builder.WriteByte('/')
		builder.WriteString(escapeToken(token))
	}
	return builder.String()
}

func displayPointer(pointer string) string {
	if pointer == "" {
		return "/"
	}
	return pointer
}
