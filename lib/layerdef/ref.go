// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package layerdef

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/tidwall/jsonc"
)

// resolver replaces {"$ref": "..."} objects with the value they point at.
// References are JSON pointers into the same document ("#/definitions/x")
// or into another declaration-format file relative to the referring one
// ("common.json#/definitions/x", or "common.json" for the whole file).
type resolver struct {
	documents map[string]any
}

func newResolver() *resolver {
	return &resolver{documents: make(map[string]any)}
}

// load reads and caches a JSONC document by absolute path.
func (r *resolver) load(path string) (any, error) {
	if document, ok := r.documents[path]; ok {
		return document, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	document, err := jsonschema.UnmarshalJSON(bytes.NewReader(jsonc.ToJSON(data)))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	r.documents[path] = document
	return document, nil
}

// dereference returns a copy of value with every reference replaced.
// file is the absolute path of the document value came from. active
// holds the references currently being expanded, for cycle detection.
func (r *resolver) dereference(value any, file string, active []string) (any, error) {
	switch node := value.(type) {
	case map[string]any:
		if reference, ok := node["$ref"].(string); ok {
			return r.follow(reference, file, active)
		}
		out := make(map[string]any, len(node))
		for key, child := range node {
			resolved, err := r.dereference(child, file, active)
			if err != nil {
				return nil, err
			}
			out[key] = resolved
		}
		return out, nil

	case []any:
		out := make([]any, len(node))
		for index, child := range node {
			resolved, err := r.dereference(child, file, active)
			if err != nil {
				return nil, err
			}
			out[index] = resolved
		}
		return out, nil

	default:
		return value, nil
	}
}

func (r *resolver) follow(reference, file string, active []string) (any, error) {
	target, pointer, _ := strings.Cut(reference, "#")
	targetFile := file
	if target != "" {
		targetFile = filepath.Join(filepath.Dir(file), filepath.FromSlash(target))
	}

	key := targetFile + "#" + pointer
	for _, visiting := range active {
		if visiting == key {
			return nil, fmt.Errorf("$ref %q in %s: reference cycle through %s", reference, file, strings.Join(append(active, key), " -> "))
		}
	}

	document, err := r.load(targetFile)
	if err != nil {
		return nil, fmt.Errorf("$ref %q in %s: %w", reference, file, err)
	}
	node, err := lookupPointer(document, pointer)
	if err != nil {
		return nil, fmt.Errorf("$ref %q in %s: %w", reference, file, err)
	}
	return r.dereference(node, targetFile, append(active, key))
}

// lookupPointer evaluates an RFC 6901 JSON pointer against document.
func lookupPointer(document any, pointer string) (any, error) {
	if pointer == "" {
		return document, nil
	}
	if !strings.HasPrefix(pointer, "/") {
		return nil, fmt.Errorf("pointer %q must start with /", pointer)
	}

	current := document
	for _, token := range strings.Split(pointer[1:], "/") {
		token = strings.ReplaceAll(strings.ReplaceAll(token, "~1", "/"), "~0", "~")
		switch node := current.(type) {
		case map[string]any:
			child, ok := node[token]
			if !ok {
				return nil, fmt.Errorf("pointer %q: no member %q", pointer, token)
			}
			current = child
		case []any:
			index, err := strconv.Atoi(token)
			if err != nil || index < 0 || index >= len(node) {
				return nil, fmt.Errorf("pointer %q: invalid array index %q", pointer, token)
			}
			current = node[index]
		default:
			return nil, fmt.Errorf("pointer %q: cannot descend into %T at %q", pointer, current, token)
		}
	}
	return current, nil
}
