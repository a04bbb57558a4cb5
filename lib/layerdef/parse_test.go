// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package layerdef

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/bureau-foundation/layercast/lib/testutil"
)

const toolsDeclaration = `{
	// Shared across every runtime.
	"default_image": "public.ecr.aws/lambda/python:3.12",
	"default_layer_source_directory": "/opt/python",
	"default_layer_target_directory": "/python",
	"common_instructions_pre": ["WORKDIR /build"],
	"common_instructions_post": ["RUN rm -rf /root/.cache"],
	"definitions": {
		"pip": {"$ref": "common.json#/install"},
	},
	"runtimes": {
		"python3.12": {
			"versions": {
				"2.31.0": {
					"common_instructions_pre": [{"$ref": "#/definitions/pip"}],
					"architectures": {
						"x86_64": {"instructions": ["RUN pip install requests==2.31.0 -t /opt/python"]},
						"arm64": {
							"image": "public.ecr.aws/lambda/python:3.12-arm64",
							"instructions": ["RUN pip install requests==2.31.0 -t /opt/python"],
						},
					},
				},
			},
		},
	},
}`

const commonDeclaration = `{"install": "RUN pip install --upgrade pip"}`

func TestReadFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "common.json", commonDeclaration)
	path := testutil.WriteFile(t, dir, "requests.json", toolsDeclaration)

	pkg, err := ReadFile(path, mustDefaultSchema(t))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if pkg.Name != "requests" {
		t.Errorf("Name = %q, want %q", pkg.Name, "requests")
	}
	if pkg.DefaultImage != "public.ecr.aws/lambda/python:3.12" {
		t.Errorf("DefaultImage = %q", pkg.DefaultImage)
	}
	version := pkg.Runtimes["python3.12"].Versions["2.31.0"]
	if version == nil {
		t.Fatal("version 2.31.0 missing after decode")
	}
	wantPre := []string{"RUN pip install --upgrade pip"}
	if !reflect.DeepEqual(version.InstructionsPre, wantPre) {
		t.Errorf("version InstructionsPre = %q, want %q (cross-file $ref)", version.InstructionsPre, wantPre)
	}
	if got := version.ArchitectureNames(); !reflect.DeepEqual(got, []string{"arm64", "x86_64"}) {
		t.Errorf("ArchitectureNames() = %v", got)
	}
	if image := version.Architectures["arm64"].Image; image != "public.ecr.aws/lambda/python:3.12-arm64" {
		t.Errorf("arm64 Image = %q", image)
	}
}

func TestReadFileSchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name: "unknown architecture field",
			content: `{"runtimes": {"nodejs20.x": {"versions": {"1.0.0": {"architectures": {
				"x86_64": {"instructions": ["RUN true"], "flavour": "mint"}}}}}}}`,
			want: "flavour",
		},
		{
			name:    "unsupported architecture",
			content: `{"runtimes": {"nodejs20.x": {"versions": {"1.0.0": {"architectures": {"riscv64": {}}}}}}}`,
			want:    "riscv64",
		},
		{
			name:    "runtime identifier",
			content: `{"runtimes": {"NodeJS": {"versions": {}}}}`,
			want:    "NodeJS",
		},
		{
			name:    "missing runtimes",
			content: `{"default_image": "alpine"}`,
			want:    "runtimes",
		},
		{
			name:    "instructions must be strings",
			content: `{"common_instructions_pre": [42], "runtimes": {}}`,
			want:    "/common_instructions_pre/0",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			path := testutil.WriteFile(t, t.TempDir(), "widget.json", test.content)

			_, err := ReadFile(path, mustDefaultSchema(t))
			var definitionError *DefinitionError
			if !errors.As(err, &definitionError) {
				t.Fatalf("ReadFile error = %v, want *DefinitionError", err)
			}
			if definitionError.Path != path {
				t.Errorf("DefinitionError.Path = %q, want %q", definitionError.Path, path)
			}
			message := err.Error()
			if !strings.Contains(message, path) {
				t.Errorf("error does not name the file: %s", message)
			}
			if !strings.Contains(message, test.want) {
				t.Errorf("error does not mention %q: %s", test.want, message)
			}
			located := false
			for _, issue := range definitionError.Issues {
				located = located || issue.SchemaLocation != ""
			}
			if !located {
				t.Errorf("no issue names a schema location: %+v", definitionError.Issues)
			}
		})
	}
}

func TestReadFileSchemaLocations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		content      string
		wantInstance string
		wantSchema   string
	}{
		{
			name:         "package instruction type",
			content:      `{"common_instructions_pre": ["RUN true", 42], "runtimes": {}}`,
			wantInstance: "/common_instructions_pre/1",
			wantSchema:   "/$defs/text/type",
		},
		{
			name: "architecture instruction type",
			content: `{"runtimes": {"nodejs20.x": {"versions": {"1.0.0": {"architectures": {
				"x86_64": {"instructions": [7]}}}}}}}`,
			wantInstance: "/runtimes/nodejs20.x/versions/1.0.0/architectures/x86_64/instructions/0",
			wantSchema:   "/$defs/text/type",
		},
		{
			name: "architecture extra field",
			content: `{"runtimes": {"nodejs20.x": {"versions": {"1.0.0": {"architectures": {
				"arm64": {"flavour": "mint"}}}}}}}`,
			wantInstance: "/runtimes/nodejs20.x/versions/1.0.0/architectures/arm64",
			wantSchema:   "/$defs/architecture/additionalProperties",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			path := testutil.WriteFile(t, t.TempDir(), "widget.json", test.content)

			_, err := ReadFile(path, mustDefaultSchema(t))
			var definitionError *DefinitionError
			if !errors.As(err, &definitionError) {
				t.Fatalf("ReadFile error = %v, want *DefinitionError", err)
			}
			found := false
			for _, issue := range definitionError.Issues {
				if issue.Message == "false schema" {
					t.Errorf("leaf error hidden behind %+v", issue)
				}
				if issue.InstanceLocation == test.wantInstance && issue.SchemaLocation == test.wantSchema {
					found = true
				}
			}
			if !found {
				t.Errorf("no issue at %s with schema %s: %+v", test.wantInstance, test.wantSchema, definitionError.Issues)
			}
		})
	}
}

func TestReadFilePackageName(t *testing.T) {
	t.Parallel()
	path := testutil.WriteFile(t, t.TempDir(), "Data_Tools.json", `{"runtimes": {}}`)

	_, err := ReadFile(path, mustDefaultSchema(t))
	var definitionError *DefinitionError
	if !errors.As(err, &definitionError) {
		t.Fatalf("ReadFile error = %v, want *DefinitionError", err)
	}
	if !strings.Contains(err.Error(), `package name "Data_Tools"`) {
		t.Errorf("error = %s, want package name complaint", err)
	}
}

func TestReadFileReferenceCycle(t *testing.T) {
	t.Parallel()
	path := testutil.WriteFile(t, t.TempDir(), "loop.json", `{
		"definitions": {"a": {"$ref": "#/definitions/b"}, "b": {"$ref": "#/definitions/a"}},
		"runtimes": {}
	}`)

	_, err := ReadFile(path, mustDefaultSchema(t))
	if err == nil || !strings.Contains(err.Error(), "reference cycle") {
		t.Fatalf("ReadFile error = %v, want reference cycle", err)
	}
}

func TestReadFileMissingReference(t *testing.T) {
	t.Parallel()
	path := testutil.WriteFile(t, t.TempDir(), "dangling.json", `{
		"runtimes": {"python3.12": {"$ref": "#/definitions/python"}}
	}`)

	_, err := ReadFile(path, mustDefaultSchema(t))
	if err == nil || !strings.Contains(err.Error(), `no member "definitions"`) {
		t.Fatalf("ReadFile error = %v, want missing member", err)
	}
}

func TestLoadDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "zeta.json", `{"runtimes": {}}`)
	testutil.WriteFile(t, dir, "alpha.jsonc", `{"runtimes": {}, /* comment */}`)
	testutil.WriteFile(t, dir, "README.md", "not a declaration")

	packages, err := LoadDir(dir, mustDefaultSchema(t))
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	var names []string
	for _, pkg := range packages {
		names = append(names, pkg.Name)
	}
	if !reflect.DeepEqual(names, []string{"alpha", "zeta"}) {
		t.Errorf("package names = %v, want [alpha zeta]", names)
	}
}

func TestLoadDirDuplicatePackage(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "tools.json", `{"runtimes": {}}`)
	testutil.WriteFile(t, dir, "tools.jsonc", `{"runtimes": {}}`)

	_, err := LoadDir(dir, mustDefaultSchema(t))
	if err == nil || !strings.Contains(err.Error(), `package "tools" is declared by both`) {
		t.Fatalf("LoadDir error = %v, want duplicate package", err)
	}
}

func TestNameFromPath(t *testing.T) {
	t.Parallel()
	tests := []struct {
		path string
		want string
	}{
		{"layers/python-tools.json", "python-tools"},
		{"/abs/dir/gdal.jsonc", "gdal"},
		{"plain", "plain"},
		{"dir/with.dots/ffmpeg.json", "ffmpeg"},
	}
	for _, test := range tests {
		if got := NameFromPath(test.path); got != test.want {
			t.Errorf("NameFromPath(%q) = %q, want %q", test.path, got, test.want)
		}
	}
}

func TestLookupPointer(t *testing.T) {
	t.Parallel()
	document := map[string]any{
		"a/b": map[string]any{"~x": "escaped"},
		"list": []any{"zero", map[string]any{"deep": true}},
	}
	tests := []struct {
		pointer string
		want    any
		wantErr bool
	}{
		{"/a~1b/~0x", "escaped", false},
		{"/list/0", "zero", false},
		{"/list/1/deep", true, false},
		{"/list/2", nil, true},
		{"/missing", nil, true},
		{"relative", nil, true},
	}
	for _, test := range tests {
		got, err := lookupPointer(document, test.pointer)
		if (err != nil) != test.wantErr {
			t.Errorf("lookupPointer(%q) error = %v, wantErr %v", test.pointer, err, test.wantErr)
			continue
		}
		if !test.wantErr && !reflect.DeepEqual(got, test.want) {
			t.Errorf("lookupPointer(%q) = %v, want %v", test.pointer, got, test.want)
		}
	}
}

func mustDefaultSchema(t *testing.T) *Schema {
	t.Helper()
	schema, err := DefaultSchema()
	if err != nil {
		t.Fatalf("DefaultSchema: %v", err)
	}
	return schema
}
