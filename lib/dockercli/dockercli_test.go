// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dockercli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/layercast/lib/testutil"
)

// fakeDocker writes a shell script that logs its arguments, one
// invocation per line, and fails any invocation mentioning "broken".
func fakeDocker(t *testing.T) (binary, logPath string) {
	t.Helper()
	dir := t.TempDir()
	logPath = filepath.Join(dir, "invocations.log")
	script := `#!/bin/sh
echo "$@" >> "` + logPath + `"
case "$*" in
  *broken*) echo "Error response from daemon: broken image" ; exit 3 ;;
esac
echo "step 1/3"
`
	binary = testutil.WriteFile(t, dir, "docker", script)
	if err := os.Chmod(binary, 0o755); err != nil {
		t.Fatalf("chmod fake docker: %v", err)
	}
	return binary, logPath
}

func readInvocations(t *testing.T, logPath string) []string {
	t.Helper()
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("reading invocation log: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

// The script tests run serially: exec of a freshly written file can
// fail with ETXTBSY while a parallel test forks.

func TestClientCommands(t *testing.T) {
	binary, logPath := fakeDocker(t)
	client := New(binary, t.TempDir())
	ctx := context.Background()

	var streamed bytes.Buffer
	if err := client.Build(ctx, BuildRequest{
		RecipePath: "/tmp/recipe/Dockerfile",
		Platform:   "linux/arm64",
		Tag:        "layercast-sharp",
		Output:     &streamed,
	}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(streamed.String(), "step 1/3") {
		t.Errorf("build output not streamed: %q", streamed.String())
	}
	if err := client.RemoveContainer(ctx, "layercast-sharp"); err != nil {
		t.Fatalf("RemoveContainer: %v", err)
	}
	if err := client.CreateContainer(ctx, "layercast-sharp", "layercast-sharp", "linux/arm64"); err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}
	if err := client.CopyFromContainer(ctx, "layercast-sharp", "/package.zip", "/tmp/out.zip"); err != nil {
		t.Fatalf("CopyFromContainer: %v", err)
	}
	if err := client.RemoveImage(ctx, "layercast-sharp"); err != nil {
		t.Fatalf("RemoveImage: %v", err)
	}

	want := []string{
		"buildx build --platform linux/arm64 --file /tmp/recipe/Dockerfile --tag layercast-sharp --load .",
		"rm --force layercast-sharp",
		"create --platform linux/arm64 --name layercast-sharp layercast-sharp",
		"cp layercast-sharp:/package.zip /tmp/out.zip",
		"image rm --force layercast-sharp",
	}
	got := readInvocations(t, logPath)
	if len(got) != len(want) {
		t.Fatalf("invocations = %q, want %q", got, want)
	}
	for index := range want {
		if got[index] != want[index] {
			t.Errorf("invocation %d = %q, want %q", index, got[index], want[index])
		}
	}
}

func TestClientCommandError(t *testing.T) {
	binary, _ := fakeDocker(t)
	client := New(binary, t.TempDir())

	err := client.CreateContainer(context.Background(), "broken", "c", "linux/amd64")
	var commandError *CommandError
	if !errors.As(err, &commandError) {
		t.Fatalf("CreateContainer error = %v, want *CommandError", err)
	}
	if !strings.Contains(commandError.Output, "broken image") {
		t.Errorf("captured output = %q, want daemon message", commandError.Output)
	}
	if !strings.Contains(err.Error(), "docker create") {
		t.Errorf("error %q does not name the command", err)
	}
}

func TestNewDefaults(t *testing.T) {
	t.Parallel()
	client := New("", "")
	if client.binary != DefaultBinary || client.contextDir != "." {
		t.Errorf("New(\"\", \"\") = %+v", client)
	}
}
