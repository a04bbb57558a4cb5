// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package dockercli provides typed access to the docker CLI for building
// layer images and pulling the layer archive back out of them. Every
// call is a synchronous process invocation; a non-zero exit becomes a
// [*CommandError] carrying the captured output.
package dockercli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// DefaultBinary is the docker executable looked up in PATH.
const DefaultBinary = "docker"

// Client runs docker commands. The build context directory is fixed for
// the client's lifetime.
type Client struct {
	binary     string
	contextDir string
}

// New returns a Client invoking binary with builds rooted at contextDir.
func New(binary, contextDir string) *Client {
	if binary == "" {
		binary = DefaultBinary
	}
	if contextDir == "" {
		contextDir = "."
	}
	return &Client{binary: binary, contextDir: contextDir}
}

// CommandError is a docker invocation that exited non-zero.
type CommandError struct {
	Args   []string
	Err    error
	Output string
}

func (e *CommandError) Error() string {
	output := strings.TrimSpace(e.Output)
	if output == "" {
		return fmt.Sprintf("docker %s: %v", strings.Join(e.Args, " "), e.Err)
	}
	return fmt.Sprintf("docker %s: %v (output: %s)", strings.Join(e.Args, " "), e.Err, output)
}

func (e *CommandError) Unwrap() error { return e.Err }

// Run executes docker with args and returns its combined output. When
// stream is non-nil the output is also copied to it as it is produced.
func (c *Client) Run(ctx context.Context, stream io.Writer, args ...string) (string, error) {
	var output bytes.Buffer
	var sink io.Writer = &output
	if stream != nil {
		sink = io.MultiWriter(&output, stream)
	}

	command := exec.CommandContext(ctx, c.binary, args...)
	command.Dir = c.contextDir
	command.Stdout = sink
	command.Stderr = sink

	if err := command.Run(); err != nil {
		return output.String(), &CommandError{Args: args, Err: err, Output: output.String()}
	}
	return output.String(), nil
}

// BuildRequest describes one image build.
type BuildRequest struct {
	// RecipePath is the Dockerfile to build.
	RecipePath string

	// Platform is the target platform (e.g. "linux/arm64").
	Platform string

	// Tag names the resulting image.
	Tag string

	// Output, when set, receives build output as it streams.
	Output io.Writer
}

// Build runs "docker buildx build" and loads the result into the local
// image store.
func (c *Client) Build(ctx context.Context, request BuildRequest) error {
	_, err := c.Run(ctx, request.Output,
		"buildx", "build",
		"--platform", request.Platform,
		"--file", request.RecipePath,
		"--tag", request.Tag,
		"--load",
		".",
	)
	return err
}

// CreateContainer creates (without starting) a container from image.
func (c *Client) CreateContainer(ctx context.Context, image, container, platform string) error {
	_, err := c.Run(ctx, nil, "create", "--platform", platform, "--name", container, image)
	return err
}

// CopyFromContainer copies path out of container to destination on the
// host.
func (c *Client) CopyFromContainer(ctx context.Context, container, path, destination string) error {
	_, err := c.Run(ctx, nil, "cp", container+":"+path, destination)
	return err
}

// RemoveContainer force-removes a container.
func (c *Client) RemoveContainer(ctx context.Context, container string) error {
	_, err := c.Run(ctx, nil, "rm", "--force", container)
	return err
}

// RemoveImage force-removes an image.
func (c *Client) RemoveImage(ctx context.Context, image string) error {
	_, err := c.Run(ctx, nil, "image", "rm", "--force", image)
	return err
}
