// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package build turns Targets into layer archives by driving a container
// build tool: build the recipe into an image, create a container from
// it, and copy the archive out. Intermediate containers and images are
// removed whether or not the build succeeded.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zip"

	"github.com/bureau-foundation/layercast/lib/batch"
	"github.com/bureau-foundation/layercast/lib/dockercli"
	"github.com/bureau-foundation/layercast/lib/target"
)

// MaxUnpackedSize is the largest total uncompressed size a layer archive
// may have.
const MaxUnpackedSize = 250 << 20

// Tool is the container build tool. *dockercli.Client satisfies it.
type Tool interface {
	Build(ctx context.Context, request dockercli.BuildRequest) error
	CreateContainer(ctx context.Context, image, container, platform string) error
	CopyFromContainer(ctx context.Context, container, path, destination string) error
	RemoveContainer(ctx context.Context, container string) error
	RemoveImage(ctx context.Context, image string) error
}

// Pipeline builds Targets.
type Pipeline struct {
	Tool Tool

	// WorkDir holds the per-build recipe directories. Empty uses the OS
	// temporary directory.
	WorkDir string

	// Workers bounds concurrent builds. With exactly one worker, build
	// output is streamed to Output.
	Workers int

	// Output receives streamed build output. Nil discards it.
	Output io.Writer

	Logger *slog.Logger
}

// BuildAll builds every Target with at most Workers in flight. The first
// failure stops further builds from starting and is returned once the
// running ones finish.
func (p *Pipeline) BuildAll(ctx context.Context, targets []*target.Target) error {
	if len(targets) == 0 {
		return nil
	}
	p.Logger.Info("building layers", "count", len(targets), "workers", p.Workers)
	return batch.ForEach(ctx, p.Workers, targets, p.BuildTarget)
}

// BuildTarget builds one Target and leaves its archive at
// Target.ArchivePath.
func (p *Pipeline) BuildTarget(ctx context.Context, t *target.Target) error {
	logger := p.Logger.With("layer", t.Name, "platform", t.Platform)

	recipeDir, err := os.MkdirTemp(p.WorkDir, "recipe-"+t.Name+"-")
	if err != nil {
		return fmt.Errorf("%s: creating recipe directory: %w", t.Name, err)
	}
	defer os.RemoveAll(recipeDir)

	recipePath := filepath.Join(recipeDir, "Dockerfile")
	if err := os.WriteFile(recipePath, []byte(t.Recipe.Text()), 0o644); err != nil {
		return fmt.Errorf("%s: writing recipe: %w", t.Name, err)
	}
	if err := os.MkdirAll(filepath.Dir(t.ArchivePath), 0o755); err != nil {
		return fmt.Errorf("%s: creating archive directory: %w", t.Name, err)
	}

	image := imageName(t)
	container := containerName(t)

	// A container left behind by an interrupted run would block create.
	if err := p.Tool.RemoveContainer(ctx, container); err != nil {
		logger.Warn("removing stale build container failed", "container", container, "error", err)
	}

	defer func() {
		cleanup := context.WithoutCancel(ctx)
		if removeErr := p.Tool.RemoveContainer(cleanup, container); removeErr != nil {
			logger.Warn("removing build container failed", "container", container, "error", removeErr)
		}
		if removeErr := p.Tool.RemoveImage(cleanup, image); removeErr != nil {
			logger.Warn("removing build image failed", "image", image, "error", removeErr)
		}
	}()

	var output io.Writer
	if p.Workers == 1 {
		output = p.Output
	}

	logger.Info("building layer image", "fingerprint", t.Fingerprint)
	if err := p.Tool.Build(ctx, dockercli.BuildRequest{
		RecipePath: recipePath,
		Platform:   t.Platform,
		Tag:        image,
		Output:     output,
	}); err != nil {
		return fmt.Errorf("%s: building image: %w", t.Name, err)
	}
	if err := p.Tool.CreateContainer(ctx, image, container, t.Platform); err != nil {
		return fmt.Errorf("%s: creating container: %w", t.Name, err)
	}
	if err := p.Tool.CopyFromContainer(ctx, container, target.ArchivePathInImage, t.ArchivePath); err != nil {
		return fmt.Errorf("%s: extracting archive: %w", t.Name, err)
	}

	summary, err := VerifyArchive(t.ArchivePath)
	if err != nil {
		return fmt.Errorf("%s: %w", t.Name, err)
	}
	logger.Info("built layer archive",
		"path", t.ArchivePath,
		"files", summary.Files,
		"size", humanize.IBytes(uint64(summary.CompressedSize)),
		"unpacked", humanize.IBytes(summary.UnpackedSize),
	)
	return nil
}

// ArchiveSummary describes a verified layer archive.
type ArchiveSummary struct {
	Files          int
	CompressedSize int64
	UnpackedSize   uint64
}

// ErrEmptyArchive is returned by VerifyArchive for an archive with no
// regular files.
var ErrEmptyArchive = errors.New("layer archive contains no files")

// VerifyArchive checks that path is a readable zip archive holding at
// least one file and no more than MaxUnpackedSize bytes uncompressed.
func VerifyArchive(path string) (ArchiveSummary, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ArchiveSummary{}, fmt.Errorf("layer archive: %w", err)
	}
	reader, err := zip.OpenReader(path)
	if err != nil {
		return ArchiveSummary{}, fmt.Errorf("opening layer archive %s: %w", path, err)
	}
	defer reader.Close()

	summary := ArchiveSummary{CompressedSize: info.Size()}
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		summary.Files++
		summary.UnpackedSize += file.UncompressedSize64
	}
	if summary.Files == 0 {
		return summary, ErrEmptyArchive
	}
	if summary.UnpackedSize > MaxUnpackedSize {
		return summary, fmt.Errorf("layer archive unpacks to %s, over the %s limit",
			humanize.IBytes(summary.UnpackedSize), humanize.IBytes(MaxUnpackedSize))
	}
	return summary, nil
}

func imageName(t *target.Target) string {
	return "layercast/" + t.Name + ":build"
}

func containerName(t *target.Target) string {
	return "layercast-" + t.Name
}
