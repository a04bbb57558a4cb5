// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package target

import (
	"strconv"
	"strings"
)

// ArchivePathInImage is where every recipe leaves the layer archive in
// its final image.
const ArchivePathInImage = "/package.zip"

// Recipe is an ordered list of build instructions (a Dockerfile, one
// instruction per element).
type Recipe []string

// Text returns the recipe as written to disk and hashed.
func (r Recipe) Text() string {
	return strings.Join(r, "\n")
}

// assembleRecipe builds the recipe for one leaf. The build stage runs the
// package, runtime, and version pre-instructions, the architecture's
// instructions, then the post-instructions innermost first. The final
// stage copies the source directory into /layer/<target> and zips it
// with extra file attributes (timestamps, uid/gid) excluded.
func assembleRecipe(image, sourceDirectory, targetDirectory string, chain chain) Recipe {
	recipe := Recipe{"FROM " + image + " AS build_image"}
	recipe = append(recipe, chain.pkg.InstructionsPre...)
	recipe = append(recipe, chain.runtime.InstructionsPre...)
	recipe = append(recipe, chain.version.InstructionsPre...)
	recipe = append(recipe, chain.architecture.Instructions...)
	recipe = append(recipe, chain.version.InstructionsPost...)
	recipe = append(recipe, chain.runtime.InstructionsPost...)
	recipe = append(recipe, chain.pkg.InstructionsPost...)

	layerPath := "/layer/" + strings.TrimLeft(targetDirectory, "/")
	recipe = append(recipe,
		"FROM alpine:latest",
		"RUN apk add --no-cache zip",
		"COPY --from=build_image "+strconv.Quote(sourceDirectory)+" "+strconv.Quote(layerPath),
		"WORKDIR /layer",
		`RUN TZ=UTC zip -r -X "`+ArchivePathInImage+`" ./*`,
	)
	return recipe
}
