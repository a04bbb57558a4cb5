// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package layerdef

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	packagePattern = regexp.MustCompile(`^[a-z0-9-]+$`)
	runtimePattern = regexp.MustCompile(`^[a-z0-9.]+$`)
	versionPattern = regexp.MustCompile(`^[a-z0-9.]+$`)
)

// Validate checks identifier rules that the schema cannot see (the
// package name comes from the file name) or that a replacement schema
// may not enforce. An empty result means the declaration is valid.
func Validate(pkg *Package) []Issue {
	var issues []Issue

	if !packagePattern.MatchString(pkg.Name) {
		issues = append(issues, Issue{
			InstanceLocation: "/",
			Message:          fmt.Sprintf("package name %q (from the file name) must match %s", pkg.Name, packagePattern),
		})
	}

	for _, runtimeName := range pkg.RuntimeNames() {
		runtimeLocation := "/runtimes/" + escapeToken(runtimeName)
		if !runtimePattern.MatchString(runtimeName) {
			issues = append(issues, Issue{
				InstanceLocation: runtimeLocation,
				Message:          fmt.Sprintf("runtime %q must match %s", runtimeName, runtimePattern),
			})
		}
		runtime := pkg.Runtimes[runtimeName]
		if runtime == nil {
			issues = append(issues, Issue{InstanceLocation: runtimeLocation, Message: "runtime must be an object"})
			continue
		}

		for _, versionName := range runtime.VersionNames() {
			versionLocation := runtimeLocation + "/versions/" + escapeToken(versionName)
			if !versionPattern.MatchString(versionName) {
				issues = append(issues, Issue{
					InstanceLocation: versionLocation,
					Message:          fmt.Sprintf("version %q must match %s", versionName, versionPattern),
				})
			}
			version := runtime.Versions[versionName]
			if version == nil {
				issues = append(issues, Issue{InstanceLocation: versionLocation, Message: "version must be an object"})
				continue
			}

			for _, architectureName := range version.ArchitectureNames() {
				if _, ok := Platform(architectureName); !ok {
					issues = append(issues, Issue{
						InstanceLocation: versionLocation + "/architectures/" + escapeToken(architectureName),
						Message: fmt.Sprintf("architecture %q is not one of %s",
							architectureName, strings.Join(Architectures(), ", ")),
					})
				}
				if version.Architectures[architectureName] == nil {
					issues = append(issues, Issue{
						InstanceLocation: versionLocation + "/architectures/" + escapeToken(architectureName),
						Message:          "architecture must be an object",
					})
				}
			}
		}
	}

	return issues
}

func escapeToken(token string) string {
	return strings.ReplaceAll(strings.ReplaceAll(token, "~", "~0"), "/", "~1")
}
