// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for layercast.
//
// Configuration is loaded from a single file specified by either the
// LAYERCAST_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no discovery and no automatic file search.
// Commands that only build locally run on [Default] when no file is
// given; commands that touch the cloud call [Config.ValidateCloud].
//
// The file may carry staging and production sections that override the
// base values when [Config].Environment selects them, so one file can
// describe both publications.
//
// Variable expansion is performed on path fields after loading:
// ${VAR} and ${VAR:-default} patterns are expanded. No other environment
// variables override config values.
package config
