// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads trickle's configuration file.
//
// Configuration is loaded from a single file specified by either the
// TRICKLE_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no automatic file search. Fields the file
// omits keep the values from [Default].
//
// Files ending in .json or .jsonc are stripped of comments and
// trailing commas before parsing; everything else is parsed as YAML.
// Durations are written as Go duration strings ("30s", "20ms").
//
// Variable expansion is performed on path fields after loading:
// ${HOME} and ${VAR:-default} patterns are expanded. No environment
// variable overrides a config value.
package config
