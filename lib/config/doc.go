// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the run configuration for picklecompat.
//
// Configuration comes from a single file named by the --config flag or
// the PICKLECOMPAT_CONFIG environment variable (via [Load]). Files
// ending in .json or .jsonc are parsed as JSON with comments and
// trailing commas; anything else is parsed as YAML. Fields the file
// omits keep their [Default] values.
//
// Variable expansion is performed on environment commands, environment
// variables, and output paths after loading: ${VAR} and
// ${VAR:-default} patterns are expanded from the process environment.
//
// Key exports:
//
//   - [Config] -- environments, protocols, corpus, oracle, and output
//   - [Default] -- a Config that runs the local python3 against the
//     built-in og-rek worker
//   - [Load] and [LoadFile] -- the two entry points for loading
//   - [Config.MatrixConfig], [Config.GeneratorConfig] -- resolve to the
//     settings the matrix runner and corpus generator take
package config
