// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for GazeWire
// tools.
//
// Configuration is loaded from a single file: the path passed to
// [Load], or the GAZEWIRE_CONFIG environment variable when the path
// is empty. There are no fallbacks, no ~/.config discovery, and no
// automatic file search. This ensures deterministic, auditable
// configuration with no hidden overrides.
//
// Unknown fields in the file are errors, so typos fail loudly instead
// of silently falling back to defaults.
//
// Variable expansion is performed on path fields after loading:
// ${HOME} and ${VAR:-default} patterns are expanded. No other
// environment variables override config values.
//
// Key exports:
//
//   - [Config] -- endpoint, client name, viewport, weights profile,
//     auto-start command, log level
//   - [Default] -- returns a Config with the stock defaults
//   - [Load] -- the single entry point for loading
package config
