// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for biovault.
//
// Configuration is loaded from a single file specified by either the
// BIOVAULT_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no automatic file search.
//
// The configuration file supports environment-specific sections
// (development, staging, production) that override base values when
// [Config].Environment matches. Production defaults to JSON logs, and
// [Config.Validate] refuses the memory store and the simulated
// biometric device in production.
//
// BIOVAULT_* environment variables (BIOVAULT_STORE_PATH,
// BIOVAULT_LOG_LEVEL, ...) override file values; they are parsed with
// caarlos0/env after the environment section is applied. ${HOME} and
// ${VAR:-default} patterns are expanded in store paths last.
//
// Key exports:
//
//   - [Config] -- master struct with Vault, Store, Biometric, Log
//   - [Default] -- returns a Config with development defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
package config
