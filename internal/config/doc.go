// SPDX-License-Identifier: MPL-2.0

// Package config handles extpack configuration using Viper with CUE as the file format.
//
// Configuration is read from the file given with --config or, failing that,
// from extpack.cue in the project root. Every key has a default, so a project
// without a config file packages the conventional vsce way:
// stage into pack-temp, run "npx vsce package", publish <name>-<version>.vsix.
//
// Values are validated against the embedded config_schema.cue and can be
// overridden with EXTPACK_* environment variables (EXTPACK_PACKAGER_COMMAND,
// EXTPACK_LOG_LEVEL, ...).
package config
