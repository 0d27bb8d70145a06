// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the CLI commands for extpack.
//
// The root command wires configuration and logging; package, verify and
// manifest delegate to internal/pipeline, internal/verify and pkg/manifest.
package cmd
