// SPDX-License-Identifier: MPL-2.0

// Package bundle assembles the staging directory handed to the packager.
//
// A bundle is the minimal descriptor plus an allow-listed set of top-level
// project entries (build output, readme and license variants, resources).
// Assemble always starts from an empty staging directory: whatever was there
// before is removed first.
package bundle
