// SPDX-License-Identifier: MPL-2.0

// Package packager turns a staged bundle into an archive. CommandPackager runs
// an external tool in the staging directory; ArchivePackager writes a
// VSIX-shaped zip in-process.
package packager
