// SPDX-License-Identifier: MPL-2.0

// Package pipeline runs one packaging pass: load the manifest, assemble the
// staging directory, invoke the packager and publish the archive. The staging
// directory is removed on every exit path.
package pipeline
