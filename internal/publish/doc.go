// SPDX-License-Identifier: MPL-2.0

// Package publish finds the archive a packager left in the staging directory
// and copies it to its final location.
package publish
