// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Common helpers build extension project trees (WriteTree, NewProject), read
// archives (ZipEntries) and assert on the filesystem (AssertNotExist).
package testutil
