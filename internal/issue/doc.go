// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and a catalog of Markdown help
// entries, one per failure kind of the packaging pipeline.
//
// The CLI wraps failures in an ActionableError (what was attempted, on which
// resource, what to try next) and, when the failure maps to a catalog entry,
// renders that entry with glamour below the error message.
package issue
