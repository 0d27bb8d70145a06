// SPDX-License-Identifier: MPL-2.0

// Package manifest loads an extension project's descriptor (package.json) and
// derives the minimal descriptor that goes into a redistributable bundle.
//
// The full descriptor is validated against an embedded CUE schema before it is
// decoded. Alongside the typed view, the raw JSON of every top-level field is
// kept so that the minimal projection copies retained fields byte-for-byte
// instead of re-encoding them.
package manifest
