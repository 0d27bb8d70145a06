// SPDX-License-Identifier: MPL-2.0

// Package verify runs the packaging pipeline, opens the published archive and
// checks it against the project manifest. Every check runs; the Report
// carries all outcomes.
package verify
