// SPDX-License-Identifier: MPL-2.0

package verify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/seamdriven/extpack/pkg/manifest"
)

const (
	// CheckEntryPoint asserts the declared main file is in the archive.
	CheckEntryPoint CheckKind = "entry-point"
	// CheckDescriptor asserts the descriptor sits at the content root.
	CheckDescriptor CheckKind = "descriptor"
	// CheckCommand asserts a required command is contributed.
	CheckCommand CheckKind = "command"

	// DefaultContentRoot is where VSIX archives keep the bundle.
	DefaultContentRoot = "extension/"
)

// ErrVerificationCheckFailed is the sentinel error wrapped by CheckFailedError.
var ErrVerificationCheckFailed = errors.New("verification check failed")

type (
	// CheckKind groups checks by the invariant they assert.
	CheckKind string

	// Check is the outcome of one invariant.
	Check struct {
		ID          string    `json:"id" yaml:"id" toml:"id"`
		Kind        CheckKind `json:"kind" yaml:"kind" toml:"kind"`
		Description string    `json:"description" yaml:"description" toml:"description"`
		Passed      bool      `json:"passed" yaml:"passed" toml:"passed"`
		Expected    string    `json:"expected" yaml:"expected" toml:"expected"`
		Found       string    `json:"found,omitempty" yaml:"found,omitempty" toml:"found,omitempty"`
	}

	// CheckInput is what the checks compare.
	CheckInput struct {
		Manifest *manifest.Manifest
		Entries  EntryList
		// Descriptor is the descriptor file name; empty means package.json.
		Descriptor string
		// ContentRoot prefixes the descriptor entry; empty means
		// DefaultContentRoot. Use "/" for archives without a content root.
		ContentRoot string
		// RequiredCommands must each be contributed by the manifest.
		RequiredCommands []manifest.CommandID
	}

	// CheckFailedError reports one failed check.
	CheckFailedError struct {
		Check Check
	}
)

// RunChecks evaluates every check in a fixed order: entry point, descriptor,
// then one check per required command. It never stops early.
func RunChecks(in CheckInput) []Check {
	checks := make([]Check, 0, 2+len(in.RequiredCommands))
	checks = append(checks, checkEntryPoint(in.Manifest, in.Entries), checkDescriptor(in))
	for _, id := range in.RequiredCommands {
		checks = append(checks, checkCommand(in.Manifest, id))
	}
	return checks
}

func checkEntryPoint(m *manifest.Manifest, entries EntryList) Check {
	c := Check{
		ID:          string(CheckEntryPoint),
		Kind:        CheckEntryPoint,
		Description: "archive contains the declared entry point",
	}
	ep := m.EntryPoint()
	if ep == "" {
		c.Expected = "a declared main file"
		c.Found = "manifest declares no main"
		return c
	}
	c.Expected = ep
	for _, e := range entries {
		if e == ep || strings.HasSuffix(e, "/"+ep) {
			c.Passed = true
			c.Found = e
			return c
		}
	}
	c.Found = "no matching entry"
	return c
}

func checkDescriptor(in CheckInput) Check {
	descriptor := in.Descriptor
	if descriptor == "" {
		descriptor = manifest.DefaultDescriptor
	}
	want := contentPath(in.ContentRoot, descriptor)

	c := Check{
		ID:          string(CheckDescriptor),
		Kind:        CheckDescriptor,
		Description: "archive contains the descriptor at the content root",
		Expected:    want,
	}
	if in.Entries.Contains(want) {
		c.Passed = true
		c.Found = want
		return c
	}
	c.Found = "no matching entry"
	return c
}

func checkCommand(m *manifest.Manifest, id manifest.CommandID) Check {
	c := Check{
		ID:          fmt.Sprintf("%s:%s", CheckCommand, id),
		Kind:        CheckCommand,
		Description: fmt.Sprintf("manifest contributes command %s", id),
		Expected:    string(id),
	}
	if m.HasCommand(id) {
		c.Passed = true
		c.Found = string(id)
		return c
	}
	c.Found = "not contributed"
	return c
}

// contentPath joins a content root and a name. "/" means the archive root.
func contentPath(root, name string) string {
	switch root {
	case "":
		root = DefaultContentRoot
	case "/":
		return name
	}
	if !strings.HasSuffix(root, "/") {
		root += "/"
	}
	return root + name
}

// Error implements the error interface.
func (e *CheckFailedError) Error() string {
	return fmt.Sprintf("check %s failed: expected %s, found %s", e.Check.ID, e.Check.Expected, e.Check.Found)
}

// Unwrap returns ErrVerificationCheckFailed.
func (e *CheckFailedError) Unwrap() error { return ErrVerificationCheckFailed }
