// SPDX-License-Identifier: MPL-2.0

package verify

import (
	"errors"
	"testing"

	"github.com/seamdriven/extpack/pkg/manifest"
)

func parseManifest(t *testing.T, body string) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Parse("/project/package.json", []byte(body))
	if err != nil {
		t.Fatalf("manifest.Parse() error = %v", err)
	}
	return m
}

const abcManifest = `{
	"name": "demo",
	"version": "2.0.0",
	"main": "./dist/extension.js",
	"contributes": {"commands": [
		{"command": "A", "title": "a"},
		{"command": "B", "title": "b"},
		{"command": "C", "title": "c"}
	]}
}`

var goodEntries = EntryList{
	"extension.vsixmanifest",
	"extension/package.json",
	"extension/dist/extension.js",
}

func TestRunChecks_OneMissingCommand(t *testing.T) {
	t.Parallel()

	checks := RunChecks(CheckInput{
		Manifest:         parseManifest(t, abcManifest),
		Entries:          goodEntries,
		RequiredCommands: []manifest.CommandID{"A", "B", "D"},
	})
	report := &Report{Checks: checks}

	failures := report.Failures()
	if len(failures) != 1 {
		t.Fatalf("Failures() = %+v, want exactly one", failures)
	}
	if failures[0].ID != "command:D" {
		t.Errorf("failed check = %q, want command:D", failures[0].ID)
	}
	if len(checks) != 5 {
		t.Errorf("len(checks) = %d, want 5", len(checks))
	}
}

func TestRunChecks_MissingEntryPoint(t *testing.T) {
	t.Parallel()

	checks := RunChecks(CheckInput{
		Manifest:         parseManifest(t, abcManifest),
		Entries:          EntryList{"extension/package.json", "extension/dist/other.js"},
		RequiredCommands: []manifest.CommandID{"A"},
	})

	var failed []string
	for _, c := range checks {
		if !c.Passed {
			failed = append(failed, c.ID)
		}
	}
	if len(failed) != 1 || failed[0] != string(CheckEntryPoint) {
		t.Errorf("failed checks = %v, want [entry-point]", failed)
	}
}

func TestRunChecks_AllPass(t *testing.T) {
	t.Parallel()

	report := &Report{Checks: RunChecks(CheckInput{
		Manifest:         parseManifest(t, abcManifest),
		Entries:          goodEntries,
		RequiredCommands: []manifest.CommandID{"A", "B", "C"},
	})}
	if !report.Passed() {
		t.Errorf("Passed() = false, failures %+v", report.Failures())
	}
	if err := report.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
}

func TestCheckEntryPoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		main    string
		entries EntryList
		want    bool
	}{
		{name: "under content root", main: "./dist/extension.js", entries: EntryList{"extension/dist/extension.js"}, want: true},
		{name: "at archive root", main: "dist/extension.js", entries: EntryList{"dist/extension.js"}, want: true},
		{name: "partial name", main: "dist/extension.js", entries: EntryList{"extension/mydist/extension.js"}, want: false},
		{name: "absent", main: "dist/extension.js", entries: EntryList{"extension/package.json"}, want: false},
		{name: "no main", main: "", entries: EntryList{"extension/dist/extension.js"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := &manifest.Manifest{Name: "demo", Version: "1.0.0", Main: tt.main}
			if got := checkEntryPoint(m, tt.entries).Passed; got != tt.want {
				t.Errorf("checkEntryPoint() passed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheckDescriptor_ContentRoot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		root    string
		entries EntryList
		want    bool
	}{
		{root: "", entries: EntryList{"extension/package.json"}, want: true},
		{root: "extension", entries: EntryList{"extension/package.json"}, want: true},
		{root: "/", entries: EntryList{"package.json"}, want: true},
		{root: "", entries: EntryList{"package.json"}, want: false},
		{root: "", entries: EntryList{"extension/node_modules/x/package.json"}, want: false},
	}
	for _, tt := range tests {
		got := checkDescriptor(CheckInput{Entries: tt.entries, ContentRoot: tt.root}).Passed
		if got != tt.want {
			t.Errorf("checkDescriptor(root=%q, %v) = %v, want %v", tt.root, tt.entries, got, tt.want)
		}
	}
}

func TestReport_Err(t *testing.T) {
	t.Parallel()

	report := &Report{Checks: []Check{
		{ID: "entry-point", Passed: false, Expected: "dist/a.js", Found: "no matching entry"},
		{ID: "descriptor", Passed: true},
		{ID: "command:X", Passed: false, Expected: "X", Found: "not contributed"},
	}}

	err := report.Err()
	if !errors.Is(err, ErrVerificationCheckFailed) {
		t.Fatalf("Err() = %v, want ErrVerificationCheckFailed", err)
	}
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) || len(joined.Unwrap()) != 2 {
		t.Errorf("Err() should join two check failures, got %v", err)
	}
}
