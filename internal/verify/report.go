// SPDX-License-Identifier: MPL-2.0

package verify

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	// FormatJSON encodes reports as indented JSON.
	FormatJSON Format = "json"
	// FormatYAML encodes reports as YAML.
	FormatYAML Format = "yaml"
	// FormatTOML encodes reports as TOML.
	FormatTOML Format = "toml"
)

// ErrUnknownFormat is returned for a report format other than json, yaml or toml.
var ErrUnknownFormat = errors.New("unknown report format")

type (
	// Format names a report encoding.
	Format string

	// Report is the outcome of one verification run.
	Report struct {
		RunID        string    `json:"run_id" yaml:"run_id" toml:"run_id"`
		ArtifactPath string    `json:"artifact" yaml:"artifact" toml:"artifact"`
		Entries      EntryList `json:"entries" yaml:"entries" toml:"entries"`
		Checks       []Check   `json:"checks" yaml:"checks" toml:"checks"`
	}
)

// Passed reports whether every check passed.
func (r *Report) Passed() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// Failures returns the failed checks in report order.
func (r *Report) Failures() []Check {
	var failed []Check
	for _, c := range r.Checks {
		if !c.Passed {
			failed = append(failed, c)
		}
	}
	return failed
}

// Err joins one CheckFailedError per failed check, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, c := range r.Failures() {
		errs = append(errs, &CheckFailedError{Check: c})
	}
	return errors.Join(errs...)
}

// Encode writes r to w in the given format.
func (r *Report) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		return toml.NewEncoder(w).Encode(r)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteFile encodes r to path, picking the format from the file extension.
// Unknown extensions get JSON.
func (r *Report) WriteFile(path string) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return r.Encode(f, FormatForPath(path))
}

// FormatForPath maps a file extension to a report format.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}
