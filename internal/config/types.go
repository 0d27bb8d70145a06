// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// LogFormatText is charmbracelet/log's styled text output.
	LogFormatText LogFormat = "text"
	// LogFormatJSON emits one JSON object per record.
	LogFormatJSON LogFormat = "json"
	// LogFormatLogfmt emits logfmt key=value records.
	LogFormatLogfmt LogFormat = "logfmt"
)

var (
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrInvalidLogFormat is returned for an unknown LogFormat.
	ErrInvalidLogFormat = errors.New("invalid log format")

	// ErrConfigExists is returned by WriteDefault when the file is present
	// and overwrite is not set.
	ErrConfigExists = errors.New("config file already exists")
)

type (
	// LogFormat selects the log record encoding.
	LogFormat string

	// AssetEntry is one allow-listed top-level name copied into staging.
	AssetEntry struct {
		Name     string `json:"name" mapstructure:"name"`
		Required bool   `json:"required,omitempty" mapstructure:"required"`
	}

	// RepositoryConfig is written into the minimal descriptor when the
	// project does not declare a repository.
	RepositoryConfig struct {
		Type string `json:"type" mapstructure:"type"`
		URL  string `json:"url" mapstructure:"url"`
	}

	// PackagerConfig selects how the staging directory is turned into an archive.
	PackagerConfig struct {
		// Command is split with shell word rules and run inside staging.
		Command string `json:"command" mapstructure:"command"`
		// Builtin uses the in-process zip packager instead of Command.
		Builtin bool `json:"builtin" mapstructure:"builtin"`
	}

	// VerifyConfig holds the verification inputs.
	VerifyConfig struct {
		// RequiredCommands must all be contributed by the manifest.
		RequiredCommands []string `json:"required_commands" mapstructure:"required_commands"`
		// ContentRoot is the archive prefix under which the bundle lives
		// ("extension/" for VSIX files).
		ContentRoot string `json:"content_root" mapstructure:"content_root"`
	}

	// LogConfig configures the slog handler.
	LogConfig struct {
		Level  string    `json:"level" mapstructure:"level"`
		Format LogFormat `json:"format" mapstructure:"format"`
	}

	// Config is the effective extpack configuration.
	Config struct {
		Descriptor        string            `json:"descriptor" mapstructure:"descriptor"`
		StagingDir        string            `json:"staging_dir" mapstructure:"staging_dir"`
		OutputDir         string            `json:"output_dir" mapstructure:"output_dir"`
		ArchiveExtension  string            `json:"archive_extension" mapstructure:"archive_extension"`
		Assets            []AssetEntry      `json:"assets" mapstructure:"assets"`
		Ignore            []string          `json:"ignore" mapstructure:"ignore"`
		DefaultRepository *RepositoryConfig `json:"default_repository,omitempty" mapstructure:"default_repository"`
		Packager          PackagerConfig    `json:"packager" mapstructure:"packager"`
		Verify            VerifyConfig      `json:"verify" mapstructure:"verify"`
		Log               LogConfig         `json:"log" mapstructure:"log"`
	}

	// InvalidConfigError collects every field problem found by Validate.
	InvalidConfigError struct {
		FieldErrors []error
	}
)

// DefaultConfig returns the configuration used when no file is present: the
// conventional npm + vsce packaging layout.
func DefaultConfig() *Config {
	return &Config{
		Descriptor:       "package.json",
		StagingDir:       "pack-temp",
		OutputDir:        ".",
		ArchiveExtension: ".vsix",
		Assets: []AssetEntry{
			{Name: "dist"},
			{Name: "README.md"},
			{Name: "README.MD"},
			{Name: "README"},
			{Name: "LICENSE"},
			{Name: "LICENSE.md"},
			{Name: "resources"},
		},
		Ignore: []string{},
		DefaultRepository: &RepositoryConfig{
			Type: "git",
			URL:  "https://github.com/Phazzie/SeamDrivenDevelopment",
		},
		Packager: PackagerConfig{
			Command: "npx vsce package",
		},
		Verify: VerifyConfig{
			RequiredCommands: []string{},
			ContentRoot:      "extension/",
		},
		Log: LogConfig{
			Level:  "info",
			Format: LogFormatText,
		},
	}
}

// Validate checks constraints that CUE cannot express or that environment
// overrides may have broken.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Descriptor) == "" {
		errs = append(errs, errors.New("descriptor must not be empty"))
	}
	if err := validateStagingDir(c.StagingDir); err != nil {
		errs = append(errs, err)
	} else {
		errs = append(errs, c.stagingConflicts()...)
	}
	if !strings.HasPrefix(c.ArchiveExtension, ".") || len(c.ArchiveExtension) < 2 {
		errs = append(errs, fmt.Errorf("archive_extension %q must start with a dot", c.ArchiveExtension))
	}
	if !c.Packager.Builtin && strings.TrimSpace(c.Packager.Command) == "" {
		errs = append(errs, errors.New("packager.command must be set unless packager.builtin is true"))
	}

	seen := make(map[string]struct{}, len(c.Assets))
	for i, a := range c.Assets {
		if a.Name == "" || strings.ContainsAny(a.Name, `/\`) || a.Name == "." || a.Name == ".." {
			errs = append(errs, fmt.Errorf("assets[%d]: %q is not a top-level name", i, a.Name))
			continue
		}
		if _, dup := seen[a.Name]; dup {
			errs = append(errs, fmt.Errorf("assets[%d]: duplicate asset %q", i, a.Name))
		}
		seen[a.Name] = struct{}{}
	}

	for i, pat := range c.Ignore {
		if !doublestar.ValidatePattern(pat) {
			errs = append(errs, fmt.Errorf("ignore[%d]: invalid pattern %q", i, pat))
		}
	}

	if err := c.Log.Format.Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// validateStagingDir keeps the staging directory a strict child of the
// project root: it is removed recursively on every run.
func validateStagingDir(dir string) error {
	clean := filepath.Clean(dir)
	switch {
	case strings.TrimSpace(dir) == "":
		return errors.New("staging_dir must not be empty")
	case filepath.IsAbs(clean):
		return fmt.Errorf("staging_dir %q must be relative to the project root", dir)
	case clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)):
		return fmt.Errorf("staging_dir %q must be inside the project root", dir)
	}
	return nil
}

// stagingConflicts rejects a staging_dir that would delete or swallow project
// files: its top-level directory may not be the descriptor or an asset, and a
// relative output_dir may not be it or lie inside it.
func (c *Config) stagingConflicts() []error {
	var errs []error
	staging := filepath.ToSlash(filepath.Clean(c.StagingDir))
	top, _, _ := strings.Cut(staging, "/")

	if strings.EqualFold(top, c.Descriptor) {
		errs = append(errs, fmt.Errorf("staging_dir %q would replace the descriptor %q", c.StagingDir, c.Descriptor))
	}
	for _, a := range c.Assets {
		if a.Name != "" && strings.EqualFold(top, a.Name) {
			errs = append(errs, fmt.Errorf("staging_dir %q would delete the asset %q", c.StagingDir, a.Name))
		}
	}

	if out := c.OutputDir; out != "" && !filepath.IsAbs(out) {
		clean := filepath.ToSlash(filepath.Clean(out))
		if clean == staging || strings.HasPrefix(clean, staging+"/") {
			errs = append(errs, fmt.Errorf("output_dir %q must not be inside staging_dir %q", c.OutputDir, c.StagingDir))
		}
	}
	return errs
}

// Validate returns ErrInvalidLogFormat for unknown formats. Empty means text.
func (f LogFormat) Validate() error {
	switch f {
	case "", LogFormatText, LogFormatJSON, LogFormatLogfmt:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidLogFormat, string(f))
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, fe := range e.FieldErrors {
		msgs = append(msgs, fe.Error())
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrInvalidConfig.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }
