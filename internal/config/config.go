// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/seamdriven/extpack/internal/issue"
	"github.com/seamdriven/extpack/pkg/cueutil"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "extpack"
	// FileName is the project-level config file looked up in the project root.
	FileName = "extpack.cue"
	// EnvPrefix prefixes environment overrides (EXTPACK_PACKAGER_COMMAND, ...).
	EnvPrefix = "EXTPACK"
)

//go:embed config_schema.cue
var configSchema []byte

// loadWithOptions resolves the config file, layers it over the defaults and
// the environment, and validates the result. It returns the path of the file
// that was read, or "" when only defaults and environment were used.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath := ""

	switch {
	case opts.ConfigFilePath != "":
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'extpack config init' to write a default extpack.cue").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		resolvedPath = opts.ConfigFilePath
	case opts.ProjectRoot != "":
		if candidate := filepath.Join(opts.ProjectRoot, FileName); fileExists(candidate) {
			resolvedPath = candidate
		}
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Run 'extpack config show' to see the accepted keys and defaults").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestions(
				"Keep staging_dir a dedicated relative directory inside the project root",
				"Do not reuse an asset, the descriptor or output_dir as staging_dir",
				"Set packager.command or packager.builtin",
			).
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// setDefaults registers every key so that AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("descriptor", d.Descriptor)
	v.SetDefault("staging_dir", d.StagingDir)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("archive_extension", d.ArchiveExtension)
	v.SetDefault("assets", d.Assets)
	v.SetDefault("ignore", d.Ignore)
	if d.DefaultRepository != nil {
		v.SetDefault("default_repository.type", d.DefaultRepository.Type)
		v.SetDefault("default_repository.url", d.DefaultRepository.URL)
	}
	v.SetDefault("packager.command", d.Packager.Command)
	v.SetDefault("packager.builtin", d.Packager.Builtin)
	v.SetDefault("verify.required_commands", d.Verify.RequiredCommands)
	v.SetDefault("verify.content_root", d.Verify.ContentRoot)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", string(d.Log.Format))
}

// loadCUEIntoViper validates a CUE file against #Config and merges it into v.
// Concreteness is not required because every field is optional.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	unified, err := cueutil.Unify(configSchema, data, "#Config",
		cueutil.WithFilename(path),
		cueutil.WithConcrete(false),
	)
	if err != nil {
		return err
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists reports whether path exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// WriteDefault writes a default extpack.cue into projectRoot. An existing file
// is left untouched unless overwrite is set.
func WriteDefault(projectRoot string, overwrite bool) (string, error) {
	path := filepath.Join(projectRoot, FileName)
	if !overwrite && fileExists(path) {
		return path, fmt.Errorf("%s: %w", path, ErrConfigExists)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", issue.WrapWithContext(err, "write configuration", path)
	}
	return path, nil
}

// GenerateCUE renders cfg as an extpack.cue document.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// extpack configuration\n\n")

	fmt.Fprintf(&sb, "descriptor:        %q\n", cfg.Descriptor)
	fmt.Fprintf(&sb, "staging_dir:       %q\n", cfg.StagingDir)
	fmt.Fprintf(&sb, "output_dir:        %q\n", cfg.OutputDir)
	fmt.Fprintf(&sb, "archive_extension: %q\n", cfg.ArchiveExtension)

	sb.WriteString("\nassets: [\n")
	for _, a := range cfg.Assets {
		if a.Required {
			fmt.Fprintf(&sb, "\t{name: %q, required: true},\n", a.Name)
		} else {
			fmt.Fprintf(&sb, "\t{name: %q},\n", a.Name)
		}
	}
	sb.WriteString("]\n")

	sb.WriteString("\nignore: [")
	for i, pat := range cfg.Ignore {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%q", pat)
	}
	sb.WriteString("]\n")

	if cfg.DefaultRepository != nil {
		sb.WriteString("\ndefault_repository: {\n")
		fmt.Fprintf(&sb, "\ttype: %q\n", cfg.DefaultRepository.Type)
		fmt.Fprintf(&sb, "\turl:  %q\n", cfg.DefaultRepository.URL)
		sb.WriteString("}\n")
	}

	sb.WriteString("\npackager: {\n")
	fmt.Fprintf(&sb, "\tcommand: %q\n", cfg.Packager.Command)
	fmt.Fprintf(&sb, "\tbuiltin: %v\n", cfg.Packager.Builtin)
	sb.WriteString("}\n")

	sb.WriteString("\nverify: {\n")
	sb.WriteString("\trequired_commands: [")
	for i, id := range cfg.Verify.RequiredCommands {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%q", id)
	}
	sb.WriteString("]\n")
	fmt.Fprintf(&sb, "\tcontent_root: %q\n", cfg.Verify.ContentRoot)
	sb.WriteString("}\n")

	sb.WriteString("\nlog: {\n")
	fmt.Fprintf(&sb, "\tlevel:  %q\n", cfg.Log.Level)
	fmt.Fprintf(&sb, "\tformat: %q\n", string(cfg.Log.Format))
	sb.WriteString("}\n")

	return sb.String()
}
