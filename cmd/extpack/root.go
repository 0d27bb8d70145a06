// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/seamdriven/extpack/internal/issue"
	"github.com/seamdriven/extpack/pkg/types"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "extpack",
		Short: "Package and verify editor extensions",
		Long: TitleStyle.Render("extpack") + SubtitleStyle.Render(" - Package and verify editor extensions") + `

extpack stages a minimal copy of an extension project (a trimmed package.json
plus the allow-listed assets), runs a packager inside the staging directory and
publishes the resulting archive as <name>-<version>.vsix next to the project.

` + SubtitleStyle.Render("Examples:") + `
  extpack package                   Build the archive
  extpack verify --require my.cmd   Build, then check the archive
  extpack manifest --minimal        Print the descriptor that gets packaged
  extpack config init               Write a default extpack.cue`,
		SilenceUsage: true,
	}

	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVar(&app.flags.cfgFile, "config", "", "config file (default is <project>/extpack.cue)")
	pf.StringVar(&app.flags.logFormat, "log-format", "", "log format: text, json or logfmt")
	pf.StringVarP(&app.flags.project, "project", "C", "", "extension project directory (default is the working directory)")

	rootCmd.AddCommand(newPackageCommand(app))
	rootCmd.AddCommand(newVerifyCommand(app))
	rootCmd.AddCommand(newManifestCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))
	rootCmd.AddCommand(newVersionCommand(app))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits the process on failure. It is called by
// main.main.
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(int(exitCodeFromError(err)))
	}
}

// exitCodeFromError picks the process exit code for an error returned by the
// root command. An ExitError whose code is zero or out of range still fails
// the process with ExitPipelineFailed.
func exitCodeFromError(err error) types.ExitCode {
	if err == nil {
		return types.ExitSuccess
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		return types.ExitPipelineFailed
	}
	if exitErr.Code.IsSuccess() {
		return types.ExitPipelineFailed
	}
	if vErr := exitErr.Code.Validate(); vErr != nil {
		slog.Warn("ignoring exit code", "error", vErr)
		return types.ExitPipelineFailed
	}
	return exitErr.Code
}

// formatErrorForDisplay formats an error for user display.
// ActionableErrors use their Format method; verbose mode shows the full chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
