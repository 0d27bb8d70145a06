// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/seamdriven/extpack/internal/config"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `extpack config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage extpack configuration",
		Long: `Manage extpack configuration.

Configuration is read from, in order of precedence:
  - EXTPACK_* environment variables (e.g. EXTPACK_PACKAGER_COMMAND)
  - the file given with --config
  - <project>/extpack.cue
  - built-in defaults`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			return showConfig(cmd, app)
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default extpack.cue into the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			return initConfig(app, force)
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing extpack.cue")
	cfgCmd.AddCommand(initCmd)

	return cfgCmd
}

func showConfig(cmd *cobra.Command, app *App) error {
	root, err := app.projectRoot()
	if err != nil {
		return failCommand(app.stderr, err, app.flags.verbose)
	}

	cfg, source, err := config.LoadWithSource(cmd.Context(), config.LoadOptions{ConfigFilePath: app.flags.cfgFile, ProjectRoot: root})
	if err != nil {
		return failCommand(app.stderr, err, app.flags.verbose)
	}

	if source == "" {
		fmt.Fprintf(app.stderr, "%s: %s\n", CmdStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	} else {
		fmt.Fprintf(app.stderr, "%s: %s\n", CmdStyle.Render("Config file"), source)
	}
	fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
	return nil
}

func initConfig(app *App, force bool) error {
	root, err := app.projectRoot()
	if err != nil {
		return failCommand(app.stderr, err, app.flags.verbose)
	}

	path, err := config.WriteDefault(root, force)
	if err != nil && !errors.Is(err, config.ErrConfigExists) {
		return failCommand(app.stderr, err, app.flags.verbose)
	}
	if err != nil {
		fmt.Fprintf(app.stderr, "%s %s\n", WarningStyle.Render("!"), err)
		fmt.Fprintf(app.stderr, "  Use %s to overwrite it.\n", CmdStyle.Render("extpack config init --force"))
		return &ExitError{Code: 1, Err: err}
	}

	fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}
