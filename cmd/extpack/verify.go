// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/seamdriven/extpack/internal/verify"
	"github.com/seamdriven/extpack/pkg/manifest"

	"github.com/spf13/cobra"
)

func newVerifyCommand(app *App) *cobra.Command {
	var (
		required   []string
		reportPath string
		quiet      bool
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Build the archive and check it against package.json",
		Long: `Build the archive, then open it and check that:

  - the entry point declared by "main" is in the archive
  - the descriptor sits at the archive's content root
  - every required command is contributed by package.json

All checks run even when one fails. The exit status is 0 when every check
passes, 1 when a check fails and 2 when the archive could not be built.`,
		Example: `  # Verify with the required commands from extpack.cue
  extpack verify

  # Require extra commands and save a YAML report
  extpack verify --require sdd.analyzeFunction --require sdd.validateContract --report verify.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			return runVerify(cmd, app, required, reportPath, quiet)
		},
	}

	cmd.Flags().StringArrayVarP(&required, "require", "r", nil, "command id that must be contributed (repeatable)")
	cmd.Flags().StringVar(&reportPath, "report", "", "write the report to this file (.json, .yaml or .toml)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not list archive entries")

	return cmd
}

func runVerify(cmd *cobra.Command, app *App, required []string, reportPath string, quiet bool) error {
	sess, err := app.newSession(cmd.Context())
	if err != nil {
		return failCommand(app.stderr, err, app.flags.verbose)
	}

	fmt.Fprintln(app.stdout, TitleStyle.Render("Verify Extension"))

	report, err := verify.Verify(cmd.Context(), verify.Options{
		Pipeline:         app.pipelineOptions(sess),
		RequiredCommands: requiredCommands(sess.cfg.Verify.RequiredCommands, required),
		ContentRoot:      sess.cfg.Verify.ContentRoot,
	})
	if err != nil {
		return failCommand(app.stderr, err, app.flags.verbose)
	}

	fmt.Fprintf(app.stdout, "%s Archive: %s\n", infoIcon, CmdStyle.Render(report.ArtifactPath))
	fmt.Fprintln(app.stdout)
	for _, c := range report.Checks {
		if c.Passed {
			fmt.Fprintf(app.stdout, "%s %s %s\n", successIcon, c.ID, SubtitleStyle.Render(c.Found))
		} else {
			fmt.Fprintf(app.stdout, "%s %s expected %s, found %s\n", errorIcon, c.ID, c.Expected, c.Found)
		}
	}

	if !quiet {
		fmt.Fprintln(app.stdout)
		fmt.Fprintf(app.stdout, "%s (%d):\n", SubtitleStyle.Render("Entries"), len(report.Entries))
		for _, e := range report.Entries {
			fmt.Fprintf(app.stdout, "  %s\n", e)
		}
	}

	if reportPath != "" {
		if err := report.WriteFile(reportPath); err != nil {
			return failCommand(app.stderr, fmt.Errorf("write report: %w", err), app.flags.verbose)
		}
		fmt.Fprintf(app.stdout, "%s Report written to %s\n", infoIcon, CmdStyle.Render(reportPath))
	}

	if err := report.Err(); err != nil {
		fmt.Fprintln(app.stdout)
		fmt.Fprintf(app.stdout, "%s %d of %d checks failed\n", errorIcon, len(report.Failures()), len(report.Checks))
		return failCommand(app.stderr, err, app.flags.verbose)
	}

	fmt.Fprintln(app.stdout)
	fmt.Fprintf(app.stdout, "%s All %d checks passed\n", successIcon, len(report.Checks))
	return nil
}

// requiredCommands merges configured and flag-supplied ids, keeping the first
// occurrence of each.
func requiredCommands(configured, flagged []string) []manifest.CommandID {
	seen := make(map[string]bool, len(configured)+len(flagged))
	var ids []manifest.CommandID
	for _, list := range [][]string{configured, flagged} {
		for _, id := range list {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, manifest.CommandID(id))
		}
	}
	return ids
}
