// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/seamdriven/extpack/internal/packager"
	"github.com/seamdriven/extpack/internal/pipeline"
	"github.com/seamdriven/extpack/internal/watch"

	"github.com/spf13/cobra"
)

type packageFlags struct {
	watch    bool
	debounce time.Duration
}

func newPackageCommand(app *App) *cobra.Command {
	var flags packageFlags

	cmd := &cobra.Command{
		Use:   "package",
		Short: "Build the extension archive",
		Long: `Build the extension archive.

The project's package.json is reduced to the fields an installed extension
needs and written, together with the allow-listed assets, into a fresh staging
directory. The packager runs inside that directory and the archive it produces
is copied to <project>/<name>-<version>.vsix. The staging directory is removed
afterwards, whether or not packaging succeeded.`,
		Example: `  # Package the extension in the current directory
  extpack package

  # Package another project with the built-in zip writer
  EXTPACK_PACKAGER_BUILTIN=true extpack package -C ./my-extension

  # Rebuild whenever package.json or an asset changes
  extpack package --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			return runPackage(cmd, app, flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "rebuild when the descriptor or an asset changes")
	cmd.Flags().DurationVar(&flags.debounce, "debounce", watch.DefaultDebounce, "quiet period before a rebuild in watch mode")

	return cmd
}

func runPackage(cmd *cobra.Command, app *App, flags packageFlags) error {
	sess, err := app.newSession(cmd.Context())
	if err != nil {
		return failCommand(app.stderr, err, app.flags.verbose)
	}

	fmt.Fprintln(app.stdout, TitleStyle.Render("Package Extension"))

	if flags.watch {
		return runPackageWatch(cmd.Context(), app, sess, flags.debounce)
	}

	res, err := pipeline.Run(cmd.Context(), app.pipelineOptions(sess))
	if err != nil {
		return failCommand(app.stderr, err, app.flags.verbose)
	}

	printArtifact(app, res)
	return nil
}

// runPackageWatch builds once, then rebuilds on every debounced change to the
// packaged inputs until the context is canceled. Failed rebuilds are reported
// and watching continues.
func runPackageWatch(ctx context.Context, app *App, sess *session, debounce time.Duration) error {
	opts := app.pipelineOptions(sess)

	build := func(ctx context.Context) {
		res, err := pipeline.Run(ctx, opts)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			_ = failCommand(app.stderr, err, app.flags.verbose)
			return
		}
		printArtifact(app, res)
	}

	build(ctx)

	descriptor := opts.Descriptor
	if descriptor == "" {
		descriptor = "package.json"
	}
	w, err := watch.New(watch.Config{
		ProjectRoot: opts.ProjectRoot,
		Inputs:      watch.InputPatterns(descriptor, opts.Assets.Names()),
		Ignore:      watchIgnores(opts),
		Debounce:    debounce,
		Logger:      sess.logger,
		OnChange: func(ctx context.Context, changed []string) error {
			fmt.Fprintf(app.stdout, "%s Changed: %s\n", infoIcon, strings.Join(changed, ", "))
			build(ctx)
			return nil
		},
	})
	if err != nil {
		return failCommand(app.stderr, err, app.flags.verbose)
	}

	fmt.Fprintf(app.stdout, "%s Watching %s (Ctrl+C to stop)\n", infoIcon, CmdStyle.Render(opts.ProjectRoot))
	if err := w.Run(ctx); err != nil {
		return failCommand(app.stderr, err, app.flags.verbose)
	}
	return nil
}

// watchIgnores keeps pipeline output from retriggering a rebuild.
func watchIgnores(opts pipeline.Options) []string {
	ignores := []string{}
	if staging := opts.StagingDir; staging != "" {
		if filepath.IsAbs(staging) {
			if rel, err := filepath.Rel(opts.ProjectRoot, staging); err == nil {
				staging = rel
			}
		}
		ignores = append(ignores, filepath.ToSlash(filepath.Clean(staging))+"/**")
	}
	if opts.Extension != "" {
		ignores = append(ignores, "**/*"+opts.Extension)
	}
	if out := opts.OutputDir; out != "" && !filepath.IsAbs(out) {
		if clean := filepath.ToSlash(filepath.Clean(out)); clean != "." {
			ignores = append(ignores, clean+"/**")
		}
	}
	return append(ignores, opts.Ignore...)
}

// pipelineOptions maps the session config onto pipeline options and routes
// packager output through the App's writers.
func (a *App) pipelineOptions(sess *session) pipeline.Options {
	opts := pipeline.OptionsFromConfig(sess.cfg, sess.root, sess.logger)
	if cp, ok := opts.Packager.(*packager.CommandPackager); ok {
		cp.Stdout = a.stdout
		cp.Stderr = a.stderr
	}
	return opts
}

func printArtifact(app *App, res *pipeline.Result) {
	fmt.Fprintf(app.stdout, "%s Published %s\n", successIcon, CmdStyle.Render(res.ArtifactPath))
	if info, err := os.Stat(res.ArtifactPath); err == nil {
		fmt.Fprintf(app.stdout, "%s Size: %s\n", infoIcon, formatFileSize(info.Size()))
	}
	fmt.Fprintf(app.stdout, "%s Extension: %s@%s\n", infoIcon, res.Manifest.Name, res.Manifest.Version)
	fmt.Fprintf(app.stdout, "%s Run: %s (%s)\n", infoIcon, res.RunID, res.Duration.Round(1e6))
}
