// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/seamdriven/extpack/internal/config"
	"github.com/seamdriven/extpack/internal/logging"
)

type (
	// App wires CLI services and shared dependencies. Every command handler
	// receives the same App.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer
		flags  globalFlags
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
	}

	globalFlags struct {
		verbose   bool
		cfgFile   string
		logFormat string
		project   string
	}

	// session is the per-invocation state derived from flags and config.
	session struct {
		root   string
		cfg    *config.Config
		logger *slog.Logger
	}
)

// NewApp creates an App with production defaults for nil dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	return &App{Config: deps.Config, stdout: deps.Stdout, stderr: deps.Stderr}
}

// projectRoot resolves --project, defaulting to the working directory.
func (a *App) projectRoot() (string, error) {
	dir := a.flags.project
	if dir == "" {
		dir = "."
	}
	return filepath.Abs(dir)
}

// newSession loads configuration for the project and builds the logger.
// Flags win over config values.
func (a *App) newSession(ctx context.Context) (*session, error) {
	root, err := a.projectRoot()
	if err != nil {
		return nil, err
	}

	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.flags.cfgFile, ProjectRoot: root})
	if err != nil {
		return nil, err
	}

	format := string(cfg.Log.Format)
	if a.flags.logFormat != "" {
		format = a.flags.logFormat
	}
	logger, err := logging.New(a.stderr, logging.Options{
		Level:   cfg.Log.Level,
		Format:  format,
		Verbose: a.flags.verbose,
	})
	if err != nil {
		return nil, err
	}

	return &session{root: root, cfg: cfg, logger: logger}, nil
}
