// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/seamdriven/extpack/internal/bundle"
	"github.com/seamdriven/extpack/internal/config"
	"github.com/seamdriven/extpack/internal/packager"
	"github.com/seamdriven/extpack/internal/publish"
	"github.com/seamdriven/extpack/pkg/manifest"

	"github.com/google/uuid"
)

// ErrCleanupFailed is the sentinel error wrapped by CleanupError.
var ErrCleanupFailed = errors.New("staging cleanup failed")

type (
	// Options configures Run.
	Options struct {
		ProjectRoot string
		// Descriptor is the manifest file name; empty means package.json.
		Descriptor string
		// StagingDir is relative to ProjectRoot.
		StagingDir string
		// OutputDir is where the archive is published, relative to
		// ProjectRoot unless absolute.
		OutputDir string
		// Extension is the archive suffix, e.g. ".vsix".
		Extension string
		Assets    bundle.AssetSet
		Ignore    []string
		// DefaultRepository fills the minimal descriptor when the project
		// declares none. Nil leaves it out.
		DefaultRepository *manifest.Repository
		Packager          packager.Packager
		Logger            *slog.Logger
	}

	// Result describes a published archive.
	Result struct {
		RunID        uuid.UUID
		Manifest     *manifest.Manifest
		ArtifactPath string
		Duration     time.Duration
	}

	// CleanupError reports a staging directory that could not be removed.
	CleanupError struct {
		Path string
		Err  error
	}
)

// OptionsFromConfig maps an effective configuration onto pipeline options.
// The packager is the builtin archive writer when cfg.Packager.Builtin is
// set, the configured command otherwise.
func OptionsFromConfig(cfg *config.Config, projectRoot string, logger *slog.Logger) Options {
	assets := make(bundle.AssetSet, 0, len(cfg.Assets))
	for _, a := range cfg.Assets {
		assets = append(assets, bundle.Asset{Name: a.Name, Required: a.Required})
	}

	var repo *manifest.Repository
	if cfg.DefaultRepository != nil {
		repo = &manifest.Repository{Type: cfg.DefaultRepository.Type, URL: cfg.DefaultRepository.URL}
	}

	var pkgr packager.Packager
	if cfg.Packager.Builtin {
		pkgr = &packager.ArchivePackager{Descriptor: cfg.Descriptor, Extension: cfg.ArchiveExtension, Logger: logger}
	} else {
		pkgr = packager.NewCommandPackager(cfg.Packager.Command, logger)
	}

	return Options{
		ProjectRoot:       projectRoot,
		Descriptor:        cfg.Descriptor,
		StagingDir:        cfg.StagingDir,
		OutputDir:         cfg.OutputDir,
		Extension:         cfg.ArchiveExtension,
		Assets:            assets,
		Ignore:            cfg.Ignore,
		DefaultRepository: repo,
		Packager:          pkgr,
		Logger:            logger,
	}
}

// Run executes one packaging pass and returns the published archive.
//
// Runs are not serialized: two concurrent runs against the same project root
// share a staging directory and the result is undefined. Callers that need
// parallel builds must use distinct roots or staging directories.
func Run(ctx context.Context, opts Options) (res *Result, err error) {
	start := time.Now()
	runID := uuid.New()

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("run_id", runID.String())

	if opts.Packager == nil {
		return nil, errors.New("pipeline: no packager configured")
	}

	root, err := filepath.Abs(opts.ProjectRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	m, err := manifest.Load(root, opts.Descriptor)
	if err != nil {
		return nil, err
	}
	minimal, err := m.Minimal(opts.DefaultRepository)
	if err != nil {
		return nil, err
	}
	logger.Info("packaging extension", "name", m.Name, "version", m.Version)
	if logger.Enabled(ctx, slog.LevelDebug) {
		fields := minimal.Fields()
		keys := make([]string, len(fields))
		for i, f := range fields {
			keys[i] = f.Key
		}
		logger.Debug("minimal descriptor derived", "fields", keys)
	}

	stagingDir := opts.StagingDir
	if stagingDir == "" {
		stagingDir = config.DefaultConfig().StagingDir
	}
	staging, err := bundle.ResolveStaging(root, stagingDir, opts.Descriptor, opts.Assets)
	if err != nil {
		return nil, err
	}

	ext := opts.Extension
	if ext == "" {
		ext = packager.DefaultExtension
	}
	outDir := opts.OutputDir
	if outDir == "" {
		outDir = "."
	}
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(root, outDir)
	}
	if within(staging, outDir) {
		return nil, &bundle.AssemblyError{
			Op:   "prepare",
			Path: staging,
			Err:  fmt.Errorf("%w: output directory %s", bundle.ErrStagingConflict, outDir),
		}
	}

	// Cleanup is registered only once staging is known to be a disposable
	// child of the project root.
	defer func() {
		if rmErr := os.RemoveAll(staging); rmErr != nil {
			err = errors.Join(err, &CleanupError{Path: staging, Err: rmErr})
			res = nil
			return
		}
		logger.Debug("staging directory removed", "path", staging)
	}()

	assembled, err := bundle.Assemble(ctx, bundle.Options{
		ProjectRoot: root,
		StagingDir:  staging,
		Descriptor:  opts.Descriptor,
		Minimal:     minimal,
		Assets:      opts.Assets,
		Ignore:      opts.Ignore,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("bundle assembled", "copied", assembled.Copied, "skipped", assembled.Skipped)

	if err := opts.Packager.Package(ctx, assembled.StagingPath); err != nil {
		return nil, err
	}

	artifact, err := publish.Publish(assembled.StagingPath, filepath.Join(outDir, m.ArtifactName(ext)), ext)
	if err != nil {
		return nil, err
	}

	res = &Result{
		RunID:        runID,
		Manifest:     m,
		ArtifactPath: artifact,
		Duration:     time.Since(start),
	}
	logger.Info("archive published", "path", artifact, "duration", res.Duration)
	return res, nil
}

// within reports whether p is dir or lies below it.
func within(dir, p string) bool {
	rel, err := filepath.Rel(dir, filepath.Clean(p))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Error implements the error interface.
func (e *CleanupError) Error() string {
	return fmt.Sprintf("remove staging directory %s: %v", e.Path, e.Err)
}

// Unwrap exposes both ErrCleanupFailed and the cause.
func (e *CleanupError) Unwrap() []error { return []error{ErrCleanupFailed, e.Err} }
