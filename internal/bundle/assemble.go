// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/seamdriven/extpack/pkg/manifest"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/u-root/u-root/pkg/cp"
)

var (
	// ErrAssemblyFailure is the sentinel error wrapped by AssemblyError.
	ErrAssemblyFailure = errors.New("assembly failure")

	// ErrStagingOutsideRoot rejects a staging directory that is the project
	// root or lies outside it, since Assemble removes it first.
	ErrStagingOutsideRoot = errors.New("staging directory must be inside the project root")

	// ErrStagingConflict rejects a staging directory that is, or lies inside,
	// the descriptor, an asset or the output directory.
	ErrStagingConflict = errors.New("staging directory overlaps project files")
)

type (
	// Options configures Assemble.
	Options struct {
		// ProjectRoot is the directory assets are copied from.
		ProjectRoot string
		// StagingDir is the directory to (re)create. Relative paths are
		// resolved against ProjectRoot.
		StagingDir string
		// Descriptor is the file name the minimal manifest is written to.
		Descriptor string
		// Minimal is the projected descriptor.
		Minimal *manifest.Minimal
		// Assets is the allow-list; nil means DefaultAssets.
		Assets AssetSet
		// Ignore holds doublestar patterns, relative to ProjectRoot, of files
		// left out of recursive copies.
		Ignore []string
		// Logger receives debug records; nil discards them.
		Logger *slog.Logger
	}

	// Result describes an assembled staging directory.
	Result struct {
		// StagingPath is the absolute staging directory.
		StagingPath string
		// Copied lists the assets that existed and were copied, in order.
		Copied []string
		// Skipped lists optional assets that were absent.
		Skipped []string
	}

	// AssemblyError reports a filesystem failure while staging.
	AssemblyError struct {
		Op   string
		Path string
		Err  error
	}
)

// Assemble recreates the staging directory, writes the minimal descriptor and
// copies every present asset under the same relative name. On error the
// staging directory may be partially populated; removing it is the caller's
// job.
func Assemble(ctx context.Context, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Minimal == nil {
		return nil, &AssemblyError{Op: "prepare", Path: opts.StagingDir, Err: errors.New("no minimal manifest")}
	}

	descriptor := opts.Descriptor
	if descriptor == "" {
		descriptor = manifest.DefaultDescriptor
	}
	assets := opts.Assets
	if assets == nil {
		assets = DefaultAssets()
	}

	root, err := filepath.Abs(opts.ProjectRoot)
	if err != nil {
		return nil, &AssemblyError{Op: "resolve", Path: opts.ProjectRoot, Err: err}
	}
	staging, err := ResolveStaging(root, opts.StagingDir, descriptor, assets)
	if err != nil {
		return nil, err
	}

	if err := os.RemoveAll(staging); err != nil {
		return nil, &AssemblyError{Op: "clear", Path: staging, Err: err}
	}
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return nil, &AssemblyError{Op: "create", Path: staging, Err: err}
	}
	logger.Debug("staging directory created", "path", staging)

	data, err := opts.Minimal.Encode()
	if err != nil {
		return nil, &AssemblyError{Op: "encode descriptor", Path: descriptor, Err: err}
	}
	descPath := filepath.Join(staging, descriptor)
	if err := os.WriteFile(descPath, data, 0o644); err != nil {
		return nil, &AssemblyError{Op: "write descriptor", Path: descPath, Err: err}
	}

	res := &Result{StagingPath: staging}
	copier := cp.Options{NoFollowSymlinks: true}

	for _, asset := range assets {
		if err := ctx.Err(); err != nil {
			return nil, &AssemblyError{Op: "copy", Path: asset.Name, Err: err}
		}
		if asset.Name == descriptor {
			return nil, &AssemblyError{Op: "copy", Path: asset.Name, Err: errors.New("asset would overwrite the staged descriptor")}
		}

		src := filepath.Join(root, asset.Name)
		if _, statErr := os.Lstat(src); statErr != nil {
			if !errors.Is(statErr, fs.ErrNotExist) {
				return nil, &AssemblyError{Op: "stat", Path: src, Err: statErr}
			}
			if asset.Required {
				return nil, &AssemblyError{Op: "copy", Path: src, Err: fmt.Errorf("required asset %q is missing: %w", asset.Name, statErr)}
			}
			res.Skipped = append(res.Skipped, asset.Name)
			continue
		}

		if err := copyAsset(copier, root, src, filepath.Join(staging, asset.Name), opts.Ignore, logger); err != nil {
			return nil, &AssemblyError{Op: "copy", Path: src, Err: err}
		}
		res.Copied = append(res.Copied, asset.Name)
		logger.Debug("asset staged", "asset", asset.Name)
	}

	return res, nil
}

// ResolveStaging returns the absolute staging directory for dir, which is
// either relative to root or absolute. Because the result is removed
// recursively, it must be a strict child of root and its top-level component
// must not name the descriptor or an asset. Nil assets means DefaultAssets.
// Failures are *AssemblyError values matching ErrStagingOutsideRoot or
// ErrStagingConflict.
func ResolveStaging(root, dir, descriptor string, assets AssetSet) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", &AssemblyError{Op: "resolve", Path: root, Err: err}
	}
	staging := dir
	if !filepath.IsAbs(staging) {
		staging = filepath.Join(absRoot, staging)
	}
	staging = filepath.Clean(staging)

	rel, err := filepath.Rel(absRoot, staging)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &AssemblyError{Op: "prepare", Path: staging, Err: ErrStagingOutsideRoot}
	}

	if descriptor == "" {
		descriptor = manifest.DefaultDescriptor
	}
	if assets == nil {
		assets = DefaultAssets()
	}
	top, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
	if strings.EqualFold(top, descriptor) {
		return "", &AssemblyError{Op: "prepare", Path: staging, Err: fmt.Errorf("%w: descriptor %q", ErrStagingConflict, descriptor)}
	}
	for _, a := range assets {
		if strings.EqualFold(top, a.Name) {
			return "", &AssemblyError{Op: "prepare", Path: staging, Err: fmt.Errorf("%w: asset %q", ErrStagingConflict, a.Name)}
		}
	}
	return staging, nil
}

// copyAsset copies src to dst entry by entry, leaving out paths matched by
// the ignore patterns. Symlinks are recreated, not followed.
func copyAsset(copier cp.Options, root, src, dst string, ignore []string, logger *slog.Logger) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if isIgnored(ignore, rel) {
			logger.Debug("asset path ignored", "path", filepath.ToSlash(rel))
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		sub, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		return copier.Copy(path, filepath.Join(dst, sub))
	})
}

// isIgnored reports whether rel (relative to the project root) matches any
// pattern.
func isIgnored(patterns []string, rel string) bool {
	normalized := filepath.ToSlash(rel)
	for _, pat := range patterns {
		if matched, matchErr := doublestar.Match(pat, normalized); matchErr == nil && matched {
			return true
		}
	}
	return false
}

// Error implements the error interface.
func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assemble bundle: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes both ErrAssemblyFailure and the cause.
func (e *AssemblyError) Unwrap() []error { return []error{ErrAssemblyFailure, e.Err} }
