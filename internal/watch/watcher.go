// SPDX-License-Identifier: MPL-2.0

// Package watch rebuilds an extension when its packaged inputs change.
//
// A Watcher registers every non-ignored directory of the project with
// fsnotify, filters events through doublestar patterns and calls OnChange
// once per burst of changes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last event before a rebuild.
const DefaultDebounce = 500 * time.Millisecond

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("watch: Run called more than once")

// defaultIgnores never trigger a rebuild: VCS metadata, dependency caches,
// editor swap files and previously built archives.
var defaultIgnores = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/*.swp",
	"**/*~",
	"**/.DS_Store",
	"**/*.vsix",
}

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// ProjectRoot is the directory to watch.
		ProjectRoot string

		// Inputs are doublestar patterns, relative to ProjectRoot, of the
		// files whose changes trigger a rebuild. Empty means every
		// non-ignored file.
		Inputs []string

		// Ignore is merged with the built-in ignores. Callers add the staging
		// and output directories here.
		Ignore []string

		// Debounce falls back to DefaultDebounce when zero or negative.
		Debounce time.Duration

		// OnChange receives the changed paths, relative to ProjectRoot and
		// sorted. Its error is logged, not returned from Run.
		OnChange func(ctx context.Context, changed []string) error

		Logger *slog.Logger
	}

	// Watcher monitors a project tree. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		root     string
		ignores  []string
		debounce time.Duration
		logger   *slog.Logger
		started  atomic.Bool
	}
)

// InputPatterns returns the patterns covering a descriptor and a list of
// top-level asset names (files or directories).
func InputPatterns(descriptor string, assets []string) []string {
	patterns := make([]string, 0, 1+2*len(assets))
	patterns = append(patterns, doublestar.EscapeMeta(descriptor))
	for _, a := range assets {
		escaped := doublestar.EscapeMeta(a)
		patterns = append(patterns, escaped, escaped+"/**")
	}
	return patterns
}

// New validates cfg and registers the project tree with fsnotify.
func New(cfg Config) (*Watcher, error) {
	root := cfg.ProjectRoot
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve project root: %w", err)
	}

	if err := validatePatterns(cfg.Inputs, "input"); err != nil {
		return nil, err
	}
	if err := validatePatterns(cfg.Ignore, "ignore"); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		root:     abs,
		ignores:  append(append([]string{}, defaultIgnores...), cfg.Ignore...),
		debounce: debounce,
		logger:   logger,
	}

	if err := w.addTree(abs); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is done. It returns nil on cancellation and
// an error when fsnotify reports an unrecoverable condition.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	d := newDebouncer(w.debounce, func(changed []string) {
		if ctx.Err() != nil || w.cfg.OnChange == nil {
			return
		}
		w.logger.Debug("inputs changed", "paths", changed)
		if err := w.cfg.OnChange(ctx, changed); err != nil {
			w.logger.Error("rebuild failed", "error", err)
		}
	}, w.logger)

	defer func() {
		d.stop()
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("close fsnotify watcher", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			w.handle(evt, d)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("fsnotify error", "error", err)
		}
	}
}

func (w *Watcher) handle(evt fsnotify.Event, d *debouncer) {
	rel, err := filepath.Rel(w.root, evt.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	if w.ignored(rel) {
		return
	}
	// New directories are registered even when no input pattern matches
	// them yet, so files created inside later are seen.
	if evt.Has(fsnotify.Create) {
		if info, statErr := os.Stat(evt.Name); statErr == nil && info.IsDir() {
			if addErr := w.addTree(evt.Name); addErr != nil {
				w.logger.Warn("watch new directory", "path", rel, "error", addErr)
			}
		}
	}
	if !w.isInput(rel) {
		return
	}
	d.add(rel)
}

// addTree registers dir and every non-ignored directory below it.
func (w *Watcher) addTree(dir string) error {
	err := filepath.WalkDir(dir, func(path string, entry os.DirEntry, walkErr error) error {
		if walkErr != nil {
			w.logger.Warn("skipping inaccessible path", "path", path, "error", walkErr)
			return nil //nolint:nilerr // unreadable directories are not watched
		}
		if !entry.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil //nolint:nilerr // outside the project root
		}
		rel = filepath.ToSlash(rel)
		if rel != "." && (w.ignored(rel) || w.ignored(rel+"/")) {
			return filepath.SkipDir
		}

		if addErr := w.fsw.Add(path); addErr != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, addErr)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk %s: %w", dir, err)
	}
	return nil
}

func (w *Watcher) ignored(rel string) bool {
	return matchAny(w.ignores, rel)
}

func (w *Watcher) isInput(rel string) bool {
	return len(w.cfg.Inputs) == 0 || matchAny(w.cfg.Inputs, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if matched, err := doublestar.Match(pat, rel); err == nil && matched {
			return true
		}
	}
	return false
}

func validatePatterns(patterns []string, kind string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("watch: invalid %s pattern %q", kind, p)
		}
	}
	return nil
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	out := make([]string, len(defaultIgnores))
	copy(out, defaultIgnores)
	return out
}
