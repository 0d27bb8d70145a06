// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/seamdriven/extpack/internal/bundle"
	"github.com/seamdriven/extpack/internal/config"
	"github.com/seamdriven/extpack/internal/packager"
	"github.com/seamdriven/extpack/internal/publish"
	"github.com/seamdriven/extpack/internal/testutil"
	"github.com/seamdriven/extpack/pkg/manifest"

	"github.com/google/uuid"
)

// packagerFunc adapts a function to packager.Packager.
type packagerFunc func(ctx context.Context, workDir string) error

func (f packagerFunc) Package(ctx context.Context, workDir string) error { return f(ctx, workDir) }

var errBoom = errors.New("boom")

func baseOptions(root string, p packager.Packager) Options {
	return Options{
		ProjectRoot: root,
		StagingDir:  "pack-temp",
		Extension:   ".vsix",
		Packager:    p,
	}
}

func assertNoStaging(t *testing.T, root string) {
	t.Helper()
	testutil.AssertNotExist(t, filepath.Join(root, "pack-temp"))
}

func TestRun_PublishesArchive(t *testing.T) {
	t.Parallel()

	root := testutil.NewProject(t, testutil.DemoManifest, nil)
	res, err := Run(context.Background(), baseOptions(root, &packager.ArchivePackager{}))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := filepath.Join(root, "demo-2.0.0.vsix")
	if res.ArtifactPath != want {
		t.Errorf("ArtifactPath = %q, want %q", res.ArtifactPath, want)
	}
	info, err := os.Stat(want)
	if err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("artifact is empty")
	}
	if res.RunID == uuid.Nil {
		t.Error("RunID should be set")
	}
	if res.Manifest.Name != "demo" {
		t.Errorf("Manifest.Name = %q, want demo", res.Manifest.Name)
	}
	assertNoStaging(t, root)
}

func TestRun_OutputDir(t *testing.T) {
	t.Parallel()

	root := testutil.NewProject(t, testutil.DemoManifest, nil)
	opts := baseOptions(root, &packager.ArchivePackager{})
	opts.OutputDir = "out"

	res, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.ArtifactPath != filepath.Join(root, "out", "demo-2.0.0.vsix") {
		t.Errorf("ArtifactPath = %q", res.ArtifactPath)
	}
}

func TestRun_PackagerSeesMinimalBundle(t *testing.T) {
	t.Parallel()

	root := testutil.NewProject(t, testutil.DemoManifest, nil)
	var seen []string
	p := packagerFunc(func(_ context.Context, workDir string) error {
		entries, err := os.ReadDir(workDir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			seen = append(seen, e.Name())
		}
		m, err := manifest.Load(workDir, "")
		if err != nil {
			return err
		}
		if _, ok := m.RawField("devDependencies"); ok {
			return errors.New("staged descriptor kept devDependencies")
		}
		return os.WriteFile(filepath.Join(workDir, "demo-2.0.0.vsix"), []byte("zip"), 0o644)
	})

	if _, err := Run(context.Background(), baseOptions(root, p)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := map[string]bool{"README.md": true, "dist": true, "package.json": true}
	if len(seen) != len(want) {
		t.Fatalf("staged entries = %v", seen)
	}
	for _, name := range seen {
		if !want[name] {
			t.Errorf("unexpected staged entry %q", name)
		}
	}
}

func TestRun_StagingRemovedOnFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		packager packager.Packager
		assets   bundle.AssetSet
		wantErr  error
	}{
		{
			name:     "assembly",
			packager: &packager.ArchivePackager{},
			assets:   bundle.AssetSet{{Name: "dist"}, {Name: "LICENSE", Required: true}},
			wantErr:  bundle.ErrAssemblyFailure,
		},
		{
			name: "packager",
			packager: packagerFunc(func(context.Context, string) error {
				return &packager.InvocationError{Command: "fake", ExitCode: 1, Err: errBoom}
			}),
			wantErr: packager.ErrPackagerInvocationFailed,
		},
		{
			name:     "no artifact",
			packager: packagerFunc(func(context.Context, string) error { return nil }),
			wantErr:  publish.ErrNoArtifactProduced,
		},
		{
			name: "ambiguous",
			packager: packagerFunc(func(_ context.Context, dir string) error {
				for _, n := range []string{"a.vsix", "b.vsix"} {
					if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
						return err
					}
				}
				return nil
			}),
			wantErr: publish.ErrAmbiguousArtifact,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := testutil.NewProject(t, testutil.DemoManifest, nil)
			opts := baseOptions(root, tt.packager)
			opts.Assets = tt.assets

			res, err := Run(context.Background(), opts)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Run() error = %v, want %v", err, tt.wantErr)
			}
			if res != nil {
				t.Errorf("Run() result = %+v, want nil", res)
			}
			assertNoStaging(t, root)
			testutil.AssertNotExist(t, filepath.Join(root, "demo-2.0.0.vsix"))
		})
	}
}

func TestRun_RejectsUnsafeStaging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		staging  string
		output   string
		wantErr  error
		mustKeep []string
	}{
		{name: "project root", staging: ".", wantErr: bundle.ErrStagingOutsideRoot, mustKeep: []string{"package.json", "src/extension.ts"}},
		{name: "parent", staging: "..", wantErr: bundle.ErrStagingOutsideRoot, mustKeep: []string{"package.json"}},
		{name: "asset dir", staging: "dist", wantErr: bundle.ErrStagingConflict, mustKeep: []string{"dist/extension.js"}},
		{name: "inside asset dir", staging: "dist/tmp", wantErr: bundle.ErrStagingConflict, mustKeep: []string{"dist/extension.js"}},
		{name: "descriptor", staging: "package.json", wantErr: bundle.ErrStagingConflict, mustKeep: []string{"package.json"}},
		{name: "output is staging", staging: "out", output: "out", wantErr: bundle.ErrStagingConflict},
		{name: "output inside staging", staging: "pack-temp", output: "pack-temp/release", wantErr: bundle.ErrStagingConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := testutil.NewProject(t, testutil.DemoManifest, nil)
			called := false
			opts := baseOptions(root, packagerFunc(func(context.Context, string) error {
				called = true
				return nil
			}))
			opts.StagingDir = tt.staging
			opts.OutputDir = tt.output

			res, err := Run(context.Background(), opts)
			if !errors.Is(err, tt.wantErr) || !errors.Is(err, bundle.ErrAssemblyFailure) {
				t.Fatalf("Run() error = %v, want %v", err, tt.wantErr)
			}
			if res != nil {
				t.Errorf("Run() result = %+v, want nil", res)
			}
			if called {
				t.Error("packager ran despite the rejected staging directory")
			}
			for _, rel := range tt.mustKeep {
				if _, statErr := os.Stat(filepath.Join(root, rel)); statErr != nil {
					t.Errorf("project file %s removed: %v", rel, statErr)
				}
			}
		})
	}
}

func TestRun_AbsoluteStagingDir(t *testing.T) {
	t.Parallel()

	root := testutil.NewProject(t, testutil.DemoManifest, nil)
	staging := filepath.Join(root, "build", "stage")

	var workDir string
	opts := baseOptions(root, packagerFunc(func(ctx context.Context, dir string) error {
		workDir = dir
		return (&packager.ArchivePackager{}).Package(ctx, dir)
	}))
	opts.StagingDir = staging

	res, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if workDir != staging {
		t.Errorf("packager workDir = %q, want %q", workDir, staging)
	}
	testutil.AssertNotExist(t, staging)
	if _, err := os.Stat(res.ArtifactPath); err != nil {
		t.Errorf("artifact missing: %v", err)
	}
}

func TestRun_LogsRetainedFields(t *testing.T) {
	t.Parallel()

	root := testutil.NewProject(t, testutil.DemoManifest, nil)
	var logs bytes.Buffer
	opts := baseOptions(root, &packager.ArchivePackager{})
	opts.Logger = slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if _, err := Run(context.Background(), opts); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	out := logs.String()
	if !strings.Contains(out, "minimal descriptor derived") || !strings.Contains(out, "fields=\"[name ") {
		t.Errorf("debug log should list the retained fields in order, got:\n%s", out)
	}
	if strings.Contains(out, "devDependencies") {
		t.Errorf("dropped field logged as retained:\n%s", out)
	}
}

func TestRun_ManifestNotFound(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	_, err := Run(context.Background(), baseOptions(root, &packager.ArchivePackager{}))
	if !errors.Is(err, manifest.ErrManifestNotFound) {
		t.Fatalf("Run() error = %v, want ErrManifestNotFound", err)
	}
	assertNoStaging(t, root)
}

func TestRun_NoPackager(t *testing.T) {
	t.Parallel()

	if _, err := Run(context.Background(), Options{ProjectRoot: t.TempDir()}); err == nil {
		t.Error("Run() without a packager should fail")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Assets = []config.AssetEntry{{Name: "dist", Required: true}}

	opts := OptionsFromConfig(cfg, "/project", nil)
	if _, ok := opts.Packager.(*packager.CommandPackager); !ok {
		t.Errorf("Packager = %T, want *packager.CommandPackager", opts.Packager)
	}
	if len(opts.Assets) != 1 || !opts.Assets[0].Required {
		t.Errorf("Assets = %+v", opts.Assets)
	}
	if opts.DefaultRepository == nil || opts.DefaultRepository.URL != cfg.DefaultRepository.URL {
		t.Errorf("DefaultRepository = %+v", opts.DefaultRepository)
	}

	cfg.Packager.Builtin = true
	opts = OptionsFromConfig(cfg, "/project", nil)
	if _, ok := opts.Packager.(*packager.ArchivePackager); !ok {
		t.Errorf("Packager = %T, want *packager.ArchivePackager", opts.Packager)
	}
}
