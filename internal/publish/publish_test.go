// SPDX-License-Identifier: MPL-2.0

package publish

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func touch(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLocate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		files   []string
		ext     string
		want    string
		wantErr error
	}{
		{name: "single", files: []string{"package.json", "demo-2.0.0.vsix"}, ext: ".vsix", want: "demo-2.0.0.vsix"},
		{name: "ext without dot", files: []string{"demo-2.0.0.vsix"}, ext: "vsix", want: "demo-2.0.0.vsix"},
		{name: "none", files: []string{"package.json"}, ext: ".vsix", wantErr: ErrNoArtifactProduced},
		{name: "nested ignored", files: []string{"dist/old.vsix"}, ext: ".vsix", wantErr: ErrNoArtifactProduced},
		{name: "two", files: []string{"b.vsix", "a.vsix"}, ext: ".vsix", wantErr: ErrAmbiguousArtifact},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			for _, f := range tt.files {
				touch(t, filepath.Join(dir, filepath.FromSlash(f)), "x")
			}

			got, err := Locate(dir, tt.ext)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Locate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Locate() error = %v", err)
			}
			if got != filepath.Join(dir, tt.want) {
				t.Errorf("Locate() = %q, want %q", got, filepath.Join(dir, tt.want))
			}
		})
	}
}

func TestLocate_AmbiguousListsCandidates(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, f := range []string{"c.vsix", "a.vsix", "b.vsix"} {
		touch(t, filepath.Join(dir, f), "x")
	}

	_, err := Locate(dir, ".vsix")
	var ambErr *AmbiguousArtifactError
	if !errors.As(err, &ambErr) {
		t.Fatalf("Locate() error = %v, want *AmbiguousArtifactError", err)
	}
	if diff := cmp.Diff([]string{"a.vsix", "b.vsix", "c.vsix"}, ambErr.Candidates); diff != "" {
		t.Errorf("Candidates mismatch (-want +got):\n%s", diff)
	}
}

func TestPublish_OverwritesExisting(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	staging := filepath.Join(root, "pack-temp")
	touch(t, filepath.Join(staging, "demo-2.0.0.vsix"), "new")
	out := filepath.Join(root, "demo-2.0.0.vsix")
	touch(t, out, "old archive that is longer")

	got, err := Publish(staging, out, ".vsix")
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if got != out {
		t.Errorf("Publish() = %q, want %q", got, out)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "new" {
		t.Errorf("published content = %q, want %q", data, "new")
	}
}

func TestPublish_CreatesOutputDir(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	staging := filepath.Join(root, "pack-temp")
	touch(t, filepath.Join(staging, "demo-2.0.0.vsix"), "zip")

	out := filepath.Join(root, "out", "release", "demo-2.0.0.vsix")
	if _, err := Publish(staging, out, ".vsix"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output missing: %v", err)
	}
}

func TestPublish_NoArtifact(t *testing.T) {
	t.Parallel()

	_, err := Publish(t.TempDir(), filepath.Join(t.TempDir(), "x.vsix"), ".vsix")
	if !errors.Is(err, ErrNoArtifactProduced) {
		t.Errorf("Publish() error = %v, want ErrNoArtifactProduced", err)
	}
}

func TestPublish_SameFile(t *testing.T) {
	t.Parallel()

	staging := filepath.Join(t.TempDir(), "out")
	src := filepath.Join(staging, "demo-2.0.0.vsix")
	touch(t, src, "archive bytes")

	tests := []struct {
		name string
		dst  string
	}{
		{"same path", src},
		{"unclean path", filepath.Join(staging, ".", "sub", "..", "demo-2.0.0.vsix")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Publish(staging, tt.dst, ".vsix")
			if !errors.Is(err, ErrSameFile) || !errors.Is(err, ErrPublishFailed) {
				t.Fatalf("Publish() error = %v, want ErrSameFile", err)
			}
			data, readErr := os.ReadFile(src)
			if readErr != nil {
				t.Fatal(readErr)
			}
			if string(data) != "archive bytes" {
				t.Errorf("archive content = %q, want it untouched", data)
			}
		})
	}
}

func TestPublish_HardLinkIsSameFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	staging := filepath.Join(root, "pack-temp")
	src := filepath.Join(staging, "demo-2.0.0.vsix")
	touch(t, src, "archive bytes")
	dst := filepath.Join(root, "demo-2.0.0.vsix")
	if err := os.Link(src, dst); err != nil {
		t.Skipf("hard links unsupported: %v", err)
	}

	if _, err := Publish(staging, dst, ".vsix"); !errors.Is(err, ErrSameFile) {
		t.Errorf("Publish() error = %v, want ErrSameFile", err)
	}
}
