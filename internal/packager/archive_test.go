// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/seamdriven/extpack/internal/testutil"
	"github.com/seamdriven/extpack/pkg/manifest"

	"github.com/google/go-cmp/cmp"
)

func stage(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"package.json":  `{"name": "demo", "version": "2.0.0", "publisher": "seam", "main": "./dist/index.js"}`,
		"dist/index.js": "module.exports = {};\n",
		"README.md":     "# demo\n",
	})
	return dir
}

func TestArchivePackager_Layout(t *testing.T) {
	t.Parallel()

	dir := stage(t)
	p := &ArchivePackager{}
	if err := p.Package(context.Background(), dir); err != nil {
		t.Fatalf("Package() error = %v", err)
	}

	out := filepath.Join(dir, "demo-2.0.0.vsix")
	want := []string{
		"extension.vsixmanifest",
		"[Content_Types].xml",
		"extension/README.md",
		"extension/dist/index.js",
		"extension/package.json",
	}
	if diff := cmp.Diff(want, testutil.ZipEntries(t, out)); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}

	if got := testutil.ZipFile(t, out, "extension/dist/index.js"); got != "module.exports = {};\n" {
		t.Errorf("entry point content = %q", got)
	}
	vsix := testutil.ZipFile(t, out, "extension.vsixmanifest")
	for _, s := range []string{`Id="demo"`, `Version="2.0.0"`, `Publisher="seam"`, `Path="extension/package.json"`} {
		if !strings.Contains(vsix, s) {
			t.Errorf("vsixmanifest missing %s:\n%s", s, vsix)
		}
	}
	if types := testutil.ZipFile(t, out, "[Content_Types].xml"); !strings.Contains(types, `Extension=".js"`) {
		t.Errorf("content types missing .js:\n%s", types)
	}
}

func TestArchivePackager_Rerun(t *testing.T) {
	t.Parallel()

	dir := stage(t)
	p := &ArchivePackager{Extension: "vsix"}
	if err := p.Package(context.Background(), dir); err != nil {
		t.Fatalf("first Package() error = %v", err)
	}
	first := testutil.ZipEntries(t, filepath.Join(dir, "demo-2.0.0.vsix"))

	if err := p.Package(context.Background(), dir); err != nil {
		t.Fatalf("second Package() error = %v", err)
	}
	second := testutil.ZipEntries(t, filepath.Join(dir, "demo-2.0.0.vsix"))

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("rerun changed entries (-first +second):\n%s", diff)
	}
}

func TestArchivePackager_MissingDescriptor(t *testing.T) {
	t.Parallel()

	err := (&ArchivePackager{}).Package(context.Background(), t.TempDir())
	if !errors.Is(err, ErrPackagerInvocationFailed) {
		t.Fatalf("Package() error = %v, want ErrPackagerInvocationFailed", err)
	}
	if !errors.Is(err, manifest.ErrManifestNotFound) {
		t.Errorf("error should keep the manifest cause: %v", err)
	}
}

func TestContentTypeFor(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		".js":   "application/javascript",
		".json": "application/json",
		".md":   "text/markdown",
		".bin":  "application/octet-stream",
	}
	for ext, want := range tests {
		if got := contentTypeFor(ext); got != want {
			t.Errorf("contentTypeFor(%q) = %q, want %q", ext, got, want)
		}
	}
}
