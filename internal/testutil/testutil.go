// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"archive/zip"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

// DemoManifest is a descriptor for the "demo" extension at version 2.0.0
// with entry point dist/extension.js and two commands, demo.a and demo.b.
const DemoManifest = `{
  "name": "demo",
  "displayName": "Demo",
  "version": "2.0.0",
  "main": "./dist/extension.js",
  "scripts": {"compile": "tsc -p ."},
  "devDependencies": {"typescript": "^5.0.0"},
  "contributes": {"commands": [
    {"command": "demo.a", "title": "A"},
    {"command": "demo.b", "title": "B"}
  ]}
}`

// WriteTree creates every file in files (slash-separated path to content)
// under root, creating parent directories as needed.
// The test fails immediately if any write fails.
func WriteTree(t testing.TB, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		MustMkdirAll(t, filepath.Dir(p), 0o755)
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", p, err)
		}
	}
}

// NewProject creates a temporary extension project with the given
// package.json, a built dist/extension.js, a README and a source file that
// must never be packaged. Extra files are written on top.
func NewProject(t testing.TB, manifestJSON string, extra map[string]string) string {
	t.Helper()
	root := t.TempDir()
	WriteTree(t, root, map[string]string{
		"package.json":      manifestJSON,
		"dist/extension.js": "exports.activate = () => {};\n",
		"README.md":         "# demo\n",
		"src/extension.ts":  "export function activate() {}\n",
	})
	WriteTree(t, root, extra)
	return root
}

// MustMkdirAll creates a directory along with any necessary parents.
// The test fails immediately if the operation fails.
func MustMkdirAll(t testing.TB, path string, perm os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(path, perm); err != nil {
		t.Fatalf("failed to create directory %s: %v", path, err)
	}
}

// MustClose closes the given io.Closer.
// The test fails immediately if the close fails.
func MustClose(t testing.TB, c io.Closer) {
	t.Helper()
	if err := c.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}
}

// ZipEntries returns the entry names of the zip archive at path in archive
// order.
func ZipEntries(t testing.TB, path string) []string {
	t.Helper()
	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("failed to open archive %s: %v", path, err)
	}
	defer MustClose(t, r)

	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names
}

// ZipFile returns the content of one archive entry.
func ZipFile(t testing.TB, path, name string) string {
	t.Helper()
	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("failed to open archive %s: %v", path, err)
	}
	defer MustClose(t, r)

	rc, err := r.Open(name)
	if err != nil {
		t.Fatalf("entry %s in %s: %v", name, path, err)
	}
	defer MustClose(t, rc)

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("failed to read entry %s: %v", name, err)
	}
	return string(data)
}

// AssertNotExist fails the test if path exists.
func AssertNotExist(t testing.TB, path string) {
	t.Helper()
	if _, err := os.Lstat(path); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("%s should not exist (lstat err = %v)", path, err)
	}
}
