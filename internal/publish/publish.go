// SPDX-License-Identifier: MPL-2.0

package publish

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrNoArtifactProduced is returned when staging holds no archive.
	ErrNoArtifactProduced = errors.New("no artifact produced")
	// ErrAmbiguousArtifact is returned when staging holds more than one archive.
	ErrAmbiguousArtifact = errors.New("ambiguous artifact")
	// ErrPublishFailed is the sentinel error wrapped by PublishError.
	ErrPublishFailed = errors.New("publish failed")
	// ErrSameFile is returned when the output path is the located archive
	// itself.
	ErrSameFile = errors.New("artifact source and destination are the same file")
)

type (
	// NoArtifactError reports an empty locate.
	NoArtifactError struct {
		StagingPath string
		Extension   string
	}

	// AmbiguousArtifactError lists every candidate, sorted lexicographically.
	AmbiguousArtifactError struct {
		StagingPath string
		Candidates  []string
	}

	// PublishError reports a failed copy to the output path.
	PublishError struct {
		Src string
		Dst string
		Err error
	}
)

// Locate returns the path of the single top-level regular file in
// stagingPath whose name ends with ext.
func Locate(stagingPath, ext string) (string, error) {
	ext = normalizeExt(ext)
	entries, err := os.ReadDir(stagingPath)
	if err != nil {
		return "", fmt.Errorf("read staging directory: %w", err)
	}

	var candidates []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		candidates = append(candidates, e.Name())
	}
	sort.Strings(candidates)

	switch len(candidates) {
	case 0:
		return "", &NoArtifactError{StagingPath: stagingPath, Extension: ext}
	case 1:
		return filepath.Join(stagingPath, candidates[0]), nil
	default:
		return "", &AmbiguousArtifactError{StagingPath: stagingPath, Candidates: candidates}
	}
}

// Publish locates the archive in stagingPath and copies it to outputPath,
// replacing any existing file. It returns the absolute output path.
func Publish(stagingPath, outputPath, ext string) (string, error) {
	src, err := Locate(stagingPath, ext)
	if err != nil {
		return "", err
	}

	dst, err := filepath.Abs(outputPath)
	if err != nil {
		return "", &PublishError{Src: src, Dst: outputPath, Err: err}
	}
	if sameFile(src, dst) {
		return "", &PublishError{Src: src, Dst: dst, Err: ErrSameFile}
	}
	if err := copyFile(src, dst); err != nil {
		return "", &PublishError{Src: src, Dst: dst, Err: err}
	}
	return dst, nil
}

// sameFile reports whether src and dst name one file, by path or, when dst
// exists, by identity (hard links, symlinked directories).
func sameFile(src, dst string) bool {
	if filepath.Clean(src) == filepath.Clean(dst) {
		return true
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false
	}
	dstInfo, err := os.Stat(dst)
	if err != nil {
		return false
	}
	return os.SameFile(srcInfo, dstInfo)
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

func normalizeExt(ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		return "." + ext
	}
	return ext
}

// Error implements the error interface.
func (e *NoArtifactError) Error() string {
	return fmt.Sprintf("no %s archive found in %s", e.Extension, e.StagingPath)
}

// Unwrap returns ErrNoArtifactProduced.
func (e *NoArtifactError) Unwrap() error { return ErrNoArtifactProduced }

// Error implements the error interface.
func (e *AmbiguousArtifactError) Error() string {
	return fmt.Sprintf("%d archives found in %s: %s", len(e.Candidates), e.StagingPath, strings.Join(e.Candidates, ", "))
}

// Unwrap returns ErrAmbiguousArtifact.
func (e *AmbiguousArtifactError) Unwrap() error { return ErrAmbiguousArtifact }

// Error implements the error interface.
func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s to %s: %v", e.Src, e.Dst, e.Err)
}

// Unwrap exposes both ErrPublishFailed and the cause.
func (e *PublishError) Unwrap() []error { return []error{ErrPublishFailed, e.Err} }
