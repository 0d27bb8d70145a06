// SPDX-License-Identifier: MPL-2.0

package verify

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/seamdriven/extpack/internal/pipeline"
	"github.com/seamdriven/extpack/pkg/manifest"
)

// ErrArtifactMissing is returned when the pipeline reports success but the
// published archive is not on disk.
var ErrArtifactMissing = errors.New("artifact missing")

type (
	// Options configures Verify.
	Options struct {
		Pipeline         pipeline.Options
		RequiredCommands []manifest.CommandID
		// ContentRoot is the archive prefix of the bundle; empty means
		// DefaultContentRoot.
		ContentRoot string
	}

	// ArtifactMissingError names the archive that was expected.
	ArtifactMissingError struct {
		Path string
		Err  error
	}
)

// Verify runs the pipeline, then checks the published archive. A returned
// error means no report could be produced; failed checks are reported through
// Report.Err.
func Verify(ctx context.Context, opts Options) (*Report, error) {
	res, err := pipeline.Run(ctx, opts.Pipeline)
	if err != nil {
		return nil, err
	}
	return Inspect(res.RunID.String(), res.ArtifactPath, CheckInput{
		Manifest:         res.Manifest,
		Descriptor:       opts.Pipeline.Descriptor,
		ContentRoot:      opts.ContentRoot,
		RequiredCommands: opts.RequiredCommands,
	})
}

// Inspect checks an existing archive. in.Entries is filled from the archive.
func Inspect(runID, artifactPath string, in CheckInput) (*Report, error) {
	if _, err := os.Stat(artifactPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ArtifactMissingError{Path: artifactPath, Err: err}
		}
		return nil, err
	}

	entries, err := ListEntries(artifactPath)
	if err != nil {
		return nil, err
	}
	in.Entries = entries

	return &Report{
		RunID:        runID,
		ArtifactPath: artifactPath,
		Entries:      entries,
		Checks:       RunChecks(in),
	}, nil
}

// Error implements the error interface.
func (e *ArtifactMissingError) Error() string {
	return fmt.Sprintf("expected artifact %s was not produced", e.Path)
}

// Unwrap exposes both ErrArtifactMissing and the cause.
func (e *ArtifactMissingError) Unwrap() []error { return []error{ErrArtifactMissing, e.Err} }
