// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/seamdriven/extpack/internal/bundle"
	"github.com/seamdriven/extpack/internal/issue"
	"github.com/seamdriven/extpack/internal/packager"
	"github.com/seamdriven/extpack/internal/publish"
	"github.com/seamdriven/extpack/internal/verify"
	"github.com/seamdriven/extpack/pkg/manifest"
	"github.com/seamdriven/extpack/pkg/types"
)

func TestNewServiceError_PanicsOnNilErr(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on nil Err, got none")
		}
	}()

	newServiceError(nil, 0, "")
}

func TestServiceError_ErrorAndUnwrap(t *testing.T) {
	t.Parallel()

	underlying := errors.New("underlying error")
	svcErr := newServiceError(underlying, 0, "")

	if svcErr.Error() != "underlying error" {
		t.Errorf("Error() = %q, want %q", svcErr.Error(), "underlying error")
	}
	if !errors.Is(svcErr, underlying) {
		t.Error("errors.Is should find underlying error via Unwrap")
	}
}

func TestClassifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantID   issue.Id
		wantCode types.ExitCode
	}{
		{"manifest missing", &manifest.LoadError{Path: "package.json", Err: errors.New("nope")}, issue.ManifestNotFoundId, types.ExitPipelineFailed},
		{"duplicate command", &manifest.DuplicateCommandError{Path: "package.json", ID: "a"}, issue.ManifestInvalidId, types.ExitPipelineFailed},
		{"assembly", &bundle.AssemblyError{Op: "copy", Path: "dist", Err: errors.New("eio")}, issue.AssemblyFailedId, types.ExitPipelineFailed},
		{"packager", &packager.InvocationError{Command: "vsce", ExitCode: 1, Err: errors.New("exit 1")}, issue.PackagerInvocationFailedId, types.ExitPipelineFailed},
		{"no artifact", &publish.NoArtifactError{StagingPath: "pack-temp", Extension: ".vsix"}, issue.NoArtifactProducedId, types.ExitPipelineFailed},
		{"ambiguous", &publish.AmbiguousArtifactError{Candidates: []string{"a.vsix", "b.vsix"}}, issue.AmbiguousArtifactId, types.ExitPipelineFailed},
		{"artifact missing", &verify.ArtifactMissingError{Path: "demo.vsix", Err: errors.New("gone")}, issue.ArtifactMissingId, types.ExitPipelineFailed},
		{"check failed", errors.Join(&verify.CheckFailedError{Check: verify.Check{ID: "descriptor"}}), issue.VerificationCheckFailedId, types.ExitCheckFailed},
		{"config", issue.NewErrorContext().WithOperation("load configuration").Wrap(errors.New("bad")).BuildError(), issue.ConfigLoadFailedId, types.ExitPipelineFailed},
		{"unknown", fmt.Errorf("something else"), 0, types.ExitPipelineFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			id, msg := classifyError(tt.err, false)
			if id != tt.wantID {
				t.Errorf("classifyError() id = %d, want %d", id, tt.wantID)
			}
			if !strings.Contains(msg, tt.err.Error()) {
				t.Errorf("styled message %q should contain %q", msg, tt.err.Error())
			}
			if got := exitCodeFor(tt.err); got != tt.wantCode {
				t.Errorf("exitCodeFor() = %d, want %d", got, tt.wantCode)
			}
		})
	}
}

func TestRenderServiceError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	renderServiceError(&buf, nil)
	if buf.Len() != 0 {
		t.Errorf("nil ServiceError should render nothing, got %q", buf.String())
	}

	renderServiceError(&buf, newServiceError(errors.New("x"), 0, "styled\n"))
	if buf.String() != "styled\n" {
		t.Errorf("render without issue = %q, want %q", buf.String(), "styled\n")
	}

	buf.Reset()
	renderServiceError(&buf, newServiceError(errors.New("x"), issue.NoArtifactProducedId, ""))
	if !strings.Contains(buf.String(), "archive") {
		t.Errorf("render with issue should include catalog help, got %q", buf.String())
	}
}

func TestFailCommand(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	cause := &publish.NoArtifactError{StagingPath: "pack-temp", Extension: ".vsix"}
	err := failCommand(&stderr, cause, false)

	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != types.ExitPipelineFailed {
		t.Fatalf("failCommand() = %v, want ExitError code 2", err)
	}
	if !errors.Is(err, publish.ErrNoArtifactProduced) {
		t.Error("ExitError should unwrap to the cause")
	}
	if !strings.Contains(stderr.String(), "Error:") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestExitCodeFromError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want types.ExitCode
	}{
		{"nil", nil, types.ExitSuccess},
		{"check failed", &ExitError{Code: types.ExitCheckFailed}, types.ExitCheckFailed},
		{"wrapped", fmt.Errorf("run: %w", &ExitError{Code: types.ExitCommandNotFound}), types.ExitCommandNotFound},
		{"zero code", &ExitError{Code: types.ExitSuccess, Err: errors.New("boom")}, types.ExitPipelineFailed},
		{"out of range", &ExitError{Code: 300}, types.ExitPipelineFailed},
		{"negative", &ExitError{Code: -1}, types.ExitPipelineFailed},
		{"plain error", errors.New("unknown flag"), types.ExitPipelineFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := exitCodeFromError(tt.err); got != tt.want {
				t.Errorf("exitCodeFromError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestWritePlainIssue(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	writePlainIssue(&buf, issue.Get(issue.PackagerInvocationFailedId))

	out := buf.String()
	if !strings.HasPrefix(out, "# ") {
		t.Errorf("writePlainIssue() should start with the markdown title, got %q", out)
	}
	if !strings.Contains(out, "See: https://") {
		t.Errorf("writePlainIssue() should list the doc links, got %q", out)
	}
}
