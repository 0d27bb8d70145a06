// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/seamdriven/extpack/internal/bundle"
	"github.com/seamdriven/extpack/internal/config"
	"github.com/seamdriven/extpack/internal/issue"
	"github.com/seamdriven/extpack/internal/packager"
	"github.com/seamdriven/extpack/internal/publish"
	"github.com/seamdriven/extpack/internal/verify"
	"github.com/seamdriven/extpack/pkg/manifest"
	"github.com/seamdriven/extpack/pkg/types"
)

// ServiceError is an error that carries rendering information for the CLI
// layer. Always create via newServiceError.
type ServiceError struct {
	// Err is the underlying error (must not be nil).
	Err error
	// IssueID is the optional issue catalog ID for rendering help text.
	IssueID issue.Id
	// StyledMessage is the optional pre-rendered styled error text.
	StyledMessage string
}

// newServiceError creates a ServiceError with a nil-Err panic guard.
func newServiceError(err error, issueID issue.Id, styledMessage string) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}
	return &ServiceError{
		Err:           err,
		IssueID:       issueID,
		StyledMessage: styledMessage,
	}
}

// Error implements the error interface.
func (e *ServiceError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.Err }

// classifyError maps a pipeline or verification failure to an issue catalog
// ID and a styled one-line message.
func classifyError(err error, verbose bool) (issueID issue.Id, styledMsg string) {
	switch {
	case errors.Is(err, manifest.ErrManifestInvalid):
		issueID = issue.ManifestInvalidId
	case errors.Is(err, manifest.ErrManifestNotFound):
		issueID = issue.ManifestNotFoundId
	case errors.Is(err, bundle.ErrAssemblyFailure):
		issueID = issue.AssemblyFailedId
	case errors.Is(err, packager.ErrPackagerInvocationFailed):
		issueID = issue.PackagerInvocationFailedId
	case errors.Is(err, publish.ErrNoArtifactProduced):
		issueID = issue.NoArtifactProducedId
	case errors.Is(err, publish.ErrAmbiguousArtifact):
		issueID = issue.AmbiguousArtifactId
	case errors.Is(err, verify.ErrArtifactMissing):
		issueID = issue.ArtifactMissingId
	case errors.Is(err, verify.ErrVerificationCheckFailed):
		issueID = issue.VerificationCheckFailedId
	case errors.Is(err, config.ErrInvalidConfig):
		issueID = issue.ConfigLoadFailedId
	default:
		var ae *issue.ActionableError
		if errors.As(err, &ae) && isConfigOperation(ae.Operation) {
			issueID = issue.ConfigLoadFailedId
		}
	}

	return issueID, fmt.Sprintf("\n%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))
}

func isConfigOperation(op string) bool {
	switch op {
	case "load configuration", "validate configuration", "write configuration":
		return true
	}
	return false
}

// exitCodeFor picks the process exit code for a failed command.
func exitCodeFor(err error) types.ExitCode {
	if errors.Is(err, verify.ErrVerificationCheckFailed) {
		return types.ExitCheckFailed
	}
	return types.ExitPipelineFailed
}

// failCommand renders err with its catalog entry and returns the ExitError the
// RunE handler should return.
func failCommand(stderr io.Writer, err error, verbose bool) error {
	issueID, styled := classifyError(err, verbose)
	renderServiceError(stderr, newServiceError(err, issueID, styled))
	return &ExitError{Code: exitCodeFor(err), Err: err}
}

// renderServiceError prints the styled message, then the optional issue help.
func renderServiceError(stderr io.Writer, svcErr *ServiceError) {
	if svcErr == nil {
		return
	}

	if svcErr.StyledMessage != "" {
		fmt.Fprint(stderr, svcErr.StyledMessage)
	}

	if svcErr.IssueID == 0 {
		return
	}

	if catalogEntry := issue.Get(svcErr.IssueID); catalogEntry != nil {
		rendered, renderErr := catalogEntry.Render("dark")
		if renderErr != nil {
			slog.Warn("failed to render issue catalog entry", "issueID", svcErr.IssueID, "error", renderErr)
			writePlainIssue(stderr, catalogEntry)
		} else {
			fmt.Fprint(stderr, rendered)
		}
	}
}

// writePlainIssue prints a catalog entry's markdown source and links when
// glamour cannot render it.
func writePlainIssue(w io.Writer, entry *issue.Issue) {
	fmt.Fprintln(w, strings.TrimSpace(string(entry.MarkdownMsg())))
	for _, link := range entry.DocLinks() {
		fmt.Fprintf(w, "See: %s\n", link)
	}
}
