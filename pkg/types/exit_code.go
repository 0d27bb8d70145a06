// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"
)

const (
	// ExitSuccess means every stage and every check passed.
	ExitSuccess ExitCode = 0
	// ExitCheckFailed means the pipeline ran but at least one verification
	// check failed.
	ExitCheckFailed ExitCode = 1
	// ExitPipelineFailed means the run stopped before a report could be
	// produced (manifest, assembly, packager or publish failure).
	ExitPipelineFailed ExitCode = 2
	// ExitCommandNotFound mirrors the shell convention for a missing binary.
	ExitCommandNotFound ExitCode = 127
)

// ErrInvalidExitCode is the sentinel error wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

type (
	// ExitCode is a process exit status in the POSIX range 0-255.
	ExitCode int

	// InvalidExitCodeError is returned for codes outside 0-255.
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

// ExitCodeOf extracts the exit status of a finished child process. A nil
// error is success. A missing binary (exec.ErrNotFound) maps to
// ExitCommandNotFound. A child killed by a signal has no exit status and, like
// any other start failure, maps to ExitPipelineFailed.
func ExitCodeOf(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return ExitCode(code)
		}
		return ExitPipelineFailed
	}
	if errors.Is(err, exec.ErrNotFound) {
		return ExitCommandNotFound
	}
	return ExitPipelineFailed
}

// Validate returns an error if c is outside 0-255.
func (c ExitCode) Validate() error {
	if c < 0 || c > 255 {
		return &InvalidExitCodeError{Value: c}
	}
	return nil
}

// IsSuccess reports whether c is zero.
func (c ExitCode) IsSuccess() bool { return c == ExitSuccess }

// String returns the decimal form of c.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }

// Error implements the error interface.
func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("invalid exit code %d (must be in range 0-255)", e.Value)
}

// Unwrap returns ErrInvalidExitCode.
func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }
