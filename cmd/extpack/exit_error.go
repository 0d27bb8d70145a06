// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/seamdriven/extpack/pkg/types"
)

// ExitError carries the process exit code out of a RunE handler so Execute can
// exit with it: types.ExitCheckFailed (1) when verification checks failed,
// types.ExitPipelineFailed (2) for manifest, assembly, packager, publish or
// config failures. Err has already been rendered when ExitError is returned.
type ExitError struct {
	Code types.ExitCode
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}
