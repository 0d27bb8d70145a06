// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/seamdriven/extpack/pkg/types"

	"mvdan.cc/sh/v3/shell"
)

// DefaultCommand is the packager command run when none is configured.
const DefaultCommand = "npx vsce package"

var (
	// ErrPackagerInvocationFailed is the sentinel error wrapped by InvocationError.
	ErrPackagerInvocationFailed = errors.New("packager invocation failed")
	// ErrEmptyCommand is returned when the command string has no words.
	ErrEmptyCommand = errors.New("packager command is empty")
)

type (
	// Packager produces an archive inside workDir. Implementations must not
	// change the process working directory.
	Packager interface {
		Package(ctx context.Context, workDir string) error
	}

	// CommandPackager runs an external command with workDir as its working
	// directory. Output is passed through untouched; only the exit status is
	// interpreted.
	CommandPackager struct {
		// Command is split with POSIX shell word rules; $VAR references are
		// expanded from Env, or the process environment when Env is nil.
		Command string
		// Env is the child environment. Nil inherits the process environment.
		Env    []string
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
		Logger *slog.Logger
	}

	// InvocationError reports a packager command that could not be started or
	// exited non-zero.
	InvocationError struct {
		Command  string
		Dir      string
		ExitCode types.ExitCode
		Err      error
	}
)

// NewCommandPackager returns a CommandPackager wired to the process stdio.
func NewCommandPackager(command string, logger *slog.Logger) *CommandPackager {
	if strings.TrimSpace(command) == "" {
		command = DefaultCommand
	}
	return &CommandPackager{
		Command: command,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Logger:  logger,
	}
}

// Argv splits Command into program and arguments.
func (p *CommandPackager) Argv() ([]string, error) {
	var lookup func(string) string
	if p.Env != nil {
		lookup = envLookup(p.Env)
	}
	argv, err := shell.Fields(p.Command, lookup)
	if err != nil {
		return nil, fmt.Errorf("parse packager command %q: %w", p.Command, err)
	}
	if len(argv) == 0 {
		return nil, ErrEmptyCommand
	}
	return argv, nil
}

// Package runs the command synchronously in workDir and waits for it to exit.
func (p *CommandPackager) Package(ctx context.Context, workDir string) error {
	argv, err := p.Argv()
	if err != nil {
		return &InvocationError{Command: p.Command, Dir: workDir, ExitCode: types.ExitPipelineFailed, Err: err}
	}

	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	//nolint:gosec // the packager command is operator configuration
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = workDir
	cmd.Stdin = p.Stdin
	cmd.Stdout = p.Stdout
	cmd.Stderr = p.Stderr
	if p.Env != nil {
		cmd.Env = p.Env
	}

	logger.Debug("invoking packager", "argv", argv, "dir", workDir)
	if err := cmd.Run(); err != nil {
		return &InvocationError{Command: p.Command, Dir: workDir, ExitCode: types.ExitCodeOf(err), Err: err}
	}
	logger.Debug("packager finished", "dir", workDir)
	return nil
}

// envLookup builds a variable resolver over a KEY=VALUE list. Later entries
// win, as with exec.Cmd.Env.
func envLookup(env []string) func(string) string {
	vars := make(map[string]string, len(env))
	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	return func(name string) string { return vars[name] }
}

// Error implements the error interface.
func (e *InvocationError) Error() string {
	var exitErr *exec.ExitError
	if errors.As(e.Err, &exitErr) {
		if exitErr.ExitCode() < 0 {
			return fmt.Sprintf("packager %q terminated by %s in %s", e.Command, exitErr.ProcessState, e.Dir)
		}
		return fmt.Sprintf("packager %q exited with code %d in %s", e.Command, e.ExitCode, e.Dir)
	}
	return fmt.Sprintf("packager %q in %s: %v", e.Command, e.Dir, e.Err)
}

// Unwrap exposes both ErrPackagerInvocationFailed and the cause.
func (e *InvocationError) Unwrap() []error { return []error{ErrPackagerInvocationFailed, e.Err} }
