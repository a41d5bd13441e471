// Package exec provides a thin abstraction over running external commands
// so that harness and tool invocations can be faked in tests.
package exec

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	osexec "os/exec"
)

// RunOpts contains optional settings for a command invocation.
type RunOpts struct {
	// Dir is the working directory for the command. Empty means inherit.
	Dir string

	// Env is appended to the current process environment.
	Env []string

	// Stdout, if set, receives the command's stdout as it is produced,
	// in addition to the captured copy in CmdResult. Harness output is
	// streamed to the user this way.
	Stdout io.Writer

	// Stderr mirrors Stdout for the standard error stream.
	Stderr io.Writer
}

// CmdResult holds the outcome of a command that was successfully started.
type CmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// CommandRunner runs external commands.
//
// Run returns an error only when the command could not be started at all
// (binary missing, permission denied). A command that starts and exits
// non-zero returns a CmdResult with the exit code and a nil error; the
// caller decides what a non-zero exit means.
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string, opts RunOpts) (CmdResult, error)
}

// RealRunner is the production CommandRunner backed by os/exec.
type RealRunner struct{}

// NewRealRunner returns a CommandRunner that executes real processes.
func NewRealRunner() *RealRunner {
	return &RealRunner{}
}

// Run executes the command and waits for it to finish.
func (r *RealRunner) Run(ctx context.Context, name string, args []string, opts RunOpts) (CmdResult, error) {
	cmd := osexec.CommandContext(ctx, name, args...)
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if opts.Stdout != nil {
		cmd.Stdout = io.MultiWriter(&stdout, opts.Stdout)
	}
	if opts.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderr, opts.Stderr)
	}

	err := cmd.Run()

	result := CmdResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *osexec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		// Could not start: binary not found, bad dir, context cancelled
		// before start, etc.
		return CmdResult{}, err
	}

	return result, nil
}
