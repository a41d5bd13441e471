// Package harness wraps the external test executables this tool
// dispatches to: the single-device harness, the multi-device harness,
// and the device-script-upload tool. Their internal protocols are
// opaque; this package only builds their command lines and interprets
// exit statuses.
package harness

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/Infineon/mpy-test-ext/internal/exec"
)

// Result is the outcome of one harness invocation that started
// successfully.
type Result struct {
	Passed   bool
	ExitCode int
	Output   string // captured stdout + stderr
}

// Toolchain locates the external executables. All harness invocations
// run with TestDir as working directory; script paths in plans are
// relative to it.
type Toolchain struct {
	// TestDir is the test tree root (the MicroPython tests directory).
	TestDir string

	// Python is the interpreter used to launch the harness scripts.
	Python string

	// RunTests is the single-device harness script.
	RunTests string

	// RunMultiTests is the multi-device harness script.
	RunMultiTests string

	// Mpremote is the device-script-upload tool, relative to TestDir.
	Mpremote string
}

// DefaultToolchain returns the conventional tool layout under a test
// tree root.
func DefaultToolchain(testDir string) Toolchain {
	return Toolchain{
		TestDir:       testDir,
		Python:        "python",
		RunTests:      "run-tests.py",
		RunMultiTests: "run-multitests.py",
		Mpremote:      filepath.Join("..", "tools", "mpremote", "mpremote.py"),
	}
}

func (tc Toolchain) runOpts(out, errw io.Writer) exec.RunOpts {
	return exec.RunOpts{
		Dir:    tc.TestDir,
		Stdout: out,
		Stderr: errw,
	}
}

func toResult(res exec.CmdResult) Result {
	return Result{
		Passed:   res.ExitCode == 0,
		ExitCode: res.ExitCode,
		Output:   res.Stdout + res.Stderr,
	}
}

func commandLine(python string, args []string) string {
	return python + " " + strings.Join(args, " ")
}
