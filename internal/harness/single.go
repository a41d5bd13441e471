package harness

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/Infineon/mpy-test-ext/internal/errors"
	"github.com/Infineon/mpy-test-ext/internal/exec"
)

// Single invokes the single-device harness against one DUT port.
type Single struct {
	CR exec.CommandRunner
	TC Toolchain

	// Out and Err, when set, stream harness output live.
	Out io.Writer
	Err io.Writer
}

// RunBatch runs the harness once over the full script set. Directory
// paths are passed with the harness's directory flag; excludes are
// forwarded as exclude flags. A single pass/fail covers the batch.
func (h *Single) RunBatch(ctx context.Context, dutPort string, scripts, excludes []string) (Result, error) {
	args := []string{h.TC.RunTests, "-t", "port:" + dutPort}
	for _, s := range scripts {
		if isDir(h.TC, s) {
			args = append(args, "-d")
		}
		args = append(args, s)
	}
	for _, e := range excludes {
		args = append(args, "-e", e)
	}

	res, err := h.CR.Run(ctx, h.TC.Python, args, h.TC.runOpts(h.Out, h.Err))
	if err != nil {
		return Result{}, errors.WrapWithDetails(errors.ELaunchFailed,
			"failed to start single-device harness", err,
			map[string]string{"command": commandLine(h.TC.Python, args)})
	}

	if res.ExitCode != 0 {
		h.reportAndClearFailures(ctx)
	}

	return toResult(res), nil
}

// RunOne runs the harness for a single script with no excludes.
func (h *Single) RunOne(ctx context.Context, dutPort, script string) (Result, error) {
	return h.RunBatch(ctx, dutPort, []string{script}, nil)
}

// reportAndClearFailures asks the harness to print and then clean its
// per-script failure records. Best effort: a broken harness here must
// not mask the original failure.
func (h *Single) reportAndClearFailures(ctx context.Context) {
	opts := h.TC.runOpts(h.Out, h.Err)
	_, _ = h.CR.Run(ctx, h.TC.Python, []string{h.TC.RunTests, "--print-failures"}, opts)
	_, _ = h.CR.Run(ctx, h.TC.Python, []string{h.TC.RunTests, "--clean-failures"}, opts)
}

// isDir reports whether a plan script path names a directory under the
// test tree.
func isDir(tc Toolchain, script string) bool {
	path := script
	if !filepath.IsAbs(path) {
		path = filepath.Join(tc.TestDir, script)
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
