package harness

import (
	"context"
	"io"

	"github.com/Infineon/mpy-test-ext/internal/errors"
	"github.com/Infineon/mpy-test-ext/internal/exec"
)

// Custom runs a host-side test script directly, with no device harness
// wrapper. The script receives the DUT port as its first argument; how
// it uses the device is its own business.
type Custom struct {
	CR exec.CommandRunner
	TC Toolchain

	Out io.Writer
	Err io.Writer
}

// Run invokes one custom script with the DUT port and extra args.
func (h *Custom) Run(ctx context.Context, dutPort, script string, args []string) (Result, error) {
	argv := []string{script, dutPort}
	argv = append(argv, args...)

	res, err := h.CR.Run(ctx, h.TC.Python, argv, h.TC.runOpts(h.Out, h.Err))
	if err != nil {
		return Result{}, errors.WrapWithDetails(errors.ELaunchFailed,
			"failed to start custom test script", err,
			map[string]string{"command": commandLine(h.TC.Python, argv)})
	}
	return toResult(res), nil
}
