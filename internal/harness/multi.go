package harness

import (
	"context"
	"io"

	"github.com/Infineon/mpy-test-ext/internal/errors"
	"github.com/Infineon/mpy-test-ext/internal/exec"
)

// Multi invokes the multi-device harness against two device ports. The
// harness performs its own synchronization protocol between the devices.
type Multi struct {
	CR exec.CommandRunner
	TC Toolchain

	Out io.Writer
	Err io.Writer
}

// Run invokes the harness once with both ports and the coordination
// scripts. Directory paths expand to the individual scripts beneath
// them.
func (h *Multi) Run(ctx context.Context, portA, portB string, scripts []string) (Result, error) {
	expanded, err := ExpandScripts(h.TC, scripts, nil)
	if err != nil {
		return Result{}, errors.Wrap(errors.ELaunchFailed,
			"failed to expand multi-device test scripts", err)
	}

	args := []string{h.TC.RunMultiTests, "-t", portA, "-t", portB}
	args = append(args, expanded...)

	res, err := h.CR.Run(ctx, h.TC.Python, args, h.TC.runOpts(h.Out, h.Err))
	if err != nil {
		return Result{}, errors.WrapWithDetails(errors.ELaunchFailed,
			"failed to start multi-device harness", err,
			map[string]string{"command": commandLine(h.TC.Python, args)})
	}

	return toResult(res), nil
}
