package harness

import (
	"context"
	"fmt"
	"io"

	"github.com/Infineon/mpy-test-ext/internal/errors"
	"github.com/Infineon/mpy-test-ext/internal/exec"
)

// Uploader starts a resident script on a stub device through the
// device-script-upload tool. The call returns once the upload/start is
// confirmed, not when the stub script finishes.
type Uploader struct {
	CR exec.CommandRunner
	TC Toolchain

	Out io.Writer
	Err io.Writer
}

// Start uploads and launches the script on the stub port.
func (u *Uploader) Start(ctx context.Context, stubPort, script string) error {
	args := []string{u.TC.Mpremote, "connect", stubPort, "run", "--no-follow", script}

	res, err := u.CR.Run(ctx, u.TC.Python, args, u.TC.runOpts(u.Out, u.Err))
	if err != nil {
		return errors.WrapWithDetails(errors.ELaunchFailed,
			"failed to start script-upload tool", err,
			map[string]string{"command": commandLine(u.TC.Python, args)})
	}
	if res.ExitCode != 0 {
		return errors.NewWithDetails(errors.EStubStartFailed,
			fmt.Sprintf("stub script %q failed to start (exit %d)", script, res.ExitCode),
			map[string]string{
				"script":    script,
				"port":      stubPort,
				"exit_code": fmt.Sprintf("%d", res.ExitCode),
			})
	}
	return nil
}
