// Command mpytest runs hardware-in-the-loop test plans against
// MicroPython development boards.
package main

import (
	"os"

	"github.com/Infineon/mpy-test-ext/internal/cli/cobra"
	"github.com/Infineon/mpy-test-ext/internal/errors"
)

func main() {
	err := cobra.Execute(os.Stdout, os.Stderr)
	if err != nil {
		// Use verbose mode if --verbose global flag was set
		opts := errors.PrintOptions{
			Verbose: cobra.GetGlobalOpts().Verbose,
		}
		errors.PrintWithOptions(os.Stderr, err, opts)
		os.Exit(errors.ExitCode(err))
	}
}
