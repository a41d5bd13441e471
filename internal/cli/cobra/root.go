// Package cobra provides the Cobra-based CLI command tree for mpytest.
package cobra

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Infineon/mpy-test-ext/internal/version"
)

// GlobalOpts holds global options parsed before subcommand dispatch.
type GlobalOpts struct {
	Verbose bool
}

// globalOpts stores the parsed global options for access by subcommands.
var globalOpts GlobalOpts

// GetGlobalOpts returns the parsed global options.
func GetGlobalOpts() GlobalOpts {
	return globalOpts
}

// newLogger builds the run logger. Debug level only with --verbose,
// otherwise warnings and up.
func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if globalOpts.Verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// NewRootCmd creates the root cobra command for mpytest.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mpytest",
		Short: "Hardware-in-the-loop test plan runner for MicroPython boards",
		Long: `mpytest - hardware-in-the-loop test plan runner for MicroPython boards

mpytest executes YAML test plans against physical development boards. It
leases boards from a device pool (or uses explicitly given serial ports),
dispatches the MicroPython test harnesses against them, retries flaky
suites, and reports a per-suite and overall verdict.`,
		Version:       version.FullVersion(),
		SilenceErrors: true, // We handle error printing in main.go
		SilenceUsage:  true, // We handle usage printing manually
	}

	// Global flags
	rootCmd.PersistentFlags().BoolVar(&globalOpts.Verbose, "verbose", false, "show debug logging and detailed error context")

	// Disable Cobra's default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Add all subcommands
	rootCmd.AddCommand(
		newRunCmd(),
		newPlanCmd(),
		newDevsCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

// Execute runs the root command with the given output writers.
// This is the main entry point from main.go.
func Execute(stdout, stderr io.Writer) error {
	rootCmd := NewRootCmd()
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd.Execute()
}
