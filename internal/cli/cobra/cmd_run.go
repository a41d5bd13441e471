package cobra

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/Infineon/mpy-test-ext/internal/engine"
	"github.com/Infineon/mpy-test-ext/internal/errors"
)

const (
	defaultPlanFile = "test-plan.yml"
	defaultDutPort  = "/dev/ttyACM0"
	defaultStubPort = "/dev/ttyACM1"
)

func newRunCmd() *cobra.Command {
	var planFile string
	var devsFile string
	var board string
	var dutPort string
	var stubPort string
	var maxRetries int
	var testDir string

	cmd := &cobra.Command{
		Use:   "run [suite...]",
		Short: "Execute the test plan against HIL devices",
		Long: `Execute the test plan, or only the named suites, against HIL devices.

Devices come either from a device pool file (--devs, optionally narrowed
with --board) or from explicitly given serial ports (--dut-port and
--stub-port). The two modes are mutually exclusive.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			usingPorts := cmd.Flags().Changed("dut-port") || cmd.Flags().Changed("stub-port")
			if devsFile != "" && usingPorts {
				_ = cmd.Help()
				return errors.New(errors.EUsage, "--devs cannot be combined with --dut-port/--stub-port")
			}
			if devsFile != "" && board == "" {
				_ = cmd.Help()
				return errors.New(errors.EUsage, "--board is required when --devs is provided")
			}
			if board != "" && devsFile == "" {
				_ = cmd.Help()
				return errors.New(errors.EUsage, "--board requires --devs")
			}
			if maxRetries < 0 {
				return errors.New(errors.EUsage, "--max-retries must not be negative")
			}

			opts := engine.Options{
				PlanFile:   planFile,
				Suites:     args,
				DevsFile:   devsFile,
				Board:      board,
				DutPort:    dutPort,
				StubPort:   stubPort,
				MaxRetries: maxRetries,
				TestDir:    testDir,
				Out:        cmd.OutOrStdout(),
				Log:        newLogger(),
			}

			// Direct mode without a plan document: the positional
			// arguments are test scripts for one ad-hoc suite, not
			// suite names.
			if devsFile == "" {
				if scripts := adhocScripts(cmd.Flags().Changed("plan"), planFile, args); scripts != nil {
					opts.AdhocScripts = scripts
					opts.Suites = nil
				}
			}

			return engine.Run(context.Background(), opts)
		},
	}

	cmd.Flags().StringVar(&planFile, "plan", defaultPlanFile, "test plan file")
	cmd.Flags().StringVar(&devsFile, "devs", "", "device pool file (mutually exclusive with port flags)")
	cmd.Flags().StringVar(&board, "board", "", "restrict the device pool to one board type (requires --devs)")
	cmd.Flags().StringVar(&dutPort, "dut-port", defaultDutPort, "serial port of the device under test (direct mode)")
	cmd.Flags().StringVar(&stubPort, "stub-port", defaultStubPort, "serial port of the stub device (direct mode)")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "extra attempts for a failed suite")
	cmd.Flags().StringVar(&testDir, "test-dir", ".", "test tree root the harnesses run in")

	return cmd
}

// adhocScripts decides whether a direct-mode run executes without a plan
// document: the plan flag was left at its default, no such file exists,
// and positional arguments were given. The arguments then become the
// scripts of one synthesized suite.
func adhocScripts(planExplicit bool, planFile string, args []string) []string {
	if planExplicit || len(args) == 0 {
		return nil
	}
	if _, err := os.Stat(planFile); err == nil {
		return nil
	}
	return args
}
