// Package engine orchestrates a full plan run: it builds the device
// pool, resolves the requested suites, drives each one through the
// retry controller, and folds the outcomes into the final summary.
// Suites run sequentially in plan order.
package engine

import (
	"context"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Infineon/mpy-test-ext/internal/alloc"
	"github.com/Infineon/mpy-test-ext/internal/devpool"
	"github.com/Infineon/mpy-test-ext/internal/errors"
	"github.com/Infineon/mpy-test-ext/internal/exec"
	"github.com/Infineon/mpy-test-ext/internal/harness"
	"github.com/Infineon/mpy-test-ext/internal/plan"
	"github.com/Infineon/mpy-test-ext/internal/report"
	"github.com/Infineon/mpy-test-ext/internal/retry"
	"github.com/Infineon/mpy-test-ext/internal/strategy"
)

// Options configures one plan run.
type Options struct {
	// PlanFile is the test plan document.
	PlanFile string

	// Suites restricts the run to the named suites. Empty runs the whole
	// plan.
	Suites []string

	// AdhocScripts bypasses the plan document: the run executes one
	// synthesized single-kind suite over these scripts. Only meaningful
	// in direct mode.
	AdhocScripts []string

	// DevsFile is the device pool document. When empty the run is in
	// direct mode and DutPort/StubPort describe the hardware.
	DevsFile string

	// Board restricts a DevsFile pool to one board type.
	Board string

	DutPort  string
	StubPort string

	// MaxRetries is the extra-attempt budget per suite.
	MaxRetries int

	// TestDir is the test tree root the harnesses run in.
	TestDir string

	// Out receives the human-readable progress and summary. Defaults to
	// os.Stdout.
	Out io.Writer

	// CR runs the external harness processes. Defaults to the real
	// subprocess runner.
	CR exec.CommandRunner

	// Locator resolves device serial ids to tty ports. Defaults to USB
	// enumeration. Unused in direct mode.
	Locator devpool.PortLocator

	Log zerolog.Logger
}

func (o *Options) fill() {
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.CR == nil {
		o.CR = exec.NewRealRunner()
	}
	if o.Locator == nil {
		o.Locator = devpool.NewSerialLocator()
	}
}

// Run executes the plan and returns nil only when every resolved suite
// passed.
func Run(ctx context.Context, opts Options) error {
	opts.fill()

	log := opts.Log.With().Str("run_id", uuid.NewString()).Logger()

	var selected []plan.Suite
	planFile := opts.PlanFile
	if len(opts.AdhocScripts) > 0 {
		selected = []plan.Suite{plan.Adhoc("", "", opts.AdhocScripts, nil)}
		planFile = ""
	} else {
		suites, err := plan.LoadFile(opts.PlanFile)
		if err != nil {
			return err
		}
		selected, err = plan.Select(suites, opts.Suites)
		if err != nil {
			return err
		}
	}

	pool, err := buildPool(opts)
	if err != nil {
		return err
	}

	printer := report.NewPrinter(opts.Out)
	printer.PlanInfo(planFile, opts.DevsFile, opts.Board)

	allocator := alloc.New(pool, log)
	tc := harness.DefaultToolchain(opts.TestDir)
	ctl := &retry.Controller{
		Alloc: allocator,
		Deps: strategy.Deps{
			Single: &harness.Single{CR: opts.CR, TC: tc, Out: opts.Out, Err: opts.Out},
			Multi:  &harness.Multi{CR: opts.CR, TC: tc, Out: opts.Out, Err: opts.Out},
			Upload: &harness.Uploader{CR: opts.CR, TC: tc},
			Custom: &harness.Custom{CR: opts.CR, TC: tc, Out: opts.Out, Err: opts.Out},
		},
		Printer:    printer,
		MaxRetries: opts.MaxRetries,
		Log:        log,
	}

	directMode := opts.DevsFile == ""

	var outcomes []report.SuiteOutcome
	for i := range selected {
		suite := &selected[i]
		log.Info().Str("suite", suite.Name).Str("kind", string(suite.Kind)).Msg("suite starting")

		reqs, ok := requirementsFor(suite, allocator, directMode)
		if !ok {
			// The pool can never provide the hardware this suite needs,
			// not even when idle. No attempt is made.
			printer.SuiteSkip(suite.Name)
			log.Info().Str("suite", suite.Name).Msg("suite skipped, no eligible device")
			outcomes = append(outcomes, report.SuiteOutcome{
				Suite:  suite.Name,
				Status: report.StatusSkipped,
			})
			continue
		}

		outcomes = append(outcomes, ctl.Execute(ctx, suite, reqs))
	}

	summary := report.Aggregate(outcomes)
	printer.Summary(summary)

	if !summary.OverallPassed {
		return errors.New(errors.ESuitesFailed, "test plan did not fully pass")
	}
	return nil
}

// buildPool assembles the device pool from a devs file or from explicit
// ports (direct mode).
func buildPool(opts Options) (*devpool.Pool, error) {
	if opts.DevsFile == "" {
		return devpool.NewDirect(opts.DutPort, opts.StubPort), nil
	}

	pool, err := devpool.LoadFile(opts.DevsFile)
	if err != nil {
		return nil, err
	}
	pool.Restrict(opts.Board)
	if err := pool.ResolvePorts(opts.Locator); err != nil {
		return nil, err
	}
	return pool, nil
}

// requirementsFor picks the first supported-device alternative the pool
// can satisfy and returns the requirement list to lease. ok is false
// when no alternative is satisfiable even on an idle pool.
//
// A suite that declares no supported devices is only runnable in direct
// mode, where the ad-hoc port devices match anything. Against a real
// pool an empty support list means the suite has nowhere to run.
func requirementsFor(suite *plan.Suite, a *alloc.Allocator, directMode bool) (reqs []devpool.Requirement, ok bool) {
	dutOpts := suite.SupportedDUT
	if len(dutOpts) == 0 {
		if !directMode {
			return nil, false
		}
		dutOpts = []devpool.Requirement{{Role: devpool.RoleDUT}}
	}

	if !suite.Kind.MultiDevice() {
		for _, dut := range dutOpts {
			dut.Role = devpool.RoleDUT
			if a.Satisfiable([]devpool.Requirement{dut}) {
				return []devpool.Requirement{dut}, true
			}
		}
		return nil, false
	}

	// A plain multi suite needs two devices of the same board type, so
	// both requirements come from one alternative.
	if suite.Kind == plan.KindMulti {
		for _, opt := range dutOpts {
			dut, stub := opt, opt
			dut.Role = devpool.RoleDUT
			stub.Role = devpool.RoleStub
			pair := []devpool.Requirement{dut, stub}
			if a.Satisfiable(pair) {
				return pair, true
			}
		}
		return nil, false
	}

	stubOpts := suite.SupportedStub
	if len(stubOpts) == 0 {
		if !directMode {
			return nil, false
		}
		stubOpts = []devpool.Requirement{{Role: devpool.RoleStub}}
	}

	for _, dut := range dutOpts {
		dut.Role = devpool.RoleDUT
		for _, stub := range stubOpts {
			stub.Role = devpool.RoleStub
			pair := []devpool.Requirement{dut, stub}
			if a.Satisfiable(pair) {
				return pair, true
			}
		}
	}
	return nil, false
}
