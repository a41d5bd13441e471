// Package strategy implements one execution strategy per test kind.
// A strategy maps a suite's fields and leased devices onto external
// harness invocations; it never leases or releases devices itself.
package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/Infineon/mpy-test-ext/internal/alloc"
	"github.com/Infineon/mpy-test-ext/internal/errors"
	"github.com/Infineon/mpy-test-ext/internal/harness"
	"github.com/Infineon/mpy-test-ext/internal/plan"
)

// Strategy runs one suite attempt against already-leased devices.
//
// A returned error means the attempt could not run to a verdict (launch
// failure, stub start failure); a Result with Passed=false means the
// harness ran and reported failure.
type Strategy interface {
	Run(ctx context.Context, suite *plan.Suite, lease *alloc.Lease) (harness.Result, error)
}

// Deps holds the harness wrappers shared by all strategies.
type Deps struct {
	Single *harness.Single
	Multi  *harness.Multi
	Upload *harness.Uploader
	Custom *harness.Custom

	// Sleep is injectable for tests; nil means time.Sleep.
	Sleep func(time.Duration)
}

func (d Deps) sleep(dur time.Duration) {
	if dur <= 0 {
		return
	}
	if d.Sleep != nil {
		d.Sleep(dur)
		return
	}
	time.Sleep(dur)
}

// ForKind selects the strategy for a suite kind. An empty kind defaults
// to single.
func ForKind(kind plan.Kind, deps Deps) (Strategy, error) {
	switch kind {
	case plan.KindSingle, "":
		return &single{deps}, nil
	case plan.KindSingleDelay:
		return &singleDelay{deps}, nil
	case plan.KindMulti:
		return &multi{deps}, nil
	case plan.KindMultiStub:
		return &multiStub{deps}, nil
	case plan.KindCustom:
		return &custom{deps}, nil
	}
	return nil, errors.New(errors.EInternal, fmt.Sprintf("no strategy for test kind %q", kind))
}

// single runs the whole script set as one harness batch on the DUT.
type single struct {
	deps Deps
}

func (s *single) Run(ctx context.Context, suite *plan.Suite, lease *alloc.Lease) (harness.Result, error) {
	dut := lease.Device(0)
	return s.deps.Single.RunBatch(ctx, dut.Port, suite.Scripts, suite.Excludes)
}

// singleDelay runs every script as its own harness invocation, pausing
// between scripts. Never batched.
type singleDelay struct {
	deps Deps
}

func (s *singleDelay) Run(ctx context.Context, suite *plan.Suite, lease *alloc.Lease) (harness.Result, error) {
	scripts, err := harness.ExpandScripts(s.deps.Single.TC, suite.Scripts, suite.Excludes)
	if err != nil {
		return harness.Result{}, errors.Wrap(errors.ELaunchFailed,
			"failed to expand test scripts", err)
	}

	dut := lease.Device(0)
	result := harness.Result{Passed: true}
	for i, script := range scripts {
		res, err := s.deps.Single.RunOne(ctx, dut.Port, script)
		if err != nil {
			return harness.Result{}, err
		}
		result.Output += res.Output
		if !res.Passed {
			// Stop immediately: no delay is owed after a failure.
			result.Passed = false
			result.ExitCode = res.ExitCode
			return result, nil
		}
		if i < len(scripts)-1 {
			s.deps.sleep(suite.PostTestDelay)
		}
	}
	return result, nil
}

// multi hands both leased devices to the multi-device harness, which
// synchronizes them itself.
type multi struct {
	deps Deps
}

func (s *multi) Run(ctx context.Context, suite *plan.Suite, lease *alloc.Lease) (harness.Result, error) {
	a, b := lease.Device(0), lease.Device(1)
	return s.deps.Multi.Run(ctx, a.Port, b.Port, suite.Scripts)
}

// multiStub starts the stub script on the stub device, then runs the
// DUT phase as a single-device batch. The stub lease stays held for the
// whole DUT run; release order (DUT before stub) is the caller's
// release of the lease after Run returns.
type multiStub struct {
	deps Deps
}

func (s *multiStub) Run(ctx context.Context, suite *plan.Suite, lease *alloc.Lease) (harness.Result, error) {
	dut, stub := lease.Device(0), lease.Device(1)

	if err := s.deps.Upload.Start(ctx, stub.Port, suite.StubScript); err != nil {
		// Stub never started: the DUT phase must not be attempted.
		return harness.Result{}, err
	}

	s.deps.sleep(suite.PostStubDelay)

	return s.deps.Single.RunBatch(ctx, dut.Port, suite.Scripts, suite.Excludes)
}

// custom invokes each script directly on the host. A failing script
// fails the suite but the remaining scripts still run.
type custom struct {
	deps Deps
}

func (s *custom) Run(ctx context.Context, suite *plan.Suite, lease *alloc.Lease) (harness.Result, error) {
	dut := lease.Device(0)

	result := harness.Result{Passed: true}
	for _, script := range suite.Scripts {
		res, err := s.deps.Custom.Run(ctx, dut.Port, script, suite.Args)
		if err != nil {
			return harness.Result{}, err
		}
		result.Output += res.Output
		if !res.Passed {
			result.Passed = false
			result.ExitCode = res.ExitCode
		}
	}
	return result, nil
}
