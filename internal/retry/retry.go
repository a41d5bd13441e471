// Package retry drives a suite to its final outcome: it leases devices,
// runs the suite's strategy, and repeats failed attempts up to the
// configured retry budget. Every attempt gets a fresh lease so a retry
// can land on a different device.
package retry

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Infineon/mpy-test-ext/internal/alloc"
	"github.com/Infineon/mpy-test-ext/internal/devpool"
	"github.com/Infineon/mpy-test-ext/internal/errors"
	"github.com/Infineon/mpy-test-ext/internal/plan"
	"github.com/Infineon/mpy-test-ext/internal/report"
	"github.com/Infineon/mpy-test-ext/internal/strategy"
)

// Controller runs suites to completion with retries.
type Controller struct {
	Alloc   *alloc.Allocator
	Deps    strategy.Deps
	Printer *report.Printer

	// MaxRetries is the number of extra attempts after the first one.
	// Zero means a single attempt.
	MaxRetries int

	Log zerolog.Logger
}

// Execute runs one suite until it passes or the retry budget is spent.
// The returned outcome is final; it never returns StatusSkipped, the
// caller decides skipping before any attempt is made.
func (c *Controller) Execute(ctx context.Context, suite *plan.Suite, reqs []devpool.Requirement) report.SuiteOutcome {
	outcome := report.SuiteOutcome{Suite: suite.Name, Status: report.StatusFailed}

	strat, err := strategy.ForKind(suite.Kind, c.Deps)
	if err != nil {
		outcome.Detail = err.Error()
		return outcome
	}

	maxAttempts := c.MaxRetries + 1
	launchFailures := 0
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		outcome.Attempts = attempt

		passed, detail, launchFailed := c.attempt(ctx, strat, suite, reqs)
		if launchFailed && (launchFailures == 0 || detail == outcome.Detail) {
			launchFailures++
		}
		if passed {
			outcome.Status = report.StatusPassed
			outcome.Detail = ""
			c.Printer.SuitePass(suite.Name)
			return outcome
		}

		outcome.Detail = detail
		c.Printer.SuiteFail(suite.Name)
		c.Log.Debug().
			Str("suite", suite.Name).
			Int("attempt", attempt).
			Str("detail", detail).
			Msg("suite attempt failed")

		if attempt < maxAttempts {
			c.Printer.RetryNotice(suite.Name, attempt+1, maxAttempts)
		}
	}

	// The same launch error on every attempt points at the environment,
	// not a flaky test. Call that out in the final detail.
	if launchFailures == maxAttempts && maxAttempts > 1 {
		outcome.Detail += " (identical launch failure on every attempt)"
	}

	return outcome
}

// attempt runs one leased strategy invocation. The lease is released on
// every exit path, including a panicking harness wrapper.
func (c *Controller) attempt(ctx context.Context, strat strategy.Strategy, suite *plan.Suite, reqs []devpool.Requirement) (passed bool, detail string, launchFailed bool) {
	lease, err := c.Alloc.Lease(reqs)
	if err != nil {
		return false, err.Error(), false
	}
	defer c.Alloc.Release(lease)

	dutPort, stubPort := lease.Device(0).Port, ""
	if len(lease.Devices()) > 1 {
		stubPort = lease.Device(1).Port
	}
	c.Printer.SuiteInfo(suite.Name, dutPort, stubPort)

	result, err := strat.Run(ctx, suite, lease)
	if err != nil {
		if errors.GetCode(err) == errors.ELaunchFailed {
			// Launch failures rarely heal on retry, but a retry is
			// still cheap and the environment may have recovered.
			c.Log.Warn().Str("suite", suite.Name).Err(err).Msg("harness launch failed")
			return false, err.Error(), true
		}
		return false, err.Error(), false
	}
	if !result.Passed {
		return false, fmt.Sprintf("harness reported failure (exit %d)", result.ExitCode), false
	}
	return true, "", false
}
