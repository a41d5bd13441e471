// Package plan models the test plan: named suites, their kind, scripts,
// and declared device support. It loads the plan document and resolves
// which suites a run executes.
package plan

import (
	"time"

	"github.com/Infineon/mpy-test-ext/internal/devpool"
)

// Kind selects the execution strategy for a suite.
type Kind string

const (
	KindSingle      Kind = "single"
	KindSingleDelay Kind = "single_post_delay"
	KindMulti       Kind = "multi"
	KindMultiStub   Kind = "multi_stub"
	KindCustom      Kind = "custom"
)

// Valid reports whether k names a known test kind.
func (k Kind) Valid() bool {
	switch k {
	case KindSingle, KindSingleDelay, KindMulti, KindMultiStub, KindCustom:
		return true
	}
	return false
}

// MultiDevice reports whether the kind needs two leased devices.
func (k Kind) MultiDevice() bool {
	return k == KindMulti || k == KindMultiStub
}

// Suite is one named unit of work from the plan.
//
// Kind determines which fields are meaningful; fields irrelevant to the
// active kind are ignored, never validation errors.
type Suite struct {
	Name string
	Kind Kind

	// Scripts are file or directory paths relative to the test dir.
	Scripts []string

	// Excludes removes scripts from the run (single and
	// single_post_delay only).
	Excludes []string

	// PostTestDelay is the pause between scripts (single_post_delay).
	PostTestDelay time.Duration

	// Args are extra arguments appended to custom script invocations.
	Args []string

	// SupportedDUT lists board/version alternatives that can serve as
	// the DUT. Empty means any device in the pool.
	SupportedDUT []devpool.Requirement

	// SupportedStub lists board/version alternatives for the stub
	// device (multi_stub). For multi, the DUT list serves both roles.
	SupportedStub []devpool.Requirement

	// StubScript is uploaded to the stub device before the DUT phase
	// (multi_stub).
	StubScript string

	// PostStubDelay is the pause between stub start and the DUT phase.
	PostStubDelay time.Duration
}

// Adhoc synthesizes a single-entry suite from CLI-level arguments
// (direct mode without a plan file). Device support is left empty so the
// suite matches the ad-hoc port devices.
func Adhoc(name string, kind Kind, scripts, args []string) Suite {
	if name == "" {
		name = "adhoc"
	}
	if kind == "" {
		kind = KindSingle
	}
	return Suite{
		Name:    name,
		Kind:    kind,
		Scripts: scripts,
		Args:    args,
	}
}
