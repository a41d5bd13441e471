// Package report collects per-suite outcomes, folds them into the
// overall verdict, and renders the plan run's human output.
package report

// Status is the final state of one suite after all retries.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// SuiteOutcome is the result of running one suite to completion.
type SuiteOutcome struct {
	Suite    string
	Attempts int
	Status   Status

	// Detail carries the failure description from the last attempt.
	// Empty unless Status is StatusFailed.
	Detail string
}

// Summary is the aggregated result of a plan run.
type Summary struct {
	OverallPassed bool
	Outcomes      []SuiteOutcome
}

// Aggregate folds the outcomes in execution order. The run passes only
// when every suite passed; a skipped suite means the plan did not fully
// run and counts against the overall verdict.
func Aggregate(outcomes []SuiteOutcome) Summary {
	overall := true
	for _, o := range outcomes {
		if o.Status != StatusPassed {
			overall = false
		}
	}
	return Summary{OverallPassed: overall, Outcomes: outcomes}
}

// byStatus returns the suite names with the given status, in order.
func (s Summary) byStatus(status Status) []string {
	var names []string
	for _, o := range s.Outcomes {
		if o.Status == status {
			names = append(names, o.Suite)
		}
	}
	return names
}
