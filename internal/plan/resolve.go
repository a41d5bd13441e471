package plan

import (
	"fmt"
	"strings"

	"github.com/Infineon/mpy-test-ext/internal/errors"
)

// Select returns the suites matching the requested names, in plan order
// regardless of request order. With no names it returns the whole plan.
// Unknown names are never silently skipped: every missing name is
// reported in a single E_SUITE_NOT_FOUND error before anything runs.
func Select(suites []Suite, names []string) ([]Suite, error) {
	if len(names) == 0 {
		return suites, nil
	}

	requested := make(map[string]bool, len(names))
	for _, n := range names {
		requested[n] = true
	}

	var selected []Suite
	for _, s := range suites {
		if requested[s.Name] {
			selected = append(selected, s)
			delete(requested, s.Name)
		}
	}

	if len(requested) > 0 {
		// Report missing names in request order.
		var missing []string
		for _, n := range names {
			if requested[n] {
				missing = append(missing, n)
				delete(requested, n)
			}
		}
		return nil, errors.NewWithDetails(errors.ESuiteNotFound,
			fmt.Sprintf("test plan has no suite named: %s", strings.Join(missing, ", ")),
			map[string]string{"missing": strings.Join(missing, ", ")})
	}

	return selected, nil
}
