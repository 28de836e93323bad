package infratest

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/driftkit/driftkit/internal/capability"
	"github.com/driftkit/driftkit/internal/config"
	"github.com/driftkit/driftkit/pkg/assert"
)

// SuiteResult aggregates one assertion suite run. Messages carry one
// line per check, for passes as well as failures, so the host can
// audit-log both.
type SuiteResult struct {
	Success  bool
	Messages []string
}

// RunSuite evaluates every check against the backend's observed
// values. Check order is the sorted capability name order so output is
// stable. Structural errors (unsupported capability, missing method
// parameter, unknown comparison, uncomparable types) abort the run;
// they indicate misconfiguration rather than a failed assertion.
func RunSuite(ctx context.Context, backend *capability.Backend, target string, checks map[string]config.Check) (SuiteResult, error) {
	res := SuiteResult{Success: true}

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		check := checks[name]

		var parameter *string
		if check.HasParam {
			p := check.Parameter
			parameter = &p
		}

		observed, err := backend.Observe(ctx, name, target, parameter)
		if err != nil {
			return SuiteResult{}, err
		}

		assertion, err := assert.Evaluate(check.Expectation, observed)
		if err != nil {
			return SuiteResult{}, err
		}

		verdict := "passed"
		if !assertion.Passed {
			verdict = "failed"
			res.Success = false
		}
		res.Messages = append(res.Messages, fmt.Sprintf(
			"Assertion %s: %s %s %s (%s). Actual result: %v",
			verdict, backend.Name(), target, name, assertion.Description, observed,
		))
	}

	return res, nil
}

// Summary joins the per-check messages into one report.
func (r SuiteResult) Summary() string {
	return strings.Join(r.Messages, "\n")
}
