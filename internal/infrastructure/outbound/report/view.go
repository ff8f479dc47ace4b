package report

import (
	"fmt"

	"github.com/sophialabs/samplingconformance/internal/domain/journal"
)

// checkView is the final outcome of one (rule, test case) check.
type checkView struct {
	Rule     string
	TestCase string
	Attempts int
	Passed   bool
	Message  string
}

type phaseView struct {
	Name     string
	Status   string
	Checks   []*checkView
	Tests    int
	Failures int
	Seconds  string
	Failure  string
}

type runView struct {
	ID       string
	Status   string
	Started  string
	Seconds  string
	Failure  string
	Tests    int
	Failures int
	Phases   []*phaseView
}

func status(passed bool) string {
	if passed {
		return "PASS"
	}
	return "FAIL"
}

// newRunView folds attempts into per-check outcomes grouped by phase. A
// check's outcome is that of its last attempt.
func newRunView(run journal.Run) *runView {
	v := &runView{
		ID:      run.ID,
		Status:  status(run.Passed),
		Started: run.Started.UTC().Format("2006-01-02T15:04:05Z"),
		Seconds: fmt.Sprintf("%.3f", run.Finished.Sub(run.Started).Seconds()),
		Failure: run.Failure,
	}

	phases := make(map[string]*phaseView, len(run.Phases))
	for _, p := range run.Phases {
		pv := &phaseView{
			Name:    p.Name,
			Status:  status(p.Passed),
			Seconds: fmt.Sprintf("%.3f", p.Duration.Seconds()),
			Failure: p.Failure,
		}
		phases[p.Name] = pv
		v.Phases = append(v.Phases, pv)
	}

	checks := make(map[string]*checkView)
	for _, a := range run.Attempts {
		pv, ok := phases[a.Phase]
		if !ok {
			continue
		}
		key := a.Phase + "\x00" + a.Rule + "\x00" + a.TestCase
		c, ok := checks[key]
		if !ok {
			c = &checkView{Rule: a.Rule, TestCase: a.TestCase}
			checks[key] = c
			pv.Checks = append(pv.Checks, c)
		}
		c.Attempts++
		c.Passed = a.Passed
		switch {
		case a.Error != "":
			c.Message = a.Error
		case !a.Passed:
			c.Message = fmt.Sprintf("observed %d, expected %d ± %d", a.Observed, a.Expected, a.Tolerance)
		default:
			c.Message = ""
		}
	}

	for _, pv := range v.Phases {
		pv.Tests = len(pv.Checks)
		for _, c := range pv.Checks {
			if !c.Passed {
				pv.Failures++
			}
		}
		v.Tests += pv.Tests
		v.Failures += pv.Failures
	}
	return v
}
