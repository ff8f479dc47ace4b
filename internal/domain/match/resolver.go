package match

import (
	"errors"

	"github.com/sophialabs/samplingconformance/internal/domain/rule"
	"github.com/sophialabs/samplingconformance/internal/domain/testcase"
)

// ErrNoCandidates is returned when resolving over an empty rule list.
var ErrNoCandidates = errors.New("no candidate rules")

// Resolution holds the governing rule and the per-candidate trace.
type Resolution struct {
	Rule       rule.Rule
	Index      int
	Fallback   bool // no candidate matched; the last rule was chosen
	Candidates []CandidateResult
}

// Resolver picks the rule a sampler is expected to apply to a test case.
// Array position is precedence: the first rule the test case is expected to
// match wins, and when none match the last rule governs. The numeric
// Priority of a rule is never consulted.
type Resolver struct{}

// NewResolver creates a new Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve returns the governing rule for tc among ordered.
func (r *Resolver) Resolve(tc testcase.TestCase, ordered []rule.Rule) (rule.Rule, error) {
	res, err := r.Evaluate(tc, ordered)
	if err != nil {
		return rule.Rule{}, err
	}
	return res.Rule, nil
}

// Evaluate is Resolve with a trace of every candidate.
func (r *Resolver) Evaluate(tc testcase.TestCase, ordered []rule.Rule) (Resolution, error) {
	if len(ordered) == 0 {
		return Resolution{}, ErrNoCandidates
	}

	res := Resolution{
		Index:      -1,
		Candidates: make([]CandidateResult, 0, len(ordered)),
	}
	for i, candidate := range ordered {
		cr := CandidateResult{RuleName: string(candidate.Name), Matched: tc.Matched(candidate.Name)}
		if !cr.Matched {
			cr.FailedField = "rule"
			cr.FailedReason = "not expected to match test case " + tc.Name
		}
		res.Candidates = append(res.Candidates, cr)

		if cr.Matched && res.Index < 0 {
			res.Index = i
		}
	}

	if res.Index < 0 {
		res.Index = len(ordered) - 1
		res.Fallback = true
	}
	res.Rule = ordered[res.Index]
	return res, nil
}
