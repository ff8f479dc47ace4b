// Package verify turns a noisy sampled count into a pass/fail verdict.
package verify

import (
	"math"

	"github.com/sophialabs/samplingconformance/internal/domain/rule"
	"github.com/sophialabs/samplingconformance/internal/domain/testcase"
)

const (
	// FallbackFraction models the sampler's built-in minimum guarantee when no
	// explicit rule claims a request: one reservoir hit plus 5% of traffic.
	FallbackFraction = 0.05
	// ToleranceFraction and ToleranceFloor define the acceptance band.
	ToleranceFraction = 0.1
	ToleranceFloor    = 10
)

// Verdict is the outcome of one statistical check.
type Verdict struct {
	Observed  int
	Expected  int
	Tolerance int
	Fallback  bool // the minimum-guarantee rate was used
	Passed    bool
}

// Lower returns the smallest accepted count.
func (v Verdict) Lower() int { return v.Expected - v.Tolerance }

// Upper returns the largest accepted count.
func (v Verdict) Upper() int { return v.Expected + v.Tolerance }

// FallbackExpected returns the expected count when a rule does not apply.
// It depends on totalTrials only, never on the rule under test.
func FallbackExpected(totalTrials int) int {
	return int(FallbackFraction*float64(totalTrials)) + 1
}

// ExpectedCount returns the expected sampled count and whether the fallback
// was applied.
func ExpectedCount(totalTrials int, r rule.Rule, tc testcase.TestCase) (int, bool) {
	if tc.Matched(r.Name) {
		return int(math.Round(r.ExpectedSampled * float64(totalTrials))), false
	}
	return FallbackExpected(totalTrials), true
}

// Tolerance returns the accepted deviation around expected. An expected
// count of zero admits no deviation at all.
func Tolerance(expected int) int {
	if expected == 0 {
		return 0
	}
	return int(math.Round(float64(expected)*ToleranceFraction + ToleranceFloor))
}

// Verify checks observed against the band for rule r and test case tc.
func Verify(observed, totalTrials int, r rule.Rule, tc testcase.TestCase) Verdict {
	expected, fallback := ExpectedCount(totalTrials, r, tc)
	v := Verdict{
		Observed:  observed,
		Expected:  expected,
		Tolerance: Tolerance(expected),
		Fallback:  fallback,
	}
	v.Passed = observed >= v.Lower() && observed <= v.Upper()
	return v
}
