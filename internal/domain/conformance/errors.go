// Package conformance holds the error vocabulary shared by the harness.
package conformance

import (
	"errors"
	"fmt"
)

var (
	// ErrBackendUnavailable means a rule-management call failed. Always fatal.
	ErrBackendUnavailable = errors.New("rule backend unavailable")
	// ErrTargetUnavailable means the traffic target could not be reached.
	ErrTargetUnavailable = errors.New("traffic target unavailable")
	// ErrMalformedResponse means the traffic target answered with something
	// other than a sampled count.
	ErrMalformedResponse = errors.New("malformed traffic response")
	// ErrRateMismatch means the observed count fell outside the accepted band.
	ErrRateMismatch = errors.New("sampled count out of range")
	// ErrRetriesExhausted means every attempt for a rule and test case failed.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// Error reports the rule and test case that failed a phase.
type Error struct {
	Phase    string
	Rule     string
	TestCase string
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s phase: rule %s, test case %s: %d attempts: %v",
		e.Phase, e.Rule, e.TestCase, e.Attempts, e.Err)
}

// Unwrap lets errors.Is see both ErrRetriesExhausted and the last cause.
func (e *Error) Unwrap() []error {
	return []error{ErrRetriesExhausted, e.Err}
}
