package usecases

import "errors"

// Rule management errors returned by the emulator use cases.
var (
	ErrRuleExists    = errors.New("sampling rule already exists")
	ErrRuleNotFound  = errors.New("sampling rule not found")
	ErrImmutableRule = errors.New("sampling rule cannot be deleted")
)

// ErrCleanSlate marks a run that stopped before any phase because the
// backend could not be cleared.
var ErrCleanSlate = errors.New("clean slate failed")
