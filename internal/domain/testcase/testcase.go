package testcase

import (
	"errors"
	"fmt"

	"github.com/sophialabs/samplingconformance/internal/domain/rule"
)

// User values sent in the user header.
const (
	UserAdmin   = "admin"
	UserTest    = "test"
	UserService = "service"
)

// TestCase describes one shape of traffic sent to the target, along with the
// rules whose matchers it is expected to satisfy.
type TestCase struct {
	User     string
	Name     string // also the logical service name of the generated spans
	Required string // "true" or "false"
	Method   string
	Endpoint string
	Matches  []rule.Name
}

// Matched reports whether name is one of the test case's expected rules.
func (tc TestCase) Matched(name rule.Name) bool {
	for _, m := range tc.Matches {
		if m == name {
			return true
		}
	}
	return false
}

// BaselineMatches returns the rules that match every request.
func BaselineMatches() []rule.Name {
	return []rule.Name{
		rule.Default,
		rule.AcceptAll,
		rule.SampleNone,
		rule.HighReservoir,
		rule.MixedReservoir,
		rule.LowReservoir,
	}
}

// withBaseline appends the baseline set to specific matches.
func withBaseline(specific ...rule.Name) []rule.Name {
	out := make([]rule.Name, 0, len(specific)+6)
	out = append(out, specific...)
	return append(out, BaselineMatches()...)
}

// Catalog is the fixed table of traffic scenarios.
type Catalog struct {
	Baseline TestCase
	All      []TestCase
}

// ErrInvalidCatalog is returned by Validate.
var ErrInvalidCatalog = errors.New("invalid test case catalog")

// NewCatalog returns the built-in test case catalog.
func NewCatalog() Catalog {
	baseline := defaultUser()
	return Catalog{
		Baseline: baseline,
		All: []TestCase{
			baseline,
			{UserAdmin, "adminGetSampled", "false", "GET", "/getSampled",
				withBaseline(rule.ImportantAttribute)},
			{UserAdmin, "adminPostSampled", "false", "POST", "/getSampled",
				withBaseline(rule.ImportantAttribute, rule.PostRule)},
			{UserAdmin, "importantAdmin", "false", "GET", "/importantEndpoint",
				withBaseline(rule.ImportantAttribute, rule.SampleNoneAtEndpoint, rule.ImportantEndpoint)},
			{UserTest, "importantTest", "false", "GET", "/importantEndpoint",
				withBaseline(rule.ImportantEndpoint, rule.SampleNoneAtEndpoint)},
			{UserService, "serviceImportant", "false", "GET", "/importantEndpoint",
				withBaseline(rule.ImportantEndpoint, rule.SampleNoneAtEndpoint)},
			{UserService, "serviceGetSampled", "false", "GET", "/getSampled",
				withBaseline(rule.AttributeAtEndpoint)},
			{UserService, "servicePostSampled", "false", "POST", "/getSampled",
				withBaseline(rule.AttributeAtEndpoint, rule.PostRule)},
			{UserAdmin, "multAttributeGetSampled", "true", "GET", "/getSampled",
				withBaseline(rule.MultipleAttributes, rule.ImportantAttribute)},
			{UserAdmin, "multAttributePostSampled", "true", "POST", "/getSampled",
				withBaseline(rule.MultipleAttributes, rule.ImportantAttribute, rule.PostRule)},
			{UserAdmin, "multAttributeImportant", "true", "GET", "/importantEndpoint",
				withBaseline(rule.MultipleAttributes, rule.ImportantAttribute, rule.ImportantEndpoint, rule.SampleNoneAtEndpoint)},
			{UserTest, "PostOnly", "false", "POST", "/getSampled",
				withBaseline(rule.PostRule)},
			{UserTest, "ImportantServiceName", "false", "GET", "/getSampled",
				withBaseline(rule.ImportantServiceName)},
			{UserAdmin, "ImportantServiceName", "false", "GET", "/getSampled",
				withBaseline(rule.ImportantServiceName, rule.ImportantAttribute)},
		},
	}
}

func defaultUser() TestCase {
	return TestCase{
		User:     UserTest,
		Name:     "default",
		Required: "false",
		Method:   "GET",
		Endpoint: "/getSampled",
		Matches:  BaselineMatches(),
	}
}

// Validate checks that every expected match names a rule of rules, and that
// the baseline set is part of every test case's matches.
func (c Catalog) Validate(rules rule.Catalog) error {
	cases := append([]TestCase{c.Baseline}, c.All...)
	for _, tc := range cases {
		if tc.Required != "true" && tc.Required != "false" {
			return fmt.Errorf("%w: %s: required must be \"true\" or \"false\", got %q", ErrInvalidCatalog, tc.Name, tc.Required)
		}
		for _, m := range tc.Matches {
			if _, ok := rules.Lookup(m); !ok {
				return fmt.Errorf("%w: %s: expected match %q is not in the rule catalog", ErrInvalidCatalog, tc.Name, m)
			}
		}
		for _, b := range BaselineMatches() {
			if !tc.Matched(b) {
				return fmt.Errorf("%w: %s: missing baseline match %q", ErrInvalidCatalog, tc.Name, b)
			}
		}
	}
	return nil
}
