package testcase_test

import (
	"errors"
	"testing"

	"github.com/sophialabs/samplingconformance/internal/domain/rule"
	"github.com/sophialabs/samplingconformance/internal/domain/testcase"
)

func TestCatalog_Validate_BuiltIn(t *testing.T) {
	if err := testcase.NewCatalog().Validate(rule.NewCatalog()); err != nil {
		t.Fatalf("built-in catalog invalid: %v", err)
	}
}

func TestCatalog_BaselineIsFirst(t *testing.T) {
	c := testcase.NewCatalog()
	if len(c.All) != 14 {
		t.Fatalf("expected 14 test cases, got %d", len(c.All))
	}
	if c.All[0].Name != "default" || c.Baseline.Name != "default" {
		t.Errorf("expected baseline case first, got %q / %q", c.All[0].Name, c.Baseline.Name)
	}
	if len(c.Baseline.Matches) != len(testcase.BaselineMatches()) {
		t.Errorf("baseline case should match only the baseline set, got %v", c.Baseline.Matches)
	}
}

func TestCatalog_ExpectedMatches(t *testing.T) {
	tests := []struct {
		name     string
		user     string
		method   string
		endpoint string
		required string
		extra    []rule.Name
	}{
		{"adminGetSampled", "admin", "GET", "/getSampled", "false", []rule.Name{rule.ImportantAttribute}},
		{"adminPostSampled", "admin", "POST", "/getSampled", "false", []rule.Name{rule.ImportantAttribute, rule.PostRule}},
		{"importantAdmin", "admin", "GET", "/importantEndpoint", "false", []rule.Name{rule.ImportantAttribute, rule.SampleNoneAtEndpoint, rule.ImportantEndpoint}},
		{"servicePostSampled", "service", "POST", "/getSampled", "false", []rule.Name{rule.AttributeAtEndpoint, rule.PostRule}},
		{"multAttributeImportant", "admin", "GET", "/importantEndpoint", "true", []rule.Name{rule.MultipleAttributes, rule.ImportantAttribute, rule.ImportantEndpoint, rule.SampleNoneAtEndpoint}},
		{"PostOnly", "test", "POST", "/getSampled", "false", []rule.Name{rule.PostRule}},
	}

	byName := make(map[string]testcase.TestCase)
	for _, tc := range testcase.NewCatalog().All {
		byName[tc.Name] = tc
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc, ok := byName[tt.name]
			if !ok {
				t.Fatalf("test case %q missing", tt.name)
			}
			if tc.User != tt.user || tc.Method != tt.method || tc.Endpoint != tt.endpoint || tc.Required != tt.required {
				t.Errorf("unexpected request shape: %+v", tc)
			}
			if len(tc.Matches) != len(tt.extra)+len(testcase.BaselineMatches()) {
				t.Errorf("unexpected match count: %v", tc.Matches)
			}
			for _, m := range tt.extra {
				if !tc.Matched(m) {
					t.Errorf("expected %s in matches", m)
				}
			}
		})
	}
}

func TestCatalog_ServiceNameCasesShareName(t *testing.T) {
	var count int
	for _, tc := range testcase.NewCatalog().All {
		if tc.Name == "ImportantServiceName" {
			count++
		}
	}
	if count != 2 {
		t.Errorf("expected two ImportantServiceName cases, got %d", count)
	}
}

func TestCatalog_Validate_Rejects(t *testing.T) {
	rules := rule.NewCatalog()

	tests := []struct {
		name string
		tc   testcase.TestCase
	}{
		{"missing baseline", testcase.TestCase{Name: "x", Required: "false", Matches: []rule.Name{rule.AcceptAll}}},
		{"unknown rule", testcase.TestCase{Name: "x", Required: "false", Matches: append(testcase.BaselineMatches(), "Bogus")}},
		{"bad required flag", testcase.TestCase{Name: "x", Required: "yes", Matches: testcase.BaselineMatches()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testcase.NewCatalog()
			c.All = append(c.All, tt.tc)
			if err := c.Validate(rules); !errors.Is(err, testcase.ErrInvalidCatalog) {
				t.Errorf("expected ErrInvalidCatalog, got %v", err)
			}
		})
	}
}

func TestMatched(t *testing.T) {
	tc := testcase.TestCase{Matches: []rule.Name{rule.PostRule}}
	if !tc.Matched(rule.PostRule) {
		t.Error("expected PostRule to match")
	}
	if tc.Matched(rule.AcceptAll) {
		t.Error("did not expect AcceptAll to match")
	}
}
