package rule_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/sophialabs/samplingconformance/internal/domain/rule"
)

func TestNew_DefaultsMatchEverything(t *testing.T) {
	r := rule.New(rule.AcceptAll, 1000, 1, 1)

	if r.ServiceName != "*" || r.HTTPMethod != "*" || r.URLPath != "*" {
		t.Errorf("expected wildcard filters, got %+v", r)
	}
	if r.Reservoir != 1 {
		t.Errorf("expected default reservoir 1, got %d", r.Reservoir)
	}
	if r.Attributes != nil {
		t.Errorf("expected no attributes, got %v", r.Attributes)
	}
}

func TestWithAttributes_CopiesMap(t *testing.T) {
	attrs := map[string]string{"user": "admin"}
	r := rule.New(rule.ImportantAttribute, 2, .5, .5).WithAttributes(attrs)

	attrs["user"] = "mutated"
	if r.Attributes["user"] != "admin" {
		t.Errorf("rule attributes aliased caller map: %v", r.Attributes)
	}
}

func TestPayload_FieldNames(t *testing.T) {
	r := rule.New(rule.AttributeAtEndpoint, 8, .5, .51).
		WithPath("/getSampled").
		WithAttributes(map[string]string{"user": "service"})

	data, err := r.Payload()
	if err != nil {
		t.Fatalf("Payload failed: %v", err)
	}

	var body map[string]map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	sr, ok := body["SamplingRule"]
	if !ok {
		t.Fatalf("missing SamplingRule envelope: %s", data)
	}

	want := map[string]any{
		"FixedRate":     0.5,
		"Host":          "*",
		"HTTPMethod":    "*",
		"Priority":      float64(8),
		"ReservoirSize": float64(1),
		"ResourceARN":   "*",
		"RuleName":      "AttributeAtEndpoint",
		"ServiceName":   "*",
		"ServiceType":   "*",
		"URLPath":       "/getSampled",
		"Version":       float64(1),
	}
	for k, v := range want {
		if sr[k] != v {
			t.Errorf("%s: expected %v, got %v", k, v, sr[k])
		}
	}
	attrs, ok := sr["Attributes"].(map[string]any)
	if !ok || attrs["user"] != "service" {
		t.Errorf("unexpected Attributes: %v", sr["Attributes"])
	}
}

func TestPayload_OmitsEmptyAttributes(t *testing.T) {
	data, err := rule.New(rule.AcceptAll, 1000, 1, 1).Payload()
	if err != nil {
		t.Fatalf("Payload failed: %v", err)
	}
	var body map[string]map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := body["SamplingRule"]["Attributes"]; ok {
		t.Error("expected Attributes to be omitted")
	}
}

func TestName_Immutable(t *testing.T) {
	if !rule.Default.Immutable() {
		t.Error("Default must be immutable")
	}
	for _, n := range rule.Names {
		if n != rule.Default && n.Immutable() {
			t.Errorf("%s should not be immutable", n)
		}
	}
}

func TestCatalog_SubsetOrder(t *testing.T) {
	c := rule.NewCatalog()

	tests := []struct {
		name  string
		rules []rule.Rule
		want  []rule.Name
	}{
		{"independent", c.Independent, []rule.Name{
			rule.SampleNone, rule.AcceptAll, rule.ImportantEndpoint, rule.ImportantAttribute,
			rule.AttributeAtEndpoint, rule.LowReservoir, rule.PostRule, rule.MultipleAttributes,
			rule.Default, rule.ImportantServiceName, rule.SampleNoneAtEndpoint,
		}},
		{"priority", c.Priority, []rule.Name{
			rule.ImportantEndpoint, rule.ImportantAttribute, rule.AttributeAtEndpoint, rule.PostRule,
		}},
		{"reservoir", c.Reservoir, []rule.Name{rule.HighReservoir, rule.MixedReservoir}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rule.NamesOf(tt.rules)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d rules, got %d: %v", len(tt.want), len(got), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("position %d: expected %s, got %s", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestCatalog_FixtureValues(t *testing.T) {
	c := rule.NewCatalog()

	tests := []struct {
		name      rule.Name
		priority  int
		rate      float64
		expected  float64
		reservoir int
		method    string
		path      string
		service   string
		attrs     map[string]string
	}{
		{rule.AcceptAll, 1000, 1, 1, 1, "*", "*", "*", nil},
		{rule.SampleNone, 1000, 0, 0, 0, "*", "*", "*", nil},
		{rule.SampleNoneAtEndpoint, 1000, 0, 0, 0, "*", "/importantEndpoint", "*", nil},
		{rule.PostRule, 10, .1, .11, 1, "POST", "*", "*", nil},
		{rule.ImportantEndpoint, 1, 1, 1, 1, "*", "/importantEndpoint", "*", nil},
		{rule.AttributeAtEndpoint, 8, .5, .51, 1, "*", "/getSampled", "*", map[string]string{"user": "service"}},
		{rule.LowReservoir, 10, .8, .80, 0, "*", "*", "*", nil},
		{rule.HighReservoir, 2000, 0, .50, 500, "*", "*", "*", nil},
		{rule.MixedReservoir, 2000, .5, .75, 500, "*", "*", "*", nil},
		{rule.ImportantAttribute, 2, .5, .5, 1, "*", "*", "*", map[string]string{"user": "admin"}},
		{rule.MultipleAttributes, 9, .4, .41, 1, "*", "*", "*", map[string]string{"user": "admin", "required": "true"}},
		{rule.Default, 10000, .06, .06, 1, "*", "*", "*", nil},
		{rule.ImportantServiceName, 3, 1, 1, 1, "*", "*", "adot-integ-test", nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.name), func(t *testing.T) {
			r, ok := c.Lookup(tt.name)
			if !ok {
				t.Fatalf("rule %s not in catalog", tt.name)
			}
			if r.Priority != tt.priority || r.Rate != tt.rate || r.ExpectedSampled != tt.expected || r.Reservoir != tt.reservoir {
				t.Errorf("unexpected numbers: %+v", r)
			}
			if r.HTTPMethod != tt.method || r.URLPath != tt.path || r.ServiceName != tt.service {
				t.Errorf("unexpected filters: %+v", r)
			}
			if len(r.Attributes) != len(tt.attrs) {
				t.Fatalf("expected attrs %v, got %v", tt.attrs, r.Attributes)
			}
			for k, v := range tt.attrs {
				if r.Attributes[k] != v {
					t.Errorf("attr %s: expected %q, got %q", k, v, r.Attributes[k])
				}
			}
		})
	}
}

func TestCatalog_Validate(t *testing.T) {
	if err := rule.NewCatalog().Validate(); err != nil {
		t.Fatalf("built-in catalog invalid: %v", err)
	}

	tests := []struct {
		name string
		cat  rule.Catalog
	}{
		{"unknown name", rule.Catalog{Independent: []rule.Rule{rule.New("Bogus", 1, 1, 1)}}},
		{"duplicate", rule.Catalog{Priority: []rule.Rule{rule.New(rule.AcceptAll, 1, 1, 1), rule.New(rule.AcceptAll, 1, 1, 1)}}},
		{"rate out of range", rule.Catalog{Reservoir: []rule.Rule{rule.New(rule.AcceptAll, 1, 1.5, 1)}}},
		{"fraction out of range", rule.Catalog{Reservoir: []rule.Rule{rule.New(rule.AcceptAll, 1, 1, -0.1)}}},
		{"negative reservoir", rule.Catalog{Reservoir: []rule.Rule{rule.New(rule.AcceptAll, 1, 1, 1).WithReservoir(-1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cat.Validate()
			if !errors.Is(err, rule.ErrInvalidCatalog) {
				t.Errorf("expected ErrInvalidCatalog, got %v", err)
			}
		})
	}
}

func TestCatalog_AllDeduplicates(t *testing.T) {
	all := rule.NewCatalog().All()
	if len(all) != len(rule.Names) {
		t.Errorf("expected %d distinct rules, got %d", len(rule.Names), len(all))
	}
}
