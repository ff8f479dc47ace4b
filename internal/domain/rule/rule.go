package rule

import (
	"encoding/json"
	"fmt"
)

// Name identifies a sampling rule. The set of names is closed.
type Name string

const (
	Default              Name = "Default"
	AcceptAll            Name = "AcceptAll"
	SampleNone           Name = "SampleNone"
	HighReservoir        Name = "HighReservoir"
	MixedReservoir       Name = "MixedReservoir"
	LowReservoir         Name = "LowReservoir"
	ImportantEndpoint    Name = "ImportantEndpoint"
	SampleNoneAtEndpoint Name = "SampleNoneAtEndpoint"
	ImportantAttribute   Name = "ImportantAttribute"
	PostRule             Name = "PostRule"
	AttributeAtEndpoint  Name = "AttributeAtEndpoint"
	ImportantServiceName Name = "ImportantServiceName"
	MultipleAttributes   Name = "MultipleAttributes"
)

// Names lists every known rule name.
var Names = []Name{
	Default, AcceptAll, SampleNone, HighReservoir, MixedReservoir, LowReservoir,
	ImportantEndpoint, SampleNoneAtEndpoint, ImportantAttribute, PostRule,
	AttributeAtEndpoint, ImportantServiceName, MultipleAttributes,
}

// Valid reports whether n is one of the known rule names.
func (n Name) Valid() bool {
	for _, known := range Names {
		if n == known {
			return true
		}
	}
	return false
}

// Immutable reports whether the rule pre-exists in the backend and must never
// be created or deleted by the harness.
func (n Name) Immutable() bool {
	return n == Default
}

func (n Name) String() string { return string(n) }

// Wildcard matches every value of a filter.
const Wildcard = "*"

// Rule is a sampling rule definition. Rules are values and are never mutated
// after construction; use the With* helpers to derive variants.
type Rule struct {
	Name            Name
	Priority        int // backend-facing only
	Rate            float64
	Reservoir       int
	ServiceName     string
	HTTPMethod      string
	URLPath         string
	Attributes      map[string]string
	ExpectedSampled float64
}

// New returns a rule with the default filters (match everything) and a
// reservoir of one.
func New(name Name, priority int, rate, expectedSampled float64) Rule {
	return Rule{
		Name:            name,
		Priority:        priority,
		Rate:            rate,
		Reservoir:       1,
		ServiceName:     Wildcard,
		HTTPMethod:      Wildcard,
		URLPath:         Wildcard,
		ExpectedSampled: expectedSampled,
	}
}

func (r Rule) WithReservoir(n int) Rule {
	r.Reservoir = n
	return r
}

func (r Rule) WithPath(path string) Rule {
	r.URLPath = path
	return r
}

func (r Rule) WithMethod(method string) Rule {
	r.HTTPMethod = method
	return r
}

func (r Rule) WithServiceName(name string) Rule {
	r.ServiceName = name
	return r
}

// WithAttributes copies attrs so the caller's map can't alias the rule.
func (r Rule) WithAttributes(attrs map[string]string) Rule {
	cp := make(map[string]string, len(attrs))
	for k, v := range attrs {
		cp[k] = v
	}
	r.Attributes = cp
	return r
}

// Definition is the backend wire form of a sampling rule. Field names are
// part of the backend contract.
type Definition struct {
	FixedRate     float64           `json:"FixedRate" yaml:"fixed_rate"`
	Host          string            `json:"Host" yaml:"host"`
	HTTPMethod    string            `json:"HTTPMethod" yaml:"http_method"`
	Priority      int               `json:"Priority" yaml:"priority"`
	ReservoirSize int               `json:"ReservoirSize" yaml:"reservoir_size"`
	ResourceARN   string            `json:"ResourceARN" yaml:"resource_arn"`
	RuleName      string            `json:"RuleName" yaml:"rule_name"`
	ServiceName   string            `json:"ServiceName" yaml:"service_name"`
	ServiceType   string            `json:"ServiceType" yaml:"service_type"`
	URLPath       string            `json:"URLPath" yaml:"url_path"`
	Version       int               `json:"Version" yaml:"version"`
	Attributes    map[string]string `json:"Attributes,omitempty" yaml:"attributes,omitempty"`
}

// CreateRequest is the body of a CreateSamplingRule call.
type CreateRequest struct {
	SamplingRule Definition `json:"SamplingRule"`
}

// DeleteRequest is the body of a DeleteSamplingRule call.
type DeleteRequest struct {
	RuleName string `json:"RuleName"`
}

// Definition converts the rule into its backend wire form.
func (r Rule) Definition() Definition {
	d := Definition{
		FixedRate:     r.Rate,
		Host:          Wildcard,
		HTTPMethod:    r.HTTPMethod,
		Priority:      r.Priority,
		ReservoirSize: r.Reservoir,
		ResourceARN:   Wildcard,
		RuleName:      string(r.Name),
		ServiceName:   r.ServiceName,
		ServiceType:   Wildcard,
		URLPath:       r.URLPath,
		Version:       1,
	}
	if len(r.Attributes) > 0 {
		d.Attributes = make(map[string]string, len(r.Attributes))
		for k, v := range r.Attributes {
			d.Attributes[k] = v
		}
	}
	return d
}

// Payload returns the JSON body for CreateSamplingRule.
func (r Rule) Payload() ([]byte, error) {
	b, err := json.Marshal(CreateRequest{SamplingRule: r.Definition()})
	if err != nil {
		return nil, fmt.Errorf("failed to encode rule %q: %w", r.Name, err)
	}
	return b, nil
}

// NamesOf returns the names of rules in order.
func NamesOf(rules []Rule) []Name {
	names := make([]Name, len(rules))
	for i, r := range rules {
		names[i] = r.Name
	}
	return names
}
