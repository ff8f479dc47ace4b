package rule

import (
	"errors"
	"fmt"
)

// Attribute keys used by attribute matchers. They double as traffic header
// names on the target side.
const (
	AttrUser     = "user"
	AttrRequired = "required"
)

// Catalog groups the rules used by each test phase. Slice order is
// precedence within a phase.
type Catalog struct {
	Independent []Rule
	Priority    []Rule
	Reservoir   []Rule
}

// ErrInvalidCatalog is returned by Validate.
var ErrInvalidCatalog = errors.New("invalid rule catalog")

// NewCatalog returns the built-in rule catalog.
func NewCatalog() Catalog {
	return Catalog{
		Independent: []Rule{
			sampleNone(),
			acceptAll(),
			importantEndpoint(),
			importantAttribute(),
			attributeAtEndpoint(),
			lowReservoir(),
			postRule(),
			multipleAttributes(),
			defaultRule(),
			importantServiceName(),
			sampleNoneAtEndpoint(),
		},
		Priority: []Rule{
			importantEndpoint(),
			importantAttribute(),
			attributeAtEndpoint(),
			postRule(),
		},
		Reservoir: []Rule{
			highReservoir(),
			mixedReservoir(),
		},
	}
}

func acceptAll() Rule {
	return New(AcceptAll, 1000, 1, 1)
}

func sampleNone() Rule {
	return New(SampleNone, 1000, 0, 0).WithReservoir(0)
}

func sampleNoneAtEndpoint() Rule {
	return New(SampleNoneAtEndpoint, 1000, 0, 0).
		WithReservoir(0).
		WithPath("/importantEndpoint")
}

func postRule() Rule {
	return New(PostRule, 10, .1, .11).WithMethod("POST")
}

func importantEndpoint() Rule {
	return New(ImportantEndpoint, 1, 1, 1).WithPath("/importantEndpoint")
}

func attributeAtEndpoint() Rule {
	return New(AttributeAtEndpoint, 8, .5, .51).
		WithPath("/getSampled").
		WithAttributes(map[string]string{AttrUser: "service"})
}

func lowReservoir() Rule {
	return New(LowReservoir, 10, .8, .80).WithReservoir(0)
}

// 500 guaranteed, nothing beyond.
func highReservoir() Rule {
	return New(HighReservoir, 2000, 0, .50).WithReservoir(500)
}

// 500 guaranteed, half of the remainder.
func mixedReservoir() Rule {
	return New(MixedReservoir, 2000, .5, .75).WithReservoir(500)
}

func importantAttribute() Rule {
	return New(ImportantAttribute, 2, .5, .5).
		WithAttributes(map[string]string{AttrUser: "admin"})
}

func multipleAttributes() Rule {
	return New(MultipleAttributes, 9, .4, .41).
		WithAttributes(map[string]string{AttrUser: "admin", AttrRequired: "true"})
}

// defaultRule mirrors the rule the backend ships with. It is never created.
func defaultRule() Rule {
	return New(Default, 10000, .06, .06)
}

func importantServiceName() Rule {
	return New(ImportantServiceName, 3, 1, 1).WithServiceName("adot-integ-test")
}

// All returns every distinct rule in the catalog, first occurrence wins.
func (c Catalog) All() []Rule {
	seen := make(map[Name]bool)
	var all []Rule
	for _, set := range [][]Rule{c.Independent, c.Priority, c.Reservoir} {
		for _, r := range set {
			if seen[r.Name] {
				continue
			}
			seen[r.Name] = true
			all = append(all, r)
		}
	}
	return all
}

// Lookup finds a rule by name across all subsets.
func (c Catalog) Lookup(name Name) (Rule, bool) {
	for _, r := range c.All() {
		if r.Name == name {
			return r, true
		}
	}
	return Rule{}, false
}

// Validate checks names, ranges and per-subset uniqueness.
func (c Catalog) Validate() error {
	subsets := []struct {
		label string
		rules []Rule
	}{
		{"independent", c.Independent},
		{"priority", c.Priority},
		{"reservoir", c.Reservoir},
	}
	for _, s := range subsets {
		seen := make(map[Name]bool, len(s.rules))
		for _, r := range s.rules {
			if !r.Name.Valid() {
				return fmt.Errorf("%w: %s subset: unknown rule name %q", ErrInvalidCatalog, s.label, r.Name)
			}
			if seen[r.Name] {
				return fmt.Errorf("%w: %s subset: duplicate rule %q", ErrInvalidCatalog, s.label, r.Name)
			}
			seen[r.Name] = true
			if r.Rate < 0 || r.Rate > 1 {
				return fmt.Errorf("%w: rule %q: rate %v out of [0,1]", ErrInvalidCatalog, r.Name, r.Rate)
			}
			if r.ExpectedSampled < 0 || r.ExpectedSampled > 1 {
				return fmt.Errorf("%w: rule %q: expected fraction %v out of [0,1]", ErrInvalidCatalog, r.Name, r.ExpectedSampled)
			}
			if r.Reservoir < 0 {
				return fmt.Errorf("%w: rule %q: negative reservoir", ErrInvalidCatalog, r.Name)
			}
		}
	}
	return nil
}
