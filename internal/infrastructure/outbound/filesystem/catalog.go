package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/sophialabs/samplingconformance/internal/domain/rule"
	"github.com/sophialabs/samplingconformance/internal/domain/testcase"
)

// CatalogRepository layers YAML overrides from a directory on top of the
// built-in rule and test-case catalogs.
type CatalogRepository struct {
	rootDir  string
	resolver *IncludeResolver
}

// NewCatalogRepository creates a repository rooted at rootDir. An empty
// rootDir yields the built-in catalogs unchanged.
func NewCatalogRepository(rootDir string) (*CatalogRepository, error) {
	if rootDir == "" {
		return &CatalogRepository{}, nil
	}
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalog directory: %w", err)
	}
	return &CatalogRepository{
		rootDir:  absRoot,
		resolver: NewIncludeResolver(absRoot),
	}, nil
}

// Load returns the validated catalogs. Top-level YAML files are applied in
// lexical order, so later files win. Files only reachable through !include
// should live in a subdirectory.
func (r *CatalogRepository) Load(_ context.Context) (rule.Catalog, testcase.Catalog, error) {
	o := newOverlay(rule.NewCatalog(), testcase.NewCatalog())

	if r.rootDir != "" {
		entries, err := os.ReadDir(r.rootDir)
		if err != nil {
			return rule.Catalog{}, testcase.Catalog{}, fmt.Errorf("failed to read catalog directory: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() || !isYAMLFile(e.Name()) {
				continue
			}
			path := filepath.Join(r.rootDir, e.Name())
			doc, err := r.loadFile(path)
			if err != nil {
				return rule.Catalog{}, testcase.Catalog{}, fmt.Errorf("failed to load %s: %w", path, err)
			}
			if err := o.apply(doc); err != nil {
				return rule.Catalog{}, testcase.Catalog{}, fmt.Errorf("%s: %w", path, err)
			}
		}
	}

	rules, cases := o.build()
	if err := rules.Validate(); err != nil {
		return rule.Catalog{}, testcase.Catalog{}, err
	}
	if err := cases.Validate(rules); err != nil {
		return rule.Catalog{}, testcase.Catalog{}, err
	}
	return rules, cases, nil
}

func (r *CatalogRepository) loadFile(path string) (*yamlCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := r.resolver.Resolve(&root, filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("failed to resolve includes: %w", err)
	}

	var doc yamlCatalog
	if len(root.Content) == 0 {
		return &doc, nil
	}
	if err := root.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	return &doc, nil
}

// overlay accumulates overrides before the catalogs are rebuilt.
type overlay struct {
	defs        map[rule.Name]rule.Rule
	independent []rule.Name
	priority    []rule.Name
	reservoir   []rule.Name
	cases       testcase.Catalog
}

func newOverlay(rules rule.Catalog, cases testcase.Catalog) *overlay {
	o := &overlay{
		defs:        make(map[rule.Name]rule.Rule),
		independent: rule.NamesOf(rules.Independent),
		priority:    rule.NamesOf(rules.Priority),
		reservoir:   rule.NamesOf(rules.Reservoir),
		cases:       cases,
	}
	for _, r := range rules.All() {
		o.defs[r.Name] = r
	}
	return o
}

func (o *overlay) apply(doc *yamlCatalog) error {
	for _, yr := range doc.Rules {
		if err := o.patchRule(yr); err != nil {
			return err
		}
	}

	for _, subset := range []struct {
		names  []string
		target *[]rule.Name
	}{
		{doc.Independent, &o.independent},
		{doc.Priority, &o.priority},
		{doc.Reservoir, &o.reservoir},
	} {
		if len(subset.names) == 0 {
			continue
		}
		names, err := o.knownNames(subset.names)
		if err != nil {
			return err
		}
		*subset.target = names
	}

	if len(doc.TestCases) > 0 {
		cases, err := buildTestCases(doc.TestCases, o.cases.Baseline)
		if err != nil {
			return err
		}
		o.cases = cases
	}
	return nil
}

func (o *overlay) patchRule(yr yamlRule) error {
	name := rule.Name(yr.Name)
	r, ok := o.defs[name]
	if !ok {
		return fmt.Errorf("%w: unknown rule %q", rule.ErrInvalidCatalog, yr.Name)
	}

	if yr.Priority != nil {
		r.Priority = *yr.Priority
	}
	if yr.FixedRate != nil {
		r.Rate = *yr.FixedRate
	}
	if yr.ReservoirSize != nil {
		r = r.WithReservoir(*yr.ReservoirSize)
	}
	if yr.ExpectedSampled != nil {
		r.ExpectedSampled = *yr.ExpectedSampled
	}
	if yr.ServiceName != "" {
		r = r.WithServiceName(yr.ServiceName)
	}
	if yr.HTTPMethod != "" {
		r = r.WithMethod(yr.HTTPMethod)
	}
	if yr.URLPath != "" {
		r = r.WithPath(yr.URLPath)
	}
	if yr.Attributes != nil {
		r = r.WithAttributes(yr.Attributes)
	}

	o.defs[name] = r
	return nil
}

func (o *overlay) knownNames(raw []string) ([]rule.Name, error) {
	names := make([]rule.Name, 0, len(raw))
	for _, s := range raw {
		n := rule.Name(s)
		if _, ok := o.defs[n]; !ok {
			return nil, fmt.Errorf("%w: unknown rule %q", rule.ErrInvalidCatalog, s)
		}
		names = append(names, n)
	}
	return names, nil
}

func (o *overlay) build() (rule.Catalog, testcase.Catalog) {
	pick := func(names []rule.Name) []rule.Rule {
		rules := make([]rule.Rule, 0, len(names))
		for _, n := range names {
			rules = append(rules, o.defs[n])
		}
		return rules
	}
	return rule.Catalog{
		Independent: pick(o.independent),
		Priority:    pick(o.priority),
		Reservoir:   pick(o.reservoir),
	}, o.cases
}

// buildTestCases converts YAML cases. Baseline matches are implied. The case
// marked baseline (or the previous baseline) drives the reservoir phase.
func buildTestCases(raw []yamlTestCase, baseline testcase.TestCase) (testcase.Catalog, error) {
	catalog := testcase.Catalog{Baseline: baseline}
	marked := 0

	for _, yc := range raw {
		if yc.Name == "" {
			return testcase.Catalog{}, fmt.Errorf("%w: test case without a name", testcase.ErrInvalidCatalog)
		}
		tc := testcase.TestCase{
			User:     yc.User,
			Name:     yc.Name,
			Required: yc.Required,
			Method:   yc.Method,
			Endpoint: yc.Endpoint,
			Matches:  testcase.BaselineMatches(),
		}
		if tc.Required == "" {
			tc.Required = "false"
		}
		if tc.Method == "" {
			tc.Method = "GET"
		}
		for _, m := range yc.Matches {
			if n := rule.Name(m); !slices.Contains(tc.Matches, n) {
				tc.Matches = append(tc.Matches, n)
			}
		}

		if yc.Baseline {
			marked++
			catalog.Baseline = tc
		}
		catalog.All = append(catalog.All, tc)
	}

	if marked > 1 {
		return testcase.Catalog{}, fmt.Errorf("%w: %d test cases marked baseline", testcase.ErrInvalidCatalog, marked)
	}
	return catalog, nil
}
