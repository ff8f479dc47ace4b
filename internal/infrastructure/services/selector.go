package services

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/sophialabs/samplingconformance/internal/domain/testcase"
)

// selectorEnv is what a selector expression can see of a test case.
type selectorEnv struct {
	User     string   `expr:"user"`
	Name     string   `expr:"name"`
	Required bool     `expr:"required"`
	Method   string   `expr:"method"`
	Endpoint string   `expr:"endpoint"`
	Matches  []string `expr:"matches"`
}

func newSelectorEnv(tc testcase.TestCase) selectorEnv {
	matches := make([]string, len(tc.Matches))
	for i, m := range tc.Matches {
		matches[i] = string(m)
	}
	return selectorEnv{
		User:     tc.User,
		Name:     tc.Name,
		Required: tc.Required == "true",
		Method:   tc.Method,
		Endpoint: tc.Endpoint,
		Matches:  matches,
	}
}

// Selector narrows the test cases a run sends, e.g.
// `user == "admin" && "PostRule" in matches`.
type Selector struct {
	source  string
	program *vm.Program
}

// CompileSelector compiles a boolean expression. An empty source selects
// every test case.
func CompileSelector(source string) (*Selector, error) {
	if source == "" {
		return &Selector{}, nil
	}
	program, err := expr.Compile(source, expr.Env(selectorEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("failed to compile selector %q: %w", source, err)
	}
	return &Selector{source: source, program: program}, nil
}

// String returns the selector source.
func (s *Selector) String() string {
	return s.source
}

// Match reports whether tc is selected.
func (s *Selector) Match(tc testcase.TestCase) (bool, error) {
	if s.program == nil {
		return true, nil
	}
	out, err := expr.Run(s.program, newSelectorEnv(tc))
	if err != nil {
		return false, fmt.Errorf("selector %q on %s: %w", s.source, tc.Name, err)
	}
	ok, _ := out.(bool)
	return ok, nil
}

// Filter returns the selected test cases in their original order.
func (s *Selector) Filter(cases []testcase.TestCase) ([]testcase.TestCase, error) {
	if s.program == nil {
		return cases, nil
	}
	selected := make([]testcase.TestCase, 0, len(cases))
	for _, tc := range cases {
		ok, err := s.Match(tc)
		if err != nil {
			return nil, err
		}
		if ok {
			selected = append(selected, tc)
		}
	}
	return selected, nil
}
