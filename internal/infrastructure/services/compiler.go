package services

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sophialabs/samplingconformance/internal/domain/match"
	"github.com/sophialabs/samplingconformance/internal/domain/rule"
)

// ErrInvalidRule is returned for rule definitions the emulator cannot serve.
var ErrInvalidRule = errors.New("invalid sampling rule")

// Compiler turns backend rule definitions into compiled rules.
type Compiler struct{}

// NewCompiler creates a new Compiler.
func NewCompiler() *Compiler {
	return &Compiler{}
}

// CompileRule validates def and builds its predicates. Host, ResourceARN and
// ServiceType are accepted but never constrain a decision.
func (c *Compiler) CompileRule(def rule.Definition) (*match.CompiledRule, error) {
	if def.RuleName == "" {
		return nil, fmt.Errorf("%w: missing RuleName", ErrInvalidRule)
	}
	if def.FixedRate < 0 || def.FixedRate > 1 {
		return nil, fmt.Errorf("%w: rule %q: FixedRate %v out of [0,1]", ErrInvalidRule, def.RuleName, def.FixedRate)
	}
	if def.ReservoirSize < 0 {
		return nil, fmt.Errorf("%w: rule %q: negative ReservoirSize", ErrInvalidRule, def.RuleName)
	}

	predicates := []match.FieldPredicate{
		{Field: match.FieldServiceName, Predicate: match.Glob(def.ServiceName)},
		{Field: match.FieldMethod, Predicate: match.Glob(def.HTTPMethod)},
		{Field: match.FieldPath, Predicate: match.Glob(def.URLPath)},
	}

	// Attribute predicates are sorted for deterministic traces.
	keys := make([]string, 0, len(def.Attributes))
	for k := range def.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		predicates = append(predicates, match.FieldPredicate{
			Field:     match.AttributeField(k),
			Predicate: match.Glob(def.Attributes[k]),
		})
	}

	return &match.CompiledRule{
		Name:       def.RuleName,
		Priority:   def.Priority,
		Rate:       def.FixedRate,
		Reservoir:  def.ReservoirSize,
		Predicates: predicates,
	}, nil
}
