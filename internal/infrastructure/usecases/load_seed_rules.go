package usecases

import (
	"context"
	"fmt"
	"sync"

	"github.com/sophialabs/samplingconformance/internal/domain/match"
	"github.com/sophialabs/samplingconformance/internal/domain/rule"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/ports"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/services"
)

// LoadSeedRulesUseCase installs rules from a seed source. Reloading
// upserts every seeded rule and removes rules an earlier load seeded but
// the source no longer lists. Rules created through the API are untouched
// unless the seed names them.
type LoadSeedRulesUseCase struct {
	source    ports.SeedSource
	compiler  *services.Compiler
	index     *services.RuleIndex
	reservoir ports.Reservoir
	logger    ports.Logger

	mu     sync.Mutex
	seeded map[string]bool
}

// NewLoadSeedRulesUseCase creates a new use case.
func NewLoadSeedRulesUseCase(
	source ports.SeedSource,
	compiler *services.Compiler,
	index *services.RuleIndex,
	reservoir ports.Reservoir,
	logger ports.Logger,
) *LoadSeedRulesUseCase {
	return &LoadSeedRulesUseCase{
		source:    source,
		compiler:  compiler,
		index:     index,
		reservoir: reservoir,
		logger:    logger,
		seeded:    make(map[string]bool),
	}
}

// Execute loads the source and applies it. Nothing is applied if any rule
// fails to compile. It returns the number of seeded rules.
func (uc *LoadSeedRulesUseCase) Execute(ctx context.Context) (int, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	defs, err := uc.source.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load seed rules: %w", err)
	}

	type compiledDef struct {
		def      rule.Definition
		compiled *match.CompiledRule
	}
	batch := make([]compiledDef, 0, len(defs))
	for _, def := range defs {
		compiled, err := uc.compiler.CompileRule(def)
		if err != nil {
			return 0, err
		}
		batch = append(batch, compiledDef{def: def, compiled: compiled})
	}

	next := make(map[string]bool, len(batch))
	for _, b := range batch {
		uc.index.Put(b.def, b.compiled)
		next[b.def.RuleName] = true
	}

	removed := 0
	for name := range uc.seeded {
		if next[name] || rule.Name(name).Immutable() {
			continue
		}
		if uc.index.Delete(name) {
			uc.reservoir.Forget(name)
			removed++
		}
	}
	uc.seeded = next

	uc.logger.Info("seed rules loaded", "rules", len(batch), "removed", removed)
	return len(batch), nil
}
