package usecases

import (
	"context"
	"fmt"

	"github.com/sophialabs/samplingconformance/internal/domain/rule"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/ports"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/services"
)

// CreateRuleUseCase installs a new rule in the emulator.
type CreateRuleUseCase struct {
	compiler *services.Compiler
	index    *services.RuleIndex
	logger   ports.Logger
}

// NewCreateRuleUseCase creates a new use case.
func NewCreateRuleUseCase(compiler *services.Compiler, index *services.RuleIndex, logger ports.Logger) *CreateRuleUseCase {
	return &CreateRuleUseCase{
		compiler: compiler,
		index:    index,
		logger:   logger,
	}
}

// Execute compiles def and adds it. A rule with the same name must not exist.
func (uc *CreateRuleUseCase) Execute(_ context.Context, def rule.Definition) error {
	compiled, err := uc.compiler.CompileRule(def)
	if err != nil {
		return err
	}
	if _, exists := uc.index.Get(def.RuleName); exists {
		return fmt.Errorf("%w: %s", ErrRuleExists, def.RuleName)
	}

	uc.index.Put(def, compiled)
	uc.logger.Info("rule created",
		"rule", def.RuleName,
		"priority", def.Priority,
		"rate", def.FixedRate,
		"reservoir", def.ReservoirSize,
	)
	return nil
}
