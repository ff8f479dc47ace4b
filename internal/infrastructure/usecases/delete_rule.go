package usecases

import (
	"context"
	"fmt"

	"github.com/sophialabs/samplingconformance/internal/domain/rule"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/ports"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/services"
)

// DeleteRuleUseCase removes a rule from the emulator and drops its
// reservoir bucket.
type DeleteRuleUseCase struct {
	index     *services.RuleIndex
	reservoir ports.Reservoir
	logger    ports.Logger
}

// NewDeleteRuleUseCase creates a new use case.
func NewDeleteRuleUseCase(index *services.RuleIndex, reservoir ports.Reservoir, logger ports.Logger) *DeleteRuleUseCase {
	return &DeleteRuleUseCase{
		index:     index,
		reservoir: reservoir,
		logger:    logger,
	}
}

// Execute deletes the named rule and returns its last definition.
func (uc *DeleteRuleUseCase) Execute(_ context.Context, name string) (rule.Definition, error) {
	if rule.Name(name).Immutable() {
		return rule.Definition{}, fmt.Errorf("%w: %s", ErrImmutableRule, name)
	}

	def, ok := uc.index.Get(name)
	if !ok || !uc.index.Delete(name) {
		return rule.Definition{}, fmt.Errorf("%w: %s", ErrRuleNotFound, name)
	}
	uc.reservoir.Forget(name)

	uc.logger.Info("rule deleted", "rule", name)
	return def, nil
}
