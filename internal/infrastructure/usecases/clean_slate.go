package usecases

import (
	"context"
	"fmt"

	"github.com/sophialabs/samplingconformance/internal/domain/rule"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/ports"
)

// CleanSlateUseCase removes every rule the backend holds except Default.
type CleanSlateUseCase struct {
	backend ports.RuleBackend
	logger  ports.Logger
}

// NewCleanSlateUseCase creates a new use case.
func NewCleanSlateUseCase(backend ports.RuleBackend, logger ports.Logger) *CleanSlateUseCase {
	return &CleanSlateUseCase{
		backend: backend,
		logger:  logger,
	}
}

// Execute lists and deletes rules. Any backend failure is returned.
func (uc *CleanSlateUseCase) Execute(ctx context.Context) error {
	names, err := uc.backend.ListRuleNames(ctx)
	if err != nil {
		return fmt.Errorf("list rules: %w", err)
	}

	deleted := 0
	for _, n := range names {
		name := rule.Name(n)
		if name.Immutable() {
			continue
		}
		if err := uc.backend.DeleteRule(ctx, name); err != nil {
			return fmt.Errorf("delete rule %s: %w", name, err)
		}
		deleted++
	}

	uc.logger.Info("backend cleared", "found", len(names), "deleted", deleted)
	return nil
}
