package wiring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sophialabs/samplingconformance/internal/domain/journal"
	"github.com/sophialabs/samplingconformance/internal/domain/match"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/outbound/clock"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/outbound/report"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/outbound/target"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/outbound/xray"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/ports"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/services"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/usecases"
)

// ErrNoTestCases is returned when the selector leaves nothing to send.
var ErrNoTestCases = errors.New("no test cases selected")

// HarnessParams holds the configuration needed to build the harness.
type HarnessParams struct {
	TargetAddress   string
	BackendEndpoint string
	HTTPTimeout     time.Duration
	CatalogDir      string // "" = built-in catalogs
	Select          string // expr selector over test cases, "" = all
	TotalTrials     int
	JournalSize     int
	Suite           usecases.SuiteSettings
	Logger          ports.Logger
	Clock           ports.Clock // nil = wall clock
}

// Harness owns the components of one conformance run.
type Harness struct {
	logger   ports.Logger
	suite    *usecases.RunSuiteUseCase
	phases   []usecases.Phase
	renderer *report.Renderer
}

// NewHarness loads the catalogs, applies the selector and wires the clients
// and use cases. Nothing touches the network until Run.
func NewHarness(p HarnessParams) (*Harness, error) {
	repo, err := filesystem.NewCatalogRepository(p.CatalogDir)
	if err != nil {
		return nil, err
	}
	rules, cases, err := repo.Load(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to load catalogs: %w", err)
	}

	selector, err := services.CompileSelector(p.Select)
	if err != nil {
		return nil, err
	}
	if cases.All, err = selector.Filter(cases.All); err != nil {
		return nil, err
	}
	if len(cases.All) == 0 {
		return nil, fmt.Errorf("%w by %q", ErrNoTestCases, p.Select)
	}

	phases, err := usecases.BuildPhases(rules, cases, p.Suite)
	if err != nil {
		return nil, err
	}

	renderer, err := report.NewRenderer()
	if err != nil {
		return nil, err
	}

	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	attempts := journal.NewRingBuffer[journal.Attempt](p.JournalSize)
	backend := xray.NewClient(p.BackendEndpoint, p.HTTPTimeout, p.Logger)
	traffic := target.NewClient(p.TargetAddress, p.HTTPTimeout)

	verifier := usecases.NewVerifyRuleUseCase(traffic, clk, p.Logger, attempts, p.TotalTrials)
	runPhase := usecases.NewRunPhaseUseCase(backend, verifier, match.NewResolver(), clk, p.Logger)
	suite := usecases.NewRunSuiteUseCase(
		usecases.NewCleanSlateUseCase(backend, p.Logger),
		runPhase,
		attempts,
		clk,
		p.Logger,
	)

	p.Logger.Info("harness ready",
		"target", p.TargetAddress,
		"backend", p.BackendEndpoint,
		"phases", len(phases),
		"test_cases", len(cases.All),
		"selector", selector.String(),
	)

	return &Harness{
		logger:   p.Logger,
		suite:    suite,
		phases:   phases,
		renderer: renderer,
	}, nil
}

// Run executes every phase once.
func (h *Harness) Run(ctx context.Context, runID string) (journal.Run, error) {
	return h.suite.Execute(ctx, runID, h.phases)
}

// Phases returns the phases a run executes.
func (h *Harness) Phases() []usecases.Phase {
	return h.phases
}

// Renderer returns the report renderer.
func (h *Harness) Renderer() *report.Renderer {
	return h.renderer
}

// Logger returns the logger passed at construction time.
func (h *Harness) Logger() ports.Logger {
	return h.logger
}
