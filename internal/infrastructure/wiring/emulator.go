package wiring

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/sophialabs/samplingconformance/internal/domain/journal"
	"github.com/sophialabs/samplingconformance/internal/domain/rule"
	inboundhttp "github.com/sophialabs/samplingconformance/internal/infrastructure/inbound/http"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/outbound/clock"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/outbound/reservoir"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/ports"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/services"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/usecases"
)

// DefaultRule is the rule the emulator starts with: one sample per second
// plus 5% of the remainder, lowest precedence.
func DefaultRule() rule.Definition {
	return rule.New(rule.Default, 10000, .05, .05).Definition()
}

// EmulatorParams holds the configuration needed to build the emulator.
type EmulatorParams struct {
	SeedFile      string // "" = no seed rules
	DecisionsSize int
	ReservoirTTL  time.Duration
	Logger        ports.Logger
	Random        func() float64 // nil = math/rand
}

// Emulator owns the construction and lifecycle of the sampling emulator.
type Emulator struct {
	logger    ports.Logger
	index     *services.RuleIndex
	backend   *inboundhttp.Server
	target    *inboundhttp.TargetServer
	loadUC    *usecases.LoadSeedRulesUseCase
	store     *reservoir.Store
	provider  *sdktrace.TracerProvider
	seedFile  string
	closeOnce sync.Once
}

// NewEmulator constructs all emulator components. Fallible operations run
// before the reservoir eviction goroutine starts.
func NewEmulator(p EmulatorParams) (*Emulator, error) {
	if p.SeedFile != "" {
		if _, err := os.Stat(p.SeedFile); err != nil {
			return nil, fmt.Errorf("failed to access seed file: %w", err)
		}
	}

	compiler := services.NewCompiler()
	index := services.NewRuleIndex()
	createUC := usecases.NewCreateRuleUseCase(compiler, index, p.Logger)
	if err := createUC.Execute(context.Background(), DefaultRule()); err != nil {
		return nil, fmt.Errorf("failed to install default rule: %w", err)
	}

	store := reservoir.NewStore(p.ReservoirTTL)

	var opts []services.SamplerOption
	if p.Random != nil {
		opts = append(opts, services.WithRandom(p.Random))
	}
	decisions := journal.NewRingBuffer[journal.Decision](p.DecisionsSize)
	sampler := services.NewRuleSampler(index, store, decisions, clock.New(), opts...)
	provider := sdktrace.NewTracerProvider(sdktrace.WithSampler(sampler))

	deleteUC := usecases.NewDeleteRuleUseCase(index, store, p.Logger)
	backend := inboundhttp.NewServer(createUC, deleteUC, index, decisions, p.Logger)
	target := inboundhttp.NewTargetServer(usecases.NewSampleSpansUseCase(provider, p.Logger), p.Logger)

	e := &Emulator{
		logger:   p.Logger,
		index:    index,
		backend:  backend,
		target:   target,
		store:    store,
		provider: provider,
		seedFile: p.SeedFile,
	}
	if p.SeedFile != "" {
		e.loadUC = usecases.NewLoadSeedRulesUseCase(filesystem.NewSeedFile(p.SeedFile), compiler, index, store, p.Logger)
		backend.SetReloader(e.loadUC)
	}
	return e, nil
}

// Close releases resources held by the emulator. It is idempotent.
func (e *Emulator) Close() {
	e.closeOnce.Do(func() {
		e.store.Stop()
		if err := e.provider.Shutdown(context.Background()); err != nil {
			e.logger.Warn("tracer provider shutdown failed", "error", err)
		}
	})
}

// Logger returns the logger passed at construction time.
func (e *Emulator) Logger() ports.Logger {
	return e.logger
}

// BackendServer returns the sampling-rule API handler.
func (e *Emulator) BackendServer() *inboundhttp.Server {
	return e.backend
}

// TargetServer returns the traffic handler.
func (e *Emulator) TargetServer() *inboundhttp.TargetServer {
	return e.target
}

// Index returns the live rule index.
func (e *Emulator) Index() *services.RuleIndex {
	return e.index
}

// LoadSeedRulesUseCase returns the seed loader, or nil without a seed file.
func (e *Emulator) LoadSeedRulesUseCase() *usecases.LoadSeedRulesUseCase {
	return e.loadUC
}

// SeedFile returns the configured seed file path.
func (e *Emulator) SeedFile() string {
	return e.seedFile
}
