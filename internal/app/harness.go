package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"slices"
	"syscall"

	"github.com/google/uuid"

	"github.com/sophialabs/samplingconformance/internal/domain/journal"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/outbound/logging"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/outbound/report"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/usecases"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/wiring"
)

// FormatCustom names the format rendered from Config.ReportTemplate.
const FormatCustom = "custom"

var (
	// ErrRunFailed is returned by Run when any check did not conform.
	ErrRunFailed = errors.New("sampling conformance run failed")
	// ErrBackendNotReady is returned by Run when the backend could not be
	// cleared, before any rule was checked.
	ErrBackendNotReady = errors.New("sampling backend not ready")
)

// Harness is the lifecycle manager for one conformance run.
type Harness struct {
	cfg     Config
	runID   string
	harness *wiring.Harness
}

// NewHarness builds a harness that logs to w.
func NewHarness(cfg Config, w io.Writer) (*Harness, error) {
	runID := uuid.NewString()
	logger := logging.NewText(w, cfg.LogLevel).With("run_id", runID)

	h, err := wiring.NewHarness(wiring.HarnessParams{
		TargetAddress:   cfg.TargetAddress,
		BackendEndpoint: cfg.BackendEndpoint,
		HTTPTimeout:     cfg.HTTPTimeout,
		CatalogDir:      cfg.CatalogDir,
		Select:          cfg.Select,
		TotalTrials:     cfg.TotalTrials,
		JournalSize:     cfg.JournalSize,
		Suite: usecases.SuiteSettings{
			MaxAttempts:       cfg.MaxAttempts,
			SettleInterval:    cfg.SettleInterval,
			ReservoirInterval: cfg.ReservoirInterval,
			Phases:            cfg.Phases,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to wire harness: %w", err)
	}

	if cfg.ReportTemplate != "" {
		if err := h.Renderer().RegisterFile(FormatCustom, cfg.ReportTemplate); err != nil {
			return nil, err
		}
	}
	if cfg.ReportFile != "" && !isFormat(h.Renderer(), cfg.ReportFormat) {
		return nil, fmt.Errorf("unknown report format %q (supported: %v)", cfg.ReportFormat, h.Renderer().Formats())
	}

	return &Harness{cfg: cfg, runID: runID, harness: h}, nil
}

// RunID returns the identifier attached to every log record of the run.
func (h *Harness) RunID() string {
	return h.runID
}

// Run executes the run until it completes, fails or receives SIGINT or
// SIGTERM. A failed run returns an error wrapping ErrRunFailed.
func (h *Harness) Run(ctx context.Context) (journal.Run, error) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run, runErr := h.harness.Run(ctx, h.runID)

	if h.cfg.ReportFile != "" {
		if err := h.harness.Renderer().WriteFile(h.cfg.ReportFile, h.cfg.ReportFormat, run); err != nil {
			h.harness.Logger().Error("report not written", "file", h.cfg.ReportFile, "error", err)
		} else {
			h.harness.Logger().Info("report written", "file", h.cfg.ReportFile, "format", h.cfg.ReportFormat)
		}
	}

	switch {
	case errors.Is(runErr, usecases.ErrCleanSlate):
		return run, fmt.Errorf("%w: %w", ErrBackendNotReady, runErr)
	case runErr != nil:
		return run, fmt.Errorf("%w: %w", ErrRunFailed, runErr)
	}
	return run, nil
}

// ExitCode maps a Run error to the process exit status: 0 on success, 1 when
// a check did not conform, 2 for setup errors including a backend that could
// not be cleared.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrRunFailed):
		return 1
	default:
		return 2
	}
}

func isFormat(r *report.Renderer, format string) bool {
	return slices.Contains(r.Formats(), format)
}
