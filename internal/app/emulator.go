package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/sophialabs/samplingconformance/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/outbound/logging"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/wiring"
)

// Emulator is the thin lifecycle manager of the sampling emulator. It
// delegates construction to wiring.Emulator.
type Emulator struct {
	cfg           EmulatorConfig
	emulator      *wiring.Emulator
	backendServer *http.Server
	targetServer  *http.Server
}

// NewEmulator constructs the emulator and its two HTTP servers, logging to w.
func NewEmulator(cfg EmulatorConfig, w io.Writer) (*Emulator, error) {
	logger := logging.NewText(w, cfg.LogLevel)

	e, err := wiring.NewEmulator(wiring.EmulatorParams{
		SeedFile:      cfg.SeedFile,
		DecisionsSize: cfg.DecisionsSize,
		ReservoirTTL:  cfg.ReservoirTTL,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to wire emulator: %w", err)
	}

	newServer := func(port int, h http.Handler) *http.Server {
		return &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      h,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		}
	}

	return &Emulator{
		cfg:           cfg,
		emulator:      e,
		backendServer: newServer(cfg.Port, e.BackendServer()),
		targetServer:  newServer(cfg.TargetPort, e.TargetServer()),
	}, nil
}

// Run loads seed rules, starts the watcher, serves both ports and shuts
// down gracefully on SIGINT/SIGTERM or context cancellation.
func (a *Emulator) Run(ctx context.Context) error {
	defer a.emulator.Close()

	logger := a.emulator.Logger()
	if loadUC := a.emulator.LoadSeedRulesUseCase(); loadUC != nil {
		if _, err := loadUC.Execute(ctx); err != nil {
			return fmt.Errorf("failed to load seed rules: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if watcher := a.setupWatcher(); watcher != nil {
		defer watcher.Stop()
	}

	serverErr := make(chan error, 2)
	for _, srv := range []*http.Server{a.backendServer, a.targetServer} {
		go func() {
			logger.Info("starting server", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- fmt.Errorf("%s: %w", srv.Addr, err)
			}
		}()
	}

	var runErr error
	select {
	case err := <-serverErr:
		runErr = fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down servers...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	for _, srv := range []*http.Server{a.backendServer, a.targetServer} {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("shutdown error: %w", err))
		}
	}

	if runErr == nil {
		logger.Info("servers stopped")
	}
	return runErr
}

func (a *Emulator) setupWatcher() *filesystem.Watcher {
	loadUC := a.emulator.LoadSeedRulesUseCase()
	if loadUC == nil {
		return nil
	}
	logger := a.emulator.Logger()

	watcher, err := filesystem.NewWatcher(a.emulator.SeedFile(), a.cfg.WatcherDebounce, logger, func() {
		if _, err := loadUC.Execute(context.Background()); err != nil {
			logger.Error("hot reload failed", "error", err)
			return
		}
		logger.Info("hot reload complete")
	})
	if err != nil {
		logger.Warn("seed file watcher not available", "error", err)
		return nil
	}

	watcher.Start()
	logger.Info("seed file watcher started", "file", a.emulator.SeedFile())
	return watcher
}
