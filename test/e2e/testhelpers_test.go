//go:build e2e

package e2e_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sophialabs/samplingconformance/internal/app"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/wiring"
	"github.com/sophialabs/samplingconformance/internal/testutil"
)

// setupEmulator serves a fresh emulator and returns a harness config
// pointed at it with short settle intervals.
func setupEmulator(t *testing.T) (*wiring.Emulator, app.Config) {
	t.Helper()

	e, err := wiring.NewEmulator(wiring.EmulatorParams{
		DecisionsSize: 1000,
		ReservoirTTL:  10 * time.Minute,
		Logger:        &testutil.NoopLogger{},
	})
	if err != nil {
		t.Fatalf("failed to create emulator: %v", err)
	}
	backend := httptest.NewServer(e.BackendServer())
	target := httptest.NewServer(e.TargetServer())
	t.Cleanup(func() {
		backend.Close()
		target.Close()
		e.Close()
	})

	cfg := app.DefaultConfig()
	cfg.BackendEndpoint = backend.URL
	cfg.TargetAddress = target.URL
	cfg.SettleInterval = 10 * time.Millisecond
	cfg.ReservoirInterval = 1100 * time.Millisecond
	cfg.LogLevel = "warn"
	return e, cfg
}
