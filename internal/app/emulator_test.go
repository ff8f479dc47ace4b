package app_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sophialabs/samplingconformance/internal/app"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func waitForBody(t *testing.T, url, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if strings.Contains(string(body), want) {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("%s never returned %q", url, want)
}

func TestEmulator_RunServesAndShutsDown(t *testing.T) {
	seed := filepath.Join(t.TempDir(), "seed.yaml")
	writeSeed := func(name string) {
		content := fmt.Sprintf("rules:\n  - rule_name: %s\n    priority: 5\n    fixed_rate: 0\n    reservoir_size: 0\n", name)
		if err := os.WriteFile(seed, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}
	writeSeed("HealthChecks")

	cfg := app.DefaultEmulatorConfig()
	cfg.Port = freePort(t)
	cfg.TargetPort = freePort(t)
	cfg.SeedFile = seed
	cfg.WatcherDebounce = 20 * time.Millisecond
	cfg.ShutdownTimeout = 2 * time.Second

	var logs bytes.Buffer
	e, err := app.NewEmulator(cfg, &logs)
	if err != nil {
		t.Fatalf("NewEmulator failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	backend := fmt.Sprintf("http://127.0.0.1:%d", cfg.Port)
	target := fmt.Sprintf("http://127.0.0.1:%d", cfg.TargetPort)

	waitForBody(t, backend+"/__admin/rules", "HealthChecks")
	waitForBody(t, target+"/", "healthcheck")

	writeSeed("Renamed")
	waitForBody(t, backend+"/__admin/rules", "Renamed")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("emulator did not shut down")
	}
}

func TestEmulator_RunFailsOnBrokenSeed(t *testing.T) {
	seed := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(seed, []byte("rules: ["), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg := app.DefaultEmulatorConfig()
	cfg.Port = freePort(t)
	cfg.TargetPort = freePort(t)
	cfg.SeedFile = seed

	e, err := app.NewEmulator(cfg, io.Discard)
	if err != nil {
		t.Fatalf("NewEmulator failed: %v", err)
	}
	if err := e.Run(context.Background()); err == nil {
		t.Error("expected seed load error")
	}
}
