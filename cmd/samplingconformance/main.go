package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sophialabs/samplingconformance/internal/app"
)

func main() {
	cfg := app.DefaultConfig()
	cfg.TargetAddress = envOr("TARGET_ADDRESS", cfg.TargetAddress)
	cfg.BackendEndpoint = envOr("XRAY_ENDPOINT", cfg.BackendEndpoint)
	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)

	var phases string
	flag.StringVar(&cfg.TargetAddress, "target", cfg.TargetAddress, "address of the instrumented target application")
	flag.StringVar(&cfg.BackendEndpoint, "backend", cfg.BackendEndpoint, "sampling rules backend endpoint")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flag.IntVar(&cfg.TotalTrials, "trials", cfg.TotalTrials, "spans generated per check")
	flag.IntVar(&cfg.MaxAttempts, "attempts", cfg.MaxAttempts, "attempts per check before it fails")
	flag.DurationVar(&cfg.SettleInterval, "settle", cfg.SettleInterval, "wait after a rule change before generating traffic")
	flag.DurationVar(&cfg.ReservoirInterval, "reservoir-settle", cfg.ReservoirInterval, "wait for reservoir quotas to propagate")
	flag.DurationVar(&cfg.HTTPTimeout, "http-timeout", cfg.HTTPTimeout, "per-request timeout (0 = none)")
	flag.StringVar(&cfg.CatalogDir, "catalog", cfg.CatalogDir, "directory with rules.yaml and cases.yaml overrides")
	flag.StringVar(&cfg.Select, "select", cfg.Select, `expression selecting test cases, e.g. 'name != "ImportantServiceName"'`)
	flag.StringVar(&phases, "phases", "", "comma separated phases to run (independent,reservoir,priority)")
	flag.StringVar(&cfg.ReportFile, "report", cfg.ReportFile, "write a report to this file")
	flag.StringVar(&cfg.ReportFormat, "report-format", cfg.ReportFormat, "report format (text, junit, custom)")
	flag.StringVar(&cfg.ReportTemplate, "report-template", cfg.ReportTemplate, "template file registered as the custom report format")
	flag.Parse()

	if phases != "" {
		cfg.Phases = strings.Split(phases, ",")
	}

	h, err := app.NewHarness(cfg, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize: %v\n", err)
		os.Exit(app.ExitCode(err))
	}

	_, err = h.Run(context.Background())
	os.Exit(app.ExitCode(err))
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
