package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sophialabs/samplingconformance/internal/app"
)

func main() {
	cfg := app.DefaultEmulatorConfig()
	flag.IntVar(&cfg.Port, "port", cfg.Port, "sampling backend port")
	flag.IntVar(&cfg.TargetPort, "target-port", cfg.TargetPort, "instrumented target port")
	flag.StringVar(&cfg.SeedFile, "seed", cfg.SeedFile, "YAML file with rules loaded at startup and on change")
	flag.IntVar(&cfg.DecisionsSize, "decisions-size", cfg.DecisionsSize, "number of sampling decisions to keep")
	flag.DurationVar(&cfg.ReservoirTTL, "reservoir-ttl", cfg.ReservoirTTL, "idle time before a reservoir bucket is dropped")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flag.Parse()

	e, err := app.NewEmulator(cfg, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize: %v\n", err)
		os.Exit(1)
	}

	if err := e.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
