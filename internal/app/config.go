package app

import "time"

// Config holds all configurable parameters of a conformance run.
type Config struct {
	TargetAddress   string
	BackendEndpoint string
	LogLevel        string

	TotalTrials       int
	MaxAttempts       int
	SettleInterval    time.Duration
	ReservoirInterval time.Duration
	HTTPTimeout       time.Duration // 0 = no client timeout

	CatalogDir string   // optional YAML overrides
	Select     string   // expr selector over test cases
	Phases     []string // empty = all, in the default order

	ReportFile     string // "" = no report
	ReportFormat   string // "text", "junit" or "custom"
	ReportTemplate string // pongo2 template for the "custom" format
	JournalSize    int
}

// DefaultConfig returns a Config with the standard run parameters.
func DefaultConfig() Config {
	return Config{
		TargetAddress:   "http://localhost:8080",
		BackendEndpoint: "http://localhost:2000",
		LogLevel:        "info",

		TotalTrials:       1000,
		MaxAttempts:       4,
		SettleInterval:    time.Second,
		ReservoirInterval: 20 * time.Second,

		ReportFormat: "text",
		JournalSize:  4096,
	}
}

// EmulatorConfig holds all configurable parameters of the sampling emulator.
type EmulatorConfig struct {
	Port       int // rule backend API
	TargetPort int // traffic target
	LogLevel   string

	SeedFile        string
	DecisionsSize   int
	ReservoirTTL    time.Duration
	WatcherDebounce time.Duration

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultEmulatorConfig returns an EmulatorConfig listening where the
// harness looks by default.
func DefaultEmulatorConfig() EmulatorConfig {
	return EmulatorConfig{
		Port:       2000,
		TargetPort: 8080,
		LogLevel:   "info",

		DecisionsSize:   1000,
		ReservoirTTL:    10 * time.Minute,
		WatcherDebounce: 500 * time.Millisecond,

		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}
