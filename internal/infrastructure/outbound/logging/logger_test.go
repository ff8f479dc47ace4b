package logging_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/sophialabs/samplingconformance/internal/infrastructure/outbound/logging"
)

func TestSlogLogger_AllLevels(t *testing.T) {
	tests := []struct {
		name  string
		call  func(l *logging.SlogLogger)
		level string
	}{
		{"Info", func(l *logging.SlogLogger) { l.Info("rule created", "rule", "AcceptAll") }, "INFO"},
		{"Warn", func(l *logging.SlogLogger) { l.Warn("traffic failed", "rule", "AcceptAll") }, "WARN"},
		{"Error", func(l *logging.SlogLogger) { l.Error("phase failed", "rule", "AcceptAll") }, "ERROR"},
		{"Debug", func(l *logging.SlogLogger) { l.Debug("verdict", "rule", "AcceptAll") }, "DEBUG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := logging.NewText(&buf, "debug")

			tt.call(logger)

			output := buf.String()
			if !strings.Contains(output, tt.level) {
				t.Errorf("expected output to contain %q, got: %s", tt.level, output)
			}
			if !strings.Contains(output, "rule=AcceptAll") {
				t.Errorf("expected output to contain rule=AcceptAll, got: %s", output)
			}
		})
	}
}

func TestSlogLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewText(&buf, "info").With("run_id", "abc")

	logger.Info("phase passed", "phase", "priority")

	output := buf.String()
	if !strings.Contains(output, "run_id=abc") || !strings.Contains(output, "phase=priority") {
		t.Errorf("expected bound and call attributes, got: %s", output)
	}
}

func TestSlogLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewText(&buf, "warn")

	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("info record leaked through warn level: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected warn record, got: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelDebug},
		{"", slog.LevelDebug},
	}
	for _, tt := range tests {
		if got := logging.ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
