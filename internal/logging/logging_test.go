package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLoggerWithWriter_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(slog.LevelInfo, "text", &buf)

	logger.Info("opportunity committed", "opportunity", "obs_1")

	output := buf.String()
	if !strings.Contains(output, "opportunity committed") {
		t.Errorf("expected message in output, got: %s", output)
	}
	if !strings.Contains(output, "opportunity=obs_1") {
		t.Errorf("expected 'opportunity=obs_1' in output, got: %s", output)
	}
}

func TestNewLoggerWithWriter_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(slog.LevelInfo, "JSON", &buf)

	logger.Info("run finished", "assigned", 3)

	output := buf.String()
	if !strings.Contains(output, `"msg":"run finished"`) || !strings.Contains(output, `"assigned":3`) {
		t.Errorf("expected JSON fields in output, got: %s", output)
	}
}

func TestNewLoggerWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(slog.LevelWarn, "text", &buf)

	logger.Info("should not appear")
	logger.Warn("should appear")

	output := buf.String()
	if strings.Contains(output, "should not appear") {
		t.Errorf("INFO message should be filtered at WARN level, got: %s", output)
	}
	if !strings.Contains(output, "should appear") {
		t.Errorf("WARN message missing, got: %s", output)
	}
}

func TestNewLoggerWithWriter_RoundsFloats(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(slog.LevelInfo, "text", &buf)

	logger.Info("placed", "start", 10.000000000001, "end", 15.12345)

	output := buf.String()
	if !strings.Contains(output, "start=10 ") || !strings.Contains(output, "end=15.123") {
		t.Errorf("floats not rounded: %s", output)
	}
}

func TestNewLoggerWithWriter_DebugAddsSource(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerWithWriter(slog.LevelDebug, "text", &buf).Debug("trace")
	if !strings.Contains(buf.String(), "source=") {
		t.Errorf("expected source attribute at debug level, got: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDiscard(t *testing.T) {
	Discard().Error("dropped")
}
