package core

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLoggerJSONL(t *testing.T) {
	logger, buf := CaptureLogger()
	logger.WithRule("no-rm").Warn("condition_error", "bad expression", map[string]any{"expr": "x ==="})
	logger.Info("run_complete", "done", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}

	var entry LogEntry
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if entry.Level != "warn" || entry.Event != "condition_error" || entry.RuleID != "no-rm" {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if entry.RunID == "" || entry.RunID != logger.RunID() {
		t.Errorf("run id = %q, want %q", entry.RunID, logger.RunID())
	}
	if entry.Details["expr"] != "x ===" {
		t.Errorf("details = %v", entry.Details)
	}

	var second LogEntry
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if second.RuleID != "" {
		t.Errorf("WithRule must not leak into the parent logger, got %q", second.RuleID)
	}
}

func TestLoggerPrettyAndLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(buf, LogFormatPretty, LevelWarn)
	logger.Info("ignored", "below threshold", nil)
	if buf.Len() != 0 {
		t.Fatalf("info entry written at warn level: %q", buf.String())
	}
	logger.Error("failed", "boom", nil)
	if !strings.Contains(buf.String(), "\n  \"level\": \"error\"") {
		t.Errorf("expected indented JSON, got %q", buf.String())
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *Logger
	logger.Warn("event", "message", nil)
	logger.WithRule("x").Error("event", "message", nil)
	if logger.RunID() != "" {
		t.Error("nil logger has no run id")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{"debug": LevelDebug, "": LevelInfo, "WARNING": LevelWarn, "error": LevelError}
	for in, want := range tests {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLogLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLogLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
