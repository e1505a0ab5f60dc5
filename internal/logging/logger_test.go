package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level, env string
		want       slog.Level
	}{
		{"debug", "", slog.LevelDebug},
		{"INFO", "", slog.LevelInfo},
		{"warning", "", slog.LevelWarn},
		{"error", "production", slog.LevelError},
		{"", "production", slog.LevelInfo},
		{"", "development", slog.LevelWarn},
		{"bogus", "", slog.LevelWarn},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.level, tt.env); got != tt.want {
			t.Errorf("ParseLevel(%q, %q) = %v, want %v", tt.level, tt.env, got, tt.want)
		}
	}
}

func TestNew_ProductionIsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := WithSession(New(&buf, "info", "production"), "01HX")
	logger.Info("stored", "chunk_id", 7)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if rec["session_id"] != "01HX" || rec["msg"] != "stored" {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestNew_DevelopmentIsText(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "debug", "development")
	logger.Debug("pruned", "removed", 2)

	out := buf.String()
	if !strings.Contains(out, "msg=pruned") || !strings.Contains(out, "removed=2") {
		t.Errorf("unexpected text output %q", out)
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "warn", "").Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected info suppressed at warn level, got %q", buf.String())
	}
}
