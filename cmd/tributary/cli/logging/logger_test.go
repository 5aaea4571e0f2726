package logging

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{" info ", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsValidLogLevel(t *testing.T) {
	for _, s := range []string{"debug", "INFO", "warn", "warning", "error", ""} {
		if !isValidLogLevel(s) {
			t.Errorf("isValidLogLevel(%q) = false", s)
		}
	}
	for _, s := range []string{"verbose", "trace", "2"} {
		if isValidLogLevel(s) {
			t.Errorf("isValidLogLevel(%q) = true", s)
		}
	}
}

func TestLogExtractsContextAttrs(t *testing.T) {
	t.Cleanup(resetLogger)

	var buf strings.Builder
	w := bufio.NewWriter(&buf)

	mu.Lock()
	logger = createLogger(w, slog.LevelDebug)
	currentSessionID = "sess-1"
	invocationID = "inv-1"
	mu.Unlock()

	ctx := WithComponent(WithEvent(context.Background(), "SessionStart"), "hooks")
	Info(ctx, "hook invoked", slog.String("head", "abc"))
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	var record map[string]any
	if err := json.Unmarshal([]byte(buf.String()), &record); err != nil {
		t.Fatalf("log line not JSON: %v\n%s", err, buf.String())
	}
	for key, want := range map[string]string{
		"msg":           "hook invoked",
		"session_id":    "sess-1",
		"invocation_id": "inv-1",
		"event":         "SessionStart",
		"component":     "hooks",
		"head":          "abc",
	} {
		if record[key] != want {
			t.Errorf("record[%q] = %v, want %q", key, record[key], want)
		}
	}
}

func TestSessionIDFromContextOnlyWhenUninitialized(t *testing.T) {
	t.Cleanup(resetLogger)

	var buf strings.Builder
	w := bufio.NewWriter(&buf)

	mu.Lock()
	logger = createLogger(w, slog.LevelDebug)
	currentSessionID = ""
	mu.Unlock()

	Info(WithSession(context.Background(), "from-ctx"), "message")
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	var record map[string]any
	if err := json.Unmarshal([]byte(buf.String()), &record); err != nil {
		t.Fatal(err)
	}
	if record["session_id"] != "from-ctx" {
		t.Errorf("session_id = %v, want context value", record["session_id"])
	}
}

func TestInitRejectsUnsafeSessionID(t *testing.T) {
	t.Cleanup(resetLogger)

	if err := Init(t.TempDir(), "../escape"); err == nil {
		t.Fatal("Init accepted a session ID with a traversal component")
	}
}
