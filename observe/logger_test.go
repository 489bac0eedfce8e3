package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func decodeEntries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLogger_StructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter("info", &buf)

	log.Info(context.Background(), "order created", F("order_id", "order-1"), F("total", 20.0))

	entries := decodeEntries(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e["msg"] != "order created" || e["level"] != "info" {
		t.Errorf("entry = %v", e)
	}
	if e["order_id"] != "order-1" || e["total"] != 20.0 {
		t.Errorf("fields = %v", e)
	}
	if e["timestamp"] == nil {
		t.Error("entry missing timestamp")
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter("warn", &buf)
	ctx := context.Background()

	log.Debug(ctx, "dropped")
	log.Info(ctx, "dropped")
	log.Warn(ctx, "kept")
	log.Error(ctx, "kept")

	if entries := decodeEntries(t, &buf); len(entries) != 2 {
		t.Errorf("entries = %d, want 2", len(entries))
	}
}

func TestLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter("info", &buf)

	scoped := log.With(F("dependency", "payment"))
	scoped.Info(context.Background(), "call failed")
	log.Info(context.Background(), "unscoped")

	entries := decodeEntries(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0]["dependency"] != "payment" {
		t.Errorf("scoped entry missing dependency: %v", entries[0])
	}
	if _, ok := entries[1]["dependency"]; ok {
		t.Errorf("unscoped entry carries scoped field: %v", entries[1])
	}
}

func TestLogger_RedactsSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter("info", &buf)

	log.Info(context.Background(), "charge",
		F("card_number", "4111111111111111"),
		F("token", "secret-token"),
		F("amount", 10.0),
	)

	e := decodeEntries(t, &buf)[0]
	if e["card_number"] != "[REDACTED]" || e["token"] != "[REDACTED]" {
		t.Errorf("sensitive fields not redacted: %v", e)
	}
	if e["amount"] != 10.0 {
		t.Errorf("amount = %v, want 10", e["amount"])
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"unknown", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
