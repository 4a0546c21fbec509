package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for input, want := range tests {
		got, err := ParseLevel(input)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", input, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected unknown level to fail")
	}
}

func TestContextLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo)

	ctx := ContextWithLogger(context.Background(), logger.With("request_id", "req-1"))
	if FromContext(ctx) == nil {
		t.Fatalf("expected logger on context")
	}
	if FromContext(context.Background()) != nil {
		t.Fatalf("expected no logger on a bare context")
	}

	Component(ctx, nil, "presence").Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q", buf.String())
	}
	if entry["request_id"] != "req-1" || entry["component"] != "presence" {
		t.Fatalf("unexpected log entry %v", entry)
	}
}

func TestComponentFallsBackToBase(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := New(&buf, slog.LevelInfo)
	Component(context.Background(), base, "gateway").Info("ready")

	if !bytes.Contains(buf.Bytes(), []byte(`"component":"gateway"`)) {
		t.Fatalf("expected base logger to be used, got %q", buf.String())
	}
}
