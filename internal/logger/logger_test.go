package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	slogcontext "github.com/veqryn/slog-context"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestConfigureWrapsContextHandler(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	Configure("debug", "prod")
	if _, ok := slog.Default().Handler().(*slogcontext.Handler); !ok {
		t.Fatalf("default handler is %T, want *slogcontext.Handler", slog.Default().Handler())
	}
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug level should be enabled")
	}
}

func TestWithRunTagsRecords(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slogcontext.NewHandler(slog.NewJSONHandler(&buf, nil), nil))

	ctx := WithRun(context.Background(), "run-1", "clone_campaign")
	log.InfoContext(ctx, "Submitting batch", "operations", 3)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log record: %v", err)
	}
	if rec["run_id"] != "run-1" || rec["workflow"] != "clone_campaign" {
		t.Errorf("record missing run attributes: %v", rec)
	}
}
