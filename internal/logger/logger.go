// Package logger configures the process-wide slog logger. Workflow runs tag
// their context with WithRun so every submission, pipeline stage and
// journal write logged under that context carries the run id.
package logger

import (
	"context"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	slogcontext "github.com/veqryn/slog-context"
)

// Configure installs the default logger: tint for local development, JSON
// otherwise.
func Configure(levelStr string, env string) {
	level := parseLogLevel(levelStr)
	w := os.Stdout
	var handler slog.Handler

	if env == "dev" || env == "development" {
		handler = tint.NewHandler(w, &tint.Options{Level: level})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(slogcontext.NewHandler(handler, nil)))
}

// WithRun returns ctx tagged with the run id and workflow name.
func WithRun(ctx context.Context, runID, workflow string) context.Context {
	return slogcontext.Append(ctx, "run_id", runID, "workflow", workflow)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
