package util

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. Development gets human-readable text
// with source locations; everything else emits JSON for log aggregation.
// The service attribute separates api and worker streams.
func NewLogger(env, service string) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if env == "development" {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler).With("service", service)
}
