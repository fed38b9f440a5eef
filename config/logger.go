package config

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns the application logger for cfg. Production uses the JSON handler;
// otherwise text. LogLevel may be debug, info, warn or error (default info).
func NewLogger(cfg *Config) *slog.Logger {
	return newLogger(os.Stdout, cfg.Environment, cfg.LogLevel)
}

func newLogger(w io.Writer, env, levelName string) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(w, opts)
	if env == "production" {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h).With("service", "eventticketing", "env", env)
}
