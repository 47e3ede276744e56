// Package logging constructs the zap loggers threaded through the CLI and
// driver: a human-readable console logger for interactive subcommands, and
// a JSON logger for non-interactive / piped runs.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format selects the zap encoder a logger uses.
type Format int

const (
	// Console renders colorized, human-readable lines, for interactive
	// terminal use.
	Console Format = iota
	// JSON renders one structured object per line, for piped/non-interactive
	// runs.
	JSON
)

// New builds a zap.Logger at the given format and level name ("debug",
// "info", "warn", "error"; anything else defaults to "info").
func New(format Format, level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch format {
	case Console:
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		cfg.Encoding = "json"
	}

	return cfg.Build()
}
