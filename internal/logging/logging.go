// Package logging provides structured logging for cobotservo. It wraps
// zap with sensible defaults for production use.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	once   sync.Once
)

// Init initializes the global logger with the specified level and
// format. Valid levels: "debug", "info", "warn", "error". When json is
// false, output uses zap's human-readable console encoder.
func Init(level string, json bool) {
	once.Do(func() {
		var lvl zapcore.Level
		switch level {
		case "debug":
			lvl = zapcore.DebugLevel
		case "warn":
			lvl = zapcore.WarnLevel
		case "error":
			lvl = zapcore.ErrorLevel
		default:
			lvl = zapcore.InfoLevel
		}

		cfg := zap.NewProductionConfig()
		if !json {
			cfg = zap.NewDevelopmentConfig()
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)

		built, err := cfg.Build()
		if err != nil {
			// fall back to a no-op logger rather than panic during startup
			logger = zap.NewNop()
			return
		}
		logger = built
	})
}

// L returns the global logger instance, initialising it with defaults
// on first use.
func L() *zap.Logger {
	if logger == nil {
		Init("info", false)
	}
	return logger
}

// Sugar returns the global logger's SugaredLogger, for printf-style call
// sites.
func Sugar() *zap.SugaredLogger {
	return L().Sugar()
}

// With returns a logger with the given fields attached.
func With(fields ...zap.Field) *zap.Logger {
	return L().With(fields...)
}

// Sync flushes any buffered log entries. Call it before process exit.
func Sync() error {
	return L().Sync()
}
