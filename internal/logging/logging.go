// Package logging provides the process-wide structured logger.
//
// The CLI stays quiet by default; setting MLXLM_DEBUG enables debug-level
// diagnostics on stderr without disturbing chat output on stdout.
package logging

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	once   sync.Once
	logger *zap.Logger
)

// L returns the shared logger, building it on first use.
func L() *zap.Logger {
	once.Do(func() {
		logger = build()
	})
	return logger
}

// S returns the shared sugared logger.
func S() *zap.SugaredLogger {
	return L().Sugar()
}

func build() *zap.Logger {
	level := zapcore.WarnLevel
	if os.Getenv("MLXLM_DEBUG") != "" {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true

	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// Sync flushes buffered log entries. Called before process exit.
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
