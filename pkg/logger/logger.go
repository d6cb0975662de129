// Package logger owns the process-wide zap logger. Every package obtains a
// child through WithModule so log lines always carry their origin.
package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu   sync.RWMutex
	base = zap.NewNop() // usable before Init runs, e.g. in tests
)

// Init builds the production logger at the requested level and installs it
// globally. An unrecognised level falls back to info instead of failing
// boot; the bank's operators set this from config, not code.
func Init(level string) error {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		parsed = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsed)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	built, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	base = built
	mu.Unlock()
	return nil
}

// Logger returns the installed global logger.
func Logger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// WithModule derives a child logger tagged with the owning module's name.
func WithModule(name string) *zap.Logger {
	return Logger().With(zap.String("module", name))
}

// Sync flushes any buffered entries. Called on shutdown.
func Sync() error {
	return Logger().Sync()
}
