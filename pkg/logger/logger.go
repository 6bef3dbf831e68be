// Package logger holds the process-wide zap logger.
package logger

import (
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var global atomic.Pointer[zap.Logger]

func init() {
	global.Store(zap.NewNop())
}

// Init installs a production logger at level. Encoding "console" selects the development encoder.
// Unknown levels fall back to info.
func Init(level string, encoding ...string) error {
	cfg := zap.NewProductionConfig()
	if len(encoding) > 0 && strings.EqualFold(strings.TrimSpace(encoding[0]), "console") {
		cfg = zap.NewDevelopmentConfig()
	}

	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	built, err := cfg.Build()
	if err != nil {
		return err
	}
	global.Store(built)
	return nil
}

func Logger() *zap.Logger {
	return global.Load()
}

// ReplaceForTest installs l and returns a func that restores the previous logger.
func ReplaceForTest(l *zap.Logger) func() {
	prev := global.Swap(l)
	return func() { global.Store(prev) }
}

func Sync() error {
	return Logger().Sync()
}

// WithModule tags entries with the emitting component.
func WithModule(module string) *zap.Logger {
	return Logger().With(zap.String("module", module))
}

// WithAlert tags entries with the component and the alert being processed.
func WithAlert(module, alertID string) *zap.Logger {
	return WithModule(module).With(zap.String("alert_id", alertID))
}
