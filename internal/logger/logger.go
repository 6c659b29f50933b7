// Package logger wraps the zap logger shared by the server and client.
package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// ZapLogger holds the process-wide structured logger.
type ZapLogger struct {
	// Log is a no-op logger until Init succeeds.
	Log *zap.Logger
}

// New returns a logger that discards everything until Init is called.
func New() *ZapLogger {
	return &ZapLogger{Log: zap.NewNop()}
}

// Init builds a production logger at the given level ("debug", "info", ...).
func (l *ZapLogger) Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	zl, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	l.Log = zl
	return nil
}
