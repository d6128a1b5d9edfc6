// Package logger builds the zap logger shared by the server and the client.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Logger holds the process-wide zap logger.
type Logger struct {
	Log *zap.Logger
}

// New returns a Logger that discards everything until Init is called.
func New() *Logger {
	return &Logger{Log: zap.NewNop()}
}

// Init replaces the logger with a production JSON logger writing to stderr at
// level ("debug", "info", "warn", "error"; case is ignored).
func (l *Logger) Init(level string) error {
	return l.build(level, zap.NewProductionConfig())
}

// InitConsole is like Init but uses the human-readable console encoding.
// The interactive client uses it so log lines do not drown its output.
func (l *Logger) InitConsole(level string) error {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	return l.build(level, cfg)
}

func (l *Logger) build(level string, cfg zap.Config) error {
	lvl, err := zap.ParseAtomicLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", level, err)
	}
	cfg.Level = lvl
	zl, err := cfg.Build()
	if err != nil {
		return err
	}
	l.Log = zl
	return nil
}
