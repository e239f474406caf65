package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"trade-dashboard/src/models"
)

// -----------------------------------------------------------------------------

// Logger provides structured logging functionality
type Logger struct {
	name  string
	sugar *zap.SugaredLogger
}

// -----------------------------------------------------------------------------

// NewLogger creates a new Logger instance. The level is taken from config when
// it is a *models.MConfig; any other value logs at INFO.
func NewLogger(config interface{}, name string) *Logger {
	level := zapcore.InfoLevel
	if cfg, ok := config.(*models.MConfig); ok && cfg != nil {
		level = parseLevel(cfg.LogLevel)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stdout),
		level,
	)

	return &Logger{
		name:  name,
		sugar: zap.New(core).Named(name).Sugar(),
	}
}

// NewNop returns a Logger that discards everything. Used by tests.
func NewNop() *Logger {
	return &Logger{name: "nop", sugar: zap.NewNop().Sugar()}
}

// Named returns a child logger for a sub-component.
func (l *Logger) Named(name string) *Logger {
	return &Logger{name: l.name + "." + name, sugar: l.sugar.Named(name)}
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN", "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	}
	return zapcore.InfoLevel
}

// -----------------------------------------------------------------------------

// Debug logs diagnostic messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// -----------------------------------------------------------------------------

// Warning logs recoverable problems
func (l *Logger) Warning(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// -----------------------------------------------------------------------------

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// -----------------------------------------------------------------------------

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// -----------------------------------------------------------------------------

// Critical logs critical errors and exits the application
func (l *Logger) Critical(format string, args ...interface{}) {
	l.sugar.Errorf("CRITICAL: "+format, args...)
	_ = l.sugar.Sync()
	os.Exit(1)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() {
	_ = l.sugar.Sync()
}
