// Package logger is the process-wide leveled logging facade. It is a
// thin adapter over zap: the core (internal/) never imports it and
// never logs, since §9 forbids global state inside the core; only the
// ambient layer (pkg/, cmd/) uses it, through printf-style
// Debug/Info/Error calls; With offers structured key/value fields.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel mirrors the three levels this facade has always exposed.
type LogLevel int

const (
	LevelError LogLevel = iota
	LevelInfo
	LevelDebug
)

var base *zap.SugaredLogger

// Init initializes the logger from the LOG_LEVEL environment variable
// ("debug", "info", "error"; defaults to "info").
func Init() {
	level := zapcore.InfoLevel
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = zapcore.DebugLevel
	case "error":
		level = zapcore.ErrorLevel
	case "info", "":
		level = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// Fall back to a no-op logger rather than leaving base
		// nil; Init is expected to always succeed in practice.
		l = zap.NewNop()
	}
	base = l.Sugar()
}

func logger() *zap.SugaredLogger {
	if base == nil {
		Init()
	}
	return base
}

// Debug logs a debug message, active only under LOG_LEVEL=debug.
func Debug(format string, v ...interface{}) {
	logger().Debugf(format, v...)
}

// Info logs an info message.
func Info(format string, v ...interface{}) {
	logger().Infof(format, v...)
}

// Error logs an error message. Always logged regardless of level.
func Error(format string, v ...interface{}) {
	logger().Errorf(format, v...)
}

// With returns a logger that attaches the given structured key/value
// pairs to every subsequent message.
func With(kv ...interface{}) *zap.SugaredLogger {
	return logger().With(kv...)
}

// Sync flushes any buffered log entries; call before process exit.
func Sync() error {
	if base == nil {
		return nil
	}
	return base.Sync()
}
