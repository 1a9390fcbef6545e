package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	slogzap "github.com/samber/slog-zap/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var globalLogger *slog.Logger

// ParseLevel maps a config level name to slog and zap levels. Unknown names fall back to info.
func ParseLevel(levelStr string) (slog.Level, zapcore.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return slog.LevelDebug, zapcore.DebugLevel, true
	case "INFO", "":
		return slog.LevelInfo, zapcore.InfoLevel, true
	case "WARN", "WARNING":
		return slog.LevelWarn, zapcore.WarnLevel, true
	case "ERROR":
		return slog.LevelError, zapcore.ErrorLevel, true
	default:
		return slog.LevelInfo, zapcore.InfoLevel, false
	}
}

// Init builds the zap logger, routes slog through it with slog-zap and installs the
// result as the slog default. The zap logger is returned for clients that log with zap directly.
func Init(levelStr string, development bool) (*zap.Logger, error) {
	slogLevel, zapLevel, ok := ParseLevel(levelStr)

	zapCfg := zap.NewProductionConfig()
	if development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(zapLevel)

	zapLogger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}

	handler := slogzap.Option{Level: slogLevel, Logger: zapLogger}.NewZapHandler()
	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)

	if !ok {
		globalLogger.Warn("Invalid log level string, defaulting to INFO", "input", levelStr)
	}
	return zapLogger, nil
}

// SetLogger replaces the global logger. Tests use it to capture output.
func SetLogger(l *slog.Logger) {
	globalLogger = l
}

func ensureInitialized() {
	if globalLogger == nil {
		globalLogger = slog.Default()
	}
}

// Debug logs a message at DebugLevel.
func Debug(msg string, args ...any) {
	ensureInitialized()
	if globalLogger.Enabled(context.Background(), slog.LevelDebug) {
		globalLogger.Debug(msg, args...)
	}
}

// Info logs a message at InfoLevel.
func Info(msg string, args ...any) {
	ensureInitialized()
	globalLogger.Info(msg, args...)
}

// Warn logs a message at WarnLevel.
func Warn(msg string, args ...any) {
	ensureInitialized()
	globalLogger.Warn(msg, args...)
}

// Error logs a message at ErrorLevel.
func Error(msg string, args ...any) {
	ensureInitialized()
	globalLogger.Error(msg, args...)
}

// Fatal logs a message at ErrorLevel then exits.
func Fatal(msg string, args ...any) {
	ensureInitialized()
	globalLogger.Error(msg, args...)
	os.Exit(1)
}
