package log

import (
	"context"
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type loggerKey struct{}

// defaultLogger is swappable at runtime (Set), so reads go through an atomic
// pointer.
var defaultLogger atomic.Pointer[zap.Logger]

func init() {
	defaultLogger.Store(newDefaultLogger())
}

func newDefaultLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if os.Getenv("TERRAPIX_DEBUG") != "" {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// Logger returns the logger attached to ctx, or the default logger
func Logger(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return l
	}
	return defaultLogger.Load()
}

// With returns a context whose logger carries the given fields
func With(ctx context.Context, fields ...zap.Field) context.Context {
	return context.WithValue(ctx, loggerKey{}, Logger(ctx).With(fields...))
}

// Set replaces the default logger (e.g. to change the level from a CLI flag).
// Safe to call while other goroutines log.
func Set(l *zap.Logger) {
	defaultLogger.Store(l)
}

// Fatal logs the message at fatal level on the default logger and exits
func Fatal(msg string, fields ...zap.Field) {
	defaultLogger.Load().Fatal(msg, fields...)
}
