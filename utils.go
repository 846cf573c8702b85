package main

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds the process logger at the given level name.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// UUID Validation
func validateUUID(uuidStr string) error {
	if _, err := uuid.Parse(uuidStr); err != nil {
		return fmt.Errorf("invalid UUID format: %s", uuidStr)
	}
	return nil
}

var flowNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// Flow names appear in URLs and log fields
func validateFlowName(name string) error {
	if name == "" {
		return fmt.Errorf("flow name cannot be empty")
	}
	if !flowNamePattern.MatchString(name) {
		return fmt.Errorf("invalid flow name: %s", name)
	}
	return nil
}

// Request-scoped logging helpers

func withLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

func requestLogger(r *http.Request) *zap.Logger {
	if logger, ok := r.Context().Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.L()
}

func logInfo(r *http.Request, message string, fields ...zap.Field) {
	requestLogger(r).Info(message, fields...)
}

func logError(r *http.Request, message string, err error, fields ...zap.Field) {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	requestLogger(r).Error(message, fields...)
}

func logWarn(r *http.Request, message string, fields ...zap.Field) {
	requestLogger(r).Warn(message, fields...)
}
