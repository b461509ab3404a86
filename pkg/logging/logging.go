// Package logging builds the zap backed ectologger used by the engine
package logging

import (
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewZapLogger builds a zap logger. Pretty logs use the console encoder, otherwise JSON.
// Both write to stderr; stdout carries command output.
func NewZapLogger(level string, pretty bool, appName string) (*zap.Logger, error) {
	cfg, err := newConfig(level, pretty)
	if err != nil {
		return nil, err
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	if appName != "" {
		logger = logger.With(zap.String("app", appName))
	}
	return logger, nil
}

func newConfig(level string, pretty bool) (zap.Config, error) {
	atomic, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return zap.Config{}, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	if pretty {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.Level = atomic
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg, nil
}

// New builds the ectologger the engine components log through
func New(level string, pretty bool, appName string) (ectologger.Logger, error) {
	zapLogger, err := NewZapLogger(level, pretty, appName)
	if err != nil {
		return nil, err
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil), nil
}

// Nop returns a logger that drops every message
func Nop() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}
