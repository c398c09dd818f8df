// Package logging constructs the structured logger shared by every
// daemon component.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.SugaredLogger at the given level ("debug", "info",
// "warn", "error"). Output goes to stderr in console format when
// devMode is set (the daemon's --dev flag) or JSON otherwise, where a
// structured format is friendlier to journald/log aggregation. Only the
// `daemon` subcommand builds a logger.
func New(levelName string, devMode bool) (*zap.SugaredLogger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		return nil, fmt.Errorf("logging: invalid level %q: %w", levelName, err)
	}

	var cfg zap.Config
	if devMode {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build logger: %w", err)
	}
	return logger.Sugar(), nil
}
