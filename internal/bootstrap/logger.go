package bootstrap

import (
	"canvas-e2e/internal/config"
	"fmt"

	"go.uber.org/zap"
)

func newLogger(config *config.Config) (*zap.Logger, error) {
	var zapConfig zap.Config

	if config.AppConfig.Debug {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	zapConfig.DisableStacktrace = true

	if config.AppConfig.LogLevel != "" {
		level, err := zap.ParseAtomicLevel(config.AppConfig.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("parse LOG_LEVEL: %w", err)
		}

		zapConfig.Level = level
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	return logger.Named("canvas-e2e"), nil
}
