// Package logging строит zap-логгер по настройкам профиля.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config: настройки журнала событий.
type Config struct {
	Level  string   `yaml:"level"`
	Format string   `yaml:"format"` // json | console
	Output []string `yaml:"output"`
}

// New создает логгер. По умолчанию JSON в stderr на уровне info.
func New(cfg Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if strings.EqualFold(cfg.Format, "console") {
		zcfg = zap.NewDevelopmentConfig()
	}

	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
			return nil, fmt.Errorf("неизвестный уровень логирования %q", cfg.Level)
		}
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	if len(cfg.Output) > 0 {
		zcfg.OutputPaths = cfg.Output
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.With(zap.String("service", "oficios")), nil
}
