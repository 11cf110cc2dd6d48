package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapConfig starts from zap's development or production preset and applies
// conf on top of it.
func zapConfig(conf Config, level zap.AtomicLevel) zap.Config {
	cfg := zap.NewProductionConfig()
	if conf.Development {
		cfg = zap.NewDevelopmentConfig()
	}

	cfg.Level = level
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if conf.Encoding != "" {
		cfg.Encoding = conf.Encoding
	}
	if cfg.Encoding == EncodingConsole {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	if len(conf.OutputPaths) > 0 {
		cfg.OutputPaths = conf.OutputPaths
	}
	if len(conf.ErrorOutputPaths) > 0 {
		cfg.ErrorOutputPaths = conf.ErrorOutputPaths
	}
	return cfg
}

// newLogger builds the application logger and installs it as the default
// for contexts without a logger and as zap's global logger.
func newLogger(conf Config) (*zap.Logger, zap.AtomicLevel, error) {
	if err := conf.Validate(); err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("logger configuration validation failed: %w", err)
	}

	level := zap.NewAtomicLevelAt(conf.Level)
	logger, err := zapConfig(conf, level).Build(zap.AddStacktrace(conf.StacktraceLevel))
	if err != nil {
		return nil, zap.AtomicLevel{}, err
	}

	SetDefault(logger)
	zap.ReplaceGlobals(logger)

	logger.Info("logger initialized",
		zap.Stringer("level", conf.Level),
		zap.Bool("development", conf.Development))
	return logger, level, nil
}
