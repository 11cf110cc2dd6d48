package logger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type loggerOptions struct {
	config *Config
}

// Option configures the logging module.
type Option func(*loggerOptions)

// WithLoggerConfig provides a static logger Config (useful for tests).
// When set, the configuration will not be loaded from viper.
func WithLoggerConfig(cfg Config) Option {
	return func(opts *loggerOptions) {
		opts.config = &cfg
	}
}

// NewZapLoggingModule creates a new fx module for zap logger initialization.
// It provides a configured *zap.Logger and its zap.AtomicLevel, and routes fx
// events through the same logger.
func NewZapLoggingModule(opts ...Option) fx.Option {
	cfg := &loggerOptions{}
	for _, opt := range opts {
		opt(cfg)
	}

	return fx.Module("logger",
		configProvider(cfg),
		fx.Provide(provideLogger),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			l := &fxevent.ZapLogger{Logger: log}
			l.UseLogLevel(zapcore.DebugLevel)
			return l
		}),
	)
}

func configProvider(cfg *loggerOptions) fx.Option {
	if cfg.config != nil {
		return fx.Supply(*cfg.config)
	}
	return fx.Provide(newConfig)
}

func provideLogger(lc fx.Lifecycle, conf Config) (*zap.Logger, zap.AtomicLevel, error) {
	logger, level, err := newLogger(conf)
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("failed to create logger: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return ignoreSyncError(logger.Sync())
		},
	})

	return logger, level, nil
}

// ignoreSyncError drops the errors zap returns when syncing stderr/stdout
// attached to a terminal or pipe.
func ignoreSyncError(err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) && (errors.Is(pathErr.Err, syscall.EINVAL) || errors.Is(pathErr.Err, syscall.ENOTTY)) {
		return nil
	}
	return err
}
