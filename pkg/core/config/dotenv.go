package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type dotEnvOptions struct {
	paths    []string
	override bool
}

// DotEnvOption configures the dotenv module.
type DotEnvOption func(*dotEnvOptions)

// WithDotEnvPath replaces the default .env with paths, loaded in order.
func WithDotEnvPath(paths ...string) DotEnvOption {
	return func(o *dotEnvOptions) {
		o.paths = paths
	}
}

// WithDotEnvOverride lets values from the files replace variables that are
// already set in the environment.
func WithDotEnvOverride() DotEnvOption {
	return func(o *dotEnvOptions) {
		o.override = true
	}
}

// NewDotEnvModule loads environment variables from .env files when the
// module is created, before any other config is read. Missing files are
// skipped and malformed files fail the application.
func NewDotEnvModule(opts ...DotEnvOption) fx.Option {
	o := &dotEnvOptions{paths: []string{".env"}}
	for _, opt := range opts {
		opt(o)
	}

	loaded, err := loadDotEnv(o)
	if err != nil {
		return fx.Error(err)
	}

	return fx.Module("dotenv",
		fx.Invoke(func(logger *zap.Logger) {
			if len(loaded) == 0 {
				logger.Debug("No .env file loaded", zap.Strings("paths", o.paths))
				return
			}
			logger.Info("Loaded .env files", zap.Strings("paths", loaded))
		}),
	)
}

func loadDotEnv(o *dotEnvOptions) ([]string, error) {
	load := godotenv.Load
	if o.override {
		load = godotenv.Overload
	}

	var loaded []string
	for _, path := range o.paths {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := load(path); err != nil {
			return loaded, fmt.Errorf("failed to load env file %s: %w", path, err)
		}
		loaded = append(loaded, path)
	}
	return loaded, nil
}
