package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Environment variable names
const (
	envAppEnv            = "APP_ENV"
	envAppServiceName    = "APP_SERVICE_NAME"
	envAppServiceVersion = "APP_SERVICE_VERSION"
	envConfigFile        = "CONFIG_FILE"
	envConfigDir         = "CONFIG_DIR"
	envConfigName        = "CONFIG_NAME"
)

const defaultConfigDir = "./configs"

// AppConfig represents the core application metadata and configuration paths.
// It is loaded from environment variables and identifies the running service.
type AppConfig struct {
	Environment    string `env:"APP_ENV,required"`
	ServiceName    string `env:"APP_SERVICE_NAME,required"`
	ServiceVersion string `env:"APP_SERVICE_VERSION,required"`

	// ConfigFile is the full path to the config file. When unset it is built
	// from CONFIG_DIR and CONFIG_NAME.
	ConfigFile string `env:"CONFIG_FILE"`
	ConfigDir  string `env:"CONFIG_DIR" envDefault:"./configs"`
	ConfigName string `env:"CONFIG_NAME"`
}

type appConfigOptions struct {
	appConfig *AppConfig
}

// AppConfigOption configures the application config module.
type AppConfigOption func(*appConfigOptions)

// WithAppConfig provides a static AppConfig (useful for tests).
func WithAppConfig(cfg AppConfig) AppConfigOption {
	return func(opts *appConfigOptions) {
		opts.appConfig = &cfg
	}
}

// NewAppConfigModule provides AppConfig loaded from environment variables.
//
// Required environment variables:
//   - APP_ENV: Environment name (e.g., "local", "staging", "pro")
//   - APP_SERVICE_NAME: Service name
//   - APP_SERVICE_VERSION: Service version
//
// Optional environment variables:
//   - CONFIG_FILE: Full path to config file (default: ./configs/config.{env}.yaml)
//   - CONFIG_DIR, CONFIG_NAME: directory and base name used to build the default path
func NewAppConfigModule(opts ...AppConfigOption) fx.Option {
	cfg := &appConfigOptions{}
	for _, opt := range opts {
		opt(cfg)
	}

	provide := fx.Provide(newAppConfig)
	if cfg.appConfig != nil {
		provide = fx.Supply(*cfg.appConfig)
	}

	return fx.Module("appconfig",
		provide,
		fx.Invoke(func(logger *zap.Logger, conf AppConfig) {
			logger.Info("Loaded application configuration",
				zap.String("service", conf.ServiceName),
				zap.String("version", conf.ServiceVersion),
				zap.String("environment", conf.Environment),
				zap.String("configFile", conf.ConfigFile),
				zap.Bool("configFileProvided", os.Getenv(envConfigFile) != ""),
			)
		}),
	)
}

func newAppConfig() (AppConfig, error) {
	cfg, err := env.ParseAs[AppConfig]()
	if err != nil {
		return AppConfig{}, fmt.Errorf("failed to load application config: %w", err)
	}

	if cfg.ConfigFile == "" {
		name := cfg.ConfigName
		if name == "" {
			name = "config." + cfg.Environment
		}
		cfg.ConfigFile = filepath.Join(cfg.ConfigDir, name+".yaml")
	}
	return cfg, nil
}
