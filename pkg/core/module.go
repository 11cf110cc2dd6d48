package core

import (
	"time"

	"github.com/mediatechnologycenter/api-commons/pkg/core/config"
	"github.com/mediatechnologycenter/api-commons/pkg/core/logger"
	"github.com/mediatechnologycenter/api-commons/pkg/core/model"
	"github.com/mediatechnologycenter/api-commons/pkg/core/readiness"
	"go.uber.org/fx"
)

// DefaultLifecycleTimeout bounds fx start and stop. Model loaders run in
// the background, but their OnStop waits for a running load to return.
const DefaultLifecycleTimeout = 5 * time.Minute

type coreOptions struct {
	lifecycleTimeout time.Duration
	withoutDotEnv    bool
	dotEnv           []config.DotEnvOption
	viper            []config.ViperOption
	appConfig        []config.AppConfigOption
	logger           []logger.Option
}

// Option configures NewCoreModule.
type Option func(*coreOptions)

// WithAppConfig supplies the AppConfig instead of reading APP_* variables.
func WithAppConfig(cfg config.AppConfig) Option {
	return func(o *coreOptions) {
		o.appConfig = append(o.appConfig, config.WithAppConfig(cfg))
	}
}

// WithLoggerConfig supplies the logger Config instead of the logger key.
func WithLoggerConfig(cfg logger.Config) Option {
	return func(o *coreOptions) {
		o.logger = append(o.logger, logger.WithLoggerConfig(cfg))
	}
}

// WithoutEnvFile skips the .env file.
func WithoutEnvFile() Option {
	return func(o *coreOptions) {
		o.withoutDotEnv = true
	}
}

// WithEnvFiles loads the given dotenv files instead of .env.
func WithEnvFiles(paths ...string) Option {
	return func(o *coreOptions) {
		o.dotEnv = append(o.dotEnv, config.WithDotEnvPath(paths...))
	}
}

// WithoutConfigFile skips config.yaml; configuration then comes from the
// environment and the static configs only.
func WithoutConfigFile() Option {
	return func(o *coreOptions) {
		o.viper = append(o.viper, config.WithoutConfigFile())
	}
}

// WithConfigFile loads configuration from path instead of CONFIG_FILE.
func WithConfigFile(path string) Option {
	return func(o *coreOptions) {
		o.viper = append(o.viper, config.WithConfigPath(path))
	}
}

// WithLifecycleTimeout overrides DefaultLifecycleTimeout.
func WithLifecycleTimeout(d time.Duration) Option {
	return func(o *coreOptions) {
		o.lifecycleTimeout = d
	}
}

// NewCoreModule provides config, logging, the readiness tracker and the
// model loaders registered with model.Register.
//
//	// production: .env, config.yaml and APP_* variables
//	core.NewCoreModule()
//
//	// tests
//	core.NewCoreModule(
//	    core.WithAppConfig(config.AppConfig{ServiceName: "summarizer"}),
//	    core.WithLoggerConfig(logger.Config{Level: zapcore.ErrorLevel}),
//	    core.WithoutEnvFile(),
//	    core.WithoutConfigFile(),
//	)
func NewCoreModule(opts ...Option) fx.Option {
	o := &coreOptions{lifecycleTimeout: DefaultLifecycleTimeout}
	for _, opt := range opts {
		opt(o)
	}

	dotEnv := fx.Options()
	if !o.withoutDotEnv {
		dotEnv = config.NewDotEnvModule(o.dotEnv...)
	}

	return fx.Options(
		fx.StartTimeout(o.lifecycleTimeout),
		fx.StopTimeout(o.lifecycleTimeout),

		dotEnv,
		config.NewViperModule(o.viper...),
		config.NewAppConfigModule(o.appConfig...),
		logger.NewZapLoggingModule(o.logger...),
		readiness.NewReadinessModule(),
		model.NewModelModule(),
	)
}
