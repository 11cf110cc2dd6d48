package observability

import (
	"time"

	appconfig "github.com/mediatechnologycenter/api-commons/pkg/core/config"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	DefaultMetricsInterval      = 10 * time.Second
	DefaultShutdownTimeout      = 5 * time.Second
	DefaultRuntimeStatsInterval = time.Second

	// Readiness tracker components registered while the providers start.
	TracingComponentName = "tracing"
	MetricsComponentName = "metrics"
)

// Config is read from the observability key:
//
//	observability:
//	  otel-collector-endpoint: otel-collector:4317
//	  tracing:
//	    enabled: true
//	  metrics:
//	    enabled: true
//	    interval: 10s
type Config struct {
	OtelCollectorEndpoint string        `mapstructure:"otel-collector-endpoint"`
	Tracing               TracingConfig `mapstructure:"tracing"`
	Metrics               MetricsConfig `mapstructure:"metrics"`
}

// TracingConfig enables request spans. Without a collector endpoint spans
// are sampled but not exported.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// MetricsConfig enables request and readiness metrics. Metrics need a
// collector endpoint.
type MetricsConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

func newConfig(v *viper.Viper, logger *zap.Logger) (Config, error) {
	var cfg Config
	if err := appconfig.UnmarshalKey(v, "observability", &cfg); err != nil {
		return cfg, err
	}

	cfg.applyDefaults()

	logger.Info("loaded observability config",
		zap.String("endpoint", cfg.OtelCollectorEndpoint),
		zap.Bool("tracing", cfg.Tracing.Enabled),
		zap.Bool("metrics", cfg.Metrics.Enabled))
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Metrics.Interval == 0 {
		c.Metrics.Interval = DefaultMetricsInterval
	}
}
