package baseapi

import (
	"fmt"
	"strings"

	appconfig "github.com/mediatechnologycenter/api-commons/pkg/core/config"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	IndexMessage    string   `mapstructure:"index-message"`
	LivenessMessage string   `mapstructure:"liveness-message"`
	DocsPrefix      string   `mapstructure:"docs-prefix"`
	Title           string   `mapstructure:"title"`
	Version         string   `mapstructure:"version"`
	Tags            []string `mapstructure:"tags"`

	// GlobalReadinessGate rejects requests to every non-operational route
	// while the service is not ready. Disable it to gate single routes with
	// Gate.Require instead.
	GlobalReadinessGate *bool `mapstructure:"global-readiness-gate"`

	GPUSupported bool `mapstructure:"gpu-supported"`
	GPUEnabled   bool `mapstructure:"gpu-enabled"`
}

const (
	defaultIndexMessage    = "Welcome to the MTC Api"
	defaultLivenessMessage = "liveness check: [ok]"
	defaultDocsPrefix      = "/api"
)

func newConfig(v *viper.Viper, logger *zap.Logger) (Config, error) {
	var cfg Config
	if err := appconfig.UnmarshalKey(v, "api", &cfg); err != nil {
		return cfg, err
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	logger.Info("loaded api config", zap.Any("config", cfg))
	return cfg, nil
}

func (c *Config) SetDefaults() {
	if c.IndexMessage == "" {
		c.IndexMessage = defaultIndexMessage
	}
	if c.LivenessMessage == "" {
		c.LivenessMessage = defaultLivenessMessage
	}
	if c.DocsPrefix == "" {
		c.DocsPrefix = defaultDocsPrefix
	}
	if c.Tags == nil {
		c.Tags = []string{TagDemo}
	}
	if c.GlobalReadinessGate == nil {
		enabled := true
		c.GlobalReadinessGate = &enabled
	}
}

func (c Config) Validate() error {
	if !strings.HasPrefix(c.DocsPrefix, "/") {
		return fmt.Errorf("api.docs-prefix must start with /, got %q", c.DocsPrefix)
	}
	return nil
}

func (c Config) gateEnabled() bool {
	return c.GlobalReadinessGate == nil || *c.GlobalReadinessGate
}
