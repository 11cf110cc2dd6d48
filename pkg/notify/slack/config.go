package slack

import (
	"errors"
	"fmt"

	appconfig "github.com/mediatechnologycenter/api-commons/pkg/core/config"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config is loaded from the slack key:
//
//	slack:
//	  token: xoxb-...
//	  channel: C0123456
//
// APIURL overrides the Slack web api endpoint and must end with a slash.
type Config struct {
	Token   string `mapstructure:"token"`
	Channel string `mapstructure:"channel"`
	APIURL  string `mapstructure:"api-url"`
}

func (c Config) validate() error {
	if c.Token == "" {
		return errors.New("slack token is required")
	}
	if c.Channel == "" {
		return errors.New("slack channel is required")
	}
	return nil
}

func newConfig(v *viper.Viper, logger *zap.Logger) (Config, error) {
	var cfg Config
	if err := appconfig.UnmarshalKey(v, "slack", &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("invalid slack config: %w", err)
	}

	logger.Info("loaded slack config", zap.String("channel", cfg.Channel), zap.String("api_url", cfg.APIURL))
	return cfg, nil
}
