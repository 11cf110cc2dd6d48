package artifact

import (
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds the credentials of the artifact repository, loaded from the
// artifact key or ARTIFACT_USERNAME / ARTIFACT_PASSWORD.
type Config struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

func newConfig(v *viper.Viper, logger *zap.Logger) Config {
	cfg := Config{
		Username: v.GetString("artifact.username"),
		Password: v.GetString("artifact.password"),
	}
	logger.Info("loaded artifact config", zap.Bool("credentials", cfg.Username != ""))
	return cfg
}
