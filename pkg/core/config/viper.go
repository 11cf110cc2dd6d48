package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type viperOptions struct {
	configPath   *string
	noConfigFile bool
}

// ViperOption configures the viper module.
type ViperOption func(*viperOptions)

// WithConfigPath reads path instead of the file named by CONFIG_FILE.
func WithConfigPath(path string) ViperOption {
	return func(o *viperOptions) {
		o.configPath = &path
	}
}

// WithoutConfigFile leaves viper without a file; values then come from the
// environment only.
func WithoutConfigFile() ViperOption {
	return func(o *viperOptions) {
		o.noConfigFile = true
	}
}

// FilePath is the config file read by the viper module, empty for none.
type FilePath string

// NewViperModule provides a *viper.Viper. Keys can be overridden from the
// environment with dots and dashes replaced by underscores, so
// api.docs-prefix becomes API_DOCS_PREFIX.
//
// A <name>.local<ext> file next to the config file, e.g. config.local.yaml,
// is merged on top of it when present.
func NewViperModule(opts ...ViperOption) fx.Option {
	o := &viperOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return fx.Module("viper",
		fx.Supply(resolveConfigPath(o)),
		fx.Provide(newViper),
	)
}

// resolveConfigPath picks the config file: none when disabled, then the
// explicit path, then CONFIG_FILE, then CONFIG_NAME inside CONFIG_DIR.
func resolveConfigPath(o *viperOptions) FilePath {
	switch {
	case o.noConfigFile:
		return ""
	case o.configPath != nil:
		return FilePath(*o.configPath)
	case os.Getenv(envConfigFile) != "":
		return FilePath(os.Getenv(envConfigFile))
	case os.Getenv(envConfigName) != "":
		dir := lo.CoalesceOrEmpty(os.Getenv(envConfigDir), defaultConfigDir)
		return FilePath(filepath.Join(dir, os.Getenv(envConfigName)+".yaml"))
	default:
		return ""
	}
}

func newViper(configFile FilePath, logger *zap.Logger) (*viper.Viper, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if configFile == "" {
		logger.Info("No config file, reading configuration from the environment")
		return v, nil
	}

	v.SetConfigFile(string(configFile))
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file [%s]: %w", configFile, err)
	}

	files := []string{string(configFile)}
	if local := localOverlay(string(configFile)); local != "" {
		v.SetConfigFile(local)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to merge config file [%s]: %w", local, err)
		}
		files = append(files, local)
	}

	logger.Info("Configuration loaded", zap.Strings("files", files), zap.Strings("keys", v.AllKeys()))
	return v, nil
}

// localOverlay returns the existing local overlay of path, or "".
func localOverlay(path string) string {
	ext := filepath.Ext(path)
	local := strings.TrimSuffix(path, ext) + ".local" + ext
	if _, err := os.Stat(local); err != nil {
		return ""
	}
	return local
}

// UnmarshalKey decodes the section under key into target and rejects
// unknown fields. A missing section leaves target unchanged.
func UnmarshalKey(v *viper.Viper, key string, target any) error {
	sub := v.Sub(key)
	if sub == nil {
		return nil
	}
	if err := sub.UnmarshalExact(target); err != nil {
		return fmt.Errorf("failed to load %s config: %w", key, err)
	}
	return nil
}
