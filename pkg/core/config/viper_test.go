package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeConfig(t *testing.T, name, content string) FilePath {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return FilePath(path)
}

func TestNewViper(t *testing.T) {
	t.Run("reads yaml file", func(t *testing.T) {
		file := writeConfig(t, "config.yaml", `
api:
  index-message: Welcome
  tags: [demo, service]
server:
  port: 8080
`)

		v, err := newViper(file, zap.NewNop())

		require.NoError(t, err)
		assert.Equal(t, 8080, v.GetInt("server.port"))
		assert.Equal(t, "Welcome", v.GetString("api.index-message"))
		assert.Equal(t, []string{"demo", "service"}, v.GetStringSlice("api.tags"))
	})

	t.Run("reads json file", func(t *testing.T) {
		file := writeConfig(t, "config.json", `{"server": {"port": 9090}, "enabled": true}`)

		v, err := newViper(file, zap.NewNop())

		require.NoError(t, err)
		assert.Equal(t, 9090, v.GetInt("server.port"))
		assert.True(t, v.GetBool("enabled"))
	})

	t.Run("no file gives empty instance", func(t *testing.T) {
		v, err := newViper("", zap.NewNop())

		require.NoError(t, err)
		assert.Empty(t, v.AllSettings())
	})

	t.Run("missing file", func(t *testing.T) {
		v, err := newViper("/nonexistent/path/config.yaml", zap.NewNop())

		require.Error(t, err)
		assert.Nil(t, v)
		assert.Contains(t, err.Error(), "failed to read config file")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		file := writeConfig(t, "config.yaml", "server:\n  port: 8080\ninvalid yaml: [[[\n")

		_, err := newViper(file, zap.NewNop())

		require.Error(t, err)
	})
}

func TestNewViper_EnvOverride(t *testing.T) {
	file := writeConfig(t, "config.yaml", `
api:
  docs-prefix: /api
  global-readiness-gate: true
`)
	t.Setenv("API_DOCS_PREFIX", "/v2")
	t.Setenv("API_GLOBAL_READINESS_GATE", "false")

	v, err := newViper(file, zap.NewNop())

	require.NoError(t, err)
	assert.Equal(t, "/v2", v.GetString("api.docs-prefix"))
	assert.False(t, v.GetBool("api.global-readiness-gate"))
}

func TestResolveConfigPath(t *testing.T) {
	t.Run("without config file", func(t *testing.T) {
		t.Setenv(envConfigFile, "/from/env.yaml")
		assert.Equal(t, FilePath(""), resolveConfigPath(&viperOptions{noConfigFile: true}))
	})

	t.Run("explicit path", func(t *testing.T) {
		path := "/explicit.yaml"
		assert.Equal(t, FilePath(path), resolveConfigPath(&viperOptions{configPath: &path}))
	})

	t.Run("from environment", func(t *testing.T) {
		t.Setenv(envConfigFile, "/from/env.yaml")
		assert.Equal(t, FilePath("/from/env.yaml"), resolveConfigPath(&viperOptions{}))
	})

	t.Run("from config name", func(t *testing.T) {
		t.Setenv(envConfigFile, "")
		t.Setenv(envConfigName, "config.dev")
		t.Setenv(envConfigDir, "/etc/summarizer")
		assert.Equal(t, FilePath("/etc/summarizer/config.dev.yaml"), resolveConfigPath(&viperOptions{}))

		t.Setenv(envConfigDir, "")
		assert.Equal(t, FilePath("configs/config.dev.yaml"), resolveConfigPath(&viperOptions{}))
	})

	t.Run("nothing set", func(t *testing.T) {
		t.Setenv(envConfigFile, "")
		t.Setenv(envConfigName, "")
		assert.Equal(t, FilePath(""), resolveConfigPath(&viperOptions{}))
	})
}

func TestNewViper_LocalOverlay(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("server:\n  port: 8080\napi:\n  tags: [demo]\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.local.yaml"), []byte("server:\n  port: 5001\n"), 0o644))

	v, err := newViper(FilePath(file), zap.NewNop())

	require.NoError(t, err)
	assert.Equal(t, 5001, v.GetInt("server.port"))
	assert.Equal(t, []string{"demo"}, v.GetStringSlice("api.tags"))
}

func TestUnmarshalKey(t *testing.T) {
	type section struct {
		Token   string `mapstructure:"token"`
		Channel string `mapstructure:"channel"`
	}

	t.Run("decodes section", func(t *testing.T) {
		v := viper.New()
		v.Set("slack", map[string]any{"token": "xoxb", "channel": "C01"})

		var got section
		require.NoError(t, UnmarshalKey(v, "slack", &got))
		assert.Equal(t, section{Token: "xoxb", Channel: "C01"}, got)
	})

	t.Run("missing section keeps target", func(t *testing.T) {
		got := section{Channel: "default"}
		require.NoError(t, UnmarshalKey(viper.New(), "slack", &got))
		assert.Equal(t, section{Channel: "default"}, got)
	})

	t.Run("unknown field", func(t *testing.T) {
		v := viper.New()
		v.Set("slack", map[string]any{"tokn": "xoxb"})

		var got section
		err := UnmarshalKey(v, "slack", &got)
		assert.ErrorContains(t, err, "failed to load slack config")
	})
}
