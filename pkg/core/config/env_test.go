package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnv(t *testing.T) {
	t.Run("returns raw string", func(t *testing.T) {
		t.Setenv("NO_DEFAULT_VALUE", "NO_DEFAULT_VALUE")

		v, err := Env[string]("NO_DEFAULT_VALUE")

		require.NoError(t, err)
		assert.Equal(t, "NO_DEFAULT_VALUE", v)
	})

	t.Run("missing variable", func(t *testing.T) {
		unsetEnv(t, "DEFAULT_VALUE")

		_, err := Env[string]("DEFAULT_VALUE")

		assert.ErrorIs(t, err, ErrMissingEnv)
		assert.Contains(t, err.Error(), "DEFAULT_VALUE")
	})

	t.Run("empty variable counts as missing", func(t *testing.T) {
		t.Setenv("EMPTY", "")

		_, err := Env[int]("EMPTY")

		assert.ErrorIs(t, err, ErrMissingEnv)
	})

	t.Run("converts numbers and durations", func(t *testing.T) {
		t.Setenv("GPU", "-1")
		t.Setenv("RATIO", "0.25")
		t.Setenv("POLL", "3s")

		gpu, err := Env[int]("GPU")
		require.NoError(t, err)
		ratio, err := Env[float64]("RATIO")
		require.NoError(t, err)
		poll, err := Env[time.Duration]("POLL")
		require.NoError(t, err)

		assert.Equal(t, -1, gpu)
		assert.Equal(t, 0.25, ratio)
		assert.Equal(t, 3*time.Second, poll)
	})

	t.Run("invalid value", func(t *testing.T) {
		t.Setenv("GPU", "first")

		_, err := Env[int]("GPU")

		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrMissingEnv)
		assert.Contains(t, err.Error(), `invalid value "first"`)
	})
}

func TestEnvOr(t *testing.T) {
	t.Run("uses default when unset", func(t *testing.T) {
		unsetEnv(t, "DEBUG", "GPU", "LIST")

		debug, err := EnvOr("DEBUG", false)
		require.NoError(t, err)
		gpu, err := EnvOr("GPU", -1)
		require.NoError(t, err)
		list, err := EnvOr("LIST", []string{"demo"})
		require.NoError(t, err)

		assert.False(t, debug)
		assert.Equal(t, -1, gpu)
		assert.Equal(t, []string{"demo"}, list)
	})

	t.Run("parses bool", func(t *testing.T) {
		t.Setenv("BOOL", "True")

		v, err := EnvOr("BOOL", false)

		require.NoError(t, err)
		assert.True(t, v)
	})

	t.Run("rejects malformed bool", func(t *testing.T) {
		t.Setenv("BOOL", "yes please")

		_, err := EnvOr("BOOL", false)

		assert.Error(t, err)
	})

	t.Run("splits lists", func(t *testing.T) {
		tests := []struct {
			raw      string
			expected []string
		}{
			{raw: "this, is , a, list", expected: []string{"this", "is", "a", "list"}},
			{raw: "this,,carlo", expected: []string{"this", "carlo"}},
		}
		for _, tt := range tests {
			t.Setenv("LIST", tt.raw)

			v, err := EnvOr("LIST", []string(nil))

			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)
		}
	})
}

func TestParseEnv(t *testing.T) {
	type modelConfig struct {
		ModelURL string   `env:"MODEL_URL,required"`
		GPU      int      `env:"GPU" envDefault:"-1"`
		Tags     []string `env:"TAGS" envSeparator:","`
	}

	t.Run("fills struct", func(t *testing.T) {
		t.Setenv("MODEL_URL", "https://example.org/model.tar.gz")
		t.Setenv("TAGS", "demo,service")
		unsetEnv(t, "GPU")

		var cfg modelConfig
		require.NoError(t, ParseEnv(&cfg))

		assert.Equal(t, "https://example.org/model.tar.gz", cfg.ModelURL)
		assert.Equal(t, -1, cfg.GPU)
		assert.Equal(t, []string{"demo", "service"}, cfg.Tags)
	})

	t.Run("missing required", func(t *testing.T) {
		unsetEnv(t, "MODEL_URL")

		var cfg modelConfig
		err := ParseEnv(&cfg)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "MODEL_URL")
	})
}
