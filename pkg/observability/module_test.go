package observability

import (
	"testing"

	appconfig "github.com/mediatechnologycenter/api-commons/pkg/core/config"
	"github.com/mediatechnologycenter/api-commons/pkg/core/readiness"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func baseOptions() fx.Option {
	return fx.Options(
		fx.Supply(
			zap.NewNop(),
			viper.New(),
			appconfig.AppConfig{Environment: "test", ServiceName: "summarizer", ServiceVersion: "1.0.0"},
		),
		readiness.NewReadinessModule(),
	)
}

func TestNewObservabilityModule(t *testing.T) {
	t.Run("local tracing registers a ready component", func(t *testing.T) {
		var (
			tp      trace.TracerProvider
			tracker *readiness.Tracker
		)
		app := fxtest.New(t,
			baseOptions(),
			NewObservabilityModule(WithConfig(Config{Tracing: TracingConfig{Enabled: true}})),
			fx.Populate(&tp, &tracker),
		)
		app.RequireStart()
		defer app.RequireStop()

		assert.IsType(t, &sdktrace.TracerProvider{}, tp)
		assert.True(t, tracker.IsReady())
		require.Len(t, tracker.GetStatus().Components, 1)
		assert.Equal(t, TracingComponentName, tracker.GetStatus().Components[0].Name)
	})

	t.Run("disabled signals get noop providers", func(t *testing.T) {
		var tracker *readiness.Tracker
		app := fxtest.New(t,
			baseOptions(),
			NewObservabilityModule(WithoutTracing(), WithoutMetrics()),
			fx.Populate(&tracker),
		)
		app.RequireStart()
		defer app.RequireStop()

		assert.Empty(t, tracker.GetStatus().Components)
	})

	t.Run("metrics without collector fail", func(t *testing.T) {
		app := fx.New(
			baseOptions(),
			NewObservabilityModule(WithConfig(Config{Metrics: MetricsConfig{Enabled: true}})),
			fx.NopLogger,
		)

		assert.ErrorContains(t, app.Err(), "otel-collector-endpoint is required")
	})
}

func TestNewConfig(t *testing.T) {
	v := viper.New()
	v.Set("observability", map[string]any{
		"otel-collector-endpoint": "otel:4317",
		"tracing":                 map[string]any{"enabled": true},
	})

	cfg, err := newConfig(v, zap.NewNop())

	require.NoError(t, err)
	assert.Equal(t, "otel:4317", cfg.OtelCollectorEndpoint)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, DefaultMetricsInterval, cfg.Metrics.Interval)
}
