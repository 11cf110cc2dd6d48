// Package observability provides OpenTelemetry tracing and metrics for the
// gin engine of the http module.
//
// Usage:
//
//	// Tracing and metrics as configured under the observability key
//	observability.NewObservabilityModule()
//
//	// Disable observability for tests
//	observability.NewObservabilityModule(
//	    observability.WithoutTracing(),
//	    observability.WithoutMetrics(),
//	)
package observability

import (
	"context"

	appconfig "github.com/mediatechnologycenter/api-commons/pkg/core/config"
	"github.com/mediatechnologycenter/api-commons/pkg/core/readiness"
	"github.com/mediatechnologycenter/api-commons/pkg/http/gate"
	"github.com/mediatechnologycenter/api-commons/pkg/http/middleware"
	"github.com/spf13/viper"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type observabilityOptions struct {
	config         *Config
	disableTracing bool
	disableMetrics bool
}

// Option is a functional option for configuring the observability module.
type Option func(*observabilityOptions)

// WithConfig provides a static Config (useful for tests).
// When set, the configuration will not be loaded from viper.
func WithConfig(cfg Config) Option {
	return func(opts *observabilityOptions) {
		opts.config = &cfg
	}
}

// WithoutTracing disables tracing regardless of configuration.
func WithoutTracing() Option {
	return func(opts *observabilityOptions) {
		opts.disableTracing = true
	}
}

// WithoutMetrics disables metrics regardless of configuration.
func WithoutMetrics() Option {
	return func(opts *observabilityOptions) {
		opts.disableMetrics = true
	}
}

// NewObservabilityModule provides a trace.TracerProvider and a
// metric.MeterProvider, puts the tracing and metrics middlewares into the
// gin chain and reports service readiness as a gauge. Disabled signals get
// noop providers.
func NewObservabilityModule(opts ...Option) fx.Option {
	o := &observabilityOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return fx.Module("observability",
		configProvider(o),
		fx.Provide(
			provideTracerProvider,
			provideMeterProvider,
			fx.Annotate(provideTracingMiddleware, fx.ResultTags(`group:"gin_mw,flatten"`)),
			fx.Annotate(provideMetricsMiddleware, fx.ResultTags(`group:"gin_mw"`)),
		),
		fx.Invoke(registerReadinessGauge),
	)
}

func configProvider(o *observabilityOptions) fx.Option {
	disable := func(cfg Config) Config {
		if o.disableTracing {
			cfg.Tracing.Enabled = false
		}
		if o.disableMetrics {
			cfg.Metrics.Enabled = false
		}
		return cfg
	}

	if o.config != nil {
		cfg := *o.config
		cfg.applyDefaults()
		return fx.Supply(disable(cfg))
	}
	return fx.Provide(func(v *viper.Viper, log *zap.Logger) (Config, error) {
		cfg, err := newConfig(v, log)
		return disable(cfg), err
	})
}

type providerParams struct {
	fx.In

	Lc      fx.Lifecycle
	Log     *zap.Logger
	Cfg     Config
	AppCfg  appconfig.AppConfig
	Tracker *readiness.Tracker
}

func provideTracerProvider(p providerParams) (trace.TracerProvider, error) {
	if !p.Cfg.Tracing.Enabled {
		p.Log.Info("tracing: disabled")
		return tracenoop.NewTracerProvider(), nil
	}

	tp, err := newTracerProvider(context.Background(), p.Log, p.Cfg.OtelCollectorEndpoint, p.AppCfg)
	if err != nil {
		return nil, err
	}
	markReady := p.Tracker.AddComponent(TracingComponentName)

	p.Lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			otel.SetTracerProvider(tp)
			otel.SetTextMapPropagator(newPropagator())
			p.Log.Info("tracing initialized", zap.String("endpoint", p.Cfg.OtelCollectorEndpoint))
			markReady()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, DefaultShutdownTimeout)
			defer cancel()
			return tp.Shutdown(shutdownCtx)
		},
	})
	return tp, nil
}

func provideMeterProvider(p providerParams) (metric.MeterProvider, error) {
	if !p.Cfg.Metrics.Enabled {
		p.Log.Info("metrics: disabled")
		return metricnoop.NewMeterProvider(), nil
	}

	mp, err := newMeterProvider(context.Background(), p.Log, p.Cfg.OtelCollectorEndpoint, p.Cfg.Metrics.Interval, p.AppCfg)
	if err != nil {
		return nil, err
	}
	markReady := p.Tracker.AddComponent(MetricsComponentName)

	p.Lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			otel.SetMeterProvider(mp)
			if err := otelruntime.Start(
				otelruntime.WithMeterProvider(mp),
				otelruntime.WithMinimumReadMemStatsInterval(DefaultRuntimeStatsInterval),
			); err != nil {
				p.Log.Warn("failed to start runtime metrics", zap.Error(err))
			}
			p.Log.Info("metrics initialized",
				zap.String("endpoint", p.Cfg.OtelCollectorEndpoint),
				zap.Duration("interval", p.Cfg.Metrics.Interval))
			markReady()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, DefaultShutdownTimeout)
			defer cancel()
			return mp.Shutdown(shutdownCtx)
		},
	})
	return mp, nil
}

type middlewareIn struct {
	fx.In

	Cfg    Config
	AppCfg appconfig.AppConfig
	TP     trace.TracerProvider
	MP     metric.MeterProvider
	Exempt gate.ExemptRoutes `optional:"true"`
}

func provideTracingMiddleware(in middlewareIn) []middleware.Middleware {
	if !in.Cfg.Tracing.Enabled {
		return nil
	}
	return []middleware.Middleware{
		{
			Priority: middleware.PriorityTracing,
			Handler:  tracingMiddleware(in.AppCfg.ServiceName, in.TP, newPropagator(), in.Exempt),
		},
		{Priority: middleware.PriorityTraceFields, Handler: traceFieldsMiddleware()},
	}
}

func provideMetricsMiddleware(in middlewareIn) (middleware.Middleware, error) {
	if !in.Cfg.Metrics.Enabled {
		return middleware.Middleware{}, nil
	}
	m, err := newHTTPMetrics(in.MP)
	if err != nil {
		return middleware.Middleware{}, err
	}
	return middleware.Middleware{
		Priority: middleware.PriorityMetrics,
		Handler:  metricsMiddleware(m, in.Exempt),
	}, nil
}
