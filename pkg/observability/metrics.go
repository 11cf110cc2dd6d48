package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	appconfig "github.com/mediatechnologycenter/api-commons/pkg/core/config"
	"github.com/mediatechnologycenter/api-commons/pkg/core/readiness"
	"github.com/mediatechnologycenter/api-commons/pkg/http/gate"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

const (
	metricRequestCount    = "http.server.request.count"
	metricRequestDuration = "http.server.request.duration"
	metricReadiness       = "service.readiness"
)

var errNoCollector = errors.New("metrics: otel-collector-endpoint is required")

func newMeterProvider(ctx context.Context, log *zap.Logger, endpoint string, interval time.Duration, appCfg appconfig.AppConfig) (*sdkmetric.MeterProvider, error) {
	if endpoint == "" {
		return nil, errNoCollector
	}

	res, err := newResource(ctx, appCfg)
	if err != nil {
		return nil, err
	}

	exp, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	log.Debug("metrics exporter created", zap.String("endpoint", endpoint))
	reader := sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval))
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	), nil
}

type httpMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func newHTTPMetrics(mp metric.MeterProvider) (*httpMetrics, error) {
	meter := mp.Meter(instrumentationName)

	requests, err := meter.Int64Counter(metricRequestCount,
		metric.WithDescription("Number of handled requests, including requests rejected while not ready."),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(metricRequestDuration,
		metric.WithDescription("Duration of handled requests."),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &httpMetrics{requests: requests, duration: duration}, nil
}

func metricsMiddleware(m *httpMetrics, skip gate.ExemptRoutes) gin.HandlerFunc {
	return func(c *gin.Context) {
		if skip.Matches(c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		attrs := metric.WithAttributes(
			semconv.HTTPRequestMethodKey.String(c.Request.Method),
			semconv.HTTPRouteKey.String(route(c)),
			semconv.HTTPResponseStatusCodeKey.Int(c.Writer.Status()),
		)
		ctx := context.WithoutCancel(c.Request.Context())
		m.requests.Add(ctx, 1, attrs)
		m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
}

// registerReadinessGauge reports 1 while the service is ready and 0
// otherwise, once without attributes for the service and once per tracked
// component.
func registerReadinessGauge(mp metric.MeterProvider, tracker *readiness.Tracker) error {
	meter := mp.Meter(instrumentationName)

	_, err := meter.Int64ObservableGauge(metricReadiness,
		metric.WithDescription("1 when the service, or the component named by the component attribute, is ready."),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			status := tracker.GetStatus()
			o.Observe(gaugeValue(status.Ready))
			for _, comp := range status.Components {
				o.Observe(gaugeValue(comp.Ready), metric.WithAttributes(attribute.String("component", comp.Name)))
			}
			return nil
		}),
	)
	return err
}

func gaugeValue(ready bool) int64 {
	if ready {
		return 1
	}
	return 0
}
