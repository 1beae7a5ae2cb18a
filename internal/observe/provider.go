package observe

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

// serviceName identifies this process in exported telemetry.
const serviceName = "scrivano"

// Telemetry owns the process-wide OpenTelemetry providers and the private
// Prometheus registry their metrics export into. Construct one per process
// with [Setup], mount [Telemetry.MetricsHandler] on the metrics mux, and
// call Shutdown from a defer in main.
type Telemetry struct {
	meter    *sdkmetric.MeterProvider
	traces   *sdktrace.TracerProvider
	registry *prometheus.Registry
}

// SetupOption customises [Setup].
type SetupOption func(*setupConfig)

type setupConfig struct {
	version  string
	exporter sdktrace.SpanExporter
}

// WithServiceVersion reports the given version in the telemetry resource.
func WithServiceVersion(v string) SetupOption {
	return func(c *setupConfig) { c.version = v }
}

// WithTraceExporter exports spans through exp. Without it spans are
// recorded but never leave the process, which is all a local session tool
// normally needs.
func WithTraceExporter(exp sdktrace.SpanExporter) SetupOption {
	return func(c *setupConfig) { c.exporter = exp }
}

// Setup initialises the OpenTelemetry SDK and registers its providers as
// the global ones, so [DefaultMetrics] and instrumented libraries pick
// them up. Metrics flow through a registry private to the returned
// Telemetry rather than the Prometheus default registry; scraping goes
// through MetricsHandler.
func Setup(ctx context.Context, opts ...SetupOption) (*Telemetry, error) {
	var sc setupConfig
	for _, opt := range opts {
		opt(&sc)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(sc.version),
		),
	)
	if err != nil {
		return nil, err
	}

	t := &Telemetry{registry: prometheus.NewRegistry()}

	exp, err := promexporter.New(promexporter.WithRegisterer(t.registry))
	if err != nil {
		return nil, err
	}
	t.meter = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exp),
	)
	otel.SetMeterProvider(t.meter)

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if sc.exporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(sc.exporter))
	}
	t.traces = sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(t.traces)

	return t, nil
}

// MetricsHandler returns the scrape endpoint for this process's metrics.
func (t *Telemetry) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and closes both providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return errors.Join(t.meter.Shutdown(ctx), t.traces.Shutdown(ctx))
}
