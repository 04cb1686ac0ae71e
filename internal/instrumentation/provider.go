package instrumentation

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// shutdownTimeout bounds provider teardown during server shutdown.
const shutdownTimeout = 5 * time.Second

// Provider owns the OpenTelemetry meter and tracer providers and the
// Prometheus registry backing the /metrics endpoint.
type Provider struct {
	config   Config
	metrics  *Metrics
	registry *prometheus.Registry

	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
}

// NewProvider initializes instrumentation per config. With Enabled false it
// returns a provider whose recorder is a no-op and whose handler serves an
// empty registry, so wiring code needs no branches.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	p := &Provider{
		config:   cfg,
		metrics:  &Metrics{},
		registry: prometheus.NewRegistry(),
	}
	if !cfg.Enabled {
		return p, nil
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	if cfg.MetricsExporter == "prometheus" {
		exporter, err := otelprom.New(otelprom.WithRegisterer(p.registry))
		if err != nil {
			return nil, fmt.Errorf("creating prometheus exporter: %w", err)
		}
		p.meterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(exporter),
			sdkmetric.WithResource(res),
		)
		otel.SetMeterProvider(p.meterProvider)

		metrics, err := NewMetrics(p.meterProvider.Meter(TracerName))
		if err != nil {
			return nil, err
		}
		p.metrics = metrics
	}

	exporter, err := newTraceExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if exporter != nil {
		p.tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.ParentBased(
				sdktrace.TraceIDRatioBased(cfg.TraceSamplingRate))),
		)
		otel.SetTracerProvider(p.tracerProvider)
	}

	return p, nil
}

// newTraceExporter builds the configured span exporter, or nil when tracing
// is off.
func newTraceExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.TracingExporter {
	case "otlp":
		opts := []otlptracehttp.Option{}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint))
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("creating otlp trace exporter: %w", err)
		}
		return exporter, nil
	case "stdout":
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("creating stdout trace exporter: %w", err)
		}
		return exporter, nil
	default:
		return nil, nil
	}
}

// Metrics returns the metrics recorder. Never nil.
func (p *Provider) Metrics() *Metrics {
	return p.metrics
}

// Handler returns the Prometheus scrape handler.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var firstErr error
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
