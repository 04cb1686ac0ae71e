// Package instrumentation provides OpenTelemetry instrumentation for the
// Kollab backend.
//
// # Metrics
//
// Server/HTTP metrics:
//   - http_requests_total: counter of HTTP requests by method, route, status
//   - http_request_duration_seconds: histogram of request durations
//
// Cache metrics:
//   - cache_operations_total: counter of cache lookups by namespace and outcome
//   - cache_errors_total: counter of cache datastore failures by operation
//
// Rate limiter metrics:
//   - ratelimit_blocks_total: counter of blocked requests by bucket
//
// Session metrics:
//   - active_sessions: gauge of currently valid sessions
//
// # Cardinality
//
// Route labels always use the normalized route template (NormalizeRoute), so
// resource ids never reach the metrics backend. Principal identifiers are
// never used as labels.
//
// # Configuration
//
// Instrumentation is configured via environment variables:
//   - INSTRUMENTATION_ENABLED: enable/disable (default: false)
//   - METRICS_EXPORTER: prometheus or none (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces
//   - OTEL_TRACES_SAMPLER_ARG: sampling rate 0.0-1.0 (default: 0.1)
//   - OTEL_SERVICE_NAME: service name (default: kollab)
package instrumentation
