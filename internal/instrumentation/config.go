package instrumentation

import (
	"os"
	"strconv"
)

// Config holds the configuration for OpenTelemetry instrumentation.
type Config struct {
	// ServiceName is the name of the service (default: kollab).
	ServiceName string

	// ServiceVersion is the version of the service.
	ServiceVersion string

	// Enabled determines if instrumentation is active (default: false for
	// zero overhead).
	Enabled bool

	// MetricsExporter specifies the metrics exporter type.
	// Options: "prometheus", "none" (default: "prometheus").
	MetricsExporter string

	// TracingExporter specifies the tracing exporter type.
	// Options: "otlp", "stdout", "none" (default: "none").
	TracingExporter string

	// OTLPEndpoint is the OTLP collector endpoint,
	// e.g. "http://localhost:4318".
	OTLPEndpoint string

	// OTLPInsecure controls whether to use unencrypted HTTP for OTLP export.
	// Traces carry request metadata; keep TLS on outside local development.
	OTLPInsecure bool

	// TraceSamplingRate is the sampling rate for traces (0.0 to 1.0,
	// default: 0.1).
	TraceSamplingRate float64

	// PrometheusEndpoint is the path for the Prometheus metrics endpoint
	// (default: "/metrics").
	PrometheusEndpoint string
}

// DefaultConfig returns a Config with defaults taken from the environment.
func DefaultConfig() Config {
	return Config{
		ServiceName:        getEnvOrDefault("OTEL_SERVICE_NAME", "kollab"),
		ServiceVersion:     "unknown",
		Enabled:            getEnvBoolOrDefault("INSTRUMENTATION_ENABLED", false),
		MetricsExporter:    getEnvOrDefault("METRICS_EXPORTER", "prometheus"),
		TracingExporter:    getEnvOrDefault("TRACING_EXPORTER", "none"),
		OTLPEndpoint:       getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:       getEnvBoolOrDefault("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplingRate:  getEnvFloatOrDefault("OTEL_TRACES_SAMPLER_ARG", 0.1),
		PrometheusEndpoint: getEnvOrDefault("PROMETHEUS_ENDPOINT", "/metrics"),
	}
}

// getEnvOrDefault returns the value of an environment variable or a default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBoolOrDefault returns the boolean value of an environment variable or a default value.
func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

// getEnvFloatOrDefault returns the float64 value of an environment variable or a default value.
func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}
