package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the default tracer name for the kollab backend.
const TracerName = "github.com/kollabhq/kollab"

// Span attribute keys.
const (
	// SpanAttrWorkspace is the workspace id attribute.
	SpanAttrWorkspace = "kollab.workspace_id"

	// SpanAttrUserDomain is the principal's email domain (lower cardinality
	// than the full address).
	SpanAttrUserDomain = "kollab.user.domain"

	// SpanAttrRoute is the normalized route template.
	SpanAttrRoute = "kollab.route"

	// SpanAttrOperation is the operation type (resolve, list, create, ...).
	SpanAttrOperation = "kollab.operation"

	// SpanAttrCacheHit indicates whether a cache hit occurred.
	SpanAttrCacheHit = "kollab.cache_hit"

	// SpanAttrCacheNamespace is the cache key namespace.
	SpanAttrCacheNamespace = "kollab.cache_namespace"
)

// SpanAttributeBuilder helps construct span attributes with consistent
// naming and cardinality controls.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewSpanAttributeBuilder creates a new SpanAttributeBuilder.
func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{
		attrs: make([]attribute.KeyValue, 0, 8),
	}
}

// WithWorkspace adds the workspace id attribute.
func (b *SpanAttributeBuilder) WithWorkspace(workspaceID string) *SpanAttributeBuilder {
	if workspaceID != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrWorkspace, workspaceID))
	}
	return b
}

// WithUser adds the principal's email domain. The full address never becomes
// a span attribute.
func (b *SpanAttributeBuilder) WithUser(email string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.String(SpanAttrUserDomain, ExtractUserDomain(email)))
	return b
}

// WithRoute adds the normalized route attribute.
func (b *SpanAttributeBuilder) WithRoute(route string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.String(SpanAttrRoute, route))
	return b
}

// WithOperation adds the operation type attribute.
func (b *SpanAttributeBuilder) WithOperation(operation string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.String(SpanAttrOperation, operation))
	return b
}

// WithCacheHit adds the cache hit indicator attribute.
func (b *SpanAttributeBuilder) WithCacheHit(hit bool) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.Bool(SpanAttrCacheHit, hit))
	return b
}

// WithCacheNamespace adds the cache key namespace attribute.
func (b *SpanAttributeBuilder) WithCacheNamespace(namespace string) *SpanAttributeBuilder {
	if namespace != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrCacheNamespace, namespace))
	}
	return b
}

// Build returns the constructed attributes.
func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

// StartSpan starts a new span with the given name and attributes. The caller
// is responsible for ending the span with defer span.End().
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// GetTraceID returns the trace ID from the current span in context. Returns
// empty string if no valid span is present.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
