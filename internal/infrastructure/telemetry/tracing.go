package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the instrumentation scope of spans and meters created by this module
	TracerName = "github.com/catalogsite/backend"
)

// SpanOption is a function that configures span start options
type SpanOption func(*spanOptions)

type spanOptions struct {
	attributes []attribute.KeyValue
	kind       trace.SpanKind
}

// WithAttribute adds an attribute to the span
func WithAttribute(key string, value any) SpanOption {
	return func(opts *spanOptions) {
		opts.attributes = append(opts.attributes, toAttribute(key, value))
	}
}

// WithSpanKind sets the span kind
func WithSpanKind(kind trace.SpanKind) SpanOption {
	return func(opts *spanOptions) {
		opts.kind = kind
	}
}

// StartSpan starts a span on the global tracer provider.
// The caller ends the span.
//
//	ctx, span := telemetry.StartSpan(ctx, "sitedata.get_document")
//	defer span.End()
func StartSpan(ctx context.Context, spanName string, opts ...SpanOption) (context.Context, trace.Span) {
	options := &spanOptions{
		kind: trace.SpanKindInternal,
	}
	for _, opt := range opts {
		opt(options)
	}

	tracer := otel.GetTracerProvider().Tracer(TracerName)

	startOpts := []trace.SpanStartOption{
		trace.WithSpanKind(options.kind),
	}
	if len(options.attributes) > 0 {
		startOpts = append(startOpts, trace.WithAttributes(options.attributes...))
	}

	return tracer.Start(ctx, spanName, startOpts...)
}

// StartStoreSpan starts an internal span for a shard store operation, named sitedata.{op}
func StartStoreSpan(ctx context.Context, op string, opts ...SpanOption) (context.Context, trace.Span) {
	return StartSpan(ctx, "sitedata."+op, opts...)
}

// StartProviderSpan starts an internal span for a provider operation, named provider.{op}
func StartProviderSpan(ctx context.Context, op string, opts ...SpanOption) (context.Context, trace.Span) {
	return StartSpan(ctx, "provider."+op, opts...)
}

// StartRemoteSpan starts a client span around one call to the site data API.
// path is the request path below the API base URL.
func StartRemoteSpan(ctx context.Context, method, path string) (context.Context, trace.Span) {
	return StartSpan(ctx, "site-api "+method,
		WithSpanKind(trace.SpanKindClient),
		WithAttribute(SpanAttrRemoteMethod, method),
		WithAttribute(SpanAttrRemotePath, path),
	)
}

// TierFallback records that resource was served from tier because the tier above failed
func TierFallback(span trace.Span, resource, tier string, cause error) {
	keyValues := []any{SpanAttrResource, resource, SpanAttrTier, tier}
	if cause != nil {
		keyValues = append(keyValues, SpanAttrFallbackCause, cause.Error())
	}
	AddEvent(span, EventTierFallback, keyValues...)
}

// SetAttributes adds alternating key/value attributes to span
func SetAttributes(span trace.Span, keyValues ...any) {
	if span == nil {
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(keyValues)/2)
	for i := 0; i+1 < len(keyValues); i += 2 {
		key, ok := keyValues[i].(string)
		if !ok {
			continue
		}
		attrs = append(attrs, toAttribute(key, keyValues[i+1]))
	}

	span.SetAttributes(attrs...)
}

// RecordError records err on the span and marks it failed
func RecordError(span trace.Span, err error, opts ...trace.EventOption) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err, opts...)
	span.SetStatus(codes.Error, err.Error())
}

// AddEvent adds a time-stamped event with alternating key/value attributes
func AddEvent(span trace.Span, name string, keyValues ...any) {
	if span == nil {
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(keyValues)/2)
	for i := 0; i+1 < len(keyValues); i += 2 {
		key, ok := keyValues[i].(string)
		if !ok {
			continue
		}
		attrs = append(attrs, toAttribute(key, keyValues[i+1]))
	}

	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// GetTraceID returns the trace ID of the span in ctx, or ""
func GetTraceID(ctx context.Context) string {
	traceID := trace.SpanFromContext(ctx).SpanContext().TraceID()
	if !traceID.IsValid() {
		return ""
	}
	return traceID.String()
}

func toAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}

// Span attribute keys used by the site data services
const (
	SpanAttrSection       = "site.section"
	SpanAttrProductID     = "site.product_id"
	SpanAttrInquiryID     = "site.inquiry_id"
	SpanAttrShardCount    = "site.shard_count"
	SpanAttrResource      = "site.resource"
	SpanAttrTier          = "site.tier"
	SpanAttrDocumentTier  = "site.document_tier"
	SpanAttrInquiryTier   = "site.inquiries_tier"
	SpanAttrFallbackCause = "site.fallback_cause"
	SpanAttrRemoteMethod  = "site.remote.method"
	SpanAttrRemotePath    = "site.remote.path"
	SpanAttrRemoteStatus  = "site.remote.status"
	SpanAttrRemoteCode    = "site.remote.error_code"
)

// EventTierFallback marks a load that fell below the remote tier
const EventTierFallback = "site.tier_fallback"
