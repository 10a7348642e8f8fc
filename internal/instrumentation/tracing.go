package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the tracer name used for all gmailreader spans.
const TracerName = "github.com/teemow/gmailreader"

// Span attribute keys.
const (
	// SpanAttrTool is the MCP tool name attribute.
	SpanAttrTool = "mcp.tool"

	// SpanAttrService is the Google service name attribute.
	SpanAttrService = "google.service"

	// SpanAttrOperation is the operation type attribute.
	SpanAttrOperation = "google.operation"

	// SpanAttrMessageID is the Gmail message identifier.
	SpanAttrMessageID = "gmail.message_id"

	// SpanAttrMessageCount is the number of messages in a listing.
	SpanAttrMessageCount = "gmail.message_count"

	// SpanAttrPartial marks a listing that reports failures per message.
	SpanAttrPartial = "gmail.partial"

	// SpanAttrFailedCount is the number of messages a partial listing could not fetch.
	SpanAttrFailedCount = "gmail.failed_count"

	// SpanAttrSurface is the API surface that served the request (session, bearer, mcp, cli).
	SpanAttrSurface = "app.surface"
)

// MessageID returns the span attribute for a Gmail message ID.
func MessageID(id string) attribute.KeyValue {
	return attribute.String(SpanAttrMessageID, id)
}

// MessageCount returns the span attribute for a listing size.
func MessageCount(n int) attribute.KeyValue {
	return attribute.Int(SpanAttrMessageCount, n)
}

// Partial returns the partial-listing attribute.
func Partial(partial bool) attribute.KeyValue {
	return attribute.Bool(SpanAttrPartial, partial)
}

// FailedCount returns the failed-fetch count attribute.
func FailedCount(n int) attribute.KeyValue {
	return attribute.Int(SpanAttrFailedCount, n)
}

// Surface returns the surface attribute.
func Surface(surface string) attribute.KeyValue {
	return attribute.String(SpanAttrSurface, surface)
}

// StartToolSpan starts a server span for an MCP tool invocation.
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{attribute.String(SpanAttrTool, toolName)}, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "tool."+toolName,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartGoogleAPISpan starts a client span named google.<service>.<operation>.
func StartGoogleAPISpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+2)
	allAttrs = append(allAttrs,
		attribute.String(SpanAttrService, service),
		attribute.String(SpanAttrOperation, operation),
	)
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "google."+service+"."+operation,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndSpan sets the span status from err and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		SetSpanError(span, err)
	} else {
		SetSpanSuccess(span)
	}
	span.End()
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

// GetTraceID returns the trace ID of the span in ctx, or "".
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
