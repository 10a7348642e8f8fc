// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for gmailreader.
//
// # Metrics
//
// HTTP:
//   - http_requests_total: requests by method, route and status
//   - http_request_duration_seconds: request latency
//   - active_sessions: server-side sessions currently held
//
// Gmail API:
//   - google_api_operations_total: API calls by service, operation and status
//   - google_api_operation_duration_seconds: API call latency
//
// Authentication:
//   - oauth_auth_total: login attempts by result
//
// Message bodies:
//   - gmail_body_decode_total: decoded messages by which bodies were found
//
// MCP tools:
//   - mcp_tool_invocations_total and mcp_tool_duration_seconds
//
// # Tracing
//
// Spans are created for Gmail API calls (google.gmail.<operation>) and MCP
// tool calls (tool.<name>).
//
// # Configuration
//
// DefaultConfig reads:
//   - INSTRUMENTATION_ENABLED (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE
//   - OTEL_TRACES_SAMPLER_ARG (default: 0.1)
//   - OTEL_SERVICE_NAME (default: gmailreader)
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_PII
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordGoogleAPIOperation(ctx, instrumentation.ServiceGmail,
//		instrumentation.OperationList, instrumentation.StatusSuccess, "", time.Since(start))
package instrumentation
