package common

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/gmailreader/internal/instrumentation"
	"github.com/teemow/gmailreader/internal/logging"
)

// ToolHandler is the signature of an MCP tool handler. It is an alias so
// handlers pass straight to server.AddTool.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// Instrumentation carries the optional observability sinks for tool calls.
// Any field may be nil.
type Instrumentation struct {
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
	Logger  *slog.Logger
}

// errToolResult marks a call whose result was flagged as an error.
var errToolResult = errors.New("tool returned an error result")

// InstrumentedToolHandler wraps a tool handler with a span, metrics and an
// audit event.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", inst, handler))
func InstrumentedToolHandler(toolName string, inst Instrumentation, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := instrumentation.StartToolSpan(ctx, toolName,
			instrumentation.Surface(instrumentation.SurfaceMCP))

		start := time.Now()
		event := instrumentation.NewAuditEvent(instrumentation.ActionTool).
			WithTarget(toolName).
			WithSurface(instrumentation.SurfaceMCP).
			WithSpanContext(ctx)

		result, err := handler(ctx, request)
		duration := time.Since(start)

		outcome := err
		if outcome == nil && result != nil && result.IsError {
			outcome = errToolResult
			if msg := ResultText(result); msg != "" {
				outcome = errors.New(msg)
			}
		}

		status := instrumentation.StatusSuccess
		if outcome != nil {
			status = instrumentation.StatusError
		}

		if inst.Logger != nil {
			logging.WithTool(inst.Logger, toolName).Debug("tool call completed",
				logging.Status(status), slog.Duration(logging.KeyDuration, duration))
		}
		inst.Metrics.RecordToolInvocation(ctx, toolName, status, duration)
		inst.Audit.Log(event.Complete(outcome))
		instrumentation.EndSpan(span, outcome)

		return result, err
	}
}

// ResultText returns the text of the first text content in a result.
func ResultText(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	for _, c := range result.Content {
		switch tc := c.(type) {
		case mcp.TextContent:
			return tc.Text
		case *mcp.TextContent:
			return tc.Text
		}
	}
	return ""
}
