package common

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/teemow/gmailreader/internal/instrumentation"
)

func newInstrumentation(t *testing.T, buf *bytes.Buffer) Instrumentation {
	t.Helper()
	metrics, err := instrumentation.NewMetrics(noop.NewMeterProvider().Meter("test"), false)
	require.NoError(t, err)
	logger := slog.New(slog.NewJSONHandler(buf, nil))
	return Instrumentation{
		Metrics: metrics,
		Audit:   instrumentation.NewAuditLogger(logger),
	}
}

func TestInstrumentedToolHandler_Success(t *testing.T) {
	var buf bytes.Buffer
	called := false
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		called = true
		return mcp.NewToolResultText("ok"), nil
	}

	wrapped := InstrumentedToolHandler("test_tool", newInstrumentation(t, &buf), handler)
	result, err := wrapped(context.Background(), mcp.CallToolRequest{})

	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "ok", ResultText(result))
	assert.Contains(t, buf.String(), `"target":"test_tool"`)
	assert.Contains(t, buf.String(), `"level":"INFO"`)
}

func TestInstrumentedToolHandler_ErrorResult(t *testing.T) {
	var buf bytes.Buffer
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("message not found"), nil
	}

	wrapped := InstrumentedToolHandler("test_tool", newInstrumentation(t, &buf), handler)
	result, err := wrapped(context.Background(), mcp.CallToolRequest{})

	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), "message not found")
}

func TestInstrumentedToolHandler_Error(t *testing.T) {
	var buf bytes.Buffer
	expected := errors.New("test error")
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, expected
	}

	wrapped := InstrumentedToolHandler("test_tool", newInstrumentation(t, &buf), handler)
	_, err := wrapped(context.Background(), mcp.CallToolRequest{})

	assert.ErrorIs(t, err, expected)
	assert.Contains(t, buf.String(), "test error")
}

func TestInstrumentedToolHandler_NoInstrumentation(t *testing.T) {
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("ok"), nil
	}

	wrapped := InstrumentedToolHandler("test_tool", Instrumentation{}, handler)
	result, err := wrapped(context.Background(), mcp.CallToolRequest{})

	require.NoError(t, err)
	assert.Equal(t, "ok", ResultText(result))
}

func TestResultText(t *testing.T) {
	assert.Empty(t, ResultText(nil))
	assert.Empty(t, ResultText(&mcp.CallToolResult{}))
	assert.Equal(t, "hi", ResultText(mcp.NewToolResultText("hi")))
}

func TestInstrumentedToolHandler_RegistersWithServer(t *testing.T) {
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("ok"), nil
	}

	var fn mcpserver.ToolHandlerFunc = InstrumentedToolHandler("test_tool", Instrumentation{}, handler)

	s := mcpserver.NewMCPServer("test", "1.0.0", mcpserver.WithToolCapabilities(true))
	s.AddTool(mcp.NewTool("test_tool"), fn)
	assert.Contains(t, s.ListTools(), "test_tool")
}

func TestInstrumentedToolHandler_Logger(t *testing.T) {
	var buf bytes.Buffer
	inst := Instrumentation{
		Logger: slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("ok"), nil
	}

	_, err := InstrumentedToolHandler("test_tool", inst, handler)(context.Background(), mcp.CallToolRequest{})

	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"tool":"test_tool"`)
	assert.Contains(t, buf.String(), `"status":"success"`)
}
