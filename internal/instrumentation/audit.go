package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"github.com/teemow/gmailreader/internal/logging"
)

// Audited actions.
const (
	ActionLogin  = "login"
	ActionLogout = "logout"
	ActionExport = "token_export"
	ActionTool   = "tool_call"
)

// AuditEvent records a security-relevant action: a login, logout, token
// export or MCP tool call.
//
// UserEmail is PII. It is hashed in logs unless the logger is configured to
// include PII.
type AuditEvent struct {
	Action    string
	Target    string // tool name for tool calls
	UserEmail string
	Surface   string
	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string
	TraceID   string
}

// NewAuditEvent starts timing an event.
func NewAuditEvent(action string) *AuditEvent {
	return &AuditEvent{
		Action:    action,
		StartTime: time.Now(),
	}
}

// WithUser sets the user identity.
func (e *AuditEvent) WithUser(email string) *AuditEvent {
	e.UserEmail = email
	return e
}

// WithTarget sets the action target, such as a tool name.
func (e *AuditEvent) WithTarget(target string) *AuditEvent {
	e.Target = target
	return e
}

// WithSurface sets the surface the request came through.
func (e *AuditEvent) WithSurface(surface string) *AuditEvent {
	e.Surface = surface
	return e
}

// WithSpanContext copies the trace ID from ctx.
func (e *AuditEvent) WithSpanContext(ctx context.Context) *AuditEvent {
	e.TraceID = GetTraceID(ctx)
	return e
}

// Complete marks the event finished and records its outcome.
func (e *AuditEvent) Complete(err error) *AuditEvent {
	e.Duration = time.Since(e.StartTime)
	e.Success = err == nil
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// Status returns "success" or "error".
func (e *AuditEvent) Status() string {
	if e.Success {
		return StatusSuccess
	}
	return StatusError
}

func (e *AuditEvent) attrs(includePII bool) []any {
	args := []any{
		slog.String("action", e.Action),
		slog.Bool("success", e.Success),
		slog.Duration("duration", e.Duration),
	}

	if e.UserEmail != "" {
		if includePII {
			args = append(args, slog.String("user", e.UserEmail))
		} else {
			args = append(args, logging.UserHash(e.UserEmail), logging.Domain(e.UserEmail))
		}
	}
	if e.Target != "" {
		args = append(args, slog.String("target", e.Target))
	}
	if e.Surface != "" {
		args = append(args, slog.String("surface", e.Surface))
	}
	if e.TraceID != "" {
		args = append(args, slog.String("trace_id", e.TraceID))
	}
	if e.Error != "" {
		args = append(args, slog.String("error", e.Error))
	}
	return args
}

// AuditLogger writes audit events as structured log records.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates an enabled AuditLogger that hashes user emails.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

// NewAuditLoggerWithConfig creates an AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger.With(slog.String("component", "audit")),
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// Log writes the event. Failed events are logged at warn level.
func (al *AuditLogger) Log(e *AuditEvent) {
	if al == nil || !al.enabled || e == nil {
		return
	}

	if e.Success {
		al.logger.Info("audit_event", e.attrs(al.includePII)...)
	} else {
		al.logger.Warn("audit_event", e.attrs(al.includePII)...)
	}
}
