package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/gmailreader/internal/gmail"
	"github.com/teemow/gmailreader/internal/google"
	"github.com/teemow/gmailreader/internal/instrumentation"
	"github.com/teemow/gmailreader/internal/session"
)

// stateTTL bounds how long a login may take between /api/auth/url and the callback.
const stateTTL = 10 * time.Minute

// Options configures a ServerContext.
type Options struct {
	OAuth      *google.Manager
	Mailbox    *gmail.Mailbox
	Store      session.Store
	SessionTTL time.Duration

	// RateLimiter throttles the /api routes per client. Optional.
	RateLimiter *RateLimiter

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
}

// ServerContext holds the dependencies shared by all HTTP handlers.
// It carries no per-user state: every request brings its own credential.
type ServerContext struct {
	ctx        context.Context
	cancel     context.CancelFunc
	oauth      *google.Manager
	mailbox    *gmail.Mailbox
	store      session.Store
	sessionTTL time.Duration
	limiter    *RateLimiter
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
	audit      *instrumentation.AuditLogger
	mu         sync.RWMutex
	shutdown   bool
}

// NewServerContext creates a new server context
func NewServerContext(ctx context.Context, opts Options) (*ServerContext, error) {
	if opts.OAuth == nil {
		return nil, fmt.Errorf("OAuth manager is required")
	}
	if opts.Mailbox == nil {
		return nil, fmt.Errorf("mailbox is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = session.DefaultTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	shutdownCtx, cancel := context.WithCancel(ctx)

	return &ServerContext{
		ctx:        shutdownCtx,
		cancel:     cancel,
		oauth:      opts.OAuth,
		mailbox:    opts.Mailbox,
		store:      opts.Store,
		sessionTTL: opts.SessionTTL,
		limiter:    opts.RateLimiter,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		audit:      opts.Audit,
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Metrics returns the metrics recorder, which may be nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}

// logAudit completes and logs an audit event.
func (sc *ServerContext) logAudit(event *instrumentation.AuditEvent, err error) {
	sc.audit.Log(event.Complete(err))
}
