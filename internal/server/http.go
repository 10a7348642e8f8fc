package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// HTTP server timeouts. The write timeout leaves room for a full listing
// of MaxListResults messages.
const (
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultWriteTimeout      = 60 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
)

// HTTPServer serves the session API, the bearer API and health endpoints.
type HTTPServer struct {
	sc         *ServerContext
	health     *HealthChecker
	httpServer *http.Server
	baseURL    string
}

// NewHTTPServer creates the web server. baseURL is the public origin; it
// must be HTTPS unless it is a loopback address.
func NewHTTPServer(sc *ServerContext, baseURL string) (*HTTPServer, error) {
	if sc == nil {
		return nil, fmt.Errorf("server context is required")
	}
	if err := validateHTTPSRequirement(baseURL); err != nil {
		return nil, err
	}

	return &HTTPServer{
		sc:      sc,
		health:  NewHealthChecker(sc),
		baseURL: baseURL,
	}, nil
}

// Handler returns the routed and instrumented handler.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	api := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.sc.limiter.Middleware(h))
	}

	api("GET /api/auth/url", s.handleAuthURL)
	api("GET /api/auth/callback", s.handleCallback)
	api("GET /api/auth/status", s.handleStatus)
	api("GET /api/auth/export", s.handleExport)
	api("POST /api/auth/logout", s.handleLogout)

	api("GET /api/gmail/messages", s.handleSessionList)
	api("GET /api/gmail/messages/{id}", s.handleSessionGet)

	api("GET /api/v1/messages", s.handleBearerList)
	api("GET /api/v1/messages/{id}", s.handleBearerGet)

	s.health.RegisterHealthEndpoints(mux)

	return securityHeadersMiddleware(instrumentationMiddleware(mux, s.sc.metrics, s.sc.logger))
}

// Start listens on addr and serves until Shutdown.
func (s *HTTPServer) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener.
func (s *HTTPServer) Serve(ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return s.sc.Context() },
	}

	s.sc.logger.Info("starting HTTP server", "addr", ln.Addr().String(), "base_url", s.baseURL)
	return s.httpServer.Serve(ln)
}

// Shutdown marks the server not ready and drains in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// validateHTTPSRequirement ensures the public origin uses HTTPS.
// Allows HTTP only for loopback addresses (localhost, 127.0.0.1, ::1),
// which Google also accepts as redirect URIs.
func validateHTTPSRequirement(baseURL string) error {
	if baseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	if u.Scheme == "http" {
		host := u.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			return fmt.Errorf("OAuth redirects require HTTPS (got: %s). Use HTTPS or localhost for development", baseURL)
		}
	} else if u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s. Must be http (localhost only) or https", u.Scheme)
	}

	return nil
}
