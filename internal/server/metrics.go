package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teemow/gmailreader/internal/instrumentation"
)

// Timeouts of the metrics listener and of graceful shutdown.
const (
	DefaultMetricsAddr     = ":9090"
	metricsReadTimeout     = 10 * time.Second
	metricsWriteTimeout    = 10 * time.Second
	metricsIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)

// MetricsServerConfig configures the Prometheus listener.
type MetricsServerConfig struct {
	// Addr defaults to DefaultMetricsAddr.
	Addr string

	// Provider must be enabled and export through Prometheus.
	Provider *instrumentation.Provider

	Logger *slog.Logger
}

// MetricsServer serves /metrics on its own port so scraping never competes
// with the mailbox routes.
type MetricsServer struct {
	mu     sync.Mutex
	srv    *http.Server
	addr   string
	logger *slog.Logger
}

// NewMetricsServer validates cfg. Nothing listens until Start.
func NewMetricsServer(cfg MetricsServerConfig) (*MetricsServer, error) {
	switch {
	case cfg.Provider == nil:
		return nil, errors.New("instrumentation provider is required for metrics server")
	case !cfg.Provider.Enabled():
		return nil, errors.New("instrumentation provider is not enabled")
	case !cfg.Provider.PrometheusEnabled():
		return nil, errors.New("metrics server requires the prometheus exporter")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultMetricsAddr
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &MetricsServer{addr: cfg.Addr, logger: cfg.Logger}, nil
}

func (s *MetricsServer) handler() http.Handler {
	mux := http.NewServeMux()
	// The OTel exporter registers with the default Prometheus registry.
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Start serves metrics and blocks until Shutdown.
func (s *MetricsServer) Start() error {
	return s.StartWithReadySignal(nil)
}

// StartWithReadySignal is Start, closing ready once the listener is bound.
// Addr reports the bound address afterwards, which matters for ":0".
func (s *MetricsServer) StartWithReadySignal(ready chan<- struct{}) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Addr(), err)
	}

	srv := &http.Server{
		Handler:           s.handler(),
		ReadHeaderTimeout: metricsReadTimeout,
		WriteTimeout:      metricsWriteTimeout,
		IdleTimeout:       metricsIdleTimeout,
	}

	s.mu.Lock()
	s.srv = srv
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	s.logger.Info("starting metrics server", "addr", ln.Addr().String())
	if ready != nil {
		close(ready)
	}
	return srv.Serve(ln)
}

// Shutdown stops a started server; it is a no-op otherwise.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	s.logger.Info("shutting down metrics server")
	return srv.Shutdown(ctx)
}

// Addr returns the configured address, or the bound one once started.
func (s *MetricsServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}
