package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/gmailreader/internal/config"
	"github.com/teemow/gmailreader/internal/instrumentation"
	"github.com/teemow/gmailreader/internal/server"
	"github.com/teemow/gmailreader/internal/session"
)

// metricsStartTimeout bounds how long serve waits for the metrics listener.
const metricsStartTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web application",
		Long: `Start the web application.

The server signs users in with Google, keeps their credential in a session
cookie (or in memory) and serves their recent messages as JSON. The same
messages are available to API clients that send a Google access token as
"Authorization: Bearer <token>".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServe(cfg, slog.Default())
		},
	}

	flags := cmd.Flags()
	flags.String("addr", config.DefaultHTTPAddr, "HTTP listen address. Can also use HTTP_ADDR env var.")
	flags.String("base-url", config.DefaultBaseURL, "Public base URL of the application. Can also use APP_BASE_URL env var.")
	flags.String("session-store", config.StoreCookie, "Session store: cookie or memory. Can also use SESSION_STORE env var.")
	flags.Bool("cookie-secure", false, "Mark session cookies HTTPS-only (default: on for an https base URL). Can also use COOKIE_SECURE env var.")
	flags.Duration("session-ttl", session.DefaultTTL, "Session lifetime. Can also use SESSION_TTL env var.")
	flags.Bool("metrics-enabled", false, "Serve Prometheus metrics on a dedicated port. Can also use METRICS_ENABLED env var.")
	flags.String("metrics-addr", config.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")
	flags.Float64("rate-limit", config.DefaultRateLimit, "Requests per second per client on /api routes, 0 disables. Can also use RATE_LIMIT_RPS env var.")
	flags.Int("rate-burst", config.DefaultRateBurst, "Burst size for the rate limit. Can also use RATE_LIMIT_BURST env var.")
	flags.Bool("trust-proxy", false, "Trust X-Forwarded-For and X-Real-IP for client addresses. Can also use TRUST_PROXY env var.")

	bindFlags(cmd, map[string]string{
		config.KeyHTTPAddr:       "addr",
		config.KeyBaseURL:        "base-url",
		config.KeySessionStore:   "session-store",
		config.KeyCookieSecure:   "cookie-secure",
		config.KeySessionTTL:     "session-ttl",
		config.KeyMetricsEnabled: "metrics-enabled",
		config.KeyMetricsAddr:    "metrics-addr",
		config.KeyRateLimit:      "rate-limit",
		config.KeyRateBurst:      "rate-burst",
		config.KeyTrustProxy:     "trust-proxy",
	})

	return cmd
}

func runServe(cfg *config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Error("instrumentation shutdown failed", "error", err)
		}
	}()

	if cfg.MetricsEnabled && provider.Enabled() {
		metricsServer, err := startMetricsServer(cfg.MetricsAddr, provider, logger)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Error("metrics server shutdown failed", "error", err)
			}
		}()
	}

	oauth, err := newOAuthManager(cfg)
	if err != nil {
		return err
	}

	store, stopStore, err := newSessionStore(cfg, logger, provider.Metrics())
	if err != nil {
		return err
	}
	defer stopStore()

	var limiter *server.RateLimiter
	if cfg.RateLimit > 0 {
		limiter = server.NewRateLimiter(shutdownCtx, cfg.RateLimit, cfg.RateBurst, cfg.TrustProxy)
	}

	sc, err := server.NewServerContext(shutdownCtx, server.Options{
		OAuth:       oauth,
		Mailbox:     newMailbox(cfg, logger, provider.Metrics()),
		Store:       store,
		SessionTTL:  cfg.SessionTTL,
		RateLimiter: limiter,
		Logger:      logger,
		Metrics:     provider.Metrics(),
		Audit:       provider.Audit(),
	})
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() { _ = sc.Shutdown() }()

	httpServer, err := server.NewHTTPServer(sc, cfg.BaseURL)
	if err != nil {
		return err
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := httpServer.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-shutdownCtx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
	}

	ctx, cancelShutdown := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancelShutdown()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("error during HTTP server shutdown: %w", err)
	}
	logger.Info("HTTP server stopped")
	return nil
}

func startMetricsServer(addr string, provider *instrumentation.Provider, logger *slog.Logger) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:     addr,
		Provider: provider,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	// Use ready channel to confirm metrics server started successfully
	metricsReady := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case <-metricsReady:
		logger.Info("metrics server started", "addr", metricsServer.Addr())
		return metricsServer, nil
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(metricsStartTimeout):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}

// newSessionStore builds the configured session backend. The returned
// function releases its resources.
func newSessionStore(cfg *config.Config, logger *slog.Logger, metrics *instrumentation.Metrics) (session.Store, func(), error) {
	opts := session.Options{Secure: cfg.CookieSecure}

	switch cfg.SessionStore {
	case config.StoreMemory:
		store := session.NewMemoryStore(opts, 0, logger, metrics)
		return store, store.Stop, nil

	case config.StoreCookie:
		sealer, err := session.NewSealer(cfg.SessionKey)
		if err != nil {
			return nil, nil, err
		}
		if !sealer.Encrypted() {
			logger.Warn("SESSION_ENCRYPTION_KEY is not set, session cookies are not encrypted")
		}
		return session.NewCookieStore(sealer, opts), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported session store %q", cfg.SessionStore)
	}
}
