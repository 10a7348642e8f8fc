package cmd

import (
	"fmt"
	"log/slog"

	"github.com/teemow/gmailreader/internal/config"
	"github.com/teemow/gmailreader/internal/gmail"
	"github.com/teemow/gmailreader/internal/google"
	"github.com/teemow/gmailreader/internal/instrumentation"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// newOAuthManager builds the OAuth client from the configured registration.
func newOAuthManager(cfg *config.Config) (*google.Manager, error) {
	if cfg.GoogleClientID == "" {
		return nil, fmt.Errorf("GOOGLE_CLIENT_ID is required (or use --google-client-id)")
	}
	return google.NewManager(google.OAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.RedirectURI,
	})
}

// optionalOAuthManager returns nil when no client is configured. Credentials
// then work until their access token expires.
func optionalOAuthManager(cfg *config.Config, logger *slog.Logger) *google.Manager {
	if cfg.GoogleClientID == "" {
		logger.Debug("no OAuth client configured, credentials will not be refreshed")
		return nil
	}
	m, err := newOAuthManager(cfg)
	if err != nil {
		logger.Warn("OAuth client unusable, credentials will not be refreshed", "error", err)
		return nil
	}
	return m
}

// credentialPath returns the configured credential file or the default location.
func credentialPath(cfg *config.Config) (string, error) {
	if cfg.CredentialFile != "" {
		return cfg.CredentialFile, nil
	}
	return google.DefaultCredentialPath()
}

// newTokenProvider prefers an explicit access token over the credential file.
func newTokenProvider(cfg *config.Config) (google.TokenProvider, error) {
	if cfg.AccessToken != "" {
		return google.NewStaticTokenProvider(cfg.AccessToken), nil
	}
	path, err := credentialPath(cfg)
	if err != nil {
		return nil, err
	}
	return google.NewFileTokenProvider(path), nil
}

func newMailbox(cfg *config.Config, logger *slog.Logger, metrics *instrumentation.Metrics) *gmail.Mailbox {
	return gmail.NewMailbox(
		gmail.WithConcurrency(cfg.Concurrency),
		gmail.WithLogger(logger),
		gmail.WithMetrics(metrics),
	)
}
