package cmd

import (
	"fmt"
	"log/slog"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/gmailreader/internal/config"
	"github.com/teemow/gmailreader/internal/instrumentation"
	"github.com/teemow/gmailreader/internal/resources"
	"github.com/teemow/gmailreader/internal/tools/common"
	"github.com/teemow/gmailreader/internal/tools/gmail_tools"
	"github.com/teemow/gmailreader/internal/tools/google_tools"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the mailbox to AI assistants over MCP (stdio)",
		Long: `Serve read-only Gmail tools and resources over the Model Context Protocol
on stdin/stdout.

The credential comes from --access-token or the credential file written by
"gmailreader auth exchange", "gmailreader auth import" or the
google_save_auth_code tool. Logs go to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runMCP(cmd, cfg, slog.Default())
		},
	}
}

func runMCP(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(cmd.Context(), instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(cmd.Context()); err != nil {
			logger.Debug("instrumentation shutdown failed", "error", err)
		}
	}()

	mcpSrv, err := newMCPServer(cfg, logger, provider)
	if err != nil {
		return err
	}

	if err := mcpserver.ServeStdio(mcpSrv); err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// newMCPServer creates the MCP server with every tool and resource the
// configuration allows.
func newMCPServer(cfg *config.Config, logger *slog.Logger, provider *instrumentation.Provider) (*mcpserver.MCPServer, error) {
	tokens, err := newTokenProvider(cfg)
	if err != nil {
		return nil, err
	}

	var metrics *instrumentation.Metrics
	var audit *instrumentation.AuditLogger
	if provider != nil {
		metrics = provider.Metrics()
		audit = provider.Audit()
	}
	inst := common.Instrumentation{Metrics: metrics, Audit: audit, Logger: logger}
	oauth := optionalOAuthManager(cfg, logger)
	mailbox := newMailbox(cfg, logger, metrics)

	mcpSrv := mcpserver.NewMCPServer("gmailreader", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false),
	)

	if err := gmail_tools.RegisterGmailTools(mcpSrv, gmail_tools.Deps{
		Mailbox:     mailbox,
		Tokens:      tokens,
		OAuth:       oauth,
		Concurrency: cfg.Concurrency,
		Inst:        inst,
		Logger:      logger,
	}); err != nil {
		return nil, fmt.Errorf("failed to register Gmail tools: %w", err)
	}

	if err := resources.RegisterMailboxResources(mcpSrv, resources.Deps{
		Mailbox: mailbox,
		Tokens:  tokens,
		OAuth:   oauth,
	}); err != nil {
		return nil, fmt.Errorf("failed to register resources: %w", err)
	}

	if oauth == nil || cfg.AccessToken != "" {
		return mcpSrv, nil
	}

	path, err := credentialPath(cfg)
	if err != nil {
		return nil, err
	}
	if err := google_tools.RegisterGoogleTools(mcpSrv, google_tools.Deps{
		OAuth:          oauth,
		CredentialPath: path,
		Inst:           inst,
	}); err != nil {
		return nil, fmt.Errorf("failed to register Google tools: %w", err)
	}

	return mcpSrv, nil
}
