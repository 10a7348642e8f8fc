package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/teemow/gmailreader/internal/config"
	"github.com/teemow/gmailreader/internal/logging"
)

// v holds the configuration shared by all commands.
var v = config.New()

// rootCmd represents the base command for the gmailreader application
var rootCmd = &cobra.Command{
	Use:   "gmailreader",
	Short: "Read your Gmail inbox from the browser, the terminal or an AI assistant",
	Long: `gmailreader signs you in with Google and shows your recent Gmail messages.

It can run as:
  - A web application with browser sessions and a bearer-token API (serve)
  - An MCP (Model Context Protocol) server for AI assistants (mcp)
  - A command-line reader (list, get)`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(); err != nil {
			return err
		}
		logger, err := newLogger(v)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "gmailreader version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "info", "Log level: debug, info, warn or error. Can also use LOG_LEVEL env var.")
	flags.String("log-format", logging.FormatText, "Log format: text or json. Can also use LOG_FORMAT env var.")
	flags.String("google-client-id", "", "Google OAuth client ID. Can also use GOOGLE_CLIENT_ID env var.")
	flags.String("google-client-secret", "", "Google OAuth client secret. Can also use GOOGLE_CLIENT_SECRET env var.")
	flags.String("redirect-uri", "", "OAuth redirect URI (default: <base-url>/api/auth/callback). Can also use GOOGLE_REDIRECT_URI env var.")
	flags.String("credential-file", "", "Credential file for the CLI and MCP server (default: user cache directory). Can also use GMAIL_CREDENTIAL_FILE env var.")
	flags.String("access-token", "", "Use this access token instead of the credential file. Can also use GMAIL_ACCESS_TOKEN env var.")
	flags.Int("concurrency", 10, "Maximum concurrent message fetches. Can also use GMAIL_CONCURRENCY env var.")

	bindFlags(rootCmd, map[string]string{
		config.KeyLogLevel:           "log-level",
		config.KeyLogFormat:          "log-format",
		config.KeyGoogleClientID:     "google-client-id",
		config.KeyGoogleClientSecret: "google-client-secret",
		config.KeyGoogleRedirectURI:  "redirect-uri",
		config.KeyCredentialFile:     "credential-file",
		config.KeyAccessToken:        "access-token",
		config.KeyConcurrency:        "concurrency",
	})

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMCPCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}

// bindFlags binds viper keys to the command's flags, persistent or local.
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	for key, name := range keys {
		flag := cmd.PersistentFlags().Lookup(name)
		if flag == nil {
			flag = cmd.Flags().Lookup(name)
		}
		if flag == nil {
			panic(fmt.Sprintf("flag %q is not defined on %s", name, cmd.Name()))
		}
		_ = v.BindPFlag(key, flag)
	}
}

func newLogger(v *viper.Viper) (*slog.Logger, error) {
	logger, err := logging.NewLogger(os.Stderr, logging.Options{
		Level:  v.GetString(config.KeyLogLevel),
		Format: v.GetString(config.KeyLogFormat),
	})
	if err != nil {
		return nil, fmt.Errorf("invalid logging configuration: %w", err)
	}
	return logger, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gmailreader version %s\n", version)
		},
	}
}
