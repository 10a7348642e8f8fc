package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/teemow/gmailreader/internal/google"
	"github.com/teemow/gmailreader/internal/session"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the Google credential used by the CLI and the MCP server",
	}

	cmd.AddCommand(newAuthURLCmd())
	cmd.AddCommand(newAuthExchangeCmd())
	cmd.AddCommand(newAuthImportCmd())
	cmd.AddCommand(newAuthExportCmd())
	cmd.AddCommand(newAuthStatusCmd())

	return cmd
}

func newAuthURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "url",
		Short: "Print the Google consent URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			oauth, err := newOAuthManager(cfg)
			if err != nil {
				return err
			}
			state, err := session.GenerateState()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Visit this URL, grant access and copy the \"code\" parameter from the redirect:")
			fmt.Fprintln(out)
			fmt.Fprintln(out, oauth.AuthorizationURL(state))
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Then run: gmailreader auth exchange <code>")
			return nil
		},
	}
}

func newAuthExchangeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exchange <code>",
		Short: "Exchange an authorization code and save the credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			oauth, err := newOAuthManager(cfg)
			if err != nil {
				return err
			}
			path, err := credentialPath(cfg)
			if err != nil {
				return err
			}

			cred, err := oauth.Exchange(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := google.SaveCredential(path, cred); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Credential saved to %s\n", path)
			return nil
		},
	}
}

func newAuthImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a credential exported from the web application",
		Long: `Import a credential exported from the web application
(GET /api/auth/export) or a bare credential JSON file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path, err := credentialPath(cfg)
			if err != nil {
				return err
			}
			return importCredential(cmd.OutOrStdout(), args[0], path)
		},
	}
}

func importCredential(out io.Writer, src, dst string) error {
	cred, err := google.LoadCredential(src)
	if err != nil {
		return err
	}
	if err := google.SaveCredential(dst, cred); err != nil {
		return err
	}
	fmt.Fprintf(out, "Credential saved to %s\n", dst)
	return nil
}

func newAuthExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the saved credential with usage instructions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path, err := credentialPath(cfg)
			if err != nil {
				return err
			}
			cred, err := google.LoadCredential(path)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(cred.Export())
		},
	}
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which account the credential belongs to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			tokens, err := newTokenProvider(cfg)
			if err != nil {
				return err
			}
			cred, err := tokens.Credential(cmd.Context())
			if err != nil {
				return err
			}

			logger := slog.Default()
			mailbox := newMailbox(cfg, logger, nil)
			profile, err := mailbox.GetProfile(cmd.Context(), optionalOAuthManager(cfg, logger).Attach(cmd.Context(), cred))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Authenticated as %s (%d messages)\n", profile.EmailAddress, profile.MessagesTotal)
			return nil
		},
	}
}
