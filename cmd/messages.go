package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/teemow/gmailreader/internal/config"
	"github.com/teemow/gmailreader/internal/gmail"
)

// Output formats of the list and get commands.
const (
	outputText = "text"
	outputJSON = "json"
)

func newListCmd() *cobra.Command {
	var (
		maxResults int64
		labels     string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ts, err := cliTokenSource(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			summaries, err := newMailbox(cfg, slog.Default(), nil).ListMessages(cmd.Context(), ts, gmail.ListOptions{
				MaxResults: gmail.ClampMaxResults(maxResults, gmail.DefaultMaxResults),
				LabelIDs:   gmail.ParseLabelIDs(labels),
			})
			if err != nil {
				return err
			}
			return printSummaries(cmd.OutOrStdout(), summaries, output)
		},
	}

	cmd.Flags().Int64VarP(&maxResults, "max-results", "n", gmail.DefaultMaxResults, fmt.Sprintf("Number of messages (1-%d)", gmail.MaxListResults))
	cmd.Flags().StringVarP(&labels, "labels", "l", "", "Comma-separated label IDs to filter by (e.g., INBOX,UNREAD)")
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text or json")

	return cmd
}

func newGetCmd() *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "get <message-id>",
		Short: "Show one message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			bodyFormat, err := gmail.ParseFormat(format)
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ts, err := cliTokenSource(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			detail, err := newMailbox(cfg, slog.Default(), nil).GetMessage(cmd.Context(), ts, args[0])
			if err != nil {
				return err
			}
			return printDetail(cmd.OutOrStdout(), detail, bodyFormat, output)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(gmail.FormatText), "Body format: text, html or markdown")
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text or json")

	return cmd
}

func validateOutput(output string) error {
	switch output {
	case outputText, outputJSON:
		return nil
	default:
		return fmt.Errorf("invalid output %q, must be 'text' or 'json'", output)
	}
}

func cliTokenSource(ctx context.Context, cfg *config.Config) (oauth2.TokenSource, error) {
	tokens, err := newTokenProvider(cfg)
	if err != nil {
		return nil, err
	}
	cred, err := tokens.Credential(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w\n\nRun \"gmailreader auth url\" to sign in", err)
	}
	return optionalOAuthManager(cfg, slog.Default()).Attach(ctx, cred), nil
}

func printSummaries(w io.Writer, summaries []*gmail.MessageSummary, output string) error {
	if output == outputJSON {
		return writeIndentedJSON(w, summaries)
	}

	if len(summaries) == 0 {
		_, err := fmt.Fprintln(w, "No messages.")
		return err
	}
	for _, m := range summaries {
		fmt.Fprintf(w, "%s  %s  %s\n", m.ID, formatTime(m.InternalDate), m.From)
		fmt.Fprintf(w, "    %s\n", m.Subject)
		if len(m.LabelIDs) > 0 {
			fmt.Fprintf(w, "    [%s]\n", strings.Join(m.LabelIDs, ", "))
		}
	}
	return nil
}

func printDetail(w io.Writer, d *gmail.MessageDetail, format gmail.Format, output string) error {
	body, err := gmail.RenderBody(d, format)
	if err != nil {
		return err
	}

	if output == outputJSON {
		return writeIndentedJSON(w, struct {
			*gmail.MessageSummary
			Format string `json:"format"`
			Body   string `json:"body"`
		}{&d.MessageSummary, string(format), body})
	}

	fmt.Fprintf(w, "From:    %s\n", d.From)
	fmt.Fprintf(w, "To:      %s\n", d.To)
	fmt.Fprintf(w, "Subject: %s\n", d.Subject)
	fmt.Fprintf(w, "Date:    %s\n", formatTime(d.InternalDate))
	fmt.Fprintln(w)
	_, err = fmt.Fprintln(w, body)
	return err
}

func writeIndentedJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTime(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}
