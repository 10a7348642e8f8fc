package gmail_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/gmailreader/internal/gmail"
	"github.com/teemow/gmailreader/internal/logging"
	"github.com/teemow/gmailreader/internal/tools/batch"
)

// renderedMessage is one entry of a gmail_get_messages result.
type renderedMessage struct {
	gmail.MessageSummary
	Date   string `json:"date,omitempty"`
	Format string `json:"format"`
	Body   string `json:"body"`
}

// parseLabelIDs accepts a comma-separated string or an array of label IDs.
// A missing argument means no label filter.
func parseLabelIDs(arg any) ([]string, error) {
	switch v := arg.(type) {
	case nil:
		return nil, nil
	case string:
		if !strings.HasPrefix(strings.TrimSpace(v), "[") {
			return gmail.ParseLabelIDs(v), nil
		}
	}

	labels, err := batch.ParseStringOrArray(arg, "labelIds")
	if err != nil {
		return nil, err
	}
	return gmail.ParseLabelIDs(strings.Join(labels, ",")), nil
}

func (h *handlers) handleListMessages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	maxResults := int64(gmail.DefaultMaxResults)
	if v, ok := args["maxResults"].(float64); ok {
		maxResults = gmail.ClampMaxResults(int64(v), gmail.DefaultMaxResults)
	}

	labels, err := parseLabelIDs(args["labelIds"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	opts := gmail.ListOptions{MaxResults: maxResults, LabelIDs: labels}

	allowPartial, _ := args["allowPartial"].(bool)

	ts, errResult := h.tokenSource(ctx)
	if errResult != nil {
		return errResult, nil
	}

	if allowPartial {
		results, err := h.deps.Mailbox.ListMessagesPartial(ctx, ts, opts)
		if err != nil {
			return toolError("list messages", err), nil
		}
		return mcp.NewToolResultText(formatPartialListing(results)), nil
	}

	summaries, err := h.deps.Mailbox.ListMessages(ctx, ts, opts)
	if err != nil {
		h.logger.Warn("list messages failed", logging.Err(err))
		return toolError("list messages", err), nil
	}

	return mcp.NewToolResultText(formatListing(summaries)), nil
}

func (h *handlers) handleGetMessage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID, ok := args["messageId"].(string)
	if !ok || messageID == "" {
		return mcp.NewToolResultError("messageId is required"), nil
	}

	formatArg, _ := args["format"].(string)
	format, err := gmail.ParseFormat(formatArg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ts, errResult := h.tokenSource(ctx)
	if errResult != nil {
		return errResult, nil
	}

	detail, err := h.deps.Mailbox.GetMessage(ctx, ts, messageID)
	if err != nil {
		return toolError("get message", err), nil
	}

	body, err := gmail.RenderBody(detail, format)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to render message body: %v", err)), nil
	}

	var sb strings.Builder
	writeHeaders(&sb, &detail.MessageSummary)
	sb.WriteString("\n")
	sb.WriteString(body)
	return mcp.NewToolResultText(sb.String()), nil
}

func (h *handlers) handleGetMessages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	ids, err := batch.ParseStringOrArray(args["messageIds"], "messageIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	formatArg, _ := args["format"].(string)
	format, err := gmail.ParseFormat(formatArg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ts, errResult := h.tokenSource(ctx)
	if errResult != nil {
		return errResult, nil
	}

	results := batch.ProcessBatch(ctx, ids, h.deps.Concurrency, func(ctx context.Context, id string) (any, error) {
		detail, err := h.deps.Mailbox.GetMessage(ctx, ts, id)
		if err != nil {
			return nil, err
		}
		body, err := gmail.RenderBody(detail, format)
		if err != nil {
			return nil, err
		}
		return renderedMessage{
			MessageSummary: detail.MessageSummary,
			Date:           formatDate(detail.InternalDate),
			Format:         string(format),
			Body:           body,
		}, nil
	})

	out, err := batch.FormatResults(results)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (h *handlers) handleGetProfile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ts, errResult := h.tokenSource(ctx)
	if errResult != nil {
		return errResult, nil
	}

	profile, err := h.deps.Mailbox.GetProfile(ctx, ts)
	if err != nil {
		return toolError("get profile", err), nil
	}

	b, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode profile: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

func formatListing(summaries []*gmail.MessageSummary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d messages:\n", len(summaries))
	for i, m := range summaries {
		fmt.Fprintf(&sb, "\n%d. Message ID: %s\n", i+1, m.ID)
		writeSummaryLines(&sb, m, "   ")
	}
	return sb.String()
}

func formatPartialListing(results []gmail.MessageResult) string {
	var sb strings.Builder
	failed := 0
	for _, r := range results {
		if r.Status != gmail.StatusSuccess {
			failed++
		}
	}
	fmt.Fprintf(&sb, "Found %d messages (%d failed to load):\n", len(results), failed)
	for i, r := range results {
		fmt.Fprintf(&sb, "\n%d. Message ID: %s\n", i+1, r.ID)
		if r.Status != gmail.StatusSuccess {
			fmt.Fprintf(&sb, "   Error: %s\n", r.Error)
			continue
		}
		writeSummaryLines(&sb, r.Message, "   ")
	}
	return sb.String()
}

func writeSummaryLines(sb *strings.Builder, m *gmail.MessageSummary, indent string) {
	fmt.Fprintf(sb, "%sFrom: %s\n", indent, m.From)
	fmt.Fprintf(sb, "%sSubject: %s\n", indent, m.Subject)
	if date := formatDate(m.InternalDate); date != "" {
		fmt.Fprintf(sb, "%sDate: %s\n", indent, date)
	}
	if len(m.LabelIDs) > 0 {
		fmt.Fprintf(sb, "%sLabels: %s\n", indent, strings.Join(m.LabelIDs, ", "))
	}
	if m.Snippet != "" {
		fmt.Fprintf(sb, "%sSnippet: %s\n", indent, m.Snippet)
	}
}

func writeHeaders(sb *strings.Builder, m *gmail.MessageSummary) {
	fmt.Fprintf(sb, "Message ID: %s\n", m.ID)
	fmt.Fprintf(sb, "Thread ID: %s\n", m.ThreadID)
	fmt.Fprintf(sb, "From: %s\n", m.From)
	fmt.Fprintf(sb, "To: %s\n", m.To)
	fmt.Fprintf(sb, "Subject: %s\n", m.Subject)
	if date := formatDate(m.InternalDate); date != "" {
		fmt.Fprintf(sb, "Date: %s\n", date)
	}
	if len(m.LabelIDs) > 0 {
		fmt.Fprintf(sb, "Labels: %s\n", strings.Join(m.LabelIDs, ", "))
	}
}

// formatDate renders an internal date in milliseconds as RFC 1123 UTC.
func formatDate(ms int64) string {
	if ms <= 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC1123Z)
}
