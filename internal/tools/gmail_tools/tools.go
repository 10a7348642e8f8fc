package gmail_tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"golang.org/x/oauth2"

	"github.com/teemow/gmailreader/internal/gmail"
	"github.com/teemow/gmailreader/internal/google"
	"github.com/teemow/gmailreader/internal/logging"
	"github.com/teemow/gmailreader/internal/tools/common"
)

// Tool names.
const (
	ToolListMessages = "gmail_list_messages"
	ToolGetMessage   = "gmail_get_message"
	ToolGetMessages  = "gmail_get_messages"
	ToolGetProfile   = "gmail_get_profile"
)

// defaultBatchConcurrency bounds concurrent fetches in gmail_get_messages.
const defaultBatchConcurrency = 5

// authHint is appended to authentication failures.
const authHint = `To authenticate:

1. Call google_get_auth_url and open the URL in a browser
2. Grant read access to Gmail and copy the authorization code
3. Call google_save_auth_code with the code

Alternatively sign in through the web interface, export the token and save
it with "gmailreader auth import <file>".`

// Deps are the collaborators of the Gmail tools.
type Deps struct {
	Mailbox *gmail.Mailbox
	Tokens  google.TokenProvider
	// OAuth enables refreshing credentials that carry a refresh token. Optional.
	OAuth       *google.Manager
	Concurrency int
	Inst        common.Instrumentation
	Logger      *slog.Logger
}

type handlers struct {
	deps   Deps
	logger *slog.Logger
}

func newHandlers(deps Deps) (*handlers, error) {
	if deps.Mailbox == nil {
		return nil, fmt.Errorf("gmail tools require a mailbox")
	}
	if deps.Tokens == nil {
		return nil, fmt.Errorf("gmail tools require a token provider")
	}
	if deps.Concurrency <= 0 {
		deps.Concurrency = defaultBatchConcurrency
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &handlers{deps: deps, logger: logging.WithService(logger, "gmail")}, nil
}

// RegisterGmailTools registers the Gmail tools with the MCP server.
func RegisterGmailTools(s *mcpserver.MCPServer, deps Deps) error {
	h, err := newHandlers(deps)
	if err != nil {
		return err
	}

	listMessagesTool := mcp.NewTool(ToolListMessages,
		mcp.WithDescription("List the most recent Gmail messages with sender, subject, date and snippet"),
		mcp.WithNumber("maxResults",
			mcp.Description(fmt.Sprintf("Maximum number of messages to return (1-%d, default: %d)", gmail.MaxListResults, gmail.DefaultMaxResults)),
		),
		mcp.WithString("labelIds",
			mcp.Description("Label IDs the messages must carry, comma-separated or as an array (e.g., 'INBOX,UNREAD')"),
		),
		mcp.WithBoolean("allowPartial",
			mcp.Description("Report messages that failed to load instead of failing the whole listing (default: false)"),
		),
	)
	s.AddTool(listMessagesTool, common.InstrumentedToolHandler(ToolListMessages, deps.Inst, h.handleListMessages))

	getMessageTool := mcp.NewTool(ToolGetMessage,
		mcp.WithDescription("Get a Gmail message with its headers and body"),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The ID of the message"),
		),
		mcp.WithString("format",
			mcp.Description("Body format: 'text' (default), 'html' or 'markdown'"),
		),
	)
	s.AddTool(getMessageTool, common.InstrumentedToolHandler(ToolGetMessage, deps.Inst, h.handleGetMessage))

	getMessagesTool := mcp.NewTool(ToolGetMessages,
		mcp.WithDescription("Get several Gmail messages at once. Failures are reported per message"),
		mcp.WithString("messageIds",
			mcp.Required(),
			mcp.Description("Message ID (string) or array of message IDs"),
		),
		mcp.WithString("format",
			mcp.Description("Body format: 'text' (default), 'html' or 'markdown'"),
		),
	)
	s.AddTool(getMessagesTool, common.InstrumentedToolHandler(ToolGetMessages, deps.Inst, h.handleGetMessages))

	getProfileTool := mcp.NewTool(ToolGetProfile,
		mcp.WithDescription("Get the email address and message totals of the authenticated mailbox"),
	)
	s.AddTool(getProfileTool, common.InstrumentedToolHandler(ToolGetProfile, deps.Inst, h.handleGetProfile))

	return nil
}

// tokenSource resolves the caller's credential. When it fails the returned
// result is the tool error to send back.
func (h *handlers) tokenSource(ctx context.Context) (oauth2.TokenSource, *mcp.CallToolResult) {
	cred, err := h.deps.Tokens.Credential(ctx)
	if err != nil {
		return nil, authError(err)
	}
	return h.deps.OAuth.Attach(ctx, cred), nil
}

// toolError converts a mailbox error into a tool error result.
func toolError(action string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, google.ErrAuth):
		return authError(err)
	case errors.Is(err, google.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("Message not found: %v", err))
	default:
		return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v", action, err))
	}
}

func authError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("Google authentication failed: %v\n\n%s", err, authHint))
}
