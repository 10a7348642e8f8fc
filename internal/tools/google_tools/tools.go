package google_tools

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gmailreader/internal/google"
	"github.com/teemow/gmailreader/internal/tools/common"
)

// Tool names.
const (
	ToolGetAuthURL   = "google_get_auth_url"
	ToolSaveAuthCode = "google_save_auth_code"
)

// Deps are the collaborators of the OAuth tools.
type Deps struct {
	OAuth *google.Manager
	// CredentialPath is where google_save_auth_code stores the credential.
	CredentialPath string
	Inst           common.Instrumentation
}

type handlers struct {
	deps Deps
}

// RegisterGoogleTools registers the OAuth tools with the MCP server.
func RegisterGoogleTools(s *mcpserver.MCPServer, deps Deps) error {
	if deps.OAuth == nil {
		return fmt.Errorf("google tools require an OAuth client configuration")
	}
	if deps.CredentialPath == "" {
		return fmt.Errorf("google tools require a credential path")
	}
	h := &handlers{deps: deps}

	getAuthURLTool := mcp.NewTool(ToolGetAuthURL,
		mcp.WithDescription("Get the OAuth URL to authorize read access to Gmail"),
	)
	s.AddTool(getAuthURLTool, common.InstrumentedToolHandler(ToolGetAuthURL, deps.Inst, h.handleGetAuthURL))

	saveAuthCodeTool := mcp.NewTool(ToolSaveAuthCode,
		mcp.WithDescription("Exchange an OAuth authorization code and save the credential for the Gmail tools"),
		mcp.WithString("authCode",
			mcp.Required(),
			mcp.Description("The authorization code from Google OAuth"),
		),
	)
	s.AddTool(saveAuthCodeTool, common.InstrumentedToolHandler(ToolSaveAuthCode, deps.Inst, h.handleSaveAuthCode))

	return nil
}

func (h *handlers) handleGetAuthURL(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	authURL := h.deps.OAuth.AuthorizationURL(uuid.NewString())

	result := fmt.Sprintf(`To authorize read access to Gmail:

1. Visit this URL in your browser:
   %s

2. Sign in with your Google account and grant access
3. Copy the "code" parameter from the page you are redirected to
4. Call the %s tool with the code to complete authentication`, authURL, ToolSaveAuthCode)

	return mcp.NewToolResultText(result), nil
}

func (h *handlers) handleSaveAuthCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	authCode, ok := args["authCode"].(string)
	if !ok || authCode == "" {
		return mcp.NewToolResultError("authCode is required"), nil
	}

	cred, err := h.deps.OAuth.Exchange(ctx, authCode)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to exchange authorization code: %v", err)), nil
	}

	if err := google.SaveCredential(h.deps.CredentialPath, cred); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to save credential: %v", err)), nil
	}

	msg := "Authorization successful. The credential was saved and the Gmail tools are ready to use."
	if cred.RefreshToken == "" {
		msg += " No refresh token was issued, so you will need to authorize again when the access token expires."
	}
	return mcp.NewToolResultText(msg), nil
}
