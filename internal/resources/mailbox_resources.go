package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gmailreader/internal/gmail"
	"github.com/teemow/gmailreader/internal/google"
)

// Resource URIs.
const (
	ProfileURI      = "gmail://profile"
	MessageTemplate = "gmail://messages/{id}"
	messagePrefix   = "gmail://messages/"
	mimeTypeJSON    = "application/json"
)

// Deps are the collaborators of the mailbox resources.
type Deps struct {
	Mailbox *gmail.Mailbox
	Tokens  google.TokenProvider
	OAuth   *google.Manager
}

type handlers struct {
	deps Deps
}

// RegisterMailboxResources registers the profile resource and the message
// resource template.
func RegisterMailboxResources(s *mcpserver.MCPServer, deps Deps) error {
	if deps.Mailbox == nil || deps.Tokens == nil {
		return fmt.Errorf("mailbox resources require a mailbox and a token provider")
	}
	h := &handlers{deps: deps}

	profileResource := mcp.NewResource(
		ProfileURI,
		"Mailbox Profile",
		mcp.WithResourceDescription("Email address and message totals of the authenticated Gmail account"),
		mcp.WithMIMEType(mimeTypeJSON),
	)
	s.AddResource(profileResource, h.handleProfile)

	messageTemplate := mcp.NewResourceTemplate(
		MessageTemplate,
		"Gmail Message",
		mcp.WithTemplateDescription("A Gmail message with its headers and decoded HTML and text bodies"),
		mcp.WithTemplateMIMEType(mimeTypeJSON),
	)
	s.AddResourceTemplate(messageTemplate, h.handleMessage)

	return nil
}

func (h *handlers) handleProfile(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	cred, err := h.deps.Tokens.Credential(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := h.deps.Mailbox.GetProfile(ctx, h.deps.OAuth.Attach(ctx, cred))
	if err != nil {
		return nil, fmt.Errorf("failed to get mailbox profile: %w", err)
	}

	return jsonContents(request.Params.URI, profile)
}

func (h *handlers) handleMessage(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	id, ok := strings.CutPrefix(request.Params.URI, messagePrefix)
	if !ok || id == "" || strings.Contains(id, "/") {
		return nil, fmt.Errorf("invalid message URI %q", request.Params.URI)
	}

	cred, err := h.deps.Tokens.Credential(ctx)
	if err != nil {
		return nil, err
	}

	detail, err := h.deps.Mailbox.GetMessage(ctx, h.deps.OAuth.Attach(ctx, cred), id)
	if err != nil {
		return nil, err
	}

	return jsonContents(request.Params.URI, detail)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: mimeTypeJSON,
			Text:     string(data),
		},
	}, nil
}
