package resources

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/gmailreader/internal/gmail"
	"github.com/teemow/gmailreader/internal/gmail/gmailtest"
	"github.com/teemow/gmailreader/internal/google"
)

func newTestHandlers(t *testing.T, token string) *handlers {
	t.Helper()
	srv := gmailtest.NewServer(t)
	srv.AddMessage(gmailtest.NewMessage("m1", "Alice <alice@example.com>", "Hello", "plain one", "<p>html one</p>", "INBOX"))

	return &handlers{deps: Deps{
		Mailbox: gmail.NewMailbox(gmail.WithEndpoint(srv.Endpoint()), gmail.WithTimeout(5*time.Second)),
		Tokens:  google.NewStaticTokenProvider(token),
	}}
}

func read(t *testing.T, fn func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error), uri string) (*mcp.TextResourceContents, error) {
	t.Helper()
	var req mcp.ReadResourceRequest
	req.Params.URI = uri
	contents, err := fn(context.Background(), req)
	if err != nil {
		return nil, err
	}
	require.Len(t, contents, 1)
	text, ok := contents[0].(*mcp.TextResourceContents)
	require.True(t, ok)
	return text, nil
}

func TestRegisterMailboxResources(t *testing.T) {
	s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithResourceCapabilities(false, false))
	assert.Error(t, RegisterMailboxResources(s, Deps{}))

	h := newTestHandlers(t, gmailtest.DefaultToken)
	assert.NoError(t, RegisterMailboxResources(s, h.deps))
}

func TestProfileResource(t *testing.T) {
	h := newTestHandlers(t, gmailtest.DefaultToken)

	text, err := read(t, h.handleProfile, ProfileURI)
	require.NoError(t, err)
	assert.Equal(t, ProfileURI, text.URI)
	assert.Equal(t, "application/json", text.MIMEType)

	var profile gmail.Profile
	require.NoError(t, json.Unmarshal([]byte(text.Text), &profile))
	assert.Equal(t, "jane@example.com", profile.EmailAddress)
}

func TestMessageResource(t *testing.T) {
	h := newTestHandlers(t, gmailtest.DefaultToken)

	text, err := read(t, h.handleMessage, "gmail://messages/m1")
	require.NoError(t, err)

	var detail gmail.MessageDetail
	require.NoError(t, json.Unmarshal([]byte(text.Text), &detail))
	assert.Equal(t, "m1", detail.ID)
	assert.Equal(t, "Hello", detail.Subject)
	assert.Equal(t, "<p>html one</p>", detail.BodyHTML)
	assert.Equal(t, "plain one", detail.BodyText)
}

func TestMessageResource_Errors(t *testing.T) {
	h := newTestHandlers(t, gmailtest.DefaultToken)

	_, err := read(t, h.handleMessage, "gmail://messages/")
	assert.ErrorContains(t, err, "invalid message URI")

	_, err = read(t, h.handleMessage, "gmail://messages/missing")
	assert.ErrorIs(t, err, google.ErrNotFound)

	unauth := newTestHandlers(t, "")
	_, err = read(t, unauth.handleProfile, ProfileURI)
	assert.ErrorIs(t, err, google.ErrAuth)
}
