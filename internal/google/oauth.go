package google

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// OAuthConfig holds the client registration used for the authorization code flow.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// Endpoint overrides Google's endpoints, mainly for tests.
	Endpoint oauth2.Endpoint
}

// Manager runs the OAuth2 authorization code flow against Google.
type Manager struct {
	config *oauth2.Config
}

// NewManager validates cfg and returns a Manager for it.
func NewManager(cfg OAuthConfig) (*Manager, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, fmt.Errorf("google client ID is required")
	}
	if strings.TrimSpace(cfg.RedirectURL) == "" {
		return nil, fmt.Errorf("google redirect URL is required")
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultOAuthScopes
	}

	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" && endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}

	return &Manager{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
	}, nil
}

// authURLOptions force offline access and a consent prompt so a refresh
// token is issued on every login.
func authURLOptions() []oauth2.AuthCodeOption {
	return []oauth2.AuthCodeOption{
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	}
}

// AuthorizationURL returns the consent page URL for the given state.
func (m *Manager) AuthorizationURL(state string) string {
	return m.config.AuthCodeURL(state, authURLOptions()...)
}

// BuildAuthorizationURL builds a Google consent page URL without a Manager.
// The result is deterministic for the same inputs.
func BuildAuthorizationURL(clientID, redirectURI string, scopes []string, state string) string {
	conf := &oauth2.Config{
		ClientID:    clientID,
		RedirectURL: redirectURI,
		Scopes:      scopes,
		Endpoint:    google.Endpoint,
	}
	return conf.AuthCodeURL(state, authURLOptions()...)
}

// Exchange trades an authorization code for a Credential.
func (m *Manager) Exchange(ctx context.Context, code string) (*Credential, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("exchange authorization code: %w: empty code", ErrAuth)
	}

	tok, err := m.config.Exchange(ctx, code)
	if err != nil {
		return nil, Classify("exchange authorization code", err)
	}

	return FromToken(tok), nil
}

// Attach returns a token source that authenticates API calls as cred.
// The credential is not validated here; a bad one surfaces as ErrAuth on first use.
// With a refresh token and a client secret the source refreshes lazily on expiry.
func (m *Manager) Attach(ctx context.Context, cred *Credential) oauth2.TokenSource {
	tok := cred.Token()
	if m != nil && cred.RefreshToken != "" && m.config.ClientSecret != "" {
		return m.config.TokenSource(ctx, tok)
	}
	return oauth2.StaticTokenSource(tok)
}

// ParseBearerHeader extracts the token from an "Authorization: Bearer <token>" header value.
func ParseBearerHeader(header string) (string, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", fmt.Errorf("authorization header missing or invalid: %w", ErrAuth)
	}

	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", fmt.Errorf("authorization header has empty token: %w", ErrAuth)
	}
	return token, nil
}
