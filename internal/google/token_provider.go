package google

import (
	"context"
	"fmt"
	"os"
)

// TokenProvider supplies the credential for surfaces without a browser session
// (CLI commands and the MCP server).
type TokenProvider interface {
	// Credential returns the credential to use for the next request.
	Credential(ctx context.Context) (*Credential, error)
}

// StaticTokenProvider always returns the same credential.
type StaticTokenProvider struct {
	cred *Credential
}

// NewStaticTokenProvider creates a provider for a bare access token.
func NewStaticTokenProvider(accessToken string) *StaticTokenProvider {
	return &StaticTokenProvider{cred: CredentialFromBearer(accessToken)}
}

// Credential returns the configured credential.
func (p *StaticTokenProvider) Credential(ctx context.Context) (*Credential, error) {
	if p.cred == nil || p.cred.AccessToken == "" {
		return nil, fmt.Errorf("no access token configured: %w", ErrAuth)
	}
	return p.cred, nil
}

// FileTokenProvider reads a credential from disk on every call, so a
// re-exported file is picked up without a restart.
type FileTokenProvider struct {
	path string
}

// NewFileTokenProvider creates a file-based token provider.
func NewFileTokenProvider(path string) *FileTokenProvider {
	return &FileTokenProvider{path: path}
}

// Credential loads the credential file.
func (p *FileTokenProvider) Credential(ctx context.Context) (*Credential, error) {
	if _, err := os.Stat(p.path); err != nil {
		return nil, fmt.Errorf("no credential file at %s: %w", p.path, ErrAuth)
	}
	return LoadCredential(p.path)
}
