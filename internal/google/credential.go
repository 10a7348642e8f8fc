package google

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Credential is the token material for one authenticated user.
// Field names match the exported JSON so an export can be read back.
type Credential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	// ExpiryDate is the absolute expiry in milliseconds since the epoch, 0 if unknown.
	ExpiryDate int64 `json:"expiry_date,omitempty"`
}

// FromToken converts an oauth2 token into a Credential.
func FromToken(tok *oauth2.Token) *Credential {
	if tok == nil {
		return nil
	}

	cred := &Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		cred.Scope = scope
	}
	if !tok.Expiry.IsZero() {
		cred.ExpiryDate = tok.Expiry.UnixMilli()
	}
	return cred
}

// CredentialFromBearer wraps a bare access token supplied by an API caller.
func CredentialFromBearer(accessToken string) *Credential {
	return &Credential{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}
}

// Token converts the credential into an oauth2 token.
func (c *Credential) Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
	}
	if tok.TokenType == "" {
		tok.TokenType = "Bearer"
	}
	if c.ExpiryDate > 0 {
		tok.Expiry = time.UnixMilli(c.ExpiryDate)
	}
	return tok
}

// Marshal encodes the credential as JSON.
func (c *Credential) Marshal() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to encode credential: %w", err)
	}
	return string(data), nil
}

// ParseCredential decodes a JSON credential and rejects one without an access token.
func ParseCredential(data string) (*Credential, error) {
	var c Credential
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, fmt.Errorf("failed to decode credential: %w", err)
	}
	if strings.TrimSpace(c.AccessToken) == "" {
		return nil, fmt.Errorf("credential has no access token: %w", ErrAuth)
	}
	return &c, nil
}

// ExportData is the payload returned by a token export.
type ExportData struct {
	Success bool        `json:"success"`
	Data    *Credential `json:"data"`
	Usage   ExportUsage `json:"usage"`
}

// ExportUsage shows how to call the bearer API with an exported token.
type ExportUsage struct {
	Description string        `json:"description"`
	Example     ExportExample `json:"example"`
}

// ExportExample is a sample request header set.
type ExportExample struct {
	Headers map[string]string `json:"headers"`
}

// Export builds the token export payload.
func (c *Credential) Export() ExportData {
	return ExportData{
		Success: true,
		Data:    c,
		Usage: ExportUsage{
			Description: "Use the access_token in the Authorization header for API requests",
			Example: ExportExample{
				Headers: map[string]string{
					"Authorization": "Bearer " + c.AccessToken,
				},
			},
		},
	}
}

// DefaultCredentialPath returns where the CLI stores an exported credential.
func DefaultCredentialPath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate cache directory: %w", err)
	}
	return filepath.Join(cacheDir, "gmailreader", "credential.json"), nil
}

// SaveCredential writes the credential to path with owner-only permissions.
func SaveCredential(path string, c *Credential) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	return nil
}

// LoadCredential reads a credential written by SaveCredential or copied from an export.
// Both the bare credential and the full export payload are accepted.
func LoadCredential(path string) (*Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}

	var export struct {
		Data *Credential `json:"data"`
	}
	if err := json.Unmarshal(data, &export); err == nil && export.Data != nil && export.Data.AccessToken != "" {
		return export.Data, nil
	}

	return ParseCredential(string(data))
}
