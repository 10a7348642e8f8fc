package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/gmailreader/internal/session"
)

// clearEnv unsets every bound variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envBindings {
		t.Setenv(env, "")
		require.NoError(t, os.Unsetenv(env))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultBaseURL+CallbackPath, cfg.RedirectURI)
	assert.Equal(t, DefaultHTTPAddr, cfg.HTTPAddr)
	assert.Equal(t, StoreCookie, cfg.SessionStore)
	assert.Equal(t, session.DefaultTTL, cfg.SessionTTL)
	assert.Equal(t, 10, cfg.Concurrency)
	assert.Nil(t, cfg.SessionKey)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, DefaultRateLimit, cfg.RateLimit)
	assert.Equal(t, DefaultRateBurst, cfg.RateBurst)
	assert.False(t, cfg.TrustProxy)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Empty(t, cfg.CredentialFile)
	assert.Empty(t, cfg.AccessToken)
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	key := make([]byte, session.KeySize)
	t.Setenv("GOOGLE_CLIENT_ID", "id.apps.googleusercontent.com")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")
	t.Setenv("APP_BASE_URL", "https://mail.example.com/")
	t.Setenv("SESSION_ENCRYPTION_KEY", base64.StdEncoding.EncodeToString(key))
	t.Setenv("SESSION_STORE", "Memory")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("GMAIL_CONCURRENCY", "4")
	t.Setenv("RATE_LIMIT_RPS", "0.5")
	t.Setenv("RATE_LIMIT_BURST", "3")
	t.Setenv("TRUST_PROXY", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("GMAIL_ACCESS_TOKEN", " ya29.token ")

	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, "https://mail.example.com", cfg.BaseURL)
	assert.Equal(t, "https://mail.example.com/api/auth/callback", cfg.RedirectURI)
	assert.Equal(t, key, cfg.SessionKey)
	assert.Equal(t, StoreMemory, cfg.SessionStore)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 0.5, cfg.RateLimit)
	assert.Equal(t, 3, cfg.RateBurst)
	assert.True(t, cfg.TrustProxy)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "ya29.token", cfg.AccessToken)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_CookieSecureFollowsBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		secure  string
		want    bool
	}{
		{name: "https base", baseURL: "https://mail.example.com", want: true},
		{name: "http base", baseURL: "http://localhost:3333", want: false},
		{name: "explicit override", baseURL: "https://mail.example.com", secure: "false", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Chdir(t.TempDir())
			t.Setenv("APP_BASE_URL", tt.baseURL)
			if tt.secure != "" {
				t.Setenv("COOKIE_SECURE", tt.secure)
			}

			cfg, err := Load(New())
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.CookieSecure)
		})
	}
}

func TestLoad_ExplicitRedirect(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("GOOGLE_REDIRECT_URI", "https://auth.example.com/cb")

	cfg, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, "https://auth.example.com/cb", cfg.RedirectURI)
}

func TestLoad_InvalidKey(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("SESSION_ENCRYPTION_KEY", base64.StdEncoding.EncodeToString([]byte("short")))

	_, err := Load(New())
	assert.ErrorContains(t, err, "SESSION_ENCRYPTION_KEY")
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	content := "google:\n  client_id: from-file\nhttp_addr: \":8080\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gmailreader.yaml"), []byte(content), 0600))

	t.Setenv("HTTP_ADDR", ":9999")

	cfg, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.GoogleClientID)
	assert.Equal(t, ":9999", cfg.HTTPAddr, "environment overrides the file")
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	assert.NoError(t, LoadDotEnv(), "missing .env is fine")

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GOOGLE_CLIENT_ID=from-dotenv\n"), 0600))
	t.Cleanup(func() { _ = os.Unsetenv("GOOGLE_CLIENT_ID") })
	require.NoError(t, LoadDotEnv())

	cfg, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.GoogleClientID)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			GoogleClientID:     "id",
			GoogleClientSecret: "secret",
			RedirectURI:        "http://localhost:3333/api/auth/callback",
			SessionStore:       StoreCookie,
			SessionTTL:         time.Hour,
			Concurrency:        10,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing client id", func(c *Config) { c.GoogleClientID = "" }, "GOOGLE_CLIENT_ID"},
		{"missing secret", func(c *Config) { c.GoogleClientSecret = "" }, "GOOGLE_CLIENT_SECRET"},
		{"relative redirect", func(c *Config) { c.RedirectURI = "/api/auth/callback" }, "redirect URI"},
		{"unknown store", func(c *Config) { c.SessionStore = "redis" }, "session store"},
		{"zero ttl", func(c *Config) { c.SessionTTL = 0 }, "TTL"},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, "concurrency"},
		{"negative rate", func(c *Config) { c.RateLimit = -1 }, "rate limit"},
		{"rate without burst", func(c *Config) { c.RateLimit = 5; c.RateBurst = 0 }, "rate burst"},
		{"rate limiting disabled", func(c *Config) { c.RateLimit = 0; c.RateBurst = 0 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
