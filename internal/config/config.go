package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/teemow/gmailreader/internal/session"
)

// Viper keys.
const (
	KeyGoogleClientID     = "google.client_id"
	KeyGoogleClientSecret = "google.client_secret"
	KeyGoogleRedirectURI  = "google.redirect_uri"
	KeyBaseURL            = "base_url"
	KeyHTTPAddr           = "http_addr"
	KeySessionKey         = "session.encryption_key"
	KeySessionStore       = "session.store"
	KeyCookieSecure       = "session.cookie_secure"
	KeySessionTTL         = "session.ttl"
	KeyMetricsEnabled     = "metrics.enabled"
	KeyMetricsAddr        = "metrics.addr"
	KeyConcurrency        = "gmail.concurrency"
	KeyRateLimit          = "http.rate_limit"
	KeyRateBurst          = "http.rate_burst"
	KeyTrustProxy         = "http.trust_proxy"
	KeyLogLevel           = "log.level"
	KeyLogFormat          = "log.format"
	KeyCredentialFile     = "credential_file"
	KeyAccessToken        = "access_token"
)

// envBindings maps viper keys to their environment variables.
var envBindings = map[string]string{
	KeyGoogleClientID:     "GOOGLE_CLIENT_ID",
	KeyGoogleClientSecret: "GOOGLE_CLIENT_SECRET",
	KeyGoogleRedirectURI:  "GOOGLE_REDIRECT_URI",
	KeyBaseURL:            "APP_BASE_URL",
	KeyHTTPAddr:           "HTTP_ADDR",
	KeySessionKey:         "SESSION_ENCRYPTION_KEY",
	KeySessionStore:       "SESSION_STORE",
	KeyCookieSecure:       "COOKIE_SECURE",
	KeySessionTTL:         "SESSION_TTL",
	KeyMetricsEnabled:     "METRICS_ENABLED",
	KeyMetricsAddr:        "METRICS_ADDR",
	KeyConcurrency:        "GMAIL_CONCURRENCY",
	KeyRateLimit:          "RATE_LIMIT_RPS",
	KeyRateBurst:          "RATE_LIMIT_BURST",
	KeyTrustProxy:         "TRUST_PROXY",
	KeyLogLevel:           "LOG_LEVEL",
	KeyLogFormat:          "LOG_FORMAT",
	KeyCredentialFile:     "GMAIL_CREDENTIAL_FILE",
	KeyAccessToken:        "GMAIL_ACCESS_TOKEN",
}

// Session store backends.
const (
	StoreCookie = "cookie"
	StoreMemory = "memory"
)

// Defaults.
const (
	DefaultBaseURL     = "http://localhost:3333"
	DefaultHTTPAddr    = ":3333"
	DefaultMetricsAddr = ":9090"
	DefaultRateLimit   = 0.0
	DefaultRateBurst   = 20
	CallbackPath       = "/api/auth/callback"
)

// Config is the resolved application configuration.
type Config struct {
	GoogleClientID     string
	GoogleClientSecret string
	RedirectURI        string
	BaseURL            string
	HTTPAddr           string

	SessionKey   []byte
	SessionStore string
	CookieSecure bool
	SessionTTL   time.Duration

	MetricsEnabled bool
	MetricsAddr    string

	Concurrency int

	// RateLimit is requests per second per client on /api routes; 0 disables limiting.
	RateLimit  float64
	RateBurst  int
	TrustProxy bool

	LogLevel  string
	LogFormat string

	// CredentialFile and AccessToken feed the CLI and MCP surfaces.
	CredentialFile string
	AccessToken    string
}

// New returns a viper instance with defaults and environment bindings set.
// Callers bind their flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyBaseURL, DefaultBaseURL)
	v.SetDefault(KeyHTTPAddr, DefaultHTTPAddr)
	v.SetDefault(KeySessionStore, StoreCookie)
	v.SetDefault(KeySessionTTL, session.DefaultTTL)
	v.SetDefault(KeyMetricsAddr, DefaultMetricsAddr)
	v.SetDefault(KeyConcurrency, 10)
	v.SetDefault(KeyRateLimit, DefaultRateLimit)
	v.SetDefault(KeyRateBurst, DefaultRateBurst)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")

	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	v.SetConfigName("gmailreader")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	return v
}

// LoadDotEnv loads .env files into the process environment. A missing file
// is not an error; existing variables are never overwritten.
func LoadDotEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// Load reads the config file if present and resolves all values from v.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	key, err := session.KeyFromBase64(strings.TrimSpace(v.GetString(KeySessionKey)))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", envBindings[KeySessionKey], err)
	}

	cfg := &Config{
		GoogleClientID:     strings.TrimSpace(v.GetString(KeyGoogleClientID)),
		GoogleClientSecret: strings.TrimSpace(v.GetString(KeyGoogleClientSecret)),
		RedirectURI:        strings.TrimSpace(v.GetString(KeyGoogleRedirectURI)),
		BaseURL:            strings.TrimRight(strings.TrimSpace(v.GetString(KeyBaseURL)), "/"),
		HTTPAddr:           v.GetString(KeyHTTPAddr),
		SessionKey:         key,
		SessionStore:       strings.ToLower(v.GetString(KeySessionStore)),
		CookieSecure:       v.GetBool(KeyCookieSecure),
		SessionTTL:         v.GetDuration(KeySessionTTL),
		MetricsEnabled:     v.GetBool(KeyMetricsEnabled),
		MetricsAddr:        v.GetString(KeyMetricsAddr),
		Concurrency:        v.GetInt(KeyConcurrency),
		RateLimit:          v.GetFloat64(KeyRateLimit),
		RateBurst:          v.GetInt(KeyRateBurst),
		TrustProxy:         v.GetBool(KeyTrustProxy),
		LogLevel:           v.GetString(KeyLogLevel),
		LogFormat:          v.GetString(KeyLogFormat),
		CredentialFile:     strings.TrimSpace(v.GetString(KeyCredentialFile)),
		AccessToken:        strings.TrimSpace(v.GetString(KeyAccessToken)),
	}

	if cfg.RedirectURI == "" {
		cfg.RedirectURI = cfg.BaseURL + CallbackPath
	}
	if !v.IsSet(KeyCookieSecure) && strings.HasPrefix(cfg.BaseURL, "https://") {
		cfg.CookieSecure = true
	}

	return cfg, nil
}

// Validate checks the values needed to serve the web application.
func (c *Config) Validate() error {
	if c.GoogleClientID == "" {
		return fmt.Errorf("%s is required", envBindings[KeyGoogleClientID])
	}
	if c.GoogleClientSecret == "" {
		return fmt.Errorf("%s is required", envBindings[KeyGoogleClientSecret])
	}

	u, err := url.Parse(c.RedirectURI)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid redirect URI %q", c.RedirectURI)
	}

	switch c.SessionStore {
	case StoreCookie, StoreMemory:
	default:
		return fmt.Errorf("unsupported session store %q (supported: %s, %s)", c.SessionStore, StoreCookie, StoreMemory)
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive, got %s", c.SessionTTL)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("gmail concurrency must be positive, got %d", c.Concurrency)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative, got %g", c.RateLimit)
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return fmt.Errorf("rate burst must be at least 1, got %d", c.RateBurst)
	}
	return nil
}
