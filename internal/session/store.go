package session

import (
	"net/http"
	"time"
)

// Keys used by the application.
const (
	KeyTokens    = "gmail_tokens"
	KeyUserEmail = "user_email"
	KeyState     = "oauth_state"
)

// DefaultTTL is how long a login lasts.
const DefaultTTL = 7 * 24 * time.Hour

// Store saves and loads string values scoped to one browser.
type Store interface {
	// Save stores all values, each expiring after ttl.
	Save(w http.ResponseWriter, r *http.Request, values map[string]string, ttl time.Duration) error

	// Load returns the value for key and whether it was present and valid.
	Load(r *http.Request, key string) (string, bool)

	// Clear removes the given keys.
	Clear(w http.ResponseWriter, r *http.Request, keys ...string)
}

// Options are the cookie attributes shared by both stores.
type Options struct {
	// Secure marks cookies HTTPS-only. Enable it in production.
	Secure bool

	// Path scopes the cookies (default "/").
	Path string
}

func (o Options) cookie(name, value string, maxAge int) *http.Cookie {
	path := o.Path
	if path == "" {
		path = "/"
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
