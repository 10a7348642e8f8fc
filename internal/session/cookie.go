package session

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// CookieStore keeps each value in its own cookie named after the key.
type CookieStore struct {
	sealer *Sealer
	opts   Options
	now    func() time.Time
}

// envelope is what gets sealed into a cookie. Exp is a Unix timestamp and
// is checked on Load, so a copied cookie stops working when the session
// would have ended.
type envelope struct {
	Exp   int64  `json:"exp"`
	Value string `json:"v"`
}

// NewCookieStore creates a CookieStore. sealer may be nil for plain encoding.
func NewCookieStore(sealer *Sealer, opts Options) *CookieStore {
	if sealer == nil {
		sealer = &Sealer{}
	}
	return &CookieStore{sealer: sealer, opts: opts, now: time.Now}
}

// Save sets one cookie per value.
func (s *CookieStore) Save(w http.ResponseWriter, r *http.Request, values map[string]string, ttl time.Duration) error {
	exp := s.now().Add(ttl).Unix()
	for key, value := range values {
		data, err := json.Marshal(envelope{Exp: exp, Value: value})
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", key, err)
		}
		sealed, err := s.sealer.Seal(key, string(data))
		if err != nil {
			return fmt.Errorf("failed to seal %s: %w", key, err)
		}
		http.SetCookie(w, s.opts.cookie(key, sealed, int(ttl.Seconds())))
	}
	return nil
}

// Load reads and opens the cookie for key. Missing, expired, tampered or
// undecryptable cookies are reported as absent.
func (s *CookieStore) Load(r *http.Request, key string) (string, bool) {
	c, err := r.Cookie(key)
	if err != nil || c.Value == "" {
		return "", false
	}

	data, err := s.sealer.Open(key, c.Value)
	if err != nil {
		return "", false
	}

	var env envelope
	if err := json.Unmarshal([]byte(data), &env); err != nil {
		return "", false
	}
	if s.now().Unix() >= env.Exp {
		return "", false
	}
	return env.Value, true
}

// Clear expires the cookies for keys.
func (s *CookieStore) Clear(w http.ResponseWriter, r *http.Request, keys ...string) {
	for _, key := range keys {
		http.SetCookie(w, s.opts.cookie(key, "", -1))
	}
}
