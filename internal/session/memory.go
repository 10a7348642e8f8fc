package session

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/gmailreader/internal/instrumentation"
)

// SessionCookieName is the cookie holding a MemoryStore session ID.
const SessionCookieName = "gmailreader_session"

type entry struct {
	value   string
	expires time.Time
}

// MemoryStore keeps values on the server, keyed by a random session ID
// carried in a cookie. Expired sessions are removed by a background loop
// until Stop is called.
type MemoryStore struct {
	opts     Options
	sessions map[string]map[string]entry
	mu       sync.RWMutex
	now      func() time.Time
	logger   *slog.Logger
	metrics  *instrumentation.Metrics

	cleanupTicker *time.Ticker
	cleanupDone   chan struct{}
	stopOnce      sync.Once
}

// NewMemoryStore creates a MemoryStore that sweeps expired sessions every
// cleanupInterval.
func NewMemoryStore(opts Options, cleanupInterval time.Duration, logger *slog.Logger, metrics *instrumentation.Metrics) *MemoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}

	s := &MemoryStore{
		opts:          opts,
		sessions:      make(map[string]map[string]entry),
		now:           time.Now,
		logger:        logger,
		metrics:       metrics,
		cleanupTicker: time.NewTicker(cleanupInterval),
		cleanupDone:   make(chan struct{}),
	}

	go s.cleanupLoop()

	return s
}

func (s *MemoryStore) sessionID(r *http.Request) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}
	return c.Value
}

// Save stores values under the request's session, starting a new session
// when the request has none.
func (s *MemoryStore) Save(w http.ResponseWriter, r *http.Request, values map[string]string, ttl time.Duration) error {
	now := s.now()
	expires := now.Add(ttl)

	s.mu.Lock()
	sid := s.sessionID(r)
	sess, ok := s.sessions[sid]
	if sid == "" || !ok {
		sid = uuid.NewString()
		sess = make(map[string]entry)
		s.sessions[sid] = sess
		s.metrics.IncrementActiveSessions(context.Background())
	}
	for key, value := range values {
		sess[key] = entry{value: value, expires: expires}
	}
	// The cookie must outlive every entry it leads to, not just this one.
	for _, e := range sess {
		if e.expires.After(expires) {
			expires = e.expires
		}
	}
	maxAge := int(expires.Sub(now).Seconds())
	s.mu.Unlock()

	http.SetCookie(w, s.opts.cookie(SessionCookieName, sid, maxAge))
	return nil
}

// Load returns an unexpired value for key.
func (s *MemoryStore) Load(r *http.Request, key string) (string, bool) {
	sid := s.sessionID(r)
	if sid == "" {
		return "", false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[sid][key]
	if !ok || !s.now().Before(e.expires) {
		return "", false
	}
	return e.value, true
}

// Clear removes keys from the session. An emptied session is dropped and
// its cookie expired.
func (s *MemoryStore) Clear(w http.ResponseWriter, r *http.Request, keys ...string) {
	sid := s.sessionID(r)
	if sid == "" {
		return
	}

	s.mu.Lock()
	sess, ok := s.sessions[sid]
	if ok {
		for _, key := range keys {
			delete(sess, key)
		}
	}
	empty := ok && len(sess) == 0
	if empty {
		delete(s.sessions, sid)
		s.metrics.DecrementActiveSessions(context.Background())
	}
	s.mu.Unlock()

	if empty || !ok {
		http.SetCookie(w, s.opts.cookie(SessionCookieName, "", -1))
	}
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// sweep drops expired values and sessions left empty.
func (s *MemoryStore) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for sid, sess := range s.sessions {
		for key, e := range sess {
			if !now.Before(e.expires) {
				delete(sess, key)
			}
		}
		if len(sess) == 0 {
			delete(s.sessions, sid)
			s.metrics.DecrementActiveSessions(context.Background())
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) cleanupLoop() {
	for {
		select {
		case <-s.cleanupTicker.C:
			if n := s.sweep(); n > 0 {
				s.logger.Info("Cleaned up expired sessions", "count", n)
			}
		case <-s.cleanupDone:
			return
		}
	}
}

// Stop ends the cleanup loop. It is safe to call more than once.
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() {
		s.cleanupTicker.Stop()
		close(s.cleanupDone)
	})
}
