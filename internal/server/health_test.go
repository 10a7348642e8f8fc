package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/gmailreader/internal/gmail"
	"github.com/teemow/gmailreader/internal/google"
	"github.com/teemow/gmailreader/internal/session"
)

func serveHealth(t *testing.T, h *HealthChecker, path string) (int, map[string]any) {
	t.Helper()
	mux := http.NewServeMux()
	h.RegisterHealthEndpoints(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHealthChecker_Readiness(t *testing.T) {
	h := NewHealthChecker(nil)

	code, body := serveHealth(t, h, "/readyz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, healthStatusOK, body["status"])

	h.SetReady(false)
	assert.False(t, h.IsReady())

	code, body = serveHealth(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, healthStatusNotReady, body["status"])

	code, _ = serveHealth(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, code, "liveness ignores readiness")
}

func TestHealthChecker_Shutdown(t *testing.T) {
	manager, err := google.NewManager(google.OAuthConfig{ClientID: "id", RedirectURL: "http://localhost/cb"})
	require.NoError(t, err)

	store := session.NewMemoryStore(session.Options{}, time.Hour, nil, nil)
	t.Cleanup(store.Stop)

	sc, err := NewServerContext(context.Background(), Options{
		OAuth:   manager,
		Mailbox: gmail.NewMailbox(),
		Store:   store,
	})
	require.NoError(t, err)
	h := NewHealthChecker(sc)

	code, body := serveHealth(t, h, "/healthz/detailed")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), body["sessions"])

	require.NoError(t, sc.Shutdown())
	require.NoError(t, sc.Shutdown(), "shutdown is idempotent")
	assert.Error(t, sc.Context().Err())

	code, body = serveHealth(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	checks := body["checks"].(map[string]any)
	assert.Equal(t, healthStatusShuttingDown, checks["shutdown"])

	code, body = serveHealth(t, h, "/healthz/detailed")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, healthStatusShuttingDown, body["status"])
}
