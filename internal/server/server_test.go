package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/teemow/gmailreader/internal/gmail"
	"github.com/teemow/gmailreader/internal/gmail/gmailtest"
	"github.com/teemow/gmailreader/internal/google"
	"github.com/teemow/gmailreader/internal/session"
)

const goodCode = "good-code"

// testEnv is a running web server backed by fake Google endpoints.
type testEnv struct {
	server *httptest.Server
	gmail  *gmailtest.Server
	client *http.Client
}

// newTokenServer fakes Google's token endpoint. Only goodCode is accepted.
func newTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if r.Form.Get("code") != goodCode {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Bad Request"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  gmailtest.DefaultToken,
			"refresh_token": "refresh-1",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"scope":         "https://www.googleapis.com/auth/gmail.readonly",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestEnv(t *testing.T, store session.Store) *testEnv {
	t.Helper()

	tokenSrv := newTokenServer(t)
	gmailSrv := gmailtest.NewServer(t)
	gmailSrv.AddMessage(gmailtest.NewMessage("m1", "Alice <alice@example.com>", "Hello", "plain one", "<p>html one</p>", "INBOX", "UNREAD"))
	gmailSrv.AddMessage(gmailtest.NewMessage("m2", "Bob <bob@example.com>", "Report", "plain two", "", "INBOX"))
	gmailSrv.AddMessage(gmailtest.NewMessage("m3", "Carol <carol@example.com>", "Archived", "plain three", ""))

	manager, err := google.NewManager(google.OAuthConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:3333/api/auth/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://accounts.example.com/auth",
			TokenURL:  tokenSrv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	})
	require.NoError(t, err)

	if store == nil {
		sealer, err := session.NewSealer(mustKey(t))
		require.NoError(t, err)
		store = session.NewCookieStore(sealer, session.Options{})
	}

	sc, err := NewServerContext(context.Background(), Options{
		OAuth:   manager,
		Mailbox: gmail.NewMailbox(gmail.WithEndpoint(gmailSrv.Endpoint()), gmail.WithTimeout(5*time.Second)),
		Store:   store,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	httpSrv, err := NewHTTPServer(sc, "http://localhost:3333")
	require.NoError(t, err)

	ts := httptest.NewServer(httpSrv.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testEnv{
		server: ts,
		gmail:  gmailSrv,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func mustKey(t *testing.T) []byte {
	t.Helper()
	key, err := session.GenerateKey()
	require.NoError(t, err)
	return key
}

func (e *testEnv) do(t *testing.T, method, path string, header http.Header) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func (e *testEnv) getJSON(t *testing.T, path string, header http.Header, v any) int {
	t.Helper()
	resp, body := e.do(t, http.MethodGet, path, header)
	require.NoError(t, json.Unmarshal(body, v), "body: %s", body)
	return resp.StatusCode
}

// login runs the authorization flow and returns the callback redirect.
func (e *testEnv) login(t *testing.T, code string) string {
	t.Helper()

	var urlResp authURLResponse
	require.Equal(t, http.StatusOK, e.getJSON(t, "/api/auth/url", nil, &urlResp))
	authURL, err := url.Parse(urlResp.AuthURL)
	require.NoError(t, err)

	q := url.Values{"code": {code}, "state": {authURL.Query().Get("state")}}
	resp, _ := e.do(t, http.MethodGet, "/api/auth/callback?"+q.Encode(), nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	return resp.Header.Get("Location")
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": {"Bearer " + token}}
}

func TestAuthURL(t *testing.T) {
	env := newTestEnv(t, nil)

	var resp authURLResponse
	require.Equal(t, http.StatusOK, env.getJSON(t, "/api/auth/url", nil, &resp))

	u, err := url.Parse(resp.AuthURL)
	require.NoError(t, err)
	assert.Equal(t, "offline", u.Query().Get("access_type"))
	assert.Equal(t, "consent", u.Query().Get("prompt"))
	assert.Equal(t, "http://localhost:3333/api/auth/callback", u.Query().Get("redirect_uri"))
	assert.NotEmpty(t, u.Query().Get("state"))
}

func TestSessionFlow(t *testing.T) {
	stores := map[string]session.Store{
		"cookie": nil,
		"memory": session.NewMemoryStore(session.Options{}, time.Hour, nil, nil),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			if mem, ok := store.(*session.MemoryStore); ok {
				t.Cleanup(mem.Stop)
			}
			env := newTestEnv(t, store)

			var status map[string]any
			require.Equal(t, http.StatusOK, env.getJSON(t, "/api/auth/status", nil, &status))
			assert.Equal(t, false, status["authenticated"])
			assert.NotContains(t, status, "email")

			assert.Equal(t, "/?success=true", env.login(t, goodCode))

			require.Equal(t, http.StatusOK, env.getJSON(t, "/api/auth/status", nil, &status))
			assert.Equal(t, true, status["authenticated"])
			assert.Equal(t, "jane@example.com", status["email"])

			var export google.ExportData
			require.Equal(t, http.StatusOK, env.getJSON(t, "/api/auth/export", nil, &export))
			assert.True(t, export.Success)
			assert.Equal(t, gmailtest.DefaultToken, export.Data.AccessToken)
			assert.Equal(t, "refresh-1", export.Data.RefreshToken)
			assert.Equal(t, "Bearer "+gmailtest.DefaultToken, export.Usage.Example.Headers["Authorization"])

			var list messagesResponse
			require.Equal(t, http.StatusOK, env.getJSON(t, "/api/gmail/messages?labelIds=INBOX", nil, &list))
			require.Len(t, list.Messages, 2)
			assert.Equal(t, "m1", list.Messages[0].ID)
			assert.Equal(t, "Hello", list.Messages[0].Subject)
			assert.Equal(t, "10", env.gmail.LastListQuery().Get("maxResults"))

			var detail messageResponse
			require.Equal(t, http.StatusOK, env.getJSON(t, "/api/gmail/messages/m1", nil, &detail))
			assert.Equal(t, "<p>html one</p>", detail.Message.BodyHTML)
			assert.Equal(t, "plain one", detail.Message.BodyText)

			resp, body := env.do(t, http.MethodPost, "/api/auth/logout", nil)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.JSONEq(t, `{"success":true}`, string(body))

			require.Equal(t, http.StatusOK, env.getJSON(t, "/api/auth/status", nil, &status))
			assert.Equal(t, false, status["authenticated"])
		})
	}
}

func TestCallbackFailures(t *testing.T) {
	t.Run("missing code", func(t *testing.T) {
		env := newTestEnv(t, nil)
		resp, _ := env.do(t, http.MethodGet, "/api/auth/callback", nil)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/?error=no_code", resp.Header.Get("Location"))
	})

	t.Run("rejected code", func(t *testing.T) {
		env := newTestEnv(t, nil)
		assert.Equal(t, "/?error=auth_failed", env.login(t, "reused-code"))

		var status map[string]any
		env.getJSON(t, "/api/auth/status", nil, &status)
		assert.Equal(t, false, status["authenticated"])
	})

	t.Run("state mismatch", func(t *testing.T) {
		env := newTestEnv(t, nil)
		var urlResp authURLResponse
		env.getJSON(t, "/api/auth/url", nil, &urlResp)

		resp, _ := env.do(t, http.MethodGet, "/api/auth/callback?code="+goodCode+"&state=forged", nil)
		assert.Equal(t, "/?error=auth_failed", resp.Header.Get("Location"))
	})

	t.Run("no stored state", func(t *testing.T) {
		env := newTestEnv(t, nil)
		resp, _ := env.do(t, http.MethodGet, "/api/auth/callback?code="+goodCode+"&state=anything", nil)
		assert.Equal(t, "/?error=auth_failed", resp.Header.Get("Location"))

		var status map[string]any
		env.getJSON(t, "/api/auth/status", nil, &status)
		assert.Equal(t, false, status["authenticated"])
	})

	t.Run("missing state", func(t *testing.T) {
		env := newTestEnv(t, nil)
		var urlResp authURLResponse
		env.getJSON(t, "/api/auth/url", nil, &urlResp)

		resp, _ := env.do(t, http.MethodGet, "/api/auth/callback?code="+goodCode, nil)
		assert.Equal(t, "/?error=auth_failed", resp.Header.Get("Location"))
	})

	t.Run("profile rejected", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.gmail.SetToken("another-token")
		assert.Equal(t, "/?error=auth_failed", env.login(t, goodCode))
	})
}

func TestSessionRoutes_Unauthenticated(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/api/gmail/messages", "/api/gmail/messages/m1"} {
		var errResp errorResponse
		assert.Equal(t, http.StatusUnauthorized, env.getJSON(t, path, nil, &errResp), path)
		assert.Equal(t, msgNotAuthenticated, errResp.Error)
	}

	var errResp errorResponse
	assert.Equal(t, http.StatusUnauthorized, env.getJSON(t, "/api/auth/export", nil, &errResp))
	assert.JSONEq(t, `{"success":false,"error":"Not authenticated. Please login first."}`, mustJSON(t, errResp))
}

func TestSessionGet_Errors(t *testing.T) {
	env := newTestEnv(t, nil)
	require.Equal(t, "/?success=true", env.login(t, goodCode))

	var errResp errorResponse
	assert.Equal(t, http.StatusNotFound, env.getJSON(t, "/api/gmail/messages/missing", nil, &errResp))
	assert.Equal(t, msgMessageNotFound, errResp.Error)

	env.gmail.FailMessage("m2", http.StatusInternalServerError)
	assert.Equal(t, http.StatusInternalServerError, env.getJSON(t, "/api/gmail/messages/m2", nil, &errResp))
	assert.Equal(t, msgGetFailed, errResp.Error)
	assert.Empty(t, errResp.Details)

	assert.Equal(t, http.StatusInternalServerError, env.getJSON(t, "/api/gmail/messages", nil, &errResp))
	assert.Equal(t, msgListFailed, errResp.Error)
}

func TestBearerList(t *testing.T) {
	env := newTestEnv(t, nil)

	var resp struct {
		Success bool           `json:"success"`
		Data    bearerListData `json:"data"`
	}
	require.Equal(t, http.StatusOK, env.getJSON(t, "/api/v1/messages?maxResults=2", bearer(gmailtest.DefaultToken), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Data.Total)
	require.Len(t, resp.Data.Messages, 2)
	assert.Equal(t, "m1", resp.Data.Messages[0].ID)
	assert.Equal(t, "m2", resp.Data.Messages[1].ID)

	require.Equal(t, http.StatusOK, env.getJSON(t, "/api/v1/messages", bearer(gmailtest.DefaultToken), &resp))
	assert.Equal(t, 3, resp.Data.Total)
	assert.Equal(t, "20", env.gmail.LastListQuery().Get("maxResults"))

	env.getJSON(t, "/api/v1/messages?maxResults=500", bearer(gmailtest.DefaultToken), &resp)
	assert.Equal(t, "100", env.gmail.LastListQuery().Get("maxResults"))
}

func TestBearerList_Errors(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name       string
		header     http.Header
		setup      func()
		wantStatus int
		wantError  string
		wantDetail bool
	}{
		{"missing header", nil, nil, http.StatusUnauthorized, msgBearerMissing, false},
		{"wrong scheme", http.Header{"Authorization": {"Basic abc"}}, nil, http.StatusUnauthorized, msgBearerMissing, false},
		{"rejected token", bearer("expired"), nil, http.StatusUnauthorized, msgBearerInvalid, false},
		{
			name:       "upstream failure",
			header:     bearer(gmailtest.DefaultToken),
			setup:      func() { env.gmail.FailMessage("m3", http.StatusInternalServerError) },
			wantStatus: http.StatusInternalServerError,
			wantError:  msgListFailed,
			wantDetail: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			var errResp errorResponse
			assert.Equal(t, tt.wantStatus, env.getJSON(t, "/api/v1/messages", tt.header, &errResp))
			assert.False(t, errResp.Success)
			assert.Equal(t, tt.wantError, errResp.Error)
			assert.Equal(t, tt.wantDetail, errResp.Details != "")
		})
	}
}

func TestBearerGet(t *testing.T) {
	env := newTestEnv(t, nil)

	var resp struct {
		Success bool                `json:"success"`
		Data    gmail.MessageDetail `json:"data"`
	}
	require.Equal(t, http.StatusOK, env.getJSON(t, "/api/v1/messages/m2", bearer(gmailtest.DefaultToken), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Report", resp.Data.Subject)
	assert.Equal(t, "plain two", resp.Data.BodyText)
	assert.Empty(t, resp.Data.BodyHTML)

	var errResp errorResponse
	assert.Equal(t, http.StatusNotFound, env.getJSON(t, "/api/v1/messages/nope", bearer(gmailtest.DefaultToken), &errResp))
	assert.Equal(t, msgMessageNotFound, errResp.Error)

	assert.Equal(t, http.StatusUnauthorized, env.getJSON(t, "/api/v1/messages/m2", bearer("expired"), &errResp))
	assert.Equal(t, msgBearerInvalid, errResp.Error)

	env.gmail.FailMessage("m1", http.StatusInternalServerError)
	assert.Equal(t, http.StatusInternalServerError, env.getJSON(t, "/api/v1/messages/m1", bearer(gmailtest.DefaultToken), &errResp))
	assert.Equal(t, msgGetFailed, errResp.Error)
	assert.NotEmpty(t, errResp.Details)
}

func TestRoutes_MethodAndSecurityHeaders(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, _ := env.do(t, http.MethodGet, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestNewServerContext_Required(t *testing.T) {
	_, err := NewServerContext(context.Background(), Options{})
	assert.Error(t, err)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}
