package server

import (
	"fmt"
	"net/http"

	"github.com/teemow/gmailreader/internal/google"
	"github.com/teemow/gmailreader/internal/instrumentation"
	"github.com/teemow/gmailreader/internal/logging"
	"github.com/teemow/gmailreader/internal/session"
)

// Callback redirect targets.
const (
	redirectSuccess    = "/?success=true"
	redirectNoCode     = "/?error=no_code"
	redirectAuthFailed = "/?error=auth_failed"
)

var errStateMismatch = fmt.Errorf("OAuth state mismatch: %w", google.ErrAuth)

type authURLResponse struct {
	AuthURL string `json:"authUrl"`
}

// handleAuthURL returns the Google consent page URL. A fresh state value is
// stored in the session and checked by the callback.
func (s *HTTPServer) handleAuthURL(w http.ResponseWriter, r *http.Request) {
	state, err := session.GenerateState()
	if err != nil {
		s.sc.logger.Error("failed to generate OAuth state", logging.Err(err))
		writeError(w, http.StatusInternalServerError, msgAuthURLFailed, "")
		return
	}

	if err := s.sc.store.Save(w, r, map[string]string{session.KeyState: state}, stateTTL); err != nil {
		s.sc.logger.Error("failed to store OAuth state", logging.Err(err))
		writeError(w, http.StatusInternalServerError, msgAuthURLFailed, "")
		return
	}

	writeJSON(w, http.StatusOK, authURLResponse{AuthURL: s.sc.oauth.AuthorizationURL(state)})
}

// handleCallback completes the authorization code flow and stores the
// credential and the account's email address in the session.
func (s *HTTPServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()
	audit := instrumentation.NewAuditEvent(instrumentation.ActionLogin).
		WithSurface(instrumentation.SurfaceSession).
		WithSpanContext(ctx)

	code := query.Get("code")
	if code == "" {
		http.Redirect(w, r, redirectNoCode, http.StatusFound)
		return
	}

	fail := func(msg string, err error) {
		s.sc.logger.Warn(msg, logging.Operation("oauth_callback"), logging.Err(err))
		s.sc.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure, "")
		s.sc.logAudit(audit, err)
		http.Redirect(w, r, redirectAuthFailed, http.StatusFound)
	}

	// Only flows started at /api/auth/url in this browser session complete here.
	expected, ok := s.sc.store.Load(r, session.KeyState)
	if !ok || expected == "" || expected != query.Get("state") {
		fail("OAuth state mismatch", errStateMismatch)
		return
	}

	cred, err := s.sc.oauth.Exchange(ctx, code)
	if err != nil {
		fail("authorization code exchange failed", err)
		return
	}

	profile, err := s.sc.mailbox.GetProfile(ctx, s.sc.oauth.Attach(ctx, cred))
	if err != nil {
		fail("failed to read Gmail profile", err)
		return
	}

	raw, err := cred.Marshal()
	if err != nil {
		fail("failed to encode credential", err)
		return
	}

	values := map[string]string{
		session.KeyTokens:    raw,
		session.KeyUserEmail: profile.EmailAddress,
	}
	if err := s.sc.store.Save(w, r, values, s.sc.sessionTTL); err != nil {
		fail("failed to save session", err)
		return
	}
	s.sc.store.Clear(w, r, session.KeyState)

	audit.WithUser(profile.EmailAddress)
	s.sc.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess, profile.EmailAddress)
	s.sc.logAudit(audit, nil)
	s.sc.logger.Info("user logged in", logging.UserHash(profile.EmailAddress))

	http.Redirect(w, r, redirectSuccess, http.StatusFound)
}

// handleStatus reports whether the session holds a credential.
// email is null when logged in without a known address.
func (s *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.sc.store.Load(r, session.KeyTokens); !ok {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	var email any
	if e, ok := s.sc.store.Load(r, session.KeyUserEmail); ok && e != "" {
		email = e
	}
	writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "email": email})
}

// handleExport returns the session credential for use with the bearer API.
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	audit := instrumentation.NewAuditEvent(instrumentation.ActionExport).
		WithSurface(instrumentation.SurfaceSession).
		WithSpanContext(r.Context())
	email, _ := s.sc.store.Load(r, session.KeyUserEmail)
	audit.WithUser(email)

	raw, ok := s.sc.store.Load(r, session.KeyTokens)
	if !ok {
		writeError(w, http.StatusUnauthorized, msgExportNotAuth, "")
		return
	}

	cred, err := google.ParseCredential(raw)
	if err != nil {
		s.sc.logger.Warn("stored credential is unreadable", logging.Err(err))
		s.sc.logAudit(audit, err)
		writeError(w, http.StatusInternalServerError, msgExportFailed, "")
		return
	}

	s.sc.logAudit(audit, nil)
	writeJSON(w, http.StatusOK, cred.Export())
}

// handleLogout removes the credential and email from the session.
func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	email, _ := s.sc.store.Load(r, session.KeyUserEmail)
	s.sc.store.Clear(w, r, session.KeyTokens, session.KeyUserEmail)

	s.sc.logAudit(instrumentation.NewAuditEvent(instrumentation.ActionLogout).
		WithSurface(instrumentation.SurfaceSession).
		WithSpanContext(r.Context()).
		WithUser(email), nil)

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
