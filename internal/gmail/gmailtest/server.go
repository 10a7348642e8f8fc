// Package gmailtest provides an in-memory Gmail API server for tests.
package gmailtest

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	gmail "google.golang.org/api/gmail/v1"
)

// DefaultToken is the bearer token the server accepts unless changed.
const DefaultToken = "test-access-token"

// Server serves the subset of the Gmail API used by the mailbox:
// messages.list, messages.get and getProfile for user "me".
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	token     string
	email     string
	order     []string
	messages  map[string]*gmail.Message
	failures  map[string]int
	delays    map[string]time.Duration
	listQuery url.Values
}

// NewServer starts a server that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		token:    DefaultToken,
		email:    "jane@example.com",
		messages: make(map[string]*gmail.Message),
		failures: make(map[string]int),
		delays:   make(map[string]time.Duration),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /gmail/v1/users/me/messages", s.handleList)
	mux.HandleFunc("GET /gmail/v1/users/me/messages/{id}", s.handleGet)
	mux.HandleFunc("GET /gmail/v1/users/me/profile", s.handleProfile)

	s.Server = httptest.NewServer(s.authenticate(mux))
	t.Cleanup(s.Close)
	return s
}

// Endpoint returns the base URL to pass to gmail.WithEndpoint.
func (s *Server) Endpoint() string {
	return s.URL + "/"
}

// SetToken changes the accepted bearer token.
func (s *Server) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// SetEmail changes the profile email address.
func (s *Server) SetEmail(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.email = email
}

// AddMessage stores msg. Listings return messages in insertion order.
func (s *Server) AddMessage(msg *gmail.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[msg.Id]; !ok {
		s.order = append(s.order, msg.Id)
	}
	s.messages[msg.Id] = msg
}

// FailMessage makes fetching id fail with the given HTTP status.
func (s *Server) FailMessage(id string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[id] = status
}

// DelayMessage delays the response for id.
func (s *Server) DelayMessage(id string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[id] = d
}

// LastListQuery returns the query of the most recent messages.list call.
func (s *Server) LastListQuery() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listQuery
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		want := "Bearer " + s.token
		s.mu.Unlock()

		if r.Header.Get("Authorization") != want {
			writeError(w, http.StatusUnauthorized, "Request had invalid authentication credentials.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	labels := q["labelIds"]

	s.mu.Lock()
	s.listQuery = q
	var refs []*gmail.Message
	for _, id := range s.order {
		msg := s.messages[id]
		if !hasLabels(msg, labels) {
			continue
		}
		refs = append(refs, &gmail.Message{Id: msg.Id, ThreadId: msg.ThreadId})
	}
	s.mu.Unlock()

	if limit, err := strconv.Atoi(q.Get("maxResults")); err == nil && limit >= 0 && limit < len(refs) {
		refs = refs[:limit]
	}

	writeJSON(w, &gmail.ListMessagesResponse{
		Messages:           refs,
		ResultSizeEstimate: int64(len(refs)),
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	msg, ok := s.messages[id]
	status := s.failures[id]
	delay := s.delays[id]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	switch {
	case status != 0:
		writeError(w, status, http.StatusText(status))
	case !ok:
		writeError(w, http.StatusNotFound, "Requested entity was not found.")
	default:
		writeJSON(w, msg)
	}
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	profile := &gmail.Profile{
		EmailAddress:  s.email,
		MessagesTotal: int64(len(s.messages)),
		ThreadsTotal:  int64(len(s.messages)),
	}
	s.mu.Unlock()

	writeJSON(w, profile)
}

func hasLabels(msg *gmail.Message, labels []string) bool {
	for _, l := range labels {
		if !slices.Contains(msg.LabelIds, l) {
			return false
		}
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    status,
			"message": message,
		},
	})
}

// NewMessage builds a full-format message with the usual headers and a
// multipart/alternative body. Empty bodies are left out.
func NewMessage(id, from, subject, text, html string, labels ...string) *gmail.Message {
	payload := &gmail.MessagePart{
		MimeType: "multipart/alternative",
		Headers: []*gmail.MessagePartHeader{
			{Name: "From", Value: from},
			{Name: "To", Value: "jane@example.com"},
			{Name: "Subject", Value: subject},
		},
	}
	if text != "" {
		payload.Parts = append(payload.Parts, &gmail.MessagePart{
			MimeType: "text/plain",
			Body:     &gmail.MessagePartBody{Data: base64.URLEncoding.EncodeToString([]byte(text))},
		})
	}
	if html != "" {
		payload.Parts = append(payload.Parts, &gmail.MessagePart{
			MimeType: "text/html",
			Body:     &gmail.MessagePartBody{Data: base64.URLEncoding.EncodeToString([]byte(html))},
		})
	}

	return &gmail.Message{
		Id:           id,
		ThreadId:     "thread-" + id,
		LabelIds:     labels,
		Snippet:      subject,
		InternalDate: 1700000000000,
		Payload:      payload,
	}
}
