package server

import (
	"errors"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"

	"github.com/teemow/gmailreader/internal/gmail"
	"github.com/teemow/gmailreader/internal/google"
	"github.com/teemow/gmailreader/internal/logging"
	"github.com/teemow/gmailreader/internal/session"
)

// Default listing sizes per surface.
const (
	sessionDefaultMaxResults = gmail.DefaultMaxResults
	bearerDefaultMaxResults  = 20
)

type messagesResponse struct {
	Messages []*gmail.MessageSummary `json:"messages"`
}

type messageResponse struct {
	Message *gmail.MessageDetail `json:"message"`
}

type bearerListData struct {
	Messages []*gmail.MessageSummary `json:"messages"`
	Total    int                     `json:"total"`
}

// listOptions reads maxResults and labelIds from the query string.
// A missing or unparsable maxResults falls back to def.
func listOptions(r *http.Request, def int64) gmail.ListOptions {
	query := r.URL.Query()
	n, err := strconv.ParseInt(query.Get("maxResults"), 10, 64)
	if err != nil {
		n = 0
	}
	return gmail.ListOptions{
		MaxResults: gmail.ClampMaxResults(n, def),
		LabelIDs:   gmail.ParseLabelIDs(query.Get("labelIds")),
	}
}

// sessionTokenSource builds a token source from the session credential.
func (s *HTTPServer) sessionTokenSource(r *http.Request) (oauth2.TokenSource, error) {
	raw, ok := s.sc.store.Load(r, session.KeyTokens)
	if !ok {
		return nil, errors.New("no session credential")
	}
	cred, err := google.ParseCredential(raw)
	if err != nil {
		return nil, err
	}
	return s.sc.oauth.Attach(r.Context(), cred), nil
}

// bearerTokenSource builds a static token source from the Authorization header.
func (s *HTTPServer) bearerTokenSource(r *http.Request) (oauth2.TokenSource, error) {
	token, err := google.ParseBearerHeader(r.Header.Get("Authorization"))
	if err != nil {
		return nil, err
	}
	return oauth2.StaticTokenSource(google.CredentialFromBearer(token).Token()), nil
}

// handleSessionList lists messages for the logged-in user.
func (s *HTTPServer) handleSessionList(w http.ResponseWriter, r *http.Request) {
	ts, err := s.sessionTokenSource(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgNotAuthenticated, "")
		return
	}

	messages, err := s.sc.mailbox.ListMessages(r.Context(), ts, listOptions(r, sessionDefaultMaxResults))
	if err != nil {
		s.sc.logger.Warn("session message listing failed", logging.Err(err))
		if errors.Is(err, google.ErrAuth) {
			writeError(w, http.StatusUnauthorized, msgNotAuthenticated, "")
			return
		}
		writeError(w, http.StatusInternalServerError, msgListFailed, "")
		return
	}

	writeJSON(w, http.StatusOK, messagesResponse{Messages: messages})
}

// handleSessionGet returns one message for the logged-in user.
func (s *HTTPServer) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	ts, err := s.sessionTokenSource(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgNotAuthenticated, "")
		return
	}

	id := r.PathValue("id")
	detail, err := s.sc.mailbox.GetMessage(r.Context(), ts, id)
	if err != nil {
		s.sc.logger.Warn("session message fetch failed", logging.MessageID(id), logging.Err(err))
		switch google.HTTPStatus(err) {
		case http.StatusUnauthorized:
			writeError(w, http.StatusUnauthorized, msgNotAuthenticated, "")
		case http.StatusNotFound:
			writeError(w, http.StatusNotFound, msgMessageNotFound, "")
		default:
			writeError(w, http.StatusInternalServerError, msgGetFailed, "")
		}
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: detail})
}

// handleBearerList lists messages for the owner of the bearer token.
func (s *HTTPServer) handleBearerList(w http.ResponseWriter, r *http.Request) {
	ts, err := s.bearerTokenSource(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgBearerMissing, "")
		return
	}

	messages, err := s.sc.mailbox.ListMessages(r.Context(), ts, listOptions(r, bearerDefaultMaxResults))
	if err != nil {
		s.sc.logger.Warn("bearer message listing failed", logging.Err(err))
		if errors.Is(err, google.ErrAuth) {
			writeError(w, http.StatusUnauthorized, msgBearerInvalid, "")
			return
		}
		writeError(w, http.StatusInternalServerError, msgListFailed, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, successResponse{
		Success: true,
		Data:    bearerListData{Messages: messages, Total: len(messages)},
	})
}

// handleBearerGet returns one message for the owner of the bearer token.
func (s *HTTPServer) handleBearerGet(w http.ResponseWriter, r *http.Request) {
	ts, err := s.bearerTokenSource(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgBearerMissing, "")
		return
	}

	id := r.PathValue("id")
	detail, err := s.sc.mailbox.GetMessage(r.Context(), ts, id)
	if err != nil {
		s.sc.logger.Warn("bearer message fetch failed", logging.MessageID(id), logging.Err(err))
		switch google.HTTPStatus(err) {
		case http.StatusUnauthorized:
			writeError(w, http.StatusUnauthorized, msgBearerInvalid, "")
		case http.StatusNotFound:
			writeError(w, http.StatusNotFound, msgMessageNotFound, "")
		default:
			writeError(w, http.StatusInternalServerError, msgGetFailed, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true, Data: detail})
}
