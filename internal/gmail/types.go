package gmail

import "strings"

// DefaultMaxResults is used when a listing does not ask for a size.
const DefaultMaxResults = 10

// MaxListResults is the largest listing the presentation layers request.
const MaxListResults = 100

// MessageSummary is the list view of a message.
type MessageSummary struct {
	ID       string   `json:"id"`
	ThreadID string   `json:"threadId"`
	LabelIDs []string `json:"labelIds"`
	Snippet  string   `json:"snippet"`
	// InternalDate is milliseconds since the epoch, encoded as a string like the Gmail API does.
	InternalDate int64  `json:"internalDate,string"`
	From         string `json:"from"`
	To           string `json:"to"`
	Subject      string `json:"subject"`
}

// MessageDetail is a summary plus the decoded bodies.
type MessageDetail struct {
	MessageSummary
	BodyHTML string `json:"bodyHtml"`
	BodyText string `json:"bodyText"`
}

// HasBody reports whether either body was extracted.
func (d *MessageDetail) HasBody() bool {
	return d.BodyHTML != "" || d.BodyText != ""
}

// Profile describes the mailbox owner.
type Profile struct {
	EmailAddress  string `json:"emailAddress"`
	MessagesTotal int64  `json:"messagesTotal"`
	ThreadsTotal  int64  `json:"threadsTotal"`
}

// ListOptions controls a message listing.
type ListOptions struct {
	// MaxResults is passed through to the API; the intended range is 1-100.
	MaxResults int64
	// LabelIDs restricts the listing to messages carrying all of these labels.
	LabelIDs []string
}

// MessageResult is the outcome of one fetch in a partial listing.
type MessageResult struct {
	ID      string          `json:"id"`
	Status  string          `json:"status"`
	Message *MessageSummary `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
	Err     error           `json:"-"`
}

// Result statuses for MessageResult.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ParseLabelIDs splits a comma-separated label list, trimming whitespace and
// dropping empty entries. It returns nil when no label remains.
func ParseLabelIDs(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// ClampMaxResults maps a requested listing size into 1..MaxListResults,
// substituting def for values below 1.
func ClampMaxResults(n, def int64) int64 {
	switch {
	case n < 1:
		return def
	case n > MaxListResults:
		return MaxListResults
	default:
		return n
	}
}
