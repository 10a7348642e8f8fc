package gmail

import (
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// HeaderValue returns the first header matching name, ignoring case, or "".
func HeaderValue(headers []*gmail.MessagePartHeader, name string) string {
	for _, h := range headers {
		if h != nil && strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// summaryFromMessage builds the list view of a full or metadata message.
func summaryFromMessage(msg *gmail.Message) *MessageSummary {
	s := &MessageSummary{
		ID:           msg.Id,
		ThreadID:     msg.ThreadId,
		LabelIDs:     msg.LabelIds,
		Snippet:      msg.Snippet,
		InternalDate: msg.InternalDate,
	}
	if s.LabelIDs == nil {
		s.LabelIDs = []string{}
	}
	if msg.Payload != nil {
		s.From = HeaderValue(msg.Payload.Headers, "From")
		s.To = HeaderValue(msg.Payload.Headers, "To")
		s.Subject = HeaderValue(msg.Payload.Headers, "Subject")
	}
	return s
}

// detailFromMessage builds the detail view, decoding the body.
func detailFromMessage(msg *gmail.Message) (*MessageDetail, MessageBody) {
	body := DecodeBody(msg.Payload)
	return &MessageDetail{
		MessageSummary: *summaryFromMessage(msg),
		BodyHTML:       body.HTML,
		BodyText:       body.Text,
	}, body
}
