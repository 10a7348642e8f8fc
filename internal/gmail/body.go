package gmail

import (
	"encoding/base64"
	"fmt"
	"strings"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/gmailreader/internal/google"
)

// MaxPartDepth bounds recursion into nested multipart containers.
const MaxPartDepth = 32

const (
	mimeTypeHTML  = "text/html"
	mimeTypePlain = "text/plain"
)

// MessageBody holds the decoded bodies of a message. Either may be empty.
type MessageBody struct {
	HTML string
	Text string
}

// Empty reports whether no body could be extracted.
func (b MessageBody) Empty() bool {
	return b.HTML == "" && b.Text == ""
}

// DecodeBody extracts the first HTML and first plain text body from a payload.
//
// Parts are visited depth-first in order. A text/html part with inline data
// fills HTML, a text/plain part fills Text, and any other part with children
// is descended into whatever its type. A payload without parts is a single
// body: HTML when its type is text/html, Text otherwise.
//
// DecodeBody never fails. Data that cannot be decoded leaves its field empty.
func DecodeBody(payload *gmail.MessagePart) MessageBody {
	var w bodyWalker
	if payload == nil {
		return w.body
	}

	if len(payload.Parts) == 0 {
		data := partData(payload)
		if isMimeType(payload, mimeTypeHTML) {
			w.body.HTML = decodeData(data)
		} else {
			w.body.Text = decodeData(data)
		}
		return w.body
	}

	w.walk(payload.Parts, 1)
	return w.body
}

type bodyWalker struct {
	body     MessageBody
	haveHTML bool
	haveText bool
}

func (w *bodyWalker) walk(parts []*gmail.MessagePart, depth int) {
	if depth > MaxPartDepth {
		return
	}

	for _, part := range parts {
		if part == nil {
			continue
		}
		data := partData(part)

		switch {
		case isMimeType(part, mimeTypeHTML) && data != "":
			if !w.haveHTML {
				w.body.HTML = decodeData(data)
				w.haveHTML = true
			}
		case isMimeType(part, mimeTypePlain) && data != "":
			if !w.haveText {
				w.body.Text = decodeData(data)
				w.haveText = true
			}
		case len(part.Parts) > 0:
			w.walk(part.Parts, depth+1)
		}
	}
}

func partData(part *gmail.MessagePart) string {
	if part.Body == nil {
		return ""
	}
	return part.Body.Data
}

func isMimeType(part *gmail.MessagePart, want string) bool {
	mt, _, _ := strings.Cut(part.MimeType, ";")
	return strings.EqualFold(strings.TrimSpace(mt), want)
}

// decodeData decodes a body and returns "" for malformed input.
func decodeData(data string) string {
	if data == "" {
		return ""
	}
	raw, err := decodeBase64(data)
	if err != nil {
		return ""
	}
	return strings.ToValidUTF8(string(raw), "\uFFFD")
}

// decodeBase64 accepts URL-safe and standard alphabets, with or without
// padding, and ignores embedded whitespace.
func decodeBase64(data string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '-':
			return '+'
		case '_':
			return '/'
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, data)
	cleaned = strings.TrimRight(cleaned, "=")

	raw, err := base64.RawStdEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", google.ErrDecode, err)
	}
	return raw, nil
}
