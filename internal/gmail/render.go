package gmail

import (
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
)

// NoContent is shown when a message has no extractable body.
const NoContent = "No content available"

// Format selects how a message body is rendered.
type Format string

// Supported render formats.
const (
	FormatHTML     Format = "html"
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates a format name. An empty name means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatHTML, FormatText, FormatMarkdown:
		return f, nil
	default:
		return "", fmt.Errorf("invalid format %q, must be 'html', 'text' or 'markdown'", s)
	}
}

// HTMLToText strips markup from an HTML body, dropping scripts and styles
// and collapsing blank runs.
func HTMLToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML body: %w", err)
	}
	doc.Find("script, style, head").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, tr, li, h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// HTMLToMarkdown converts an HTML body to Markdown.
func HTMLToMarkdown(html string) (string, error) {
	md, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML body to markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// RenderBody renders a message body in the requested format, falling back
// to whichever body exists. An empty message renders as NoContent.
func RenderBody(d *MessageDetail, format Format) (string, error) {
	if d == nil || !d.HasBody() {
		return NoContent, nil
	}

	switch format {
	case FormatHTML:
		if d.BodyHTML != "" {
			return d.BodyHTML, nil
		}
		return d.BodyText, nil

	case FormatMarkdown:
		if d.BodyHTML != "" {
			return HTMLToMarkdown(d.BodyHTML)
		}
		return d.BodyText, nil

	default:
		if d.BodyText != "" {
			return d.BodyText, nil
		}
		return HTMLToText(d.BodyHTML)
	}
}
