package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeText lowercases s and collapses every whitespace run to one space
func NormalizeText(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(strings.ToLower(s), " "))
}

// PageText returns the normalized visible text of a fetched page.
// Non-HTML bodies are normalized as-is.
func PageText(body, contentType string) string {
	if !looksLikeHTML(body, contentType) {
		return NormalizeText(body)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return NormalizeText(body)
	}

	doc.Find("script,style,noscript,template,svg,iframe").Remove()

	var buf strings.Builder
	if title := doc.Find("title").First().Text(); title != "" {
		buf.WriteString(title)
		buf.WriteString(" ")
	}

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	for _, n := range root.Nodes {
		collectText(n, &buf)
	}

	return NormalizeText(buf.String())
}

// collectText joins text nodes with spaces so adjacent elements
// ("<li>Slack</li><li>Zapier</li>") do not fuse into one word
func collectText(n *html.Node, buf *strings.Builder) {
	if n.Type == html.TextNode {
		if text := strings.TrimSpace(n.Data); text != "" {
			buf.WriteString(text)
			buf.WriteString(" ")
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, buf)
	}
}

func looksLikeHTML(body, contentType string) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "html") || strings.Contains(ct, "xml") {
		return true
	}
	if ct != "" && !strings.HasPrefix(ct, "text/") {
		return false
	}
	head := strings.ToLower(body)
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype") || strings.Contains(head, "<body")
}
