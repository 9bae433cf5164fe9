// Package htmlutil reduces HTML response bodies to short plain text.
package htmlutil

import (
	"strings"

	"github.com/k3a/html2text"
)

// ToText converts HTML to plain text, decoding entities and dropping tags.
func ToText(s string) string {
	return html2text.HTML2Text(s)
}

// Snippet returns body as a single line of at most max runes. HTML bodies,
// such as gateway error pages, are converted to text first.
func Snippet(body, contentType string, max int) string {
	if strings.Contains(strings.ToLower(contentType), "html") || looksLikeHTML(body) {
		body = ToText(body)
	}
	body = strings.Join(strings.Fields(body), " ")
	if max > 0 {
		if r := []rune(body); len(r) > max {
			body = string(r[:max]) + "..."
		}
	}
	return body
}

func looksLikeHTML(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(s, "<!doctype html") || strings.HasPrefix(s, "<html")
}
