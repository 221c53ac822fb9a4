// Package corpus walks an on-disk corpus of {url, content} records and
// extracts the visible text from each document's HTML content.
package corpus

import (
	"strings"

	"golang.org/x/net/html"
)

// ExtractText interprets raw as HTML and concatenates its text nodes,
// separated by spaces. The exact stripping strategy only affects ranking
// quality, not correctness, so this stays a straightforward tree walk
// rather than a full rendering pipeline.
func ExtractText(raw string) string {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		// A document that doesn't even parse as HTML still has bytes we can
		// tokenize; treat it as plain text rather than discarding it.
		return raw
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String()
}
