package browser

import (
	"strings"

	"golang.org/x/net/html"
)

// VisibleText extracts a whitespace-normalized plain-text sample from raw
// HTML, skipping script/style noise, capped at maxLen characters. It is used
// for completion checks and DOM snapshots, where structure matters less than
// what a human would read on the page.
func VisibleText(rawHTML string, maxLen int) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}

	var builder strings.Builder
	collectText(doc, &builder, maxLen)

	text := strings.Join(strings.Fields(builder.String()), " ")
	if maxLen > 0 && len(text) > maxLen {
		text = text[:maxLen] + "..."
	}
	return text
}

func collectText(n *html.Node, builder *strings.Builder, maxLen int) {
	if maxLen > 0 && builder.Len() > maxLen*2 {
		return
	}
	switch n.Type {
	case html.CommentNode:
		return
	case html.ElementNode:
		if isNoiseElement(strings.ToLower(n.Data)) {
			return
		}
	case html.TextNode:
		if text := strings.TrimSpace(n.Data); text != "" {
			builder.WriteString(text)
			builder.WriteString(" ")
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, builder, maxLen)
	}
}

func isNoiseElement(tagName string) bool {
	switch tagName {
	case "script", "style", "noscript", "template", "svg", "head":
		return true
	}
	return false
}
