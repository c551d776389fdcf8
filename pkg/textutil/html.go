package textutil

import (
	"strings"

	"golang.org/x/net/html"
)

// PlainText renders an HTML reply fragment for a terminal: list items
// become "- " lines, <br> a line break, every other tag is dropped.
// Input that does not parse is returned unchanged.
func PlainText(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return fragment
	}
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}

	var b strings.Builder
	walk(doc, &b)
	return cleanLines(b.String())
}

func walk(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style":
			return
		case "br":
			b.WriteString("\n")
			return
		case "li":
			b.WriteString("\n- ")
		case "p", "ul", "ol", "div":
			b.WriteString("\n")
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, b)
	}

	if n.Type == html.ElementNode && (n.Data == "ul" || n.Data == "ol" || n.Data == "p") {
		b.WriteString("\n")
	}
}

// cleanLines collapses runs of spaces and drops empty lines.
func cleanLines(text string) string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
