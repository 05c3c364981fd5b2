package cleaner

import (
	"bytes"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// noiseSelector matches elements that never carry readable content.
var noiseSelector = cascadia.MustCompile(
	"script, style, noscript, iframe, template, svg, canvas, object, embed, link, meta, base",
)

var bodySelector = cascadia.MustCompile("body")

// CleanHTML removes non-content elements and comments and returns the
// rendered children of <body>. Documents without a body render whole.
func CleanHTML(rawHTML string) (string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}

	for _, n := range cascadia.QueryAll(doc, noiseSelector) {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
	removeComments(doc)

	root := cascadia.Query(doc, bodySelector)
	if root == nil {
		root = doc
	}

	var buf bytes.Buffer
	for child := root.FirstChild; child != nil; child = child.NextSibling {
		if err := html.Render(&buf, child); err != nil {
			return "", err
		}
	}
	return strings.TrimSpace(buf.String()), nil
}

func removeComments(n *html.Node) {
	for child := n.FirstChild; child != nil; {
		next := child.NextSibling
		if child.Type == html.CommentNode {
			n.RemoveChild(child)
		} else {
			removeComments(child)
		}
		child = next
	}
}
