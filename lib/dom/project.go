package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Text returns the concatenated text content of n.
func Text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// SetText replaces the children of n with a single text node.
func SetText(n *html.Node, s string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
}

// Value returns what a user would see as the element's value: the value
// attribute of an input, the text of anything else.
func Value(n *html.Node) string {
	if n.DataAtom == atom.Input {
		v, _ := attr(n, "value")
		return v
	}
	return Text(n)
}

// SetValue is the write side of Value.
func SetValue(n *html.Node, s string) {
	if n.DataAtom == atom.Input {
		setAttr(n, "value", s)
		return
	}
	SetText(n, s)
}
