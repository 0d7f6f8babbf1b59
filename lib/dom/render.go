package dom

import (
	"bytes"
	"io"

	"github.com/yosssi/gohtml"
	"golang.org/x/net/html"
)

// RenderMode selects how a private subtree is serialized.
type RenderMode int

const (
	// RenderFlat inlines the private subtree as the host's first children.
	// Use for partial responses swapped into an existing host element.
	RenderFlat RenderMode = iota
	// RenderDeclarative wraps the private subtree in
	// <template shadowrootmode="open"> so browsers attach it as a real
	// shadow root on parse.
	RenderDeclarative
)

// AnnotateFunc returns extra attributes for an element inside a private
// subtree that has listeners for the given events.
type AnnotateFunc func(id string, events []string) []html.Attribute

// RenderOptions configures Element.Render.
type RenderOptions struct {
	Mode     RenderMode
	Annotate AnnotateFunc
}

// Render writes the element, its private subtree and its light children.
// The element's own nodes are not modified.
func (e *Element) Render(w io.Writer, opts RenderOptions) error {
	return html.Render(w, e.renderNode(opts))
}

// RenderInner writes only the private subtree content (no host tag, no
// template wrapper). Returns nothing when no subtree is attached.
func (e *Element) RenderInner(w io.Writer, opts RenderOptions) error {
	if e.shadow == nil {
		return nil
	}
	for _, c := range e.shadow.annotated(opts.Annotate).Children() {
		if err := html.Render(w, c); err != nil {
			return err
		}
	}
	return nil
}

// String renders the element in declarative mode.
func (e *Element) String() string {
	var buf bytes.Buffer
	if err := e.Render(&buf, RenderOptions{Mode: RenderDeclarative}); err != nil {
		return ""
	}
	return buf.String()
}

// RenderTree writes the tree rooted at n, expanding the private subtree of
// every host element listed in hosts.
func RenderTree(w io.Writer, n *html.Node, hosts map[*html.Node]*Element, opts RenderOptions) error {
	return html.Render(w, cloneTree(n, hosts, opts))
}

func cloneTree(n *html.Node, hosts map[*html.Node]*Element, opts RenderOptions) *html.Node {
	clone := func(c *html.Node) *html.Node { return cloneTree(c, hosts, opts) }
	if el, ok := hosts[n]; ok {
		return el.renderNodeWith(opts, clone)
	}
	c := shallowClone(n)
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.AppendChild(clone(ch))
	}
	return c
}

func shallowClone(n *html.Node) *html.Node {
	return &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
}

func (e *Element) renderNode(opts RenderOptions) *html.Node {
	return e.renderNodeWith(opts, CloneNode)
}

func (e *Element) renderNodeWith(opts RenderOptions, clone func(*html.Node) *html.Node) *html.Node {
	host := shallowClone(e.node)
	if e.shadow != nil {
		shadow := e.shadow.annotated(opts.Annotate)
		switch opts.Mode {
		case RenderDeclarative:
			host.AppendChild(shadow.node)
		default:
			for _, c := range shadow.Children() {
				shadow.node.RemoveChild(c)
				host.AppendChild(c)
			}
		}
	}
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		host.AppendChild(clone(c))
	}
	return host
}

// annotated returns a detached copy of the root with annotation attributes
// applied to every element that has listeners.
func (r *ShadowRoot) annotated(fn AnnotateFunc) *ShadowRoot {
	cp := &ShadowRoot{host: r.host, node: CloneNode(r.node), listeners: r.listeners}
	if fn == nil {
		return cp
	}
	events := make(map[string][]string)
	var order []string
	for _, s := range r.Listeners() {
		if _, seen := events[s.ElementID]; !seen {
			order = append(order, s.ElementID)
		}
		events[s.ElementID] = append(events[s.ElementID], s.Event)
	}
	for _, id := range order {
		n := findByID(cp.node, id)
		if n == nil {
			continue
		}
		for _, a := range fn(id, events[id]) {
			setAttr(n, a.Key, a.Val)
		}
	}
	return cp
}

// Pretty indents rendered HTML for human consumption.
func Pretty(markup string) string {
	return gohtml.Format(markup)
}
