package dom

import (
	"errors"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Sentinel errors for host environment operations.
var (
	ErrShadowAttached = errors.New("dom: element already has a shadow root")
	ErrNoSuchElement  = errors.New("dom: no element with that id")
)

// Element is a host element: the tag a surface is attached to in the page.
//
// An Element owns at most one ShadowRoot. Light children (the element's
// ordinary content in the page) are kept on the underlying node.
type Element struct {
	node   *html.Node
	shadow *ShadowRoot
}

// NewElement creates a detached element. attrs are name/value pairs.
func NewElement(tag string, attrs ...html.Attribute) *Element {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     append([]html.Attribute(nil), attrs...),
	}
	return &Element{node: n}
}

// Attr is shorthand for building an html.Attribute.
func Attr(name, value string) html.Attribute {
	return html.Attribute{Key: name, Val: value}
}

// WrapNode adopts an existing parsed node as a host element.
func WrapNode(n *html.Node) *Element {
	return &Element{node: n}
}

// Node returns the underlying node.
func (e *Element) Node() *html.Node {
	return e.node
}

// Tag returns the element's tag name.
func (e *Element) Tag() string {
	return e.node.Data
}

// ID returns the element's id attribute, or "".
func (e *Element) ID() string {
	v, _ := e.Attribute("id")
	return v
}

// Attribute returns the named attribute value.
func (e *Element) Attribute(name string) (string, bool) {
	return attr(e.node, name)
}

// SetAttribute sets or replaces an attribute and returns the previous
// value. Setting an attribute never notifies a surface; lifecycle delivery
// belongs to the document driving the element.
func (e *Element) SetAttribute(name, value string) (old string, existed bool) {
	return setAttr(e.node, name, value)
}

// Attributes returns a copy of the element's attributes in source order.
func (e *Element) Attributes() []html.Attribute {
	return append([]html.Attribute(nil), e.node.Attr...)
}

// AttachShadow creates the element's private subtree. It succeeds once per
// element; every later call returns ErrShadowAttached.
func (e *Element) AttachShadow() (*ShadowRoot, error) {
	if e.shadow != nil {
		return nil, ErrShadowAttached
	}
	e.shadow = newShadowRoot(e)
	return e.shadow, nil
}

// ShadowRoot returns the attached private subtree, or nil.
func (e *Element) ShadowRoot() *ShadowRoot {
	return e.shadow
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, name, value string) (string, bool) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			n.Attr[i].Val = value
			return a.Val, true
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
	return "", false
}
