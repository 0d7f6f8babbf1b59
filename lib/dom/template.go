// Package dom provides the host environment a surface lives in: host
// elements, their private subtrees, declarative templates, element lookup
// and interaction events.
//
// Nodes are golang.org/x/net/html nodes, so anything the html package can
// parse can be used as template markup, and every subtree renders back to
// HTML without a browser.
package dom

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/a-h/templ"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Template is a named, read-only markup fragment.
//
// The parsed nodes are never handed out directly; Content returns a deep
// copy so every surface materialized from the same template owns its own
// nodes.
type Template struct {
	name  string
	nodes []*html.Node
}

// ParseTemplate parses markup as a body-context fragment.
func ParseTemplate(name, markup string) (*Template, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		return nil, fmt.Errorf("dom: parse template %q: %w", name, err)
	}
	return &Template{name: name, nodes: nodes}, nil
}

// MustParseTemplate is like ParseTemplate but panics on error.
func MustParseTemplate(name, markup string) *Template {
	t, err := ParseTemplate(name, markup)
	if err != nil {
		panic(err)
	}
	return t
}

// TemplateFromComponent renders a templ component once and parses the
// output into a Template.
func TemplateFromComponent(ctx context.Context, name string, c templ.Component) (*Template, error) {
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return nil, fmt.Errorf("dom: render template %q: %w", name, err)
	}
	return ParseTemplate(name, buf.String())
}

// Name returns the template identifier.
func (t *Template) Name() string {
	return t.name
}

// Content returns a fresh deep copy of the template's top-level nodes.
func (t *Template) Content() []*html.Node {
	out := make([]*html.Node, 0, len(t.nodes))
	for _, n := range t.nodes {
		out = append(out, CloneNode(n))
	}
	return out
}

// CloneNode deep-copies n and its descendants. The copy has no parent or
// siblings.
func CloneNode(n *html.Node) *html.Node {
	c := shallowClone(n)
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.AppendChild(CloneNode(ch))
	}
	return c
}

// TemplateSet resolves templates by identifier.
type TemplateSet struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateSet creates a set holding the given templates.
func NewTemplateSet(templates ...*Template) *TemplateSet {
	s := &TemplateSet{templates: make(map[string]*Template)}
	for _, t := range templates {
		s.Add(t)
	}
	return s
}

// Add stores t under its name, replacing any previous template with the
// same name.
func (s *TemplateSet) Add(t *Template) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[t.name] = t
}

// Lookup returns the template registered under name.
func (s *TemplateSet) Lookup(name string) (*Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[name]
	return t, ok
}

// MustLookup is like Lookup but panics when name is unknown.
func (s *TemplateSet) MustLookup(name string) *Template {
	t, ok := s.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("dom: template %q not found", name))
	}
	return t
}

// Names returns the sorted template identifiers.
func (s *TemplateSet) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.templates))
	for name := range s.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
