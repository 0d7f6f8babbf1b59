package surface

import (
	"fmt"
	"io"
	"sync"

	"github.com/pthm/surface/lib/dom"
	"golang.org/x/net/html"
)

// Document is the host environment for a parsed page: it upgrades every
// defined element it contains and delivers lifecycle calls and
// interaction events to them.
//
// Every entry point holds the document lock, so surfaces in one document
// see strictly serialized, run-to-completion delivery and need no locking
// of their own.
type Document struct {
	mu       sync.Mutex
	reg      *Registry
	root     *html.Node
	surfaces []*mountedSurface
	byID     map[string]*mountedSurface
	hosts    map[*html.Node]*dom.Element
}

type mountedSurface struct {
	el *dom.Element
	s  Surface
}

// ParseDocument parses a page and upgrades every element whose tag is
// defined in reg, in document order.
func ParseDocument(reg *Registry, r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("surface: parse document: %w", err)
	}

	doc := &Document{
		reg:   reg,
		root:  root,
		byID:  make(map[string]*mountedSurface),
		hosts: make(map[*html.Node]*dom.Element),
	}

	var walk func(*html.Node) error
	walk = func(n *html.Node) error {
		if n.Type == html.ElementNode && reg.Defined(n.Data) {
			el := dom.WrapNode(n)
			s, err := reg.Upgrade(el)
			if err != nil {
				return fmt.Errorf("surface: upgrade <%s id=%q>: %w", n.Data, el.ID(), err)
			}
			m := &mountedSurface{el: el, s: s}
			doc.surfaces = append(doc.surfaces, m)
			doc.hosts[n] = el
			if id := el.ID(); id != "" {
				doc.byID[id] = m
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return doc, nil
}

// Surface returns the surface whose host element has the given id.
func (d *Document) Surface(id string) (Surface, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.byID[id]
	if !ok {
		return nil, false
	}
	return m.s, true
}

// Surfaces returns every upgraded surface in document order.
func (d *Document) Surfaces() []Surface {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Surface, 0, len(d.surfaces))
	for _, m := range d.surfaces {
		out = append(out, m.s)
	}
	return out
}

// SetAttribute sets an attribute on the host element with the given id.
// Observed attributes whose value actually changes are delivered to the
// surface; a malformed value is still stored on the element but the
// surface keeps its state and the error is returned.
func (d *Document) SetAttribute(id, name, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	m, err := d.get(id)
	if err != nil {
		return err
	}
	old, existed := m.el.SetAttribute(name, value)
	if existed && old == value {
		return nil
	}
	o, ok := m.s.(AttributeObserver)
	if !ok || !observes(o, name) {
		return nil
	}
	return o.AttributeChanged(name, old, value)
}

// Dispatch delivers an interaction event to the element targetID inside
// the private subtree of the host hostID.
func (d *Document) Dispatch(hostID, targetID, event, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	m, err := d.get(hostID)
	if err != nil {
		return err
	}
	root := m.el.ShadowRoot()
	if root == nil {
		return fmt.Errorf("%w: #%s", ErrNotMaterialized, hostID)
	}
	return root.Dispatch(targetID, event, value)
}

// Remove detaches the host element with the given id from the page and
// notifies its surface, then every surface nested in its light children,
// in document order.
func (d *Document) Remove(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	m, err := d.get(id)
	if err != nil {
		return err
	}
	n := m.el.Node()
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}

	var removed []*mountedSurface
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if el, ok := d.hosts[c]; ok {
			removed = append(removed, d.forget(el))
		}
		for ch := c.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(n)

	for _, r := range removed {
		if r == nil {
			continue
		}
		if dc, ok := r.s.(Disconnecter); ok {
			dc.Disconnected()
		}
	}
	return nil
}

// forget drops every reference the document holds to el's surface.
func (d *Document) forget(el *dom.Element) *mountedSurface {
	delete(d.hosts, el.Node())
	for i, m := range d.surfaces {
		if m.el == el {
			d.surfaces = append(d.surfaces[:i], d.surfaces[i+1:]...)
			for id, other := range d.byID {
				if other == m {
					delete(d.byID, id)
				}
			}
			return m
		}
	}
	return nil
}

// Render writes the whole page with every private subtree expanded.
func (d *Document) Render(w io.Writer, mode dom.RenderMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return dom.RenderTree(w, d.root, d.hosts, dom.RenderOptions{Mode: mode})
}

func (d *Document) get(id string) (*mountedSurface, error) {
	m, ok := d.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: no surface #%s", ErrNotFound, id)
	}
	return m, nil
}
