package dom

import (
	"fmt"
	"sort"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Event is delivered to listeners by ShadowRoot.Dispatch.
type Event struct {
	Type   string
	Target *html.Node
	// Value is the target's value after the event was applied. For "input"
	// events this is the entered text.
	Value string
}

// Listener handles an interaction event.
type Listener func(Event) error

// Subscription describes one registered listener.
type Subscription struct {
	ElementID string
	Event     string
}

type listenerKey struct {
	id    string
	event string
}

// ShadowRoot is a private subtree owned by exactly one host element.
type ShadowRoot struct {
	host      *Element
	node      *html.Node
	listeners map[listenerKey][]Listener
}

func newShadowRoot(host *Element) *ShadowRoot {
	return &ShadowRoot{
		host: host,
		node: &html.Node{
			Type:     html.ElementNode,
			Data:     "template",
			DataAtom: atom.Template,
			Attr:     []html.Attribute{{Key: "shadowrootmode", Val: "open"}},
		},
		listeners: make(map[listenerKey][]Listener),
	}
}

// Host returns the element owning this root.
func (r *ShadowRoot) Host() *Element {
	return r.host
}

// Append adds detached nodes as top-level children of the root.
func (r *ShadowRoot) Append(nodes ...*html.Node) {
	for _, n := range nodes {
		r.node.AppendChild(n)
	}
}

// Prepend inserts detached nodes before the root's current first child,
// keeping their relative order.
func (r *ShadowRoot) Prepend(nodes ...*html.Node) {
	first := r.node.FirstChild
	for _, n := range nodes {
		r.node.InsertBefore(n, first)
	}
}

// Children returns the top-level nodes of the root.
func (r *ShadowRoot) Children() []*html.Node {
	var out []*html.Node
	for c := r.node.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// GetElementByID returns the first element in the root whose id matches.
func (r *ShadowRoot) GetElementByID(id string) *html.Node {
	return findByID(r.node, id)
}

// Listen subscribes fn to event on the element with the given id.
func (r *ShadowRoot) Listen(id, event string, fn Listener) error {
	if findByID(r.node, id) == nil {
		return fmt.Errorf("listen %s on #%s: %w", event, id, ErrNoSuchElement)
	}
	k := listenerKey{id: id, event: event}
	r.listeners[k] = append(r.listeners[k], fn)
	return nil
}

// Dispatch delivers an event to the listeners of the element with the
// given id. For "input" events the target's value is set to value before
// any listener runs. Listeners run in subscription order; the first error
// stops delivery.
func (r *ShadowRoot) Dispatch(id, event, value string) error {
	target := findByID(r.node, id)
	if target == nil {
		return fmt.Errorf("dispatch %s on #%s: %w", event, id, ErrNoSuchElement)
	}
	if event == "input" || event == "change" {
		SetValue(target, value)
	}
	ev := Event{Type: event, Target: target, Value: Value(target)}
	for _, fn := range r.listeners[listenerKey{id: id, event: event}] {
		if err := fn(ev); err != nil {
			return err
		}
	}
	return nil
}

// Listeners returns every subscription, sorted by element id then event.
func (r *ShadowRoot) Listeners() []Subscription {
	out := make([]Subscription, 0, len(r.listeners))
	for k := range r.listeners {
		out = append(out, Subscription{ElementID: k.id, Event: k.event})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ElementID != out[j].ElementID {
			return out[i].ElementID < out[j].ElementID
		}
		return out[i].Event < out[j].Event
	})
	return out
}

func findByID(n *html.Node, id string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			if v, ok := attr(c, "id"); ok && v == id {
				return c
			}
		}
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}
