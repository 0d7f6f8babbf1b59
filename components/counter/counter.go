// Package counter implements an integer counter surface with increment,
// decrement and direct text entry.
//
//	<counter-surface value="3"></counter-surface>
package counter

import (
	"context"
	"strconv"
	"sync"

	"github.com/pthm/surface"
	"github.com/pthm/surface/lib/dom"
)

// Tag is the element name counters are defined under.
const Tag = "counter-surface"

// Element ids the visual template must provide.
const (
	DisplayID   = "value"
	IncrementID = "inc"
	DecrementID = "dec"
)

const valueAttr = "value"

var sharedTemplate = sync.OnceValues(func() (*dom.Template, error) {
	return dom.TemplateFromComponent(context.Background(), Tag, view())
})

// Counter is a surface owning a single integer.
type Counter struct {
	*surface.Base
	value int
}

// New creates a counter for host. A nil host gets a detached element.
func New(host *dom.Element, opts ...surface.Option) *Counter {
	if host == nil {
		host = dom.NewElement(Tag)
	}
	return &Counter{Base: surface.NewBase(Tag, host, opts...)}
}

// Define registers the counter with reg.
func Define(reg *surface.Registry, opts ...surface.DefineOption) {
	reg.Define(Tag, func(host *dom.Element, o ...surface.Option) surface.Surface {
		return New(host, o...)
	}, opts...)
}

// Value returns the current count.
func (c *Counter) Value() int {
	return c.value
}

// SetValue stores v and refreshes. Writing the current value is a no-op.
func (c *Counter) SetValue(v int) error {
	if v == c.value {
		return nil
	}
	c.value = v
	return c.Refresh()
}

// ObservedAttributes declares the watched attributes.
func (c *Counter) ObservedAttributes() []string {
	return []string{valueAttr}
}

// AttributeChanged forwards a parsed "value" attribute to SetValue. A
// malformed value leaves the count untouched and is returned.
func (c *Counter) AttributeChanged(name, _, raw string) error {
	if name != valueAttr {
		return nil
	}
	v, err := surface.ParseIntAttribute(name, raw)
	if err != nil {
		return err
	}
	return c.SetValue(v)
}

// Connected renders the counter when it joins a page.
func (c *Counter) Connected() error {
	return c.Refresh()
}

// Refresh materializes, wires (first time only) and projects.
func (c *Counter) Refresh() error {
	return surface.Refresh(c)
}

// VisualTemplate returns the template shared by every counter.
func (c *Counter) VisualTemplate() (*dom.Template, error) {
	return sharedTemplate()
}

// WireInteractions attaches the increment, decrement and text entry
// handlers.
func (c *Counter) WireInteractions(root *dom.ShadowRoot) error {
	if err := surface.Listen(c, root, IncrementID, "click", func(dom.Event) error {
		return c.SetValue(c.value + 1)
	}); err != nil {
		return err
	}
	if err := surface.Listen(c, root, DecrementID, "click", func(dom.Event) error {
		return c.SetValue(c.value - 1)
	}); err != nil {
		return err
	}
	return surface.Listen(c, root, DisplayID, "input", c.handleInput)
}

// handleInput reads the entered text from the event target. Text that is
// not an integer is discarded and the display restored.
func (c *Counter) handleInput(ev dom.Event) error {
	v, err := surface.ParseIntAttribute(DisplayID, ev.Value)
	if err != nil {
		c.Logger().Debug("discarding input", "error", err)
		return c.Refresh()
	}
	return c.SetValue(v)
}

// Project writes the count into the display element.
func (c *Counter) Project(root *dom.ShadowRoot) error {
	n, err := surface.Lookup(c, root, DisplayID, "project")
	if err != nil {
		return err
	}
	dom.SetValue(n, strconv.Itoa(c.value))
	return nil
}

// StateAttributes rebuilds the count through the "value" attribute.
func (c *Counter) StateAttributes() map[string]string {
	return map[string]string{valueAttr: strconv.Itoa(c.value)}
}
