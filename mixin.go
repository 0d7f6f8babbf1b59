package surface

import "github.com/pthm/surface/lib/dom"

// Mixin is a behavior shared across unrelated surfaces. Mixins are listed
// at construction (WithMixins) and mounted once, in order, right after the
// subtree is materialized and before the surface wires its own
// interactions.
type Mixin interface {
	MixinName() string
	Mount(h Host, root *dom.ShadowRoot) error
}

type mixinFunc struct {
	name string
	fn   func(Host, *dom.ShadowRoot) error
}

func (m mixinFunc) MixinName() string { return m.name }

func (m mixinFunc) Mount(h Host, root *dom.ShadowRoot) error { return m.fn(h, root) }

// MixinFunc adapts a function to a Mixin.
func MixinFunc(name string, fn func(Host, *dom.ShadowRoot) error) Mixin {
	return mixinFunc{name: name, fn: fn}
}

// Styles adopts a shared stylesheet fragment: a copy of sheet is placed at
// the top of every subtree the mixin is mounted on.
func Styles(sheet *dom.Template) Mixin {
	return MixinFunc("styles:"+sheet.Name(), func(_ Host, root *dom.ShadowRoot) error {
		root.Prepend(sheet.Content()...)
		return nil
	})
}

// HostAttr marks the host element once its subtree is mounted, e.g.
// HostAttr("data-ready", "") for CSS that should only match live surfaces.
func HostAttr(name, value string) Mixin {
	return MixinFunc("host-attr:"+name, func(h Host, _ *dom.ShadowRoot) error {
		h.Element().SetAttribute(name, value)
		return nil
	})
}
