package surface

import (
	"fmt"

	"github.com/pthm/surface/lib/dom"
	"golang.org/x/net/html"
)

// Host is anything MaterializeOnce can populate: a type embedding *Base
// that supplies a visual template.
//
// The unexported method keeps the private subtree handle out of reach of
// other packages; types outside this package satisfy Host only by
// embedding *Base.
type Host interface {
	surfaceBase() *Base
	Element() *dom.Element
	VisualTemplate() (*dom.Template, error)
}

// Surface is a Host with its own interaction wiring and state projection.
type Surface interface {
	Host
	// WireInteractions attaches interaction handlers to elements in root.
	// Called exactly once per instance, on the first refresh.
	WireInteractions(root *dom.ShadowRoot) error
	// Project copies current state onto root. Called on every refresh.
	Project(root *dom.ShadowRoot) error
}

// MaterializeOnce builds h's private subtree from its visual template the
// first time it is called and reports true. Every later call does nothing
// and reports false.
//
// It knows nothing about the template's content or the interactions h
// needs.
func MaterializeOnce(h Host) (bool, error) {
	b := h.surfaceBase()
	if b.root != nil {
		return false, nil
	}

	tmpl, err := h.VisualTemplate()
	if err != nil {
		return false, fmt.Errorf("surface: %s: visual template: %w", b.tag, err)
	}
	if tmpl == nil {
		return false, &ContractError{Surface: b.tag, Op: "materialize"}
	}

	root, err := h.Element().AttachShadow()
	if err != nil {
		return false, fmt.Errorf("surface: %s: %w", b.tag, err)
	}
	root.Append(tmpl.Content()...)

	b.root = root
	b.template = tmpl.Name()
	b.phase = PhaseFirstRefresh
	b.logger.Debug("materialized", "template", tmpl.Name())
	return true, nil
}

// Refresh is the single synchronization point of a surface: it
// materializes the subtree if needed, mounts mixins and wires interactions
// on the first call, then projects state.
//
// A failure while mounting or wiring is fatal for the instance: the
// subtree exists but is half wired, so every later Refresh returns the
// same error.
func Refresh(s Surface) error {
	b := s.surfaceBase()
	if b.fatal != nil {
		return b.fatal
	}

	first, err := MaterializeOnce(s)
	if err != nil {
		return err
	}
	if first {
		if err := b.mount(s); err != nil {
			b.fatal = err
			b.logger.Error("first render failed", "error", err)
			return err
		}
	}

	if err := s.Project(b.root); err != nil {
		return err
	}
	b.projections++
	b.phase = PhaseSteady
	return nil
}

func (b *Base) mount(s Surface) error {
	for _, m := range b.mixins {
		if err := m.Mount(s, b.root); err != nil {
			return fmt.Errorf("surface: %s: mixin %s: %w", b.tag, m.MixinName(), err)
		}
	}
	if err := s.WireInteractions(b.root); err != nil {
		return fmt.Errorf("surface: %s: wire interactions: %w", b.tag, err)
	}
	b.logger.Debug("wired", "listeners", len(b.root.Listeners()))
	return nil
}

// Lookup finds an element in h's subtree by id. A missing element is a
// *ContractError.
func Lookup(h Host, root *dom.ShadowRoot, id, op string) (*html.Node, error) {
	if n := root.GetElementByID(id); n != nil {
		return n, nil
	}
	b := h.surfaceBase()
	return nil, &ContractError{Surface: b.tag, Template: b.template, Op: op, ElementID: id}
}

// Listen subscribes fn to event on the element with the given id in h's
// subtree. A missing element is a *ContractError.
func Listen(h Host, root *dom.ShadowRoot, id, event string, fn dom.Listener) error {
	if _, err := Lookup(h, root, id, "wire"); err != nil {
		return err
	}
	return root.Listen(id, event, fn)
}
