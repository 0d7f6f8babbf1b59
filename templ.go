package surface

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
	"github.com/pthm/surface/lib/dom"
	"golang.org/x/net/html"
)

// HTMXScript is the script tag Page includes.
const HTMXScript = `<script src="https://unpkg.com/htmx.org@2.0.4"></script>`

// Mount returns a templ component that renders a live, interactive
// instance of tag inline:
//
//	@reg.Mount("counter-surface", dom.Attr("value", "3"))
//
// The instance is built per render and its interactive elements post back
// to the registry handler.
func (reg *Registry) Mount(tag string, attrs ...html.Attribute) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		d, ok := reg.lookup(tag)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownSurface, tag)
		}
		el := dom.NewElement(tag, attrs...)
		s, err := reg.build(el)
		if err != nil {
			return err
		}
		token, err := reg.token(d, el, s)
		if err != nil {
			return err
		}
		return el.Render(w, dom.RenderOptions{Mode: dom.RenderFlat, Annotate: reg.annotate(tag, token)})
	})
}
