package surface

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"github.com/pthm/surface/lib/dom"
	"github.com/pthm/surface/lib/encoding"
	"golang.org/x/net/html"
)

// Handler returns the HTTP handler for surface routes. Mount it at the
// registry prefix ("/_s/" by default):
//
//	GET  {prefix}{tag}?p=token                 render a surface
//	POST {prefix}{tag}/{target}/{event}        dispatch an interaction
//
// Every request rebuilds the surface from its token, replaying the token's
// attributes through the watched-attribute entry point, so the server
// holds no per-client state. Without a token, GET query parameters set the
// initial attributes of a fresh instance; with one they are ignored.
func (reg *Registry) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+reg.prefix+"{tag}", reg.serveRender)
	mux.HandleFunc("POST "+reg.prefix+"{tag}/{target}/{event}", reg.serveDispatch)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// CSRF protection: mutating methods require HX-Request header
		if r.Method != http.MethodGet && r.Method != http.MethodHead && !IsHTMX(r) {
			http.Error(w, "Forbidden: HTMX request required", http.StatusForbidden)
			return
		}
		mux.ServeHTTP(w, r)
	})
}

// IsHTMX returns true if the request originated from HTMX.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func (reg *Registry) serveRender(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	extra := make(map[string]string)
	for k := range query {
		if k != "p" {
			extra[k] = query.Get(k)
		}
	}

	d, el, s, err := reg.restore(r.PathValue("tag"), query.Get("p"), extra)
	if err != nil {
		reg.fail(w, r, err)
		return
	}
	reg.write(w, r, d, el, s, false)
}

func (reg *Registry) serveDispatch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		reg.fail(w, r, fmt.Errorf("%w: %v", ErrInvalidFormat, err))
		return
	}

	d, el, s, err := reg.restore(r.PathValue("tag"), r.FormValue("p"), nil)
	if err != nil {
		reg.fail(w, r, err)
		return
	}

	target, event := r.PathValue("target"), r.PathValue("event")
	if err := el.ShadowRoot().Dispatch(target, event, r.FormValue("value")); err != nil {
		if errors.Is(err, dom.ErrNoSuchElement) {
			err = fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		reg.fail(w, r, err)
		return
	}
	reg.write(w, r, d, el, s, true)
}

// restore rebuilds a surface from a token, or from extra attributes when
// there is no token. A token is the only source of state once issued, and
// sensitive definitions never take state from extra.
func (reg *Registry) restore(tag, token string, extra map[string]string) (*definition, *dom.Element, Surface, error) {
	d, ok := reg.lookup(tag)
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: %q", ErrUnknownSurface, tag)
	}

	attrs := make(map[string]string)
	if token != "" {
		snap, err := reg.encoder.Decode(token, d.sensitive)
		if err != nil {
			return nil, nil, nil, wrapEncodingError(err)
		}
		if snap.Tag != tag {
			return nil, nil, nil, fmt.Errorf("%w: token for %q used on %q", ErrInvalidFormat, snap.Tag, tag)
		}
		for k, v := range snap.Attrs {
			attrs[k] = v
		}
	} else if !d.sensitive {
		for k, v := range extra {
			attrs[k] = v
		}
	}

	el := dom.NewElement(tag, sortedAttrs(attrs)...)
	s, err := reg.build(el)
	if err != nil {
		return nil, nil, nil, err
	}
	return d, el, s, nil
}

// build upgrades el and makes sure its subtree exists even when the
// surface does not refresh on connect.
func (reg *Registry) build(el *dom.Element) (Surface, error) {
	s, err := reg.Upgrade(el)
	if err != nil {
		return nil, err
	}
	if el.ShadowRoot() == nil {
		if err := Refresh(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (reg *Registry) write(w http.ResponseWriter, r *http.Request, d *definition, el *dom.Element, s Surface, inner bool) {
	token, err := reg.token(d, el, s)
	if err != nil {
		reg.fail(w, r, err)
		return
	}

	opts := dom.RenderOptions{Mode: dom.RenderFlat, Annotate: reg.annotate(d.tag, token)}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if inner {
		err = el.RenderInner(w, opts)
	} else {
		err = el.Render(w, opts)
	}
	if err != nil {
		reg.Logger.Error("render failed", "surface", d.tag, "error", err)
	}
}

func (reg *Registry) fail(w http.ResponseWriter, r *http.Request, err error) {
	reg.Logger.Warn("surface request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	reg.OnError(w, r, err)
}

// token snapshots the state that rebuilds s: its StateAttributes when it
// is Stateful, otherwise the observed attributes present on el.
func (reg *Registry) token(d *definition, el *dom.Element, s Surface) (string, error) {
	attrs := make(map[string]string)
	if st, ok := s.(Stateful); ok {
		for k, v := range st.StateAttributes() {
			attrs[k] = v
		}
	} else if o, ok := s.(AttributeObserver); ok {
		for _, a := range el.Attributes() {
			if observes(o, a.Key) {
				attrs[a.Key] = a.Val
			}
		}
	}
	return reg.encoder.Encode(encoding.Snapshot{Tag: d.tag, Attrs: attrs}, d.sensitive)
}

// annotate turns every subscribed element into an HTMX trigger posting
// back to the dispatch route. An element with several subscriptions
// posts its first event.
func (reg *Registry) annotate(tag, token string) dom.AnnotateFunc {
	vals, _ := json.Marshal(map[string]string{"p": token})
	return func(id string, events []string) []html.Attribute {
		event := events[0]
		return []html.Attribute{
			{Key: "hx-post", Val: reg.prefix + tag + "/" + url.PathEscape(id) + "/" + url.PathEscape(event)},
			{Key: "hx-trigger", Val: hxTrigger(event)},
			{Key: "hx-vals", Val: string(vals)},
			{Key: "hx-target", Val: "closest " + tag},
			{Key: "hx-swap", Val: string(SwapInner)},
		}
	}
}

// hxTrigger maps a dispatch event to the browser event HTMX listens for.
// Text entry posts on commit so the input is not replaced mid-typing.
func hxTrigger(event string) string {
	if event == "input" {
		return "change"
	}
	return event
}

func sortedAttrs(m map[string]string) []html.Attribute {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]html.Attribute, 0, len(keys))
	for _, k := range keys {
		out = append(out, html.Attribute{Key: k, Val: m[k]})
	}
	return out
}

// wrapEncodingError maps encoding package errors onto surface sentinels.
func wrapEncodingError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, encoding.ErrInvalidFormat):
		return ErrInvalidFormat
	case errors.Is(err, encoding.ErrSignatureInvalid):
		return ErrSignatureInvalid
	case errors.Is(err, encoding.ErrDecryptFailed):
		return ErrDecryptFailed
	}
	return err
}
