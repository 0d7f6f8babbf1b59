package surface

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/pthm/surface/lib/dom"
	"github.com/pthm/surface/lib/encoding"
)

func newWidgetRegistry(opts ...DefineOption) *Registry {
	reg := NewRegistry([]byte("test-key"), WithRegistryLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	reg.Define("test-widget", func(host *dom.Element, o ...Option) Surface {
		return newWidget(host, o...)
	}, opts...)
	return reg
}

func TestDefinePanics(t *testing.T) {
	tests := []struct {
		name string
		tag  string
		ctor Constructor
	}{
		{"no hyphen", "widget", func(*dom.Element, ...Option) Surface { return nil }},
		{"uppercase", "Test-widget", func(*dom.Element, ...Option) Surface { return nil }},
		{"nil constructor", "nil-surface", nil},
		{"collision", "test-widget", func(*dom.Element, ...Option) Surface { return nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := newWidgetRegistry()
			defer func() {
				if recover() == nil {
					t.Error("Define did not panic")
				}
			}()
			reg.Define(tt.tag, tt.ctor)
		})
	}
}

func TestTags(t *testing.T) {
	reg := newWidgetRegistry()
	reg.Define("another-surface", func(h *dom.Element, o ...Option) Surface { return newWidget(h, o...) })
	if got := strings.Join(reg.Tags(), ","); got != "another-surface,test-widget" {
		t.Errorf("Tags() = %s", got)
	}
	if !reg.Defined("test-widget") || reg.Defined("nope-surface") {
		t.Error("Defined() wrong")
	}
}

func TestUpgradeOrder(t *testing.T) {
	reg := newWidgetRegistry()
	el := dom.NewElement("test-widget",
		dom.Attr("id", "p1"),
		dom.Attr("text", "hello"),
		dom.Attr("title", "unwatched"),
		dom.Attr("count", "abc"),
	)

	s, err := reg.Upgrade(el)
	if err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}
	p := s.(*widget)

	// The malformed count is delivered, then skipped.
	want := "attr:text=hello,attr:count=abc,connected"
	if got := strings.Join(p.log, ","); got != want {
		t.Errorf("log = %s, want %s", got, want)
	}
	if p.wired != 1 {
		t.Errorf("wired %d times, want 1", p.wired)
	}
	if got := dom.Text(p.SurfaceRoot().GetElementByID("out")); got != "hello" {
		t.Errorf("out = %q, want hello", got)
	}
}

func TestUpgradeUnknownTag(t *testing.T) {
	reg := newWidgetRegistry()
	if _, err := reg.Create("other-surface"); !errors.Is(err, ErrUnknownSurface) {
		t.Errorf("error = %v, want ErrUnknownSurface", err)
	}
}

func TestDefinitionMixins(t *testing.T) {
	reg := newWidgetRegistry(Mixins(HostAttr("data-ready", "yes")))
	s, err := reg.Create("test-widget")
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := s.Element().Attribute("data-ready"); v != "yes" {
		t.Errorf("data-ready = %q", v)
	}
}

const widgetPage = `<!DOCTYPE html><html><body>
<test-widget id="a" text="one"></test-widget>
<div><test-widget id="b"><em>light</em></test-widget></div>
<unknown-thing id="c"></unknown-thing>
</body></html>`

func TestParseDocument(t *testing.T) {
	reg := newWidgetRegistry()
	doc, err := ParseDocument(reg, strings.NewReader(widgetPage))
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}

	if got := len(doc.Surfaces()); got != 2 {
		t.Fatalf("len(Surfaces()) = %d, want 2", got)
	}
	if _, ok := doc.Surface("c"); ok {
		t.Error("undefined element upgraded")
	}

	var buf bytes.Buffer
	if err := doc.Render(&buf, dom.RenderDeclarative); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		`<test-widget id="a" text="one"><template shadowrootmode="open"><span id="out">one</span>`,
		`<test-widget id="b"><template shadowrootmode="open"><span id="out"></span><button id="btn">go</button></template><em>light</em></test-widget>`,
		`<unknown-thing id="c"></unknown-thing>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %s\n%s", want, out)
		}
	}
}

func TestDocumentSetAttribute(t *testing.T) {
	reg := newWidgetRegistry()
	doc, err := ParseDocument(reg, strings.NewReader(widgetPage))
	if err != nil {
		t.Fatal(err)
	}
	s, _ := doc.Surface("a")
	p := s.(*widget)
	before := len(p.log)

	if err := doc.SetAttribute("a", "text", "two"); err != nil {
		t.Fatal(err)
	}
	if err := doc.SetAttribute("a", "text", "two"); err != nil {
		t.Fatal(err)
	}
	if err := doc.SetAttribute("a", "title", "unwatched"); err != nil {
		t.Fatal(err)
	}
	if got := len(p.log) - before; got != 1 {
		t.Errorf("AttributeChanged called %d times, want 1", got)
	}
	if p.text != "two" {
		t.Errorf("text = %q", p.text)
	}

	if err := doc.SetAttribute("a", "count", "x"); !IsMalformedAttribute(err) {
		t.Errorf("malformed error = %v", err)
	}
	if err := doc.SetAttribute("zz", "text", "x"); !IsNotFound(err) {
		t.Errorf("missing host error = %v", err)
	}
}

func TestDocumentDispatchAndRemove(t *testing.T) {
	reg := newWidgetRegistry()
	doc, err := ParseDocument(reg, strings.NewReader(widgetPage))
	if err != nil {
		t.Fatal(err)
	}

	if err := doc.Dispatch("b", "btn", "click", ""); err != nil {
		t.Fatal(err)
	}
	s, _ := doc.Surface("b")
	if s.(*widget).text != "!" {
		t.Errorf("text = %q, want !", s.(*widget).text)
	}
	if err := doc.Dispatch("b", "nope", "click", ""); !errors.Is(err, dom.ErrNoSuchElement) {
		t.Errorf("error = %v, want ErrNoSuchElement", err)
	}

	if err := doc.Remove("b"); err != nil {
		t.Fatal(err)
	}
	if _, ok := doc.Surface("b"); ok {
		t.Error("removed surface still reachable")
	}
	var buf bytes.Buffer
	if err := doc.Render(&buf, dom.RenderFlat); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), `id="b"`) {
		t.Error("removed host still rendered")
	}
	if err := doc.Remove("b"); !IsNotFound(err) {
		t.Errorf("second Remove() error = %v", err)
	}
}

func TestDocumentRemoveNested(t *testing.T) {
	reg := newWidgetRegistry()
	doc, err := ParseDocument(reg, strings.NewReader(`<body>
<test-widget id="a"><div><test-widget id="b"><test-widget id="c"></test-widget></test-widget></div></test-widget>
<test-widget id="d"></test-widget>
</body>`))
	if err != nil {
		t.Fatal(err)
	}
	var nested []*widget
	for _, id := range []string{"a", "b", "c"} {
		s, ok := doc.Surface(id)
		if !ok {
			t.Fatalf("no surface #%s", id)
		}
		nested = append(nested, s.(*widget))
	}

	if err := doc.Remove("a"); err != nil {
		t.Fatal(err)
	}

	for i, id := range []string{"a", "b", "c"} {
		if _, ok := doc.Surface(id); ok {
			t.Errorf("#%s still reachable", id)
		}
		if err := doc.SetAttribute(id, "text", "x"); !IsNotFound(err) {
			t.Errorf("SetAttribute(#%s) error = %v", id, err)
		}
		if err := doc.Dispatch(id, "btn", "click", ""); !IsNotFound(err) {
			t.Errorf("Dispatch(#%s) error = %v", id, err)
		}
		log := nested[i].log
		if len(log) == 0 || log[len(log)-1] != "disconnected" {
			t.Errorf("#%s log = %v, want disconnected last", id, log)
		}
	}
	if got := len(doc.Surfaces()); got != 1 {
		t.Errorf("len(Surfaces()) = %d, want 1", got)
	}

	var buf bytes.Buffer
	if err := doc.Render(&buf, dom.RenderFlat); err != nil {
		t.Fatal(err)
	}
	if out := buf.String(); strings.Contains(out, `id="b"`) || !strings.Contains(out, `id="d"`) {
		t.Errorf("render = %s", out)
	}
}

func TestHandlerCSRF(t *testing.T) {
	reg := newWidgetRegistry()
	req := httptest.NewRequest(http.MethodPost, "/_s/test-widget/btn/click", nil)
	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestHandlerRenderAndDispatch(t *testing.T) {
	reg := newWidgetRegistry()

	page := TestGet(reg, "test-widget", url.Values{"text": {"hi"}})
	if !page.IsOK() {
		t.Fatalf("status = %d: %s", page.StatusCode, page.HTML)
	}
	if v, _ := page.ElementValue("out"); v != "hi" {
		t.Errorf("out = %q, want hi", v)
	}
	if ct := page.Headers.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}

	// The widget is not Stateful, so the token carries its observed
	// attributes as present on the host.
	res := TestDispatch(reg, "test-widget", "btn", "click", page.Token(), "")
	if !res.IsOK() {
		t.Fatalf("status = %d: %s", res.StatusCode, res.HTML)
	}
	if v, _ := res.ElementValue("out"); v != "hi!" {
		t.Errorf("out = %q, want hi!", v)
	}
}

func TestHandlerRejectsForeignToken(t *testing.T) {
	reg := newWidgetRegistry()
	reg.Define("other-surface", func(h *dom.Element, o ...Option) Surface { return newWidget(h, o...) })

	token, err := reg.encoder.Encode(encoding.Snapshot{Tag: "other-surface"}, false)
	if err != nil {
		t.Fatal(err)
	}
	res := TestDispatch(reg, "test-widget", "btn", "click", token, "")
	if res.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", res.StatusCode)
	}
}

func TestHandlerCustomOnError(t *testing.T) {
	reg := newWidgetRegistry()
	var got error
	reg.OnError = func(w http.ResponseWriter, r *http.Request, err error) {
		got = err
		w.WriteHeader(http.StatusTeapot)
	}
	res := TestGet(reg, "missing-surface", nil)
	if res.StatusCode != http.StatusTeapot || !errors.Is(got, ErrUnknownSurface) {
		t.Errorf("status = %d, err = %v", res.StatusCode, got)
	}
}

func TestWithPrefix(t *testing.T) {
	reg := NewRegistry([]byte("k"), WithPrefix("components"))
	if reg.Prefix() != "/components/" {
		t.Errorf("Prefix() = %q", reg.Prefix())
	}
}

func TestMountAndPage(t *testing.T) {
	reg := newWidgetRegistry()

	var buf bytes.Buffer
	page := Page("Demo <1>", reg.Mount("test-widget", dom.Attr("text", "x")))
	if err := page.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"<title>Demo &lt;1&gt;</title>",
		HTMXScript,
		`<test-widget text="x"><span id="out">x</span>`,
		`hx-post="/_s/test-widget/btn/click"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("page missing %s\n%s", want, out)
		}
	}

	err := reg.Mount("missing-surface").Render(context.Background(), io.Discard)
	if !errors.Is(err, ErrUnknownSurface) {
		t.Errorf("Mount(missing) error = %v", err)
	}
	var _ templ.Component = page
}
