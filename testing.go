package surface

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/pthm/surface/lib/dom"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// TestResult holds rendered output for assertions.
type TestResult struct {
	HTML       string
	StatusCode int
	Headers    http.Header
	// Surface is set by TestMount.
	Surface Surface
}

// TestMount creates and upgrades tag with attrs, then renders it with its
// private subtree in declarative form.
//
//	result, err := surface.TestMount(reg, "counter-surface", dom.Attr("value", "7"))
//	if !result.HTMLContains(`value="7"`) { ... }
func TestMount(reg *Registry, tag string, attrs ...html.Attribute) (*TestResult, error) {
	s, err := reg.Create(tag, attrs...)
	if err != nil {
		return nil, err
	}
	return TestRender(s)
}

// TestRender renders a surface's host element, including its private
// subtree, without touching its lifecycle.
func TestRender(s Surface) (*TestResult, error) {
	var buf bytes.Buffer
	if err := s.Element().Render(&buf, dom.RenderOptions{Mode: dom.RenderDeclarative}); err != nil {
		return nil, err
	}
	return &TestResult{
		HTML:       buf.String(),
		StatusCode: http.StatusOK,
		Headers:    make(http.Header),
		Surface:    s,
	}, nil
}

// TestGet issues a render request through the registry handler.
func TestGet(reg *Registry, tag string, query url.Values) *TestResult {
	target := reg.prefix + tag
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return serveTest(reg, httptest.NewRequest(http.MethodGet, target, nil))
}

// TestDispatch posts an interaction through the registry handler as HTMX
// would.
func TestDispatch(reg *Registry, tag, target, event, token, value string) *TestResult {
	form := url.Values{}
	if token != "" {
		form.Set("p", token)
	}
	if value != "" {
		form.Set("value", value)
	}
	req := httptest.NewRequest(http.MethodPost,
		reg.prefix+tag+"/"+url.PathEscape(target)+"/"+url.PathEscape(event),
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	return serveTest(reg, req)
}

func serveTest(reg *Registry, req *http.Request) *TestResult {
	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, req)
	return &TestResult{
		HTML:       rec.Body.String(),
		StatusCode: rec.Code,
		Headers:    rec.Header(),
	}
}

// HTMLContains checks if the HTML contains a substring.
func (r *TestResult) HTMLContains(substr string) bool {
	return strings.Contains(r.HTML, substr)
}

// HTMLContainsAll checks if the HTML contains all the given substrings.
func (r *TestResult) HTMLContainsAll(substrs ...string) bool {
	for _, s := range substrs {
		if !strings.Contains(r.HTML, s) {
			return false
		}
	}
	return true
}

// IsOK checks if the status code is 200.
func (r *TestResult) IsOK() bool {
	return r.StatusCode == http.StatusOK
}

// Token returns the state token carried by the first annotated element,
// or "" if there is none.
func (r *TestResult) Token() string {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(r.HTML), body)
	if err != nil {
		return ""
	}
	var find func(*html.Node) string
	find = func(n *html.Node) string {
		for _, a := range n.Attr {
			if a.Key == "hx-vals" {
				var vals map[string]string
				if json.Unmarshal([]byte(a.Val), &vals) == nil {
					return vals["p"]
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if tok := find(c); tok != "" {
				return tok
			}
		}
		return ""
	}
	for _, n := range nodes {
		if tok := find(n); tok != "" {
			return tok
		}
	}
	return ""
}

// ElementValue returns the value (see dom.Value) of the first element with
// the given id in the rendered HTML.
func (r *TestResult) ElementValue(id string) (string, bool) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(r.HTML), body)
	if err != nil {
		return "", false
	}
	holder := dom.NewElement("x-result")
	root, _ := holder.AttachShadow()
	root.Append(nodes...)
	n := root.GetElementByID(id)
	if n == nil {
		return "", false
	}
	return dom.Value(n), true
}
