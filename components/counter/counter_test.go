package counter

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/pthm/surface"
	"github.com/pthm/surface/lib/dom"
)

func display(t *testing.T, c *Counter) string {
	t.Helper()
	root := c.SurfaceRoot()
	if root == nil {
		t.Fatal("no private subtree")
	}
	n := root.GetElementByID(DisplayID)
	if n == nil {
		t.Fatal("no display element")
	}
	return dom.Value(n)
}

func TestScenarioAttachedDefault(t *testing.T) {
	c := New(nil)
	if c.Value() != 0 {
		t.Fatalf("Value() = %d, want 0", c.Value())
	}
	if c.SurfaceRoot() != nil {
		t.Fatal("subtree exists before attachment")
	}

	if err := c.Connected(); err != nil {
		t.Fatalf("Connected() error = %v", err)
	}
	if got := display(t, c); got != "0" {
		t.Errorf("display = %q, want 0", got)
	}
	if c.Phase() != surface.PhaseSteady {
		t.Errorf("Phase() = %v, want steady", c.Phase())
	}
}

func TestScenarioAttributeBeforeAttach(t *testing.T) {
	c := New(nil)

	if err := c.AttributeChanged("value", "", "7"); err != nil {
		t.Fatalf("AttributeChanged() error = %v", err)
	}
	if c.Value() != 7 {
		t.Errorf("Value() = %d, want 7", c.Value())
	}
	if got := display(t, c); got != "7" {
		t.Errorf("display = %q, want 7", got)
	}
}

func TestScenarioIncrement(t *testing.T) {
	c := New(nil)
	if err := c.Connected(); err != nil {
		t.Fatal(err)
	}
	root := c.SurfaceRoot()

	for want := 1; want <= 3; want++ {
		if err := root.Dispatch(IncrementID, "click", ""); err != nil {
			t.Fatalf("click %d: %v", want, err)
		}
		if c.Value() != want {
			t.Errorf("Value() = %d, want %d", c.Value(), want)
		}
		if got := display(t, c); got != strconv.Itoa(want) {
			t.Errorf("display = %q, want %d", got, want)
		}
		if c.SurfaceRoot() != root {
			t.Fatal("subtree was recreated")
		}
	}
	if _, err := c.Element().AttachShadow(); !errors.Is(err, dom.ErrShadowAttached) {
		t.Errorf("host accepted a second subtree: %v", err)
	}
}

func TestScenarioMalformedAttribute(t *testing.T) {
	c := New(nil)

	err := c.AttributeChanged("value", "", "abc")
	if !surface.IsMalformedAttribute(err) {
		t.Errorf("AttributeChanged() error = %v, want malformed attribute", err)
	}
	if c.Value() != 0 {
		t.Errorf("Value() = %d, want 0", c.Value())
	}
	if c.Projections() != 0 {
		t.Errorf("Projections() = %d, want 0", c.Projections())
	}
	if c.SurfaceRoot() != nil {
		t.Error("malformed attribute created a subtree")
	}
}

func TestUnrecognizedAttributeIgnored(t *testing.T) {
	c := New(nil)
	if err := c.AttributeChanged("label", "", "9"); err != nil {
		t.Fatalf("AttributeChanged() error = %v", err)
	}
	if c.Value() != 0 || c.SurfaceRoot() != nil {
		t.Error("unrecognized attribute changed state")
	}
}

func TestSetEqualValueDoesNotProject(t *testing.T) {
	c := New(nil)
	if err := c.SetValue(0); err != nil {
		t.Fatal(err)
	}
	if c.Projections() != 0 || c.SurfaceRoot() != nil {
		t.Error("equal write before attachment triggered a refresh")
	}

	if err := c.SetValue(4); err != nil {
		t.Fatal(err)
	}
	before := c.Projections()
	if err := c.SetValue(4); err != nil {
		t.Fatal(err)
	}
	if c.Projections() != before {
		t.Errorf("Projections() = %d after equal write, want %d", c.Projections(), before)
	}
}

func TestRefreshIsIdempotent(t *testing.T) {
	c := New(nil)
	for i := 1; i <= 5; i++ {
		if err := c.Refresh(); err != nil {
			t.Fatal(err)
		}
		if c.Projections() != i {
			t.Errorf("Projections() = %d, want %d", c.Projections(), i)
		}
	}

	// One listener per wired element: increment, decrement, text entry.
	if got := len(c.SurfaceRoot().Listeners()); got != 3 {
		t.Errorf("len(Listeners()) = %d, want 3", got)
	}
}

func TestWiredOnce(t *testing.T) {
	c := New(nil)
	for i := 0; i < 3; i++ {
		if err := c.Refresh(); err != nil {
			t.Fatal(err)
		}
	}
	// A duplicate wiring would make one click count twice.
	if err := c.SurfaceRoot().Dispatch(IncrementID, "click", ""); err != nil {
		t.Fatal(err)
	}
	if c.Value() != 1 {
		t.Errorf("Value() = %d after one click, want 1", c.Value())
	}
}

func TestConvergentEntryPoints(t *testing.T) {
	attached := New(nil)
	if err := attached.Connected(); err != nil {
		t.Fatal(err)
	}

	viaAttr := New(nil)
	if err := viaAttr.AttributeChanged("value", "", "0"); err != nil {
		t.Fatal(err)
	}
	if err := viaAttr.Connected(); err != nil {
		t.Fatal(err)
	}

	a, err := surface.TestRender(attached)
	if err != nil {
		t.Fatal(err)
	}
	b, err := surface.TestRender(viaAttr)
	if err != nil {
		t.Fatal(err)
	}
	if a.HTML != b.HTML {
		t.Errorf("end states differ:\n%s\n%s", a.HTML, b.HTML)
	}
}

func TestDecrementAndTextEntry(t *testing.T) {
	c := New(nil)
	if err := c.Connected(); err != nil {
		t.Fatal(err)
	}
	root := c.SurfaceRoot()

	if err := root.Dispatch(DecrementID, "click", ""); err != nil {
		t.Fatal(err)
	}
	if c.Value() != -1 {
		t.Errorf("Value() = %d, want -1", c.Value())
	}

	if err := root.Dispatch(DisplayID, "input", " 42 "); err != nil {
		t.Fatal(err)
	}
	if c.Value() != 42 {
		t.Errorf("Value() = %d, want 42", c.Value())
	}
	if got := display(t, c); got != "42" {
		t.Errorf("display = %q, want 42", got)
	}

	if err := root.Dispatch(DisplayID, "input", "forty"); err != nil {
		t.Fatal(err)
	}
	if c.Value() != 42 {
		t.Errorf("Value() = %d after malformed input, want 42", c.Value())
	}
	if got := display(t, c); got != "42" {
		t.Errorf("display = %q after malformed input, want restored 42", got)
	}
}

func TestStateAttributes(t *testing.T) {
	c := New(nil)
	if err := c.SetValue(-3); err != nil {
		t.Fatal(err)
	}
	if got := c.StateAttributes()["value"]; got != "-3" {
		t.Errorf("StateAttributes()[value] = %q, want -3", got)
	}
}

func newRegistry() *surface.Registry {
	reg := surface.NewRegistry([]byte("counter-test-key"))
	Define(reg)
	return reg
}

func TestRegistryUpgrade(t *testing.T) {
	reg := newRegistry()

	result, err := surface.TestMount(reg, Tag, dom.Attr("value", "5"))
	if err != nil {
		t.Fatalf("TestMount() error = %v", err)
	}
	if v, _ := result.ElementValue(DisplayID); v != "5" {
		t.Errorf("display = %q, want 5", v)
	}
	if !result.HTMLContains(`<template shadowrootmode="open">`) {
		t.Errorf("missing declarative shadow root: %s", result.HTML)
	}

	c := result.Surface.(*Counter)
	// One projection from the attribute, one from attachment.
	if c.Projections() != 2 {
		t.Errorf("Projections() = %d, want 2", c.Projections())
	}
}

func TestRegistryUpgradeMalformed(t *testing.T) {
	reg := newRegistry()

	s, err := reg.Create(Tag, dom.Attr("value", "abc"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	c := s.(*Counter)
	if c.Value() != 0 {
		t.Errorf("Value() = %d, want 0", c.Value())
	}
	if got := display(t, c); got != "0" {
		t.Errorf("display = %q, want 0", got)
	}
}

func TestHTTPRoundTrip(t *testing.T) {
	reg := newRegistry()

	page := surface.TestGet(reg, Tag, url.Values{"value": {"2"}})
	if !page.IsOK() {
		t.Fatalf("GET status = %d: %s", page.StatusCode, page.HTML)
	}
	if v, _ := page.ElementValue(DisplayID); v != "2" {
		t.Errorf("GET display = %q, want 2", v)
	}
	if !page.HTMLContainsAll(`hx-post="/_s/counter-surface/inc/click"`, `hx-swap="innerHTML"`) {
		t.Errorf("missing hx attributes: %s", page.HTML)
	}

	token := page.Token()
	if token == "" {
		t.Fatal("no token in rendered surface")
	}

	inc := surface.TestDispatch(reg, Tag, IncrementID, "click", token, "")
	if !inc.IsOK() {
		t.Fatalf("POST status = %d: %s", inc.StatusCode, inc.HTML)
	}
	if v, _ := inc.ElementValue(DisplayID); v != "3" {
		t.Errorf("after increment display = %q, want 3", v)
	}
	if strings.Contains(inc.HTML, "<counter-surface") {
		t.Error("dispatch response should carry only the subtree")
	}

	typed := surface.TestDispatch(reg, Tag, DisplayID, "input", inc.Token(), "10")
	if v, _ := typed.ElementValue(DisplayID); v != "10" {
		t.Errorf("after input display = %q, want 10", v)
	}

	bad := surface.TestDispatch(reg, Tag, DisplayID, "input", typed.Token(), "ten")
	if v, _ := bad.ElementValue(DisplayID); v != "10" {
		t.Errorf("after malformed input display = %q, want 10", v)
	}
}

func TestHTTPErrors(t *testing.T) {
	reg := newRegistry()

	tests := []struct {
		name   string
		result *surface.TestResult
		status int
	}{
		{"unknown tag", surface.TestGet(reg, "other-surface", nil), 404},
		{"bad token", surface.TestDispatch(reg, Tag, IncrementID, "click", "garbage", ""), 400},
		{"unknown target", surface.TestDispatch(reg, Tag, "nope", "click", "", ""), 404},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.result.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", tt.result.StatusCode, tt.status)
			}
		})
	}
}

func TestSensitiveTokens(t *testing.T) {
	reg := surface.NewRegistry([]byte("k"))
	Define(reg, surface.Sensitive())

	// Sensitive state never comes from the query string.
	page := surface.TestGet(reg, Tag, url.Values{"value": {"8"}})
	if v, _ := page.ElementValue(DisplayID); v != "0" {
		t.Errorf("display = %q, want 0", v)
	}
	token := page.Token()
	if token == "" || strings.Contains(token, ".") {
		t.Errorf("expected an opaque encrypted token, got %q", token)
	}
	inc := surface.TestDispatch(reg, Tag, IncrementID, "click", token, "")
	if v, _ := inc.ElementValue(DisplayID); v != "1" {
		t.Errorf("display = %q, want 1", v)
	}
}

func TestTokenStateIgnoresQuery(t *testing.T) {
	reg := newRegistry()

	first := surface.TestGet(reg, Tag, url.Values{"value": {"1"}})
	token := first.Token()
	if token == "" {
		t.Fatal("no token in rendered surface")
	}

	page := surface.TestGet(reg, Tag, url.Values{"p": {token}, "value": {"999"}})
	if !page.IsOK() {
		t.Fatalf("GET status = %d: %s", page.StatusCode, page.HTML)
	}
	if v, _ := page.ElementValue(DisplayID); v != "1" {
		t.Errorf("display = %q, want the token's 1", v)
	}

	inc := surface.TestDispatch(reg, Tag, IncrementID, "click", page.Token(), "")
	if v, _ := inc.ElementValue(DisplayID); v != "2" {
		t.Errorf("after increment display = %q, want 2", v)
	}
}

func TestViewTemplate(t *testing.T) {
	tmpl, err := New(nil).VisualTemplate()
	if err != nil {
		t.Fatal(err)
	}
	root, err := dom.NewElement(Tag).AttachShadow()
	if err != nil {
		t.Fatal(err)
	}
	root.Append(tmpl.Content()...)
	for _, id := range []string{DecrementID, DisplayID, IncrementID} {
		if root.GetElementByID(id) == nil {
			t.Errorf("template has no #%s", id)
		}
	}
	if name, _ := dom.WrapNode(root.GetElementByID(DisplayID)).Attribute("name"); name != "value" {
		t.Errorf("display name = %q, want value", name)
	}
}
