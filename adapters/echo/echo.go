// Package surfaceecho provides Echo framework integration for surfaces.
//
// Mount surfaces onto an Echo instance or group:
//
//	e := echo.New()
//	reg := surfaceecho.Mount(e)
//	counter.Define(reg)
//
// Or mount on a group with middleware:
//
//	g := e.Group("/app", authMiddleware)
//	reg := surfaceecho.MountGroup(g, surfaceecho.WithBasePath("/app"))
//	counter.Define(reg)
package surfaceecho

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/pthm/surface"
)

// Option configures the Mount and MountGroup functions.
type Option func(*options)

type options struct {
	key    []byte
	path   string
	base   string
	logger *slog.Logger
}

// WithKey sets the state token key for the registry.
// The key should be at least 32 bytes of cryptographically random data.
// If not provided, a random key is generated (suitable for development only).
func WithKey(key []byte) Option {
	return func(o *options) {
		o.key = key
	}
}

// WithPath sets the route path surfaces are served under, relative to the
// Echo instance or group. Defaults to "/_s/".
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// WithBasePath sets the public path of the group the registry is mounted
// on, so generated hx-post URLs include it.
func WithBasePath(base string) Option {
	return func(o *options) {
		o.base = strings.TrimSuffix(base, "/")
	}
}

// WithLogger sets the registry logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Mount creates a registry and mounts the surface handler on an Echo
// instance.
//
//	e := echo.New()
//	reg := surfaceecho.Mount(e)
//
//	// With options:
//	reg := surfaceecho.Mount(e, surfaceecho.WithKey(key))
func Mount(e *echo.Echo, opts ...Option) *surface.Registry {
	reg, path := newRegistry(opts)
	e.Any(path+"*", handler(reg))
	return reg
}

// MountGroup creates a registry and mounts the surface handler on an Echo
// group. Surfaces share the group's middleware (auth, logging, etc.).
func MountGroup(g *echo.Group, opts ...Option) *surface.Registry {
	reg, path := newRegistry(opts)
	g.Any(path+"*", handler(reg))
	return reg
}

func newRegistry(opts []Option) (*surface.Registry, string) {
	o := &options{path: "/_s/"}
	for _, opt := range opts {
		opt(o)
	}
	path := "/" + strings.Trim(o.path, "/") + "/"

	key := o.key
	if key == nil {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic(fmt.Sprintf("surfaceecho: failed to generate random key: %v", err))
		}
	}

	regOpts := []surface.RegistryOption{surface.WithPrefix(o.base + path)}
	if o.logger != nil {
		regOpts = append(regOpts, surface.WithRegistryLogger(o.logger))
	}
	return surface.NewRegistry(key, regOpts...), path
}

// handler forwards to the registry handler with the request path rewritten
// to the registry prefix, so group prefixes do not leak into routing.
func handler(reg *surface.Registry) echo.HandlerFunc {
	h := reg.Handler()
	return func(c echo.Context) error {
		r := c.Request().Clone(c.Request().Context())
		rest := c.Param("*")
		r.URL.RawPath = ""
		if c.Request().URL.RawPath != "" {
			// Echo routes on the escaped path, so the wildcard is escaped too.
			unescaped, err := url.PathUnescape(rest)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "malformed path")
			}
			r.URL.RawPath = reg.Prefix() + rest
			rest = unescaped
		}
		r.URL.Path = reg.Prefix() + rest
		h.ServeHTTP(c.Response(), r)
		return nil
	}
}

// Render writes a templ component to the Echo response.
//
//	func handler(c echo.Context) error {
//	    return surfaceecho.Render(c, surface.Page("Demo", reg.Mount(counter.Tag)))
//	}
func Render(c echo.Context, component templ.Component) error {
	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(c.Request().Context(), c.Response())
}
