package surface

import (
	"log/slog"

	"github.com/pthm/surface/lib/dom"
)

// Phase is the render lifecycle state of one surface instance.
type Phase int

const (
	// PhaseUnattached: no private subtree exists yet.
	PhaseUnattached Phase = iota
	// PhaseFirstRefresh: the subtree exists but the first projection has
	// not completed.
	PhaseFirstRefresh
	// PhaseSteady: wired and projected at least once. Refreshes only
	// project.
	PhaseSteady
)

func (p Phase) String() string {
	switch p {
	case PhaseUnattached:
		return "unattached"
	case PhaseFirstRefresh:
		return "first-refresh"
	case PhaseSteady:
		return "steady"
	default:
		return "unknown"
	}
}

// Base is the state every surface embeds.
//
// Surfaces embed *Base to satisfy Host. The private subtree handle is
// reachable only through this package, so the only way to populate it is
// MaterializeOnce:
//
//	type Counter struct {
//	    *surface.Base
//	    value int
//	}
//
//	func New(host *dom.Element, opts ...surface.Option) *Counter {
//	    return &Counter{Base: surface.NewBase("counter-surface", host, opts...)}
//	}
type Base struct {
	tag         string
	host        *dom.Element
	root        *dom.ShadowRoot
	template    string
	phase       Phase
	projections int
	mixins      []Mixin
	logger      *slog.Logger
	fatal       error
}

// Option configures a Base.
type Option func(*Base)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(b *Base) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithMixins appends shared behaviors mounted on first render, in order,
// before the surface wires its own interactions.
func WithMixins(mixins ...Mixin) Option {
	return func(b *Base) {
		b.mixins = append(b.mixins, mixins...)
	}
}

// NewBase creates the embedded state for a surface with the given tag.
// A nil host gets a fresh detached element.
func NewBase(tag string, host *dom.Element, opts ...Option) *Base {
	if host == nil {
		host = dom.NewElement(tag)
	}
	b := &Base{
		tag:    tag,
		host:   host,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("surface", tag)
	return b
}

func (b *Base) surfaceBase() *Base { return b }

// Tag returns the surface's tag name.
func (b *Base) Tag() string {
	return b.tag
}

// Element returns the host element.
func (b *Base) Element() *dom.Element {
	return b.host
}

// SurfaceRoot returns the private subtree, or nil before the first
// refresh.
func (b *Base) SurfaceRoot() *dom.ShadowRoot {
	return b.root
}

// Phase returns the current lifecycle phase.
func (b *Base) Phase() Phase {
	return b.phase
}

// Projections returns how many times state has been projected onto the
// subtree.
func (b *Base) Projections() int {
	return b.projections
}

// Logger returns the surface's logger.
func (b *Base) Logger() *slog.Logger {
	return b.logger
}

// Disconnected acknowledges teardown. The subtree and state are released
// with the surface itself.
func (b *Base) Disconnected() {
	b.logger.Debug("disconnected", "phase", b.phase)
}
