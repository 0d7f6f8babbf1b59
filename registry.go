package surface

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/pthm/surface/lib/dom"
	"github.com/pthm/surface/lib/encoding"
	"golang.org/x/net/html"
)

// Constructor builds a surface for a host element. Options come from the
// registry (logger, mixins) and must be forwarded to NewBase.
type Constructor func(host *dom.Element, opts ...Option) Surface

type definition struct {
	tag       string
	ctor      Constructor
	sensitive bool
	mixins    []Mixin
}

// DefineOption configures a definition.
type DefineOption func(*definition)

// Sensitive encrypts the surface's state tokens instead of only signing
// them.
func Sensitive() DefineOption {
	return func(d *definition) {
		d.sensitive = true
	}
}

// Mixins mounts the given shared behaviors on every instance of the
// definition, before any mixins the constructor adds itself.
func Mixins(mixins ...Mixin) DefineOption {
	return func(d *definition) {
		d.mixins = append(d.mixins, mixins...)
	}
}

// Registry maps tag names to surface constructors and drives their
// lifecycle when elements are upgraded.
type Registry struct {
	mu      sync.RWMutex
	defs    map[string]*definition
	encoder *encoding.Encoder
	prefix  string

	// Logger receives lifecycle and error logs. Defaults to slog.Default().
	Logger *slog.Logger

	// OnError is called when serving a request fails.
	// Customize this to handle errors appropriately for your application.
	OnError func(http.ResponseWriter, *http.Request, error)
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithPrefix sets the URL prefix the HTTP handler serves under.
// Defaults to "/_s/".
func WithPrefix(prefix string) RegistryOption {
	return func(reg *Registry) {
		if !strings.HasPrefix(prefix, "/") {
			prefix = "/" + prefix
		}
		if !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		reg.prefix = prefix
	}
}

// WithRegistryLogger sets the registry logger.
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(reg *Registry) {
		reg.Logger = l
	}
}

// NewRegistry creates a registry whose state tokens are keyed with key.
func NewRegistry(key []byte, opts ...RegistryOption) *Registry {
	enc, err := encoding.NewEncoder(key)
	if err != nil {
		panic(fmt.Sprintf("surface: failed to create encoder: %v", err))
	}

	reg := &Registry{
		defs:    make(map[string]*definition),
		encoder: enc,
		prefix:  "/_s/",
		Logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(reg)
	}

	reg.OnError = func(w http.ResponseWriter, r *http.Request, err error) {
		switch {
		case IsNotFound(err):
			http.Error(w, "Not found", http.StatusNotFound)
		case IsDecryptionError(err), errors.Is(err, ErrInvalidFormat), IsMalformedAttribute(err):
			http.Error(w, "Bad request", http.StatusBadRequest)
		default:
			http.Error(w, "Internal error", http.StatusInternalServerError)
		}
	}

	return reg
}

// Prefix returns the URL prefix of the HTTP handler.
func (reg *Registry) Prefix() string {
	return reg.prefix
}

// Define registers a constructor for tag.
// Panics if tag is not a valid custom element name or is already defined.
func (reg *Registry) Define(tag string, ctor Constructor, opts ...DefineOption) {
	if !validTag(tag) {
		panic(fmt.Sprintf("surface: invalid tag %q: must be lowercase and contain a hyphen", tag))
	}
	if ctor == nil {
		panic(fmt.Sprintf("surface: nil constructor for %q", tag))
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, exists := reg.defs[tag]; exists {
		panic(fmt.Sprintf("surface: tag collision for %q", tag))
	}
	d := &definition{tag: tag, ctor: ctor}
	for _, opt := range opts {
		opt(d)
	}
	reg.defs[tag] = d
}

// Defined reports whether tag has a definition.
func (reg *Registry) Defined(tag string) bool {
	_, ok := reg.lookup(tag)
	return ok
}

// Tags returns the defined tags, sorted.
func (reg *Registry) Tags() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	tags := make([]string, 0, len(reg.defs))
	for tag := range reg.defs {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func (reg *Registry) lookup(tag string) (*definition, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	d, ok := reg.defs[tag]
	return d, ok
}

// Create builds a detached host element with attrs and upgrades it.
func (reg *Registry) Create(tag string, attrs ...html.Attribute) (Surface, error) {
	return reg.Upgrade(dom.NewElement(tag, attrs...))
}

// Upgrade constructs the surface defined for el's tag, replays el's
// observed attributes in source order, then connects it.
//
// Malformed attribute values are logged and skipped; the surface keeps
// its prior state for that attribute.
func (reg *Registry) Upgrade(el *dom.Element) (Surface, error) {
	d, ok := reg.lookup(el.Tag())
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSurface, el.Tag())
	}

	s := d.ctor(el, WithLogger(reg.Logger), WithMixins(d.mixins...))

	if o, ok := s.(AttributeObserver); ok {
		for _, a := range el.Attributes() {
			if a.Namespace != "" || !observes(o, a.Key) {
				continue
			}
			if err := o.AttributeChanged(a.Key, "", a.Val); err != nil {
				if IsMalformedAttribute(err) {
					reg.Logger.Warn("ignoring attribute", "surface", d.tag, "error", err)
					continue
				}
				return nil, err
			}
		}
	}

	if c, ok := s.(Connecter); ok {
		if err := c.Connected(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// validTag follows the custom element naming rule: lowercase ASCII
// letter first, at least one hyphen.
func validTag(tag string) bool {
	if tag == "" || tag[0] < 'a' || tag[0] > 'z' || !strings.Contains(tag, "-") {
		return false
	}
	for _, r := range tag {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' && r != '.' && r != '_' {
			return false
		}
	}
	return true
}
