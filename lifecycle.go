package surface

import (
	"fmt"
	"strconv"
	"strings"
)

// Connecter is implemented by surfaces that react to being attached to a
// document. Connected is called once per instance.
type Connecter interface {
	Connected() error
}

// Disconnecter is implemented by surfaces that acknowledge teardown.
// *Base provides a default.
type Disconnecter interface {
	Disconnected()
}

// AttributeObserver is implemented by surfaces with watched attributes.
//
// ObservedAttributes is a static declaration. AttributeChanged is only
// called for names it lists. old is "" when the attribute was absent.
type AttributeObserver interface {
	ObservedAttributes() []string
	AttributeChanged(name, old, value string) error
}

// Stateful is implemented by surfaces whose state should survive a
// round trip through a token. StateAttributes returns the observed
// attribute values that rebuild the current state.
type Stateful interface {
	StateAttributes() map[string]string
}

// ParseIntAttribute parses an attribute value as a base-10 integer.
// Surrounding whitespace is ignored. Anything else fails with an error
// wrapping ErrMalformedAttribute, so callers can keep their prior state.
func ParseIntAttribute(name, raw string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("attribute %q = %q: %w", name, raw, ErrMalformedAttribute)
	}
	return v, nil
}

func observes(o AttributeObserver, name string) bool {
	for _, n := range o.ObservedAttributes() {
		if n == name {
			return true
		}
	}
	return false
}
