// Package capability implements the named-probe registry used by the
// infrastructure-test plugin. A capability is either a property
// (argument-free getter) or a method (requires one parameter); both
// produce an observed value for the assertion engine.
//
// The registry is built explicitly at startup. Resolution is a plain
// lookup, so an unsupported capability is a lookup miss instead of a
// reflection failure at probe time.
package capability

import (
	"context"
	"sync"

	driftkiterrors "github.com/driftkit/driftkit/pkg/errors"
)

// Kind tags the two capability variants.
type Kind int

const (
	// KindProperty marks an argument-free probe.
	KindProperty Kind = iota
	// KindMethod marks a probe that requires one parameter.
	KindMethod
)

// PropertyFunc probes a target without arguments.
type PropertyFunc func(ctx context.Context, target string) (any, error)

// MethodFunc probes a target with one required parameter.
type MethodFunc func(ctx context.Context, target, parameter string) (any, error)

// Capability is a tagged variant holding exactly one probe form.
type Capability struct {
	kind     Kind
	property PropertyFunc
	method   MethodFunc
}

// Property builds a property capability.
func Property(fn PropertyFunc) Capability {
	return Capability{kind: KindProperty, property: fn}
}

// Method builds a method capability.
func Method(fn MethodFunc) Capability {
	return Capability{kind: KindMethod, method: fn}
}

// Kind reports the capability variant.
func (c Capability) Kind() Kind {
	return c.kind
}

// Backend exposes a named set of capabilities against one kind of
// target (a file path, a port number, a command line).
type Backend struct {
	name string
	caps map[string]Capability
}

// NewBackend creates an empty backend.
func NewBackend(name string) *Backend {
	return &Backend{name: name, caps: make(map[string]Capability)}
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return b.name
}

// Register adds a capability under the given name.
func (b *Backend) Register(name string, c Capability) {
	b.caps[name] = c
}

// Capabilities lists registered capability names.
func (b *Backend) Capabilities() []string {
	names := make([]string, 0, len(b.caps))
	for name := range b.caps {
		names = append(names, name)
	}
	return names
}

// Resolve looks up a capability by name. A miss is an
// UnsupportedCapabilityError naming the backend and capability.
func (b *Backend) Resolve(name string) (Capability, error) {
	c, ok := b.caps[name]
	if !ok {
		return Capability{}, driftkiterrors.NewUnsupportedCapabilityError(b.name, name)
	}
	return c, nil
}

// Observe resolves a capability and probes the target with it. A
// method capability invoked without a parameter fails with
// InvalidArgumentError; a parameter passed to a property capability is
// rejected the same way, since it would be silently ignored otherwise.
func (b *Backend) Observe(ctx context.Context, capName, target string, parameter *string) (any, error) {
	c, err := b.Resolve(capName)
	if err != nil {
		return nil, err
	}

	switch c.kind {
	case KindProperty:
		if parameter != nil {
			return nil, driftkiterrors.NewInvalidArgumentError(capName, "capability takes no parameter")
		}
		return c.property(ctx, target)
	default:
		if parameter == nil {
			return nil, driftkiterrors.NewInvalidArgumentError(capName, "parameter is required")
		}
		return c.method(ctx, target, *parameter)
	}
}

// Registry maps backend names to backends.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]*Backend
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]*Backend)}
}

// Register adds a backend under its name.
func (r *Registry) Register(b *Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[b.name] = b
}

// Backend retrieves a backend by name.
func (r *Registry) Backend(name string) (*Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[name]
	return b, ok
}
