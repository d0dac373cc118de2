package chat

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// RenderFunc converts a role/content record list into prompt text.
type RenderFunc func(msgs []Turn) (string, error)

// Provider supplies a harmony-format renderer. Implementations are registered
// under a name and resolved in priority order; a provider may be present but
// still fail to resolve (for example when its backing configuration is
// incomplete), in which case discovery moves on to the next candidate.
type Provider interface {
	Resolve() (RenderFunc, error)
}

// AttrProvider is an optional extension letting an override directive select
// a specific named entry point within a provider.
type AttrProvider interface {
	Provider
	ResolveAttr(attr string) (RenderFunc, error)
}

// Registry holds renderer providers keyed by name. The zero value is not
// usable; create one with NewRegistry.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string // registration order, scanned first during discovery
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider under the given name. Re-registering a name
// replaces the previous provider but keeps its discovery position.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[name]; !ok {
		r.order = append(r.order, name)
	}
	r.providers[name] = p
}

// Names returns the registered provider names in discovery order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

func (r *Registry) lookup(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Discover resolves a renderer. The override directive has the form
// "name[:attr]"; when non-empty it is authoritative: a renderer is resolved
// from the named provider or discovery fails outright, never falling through
// to the scan. With no override, providers are scanned in registration order
// (then any remaining names sorted for determinism) and the first successful
// resolution wins. Results are never cached: providers and the override may
// change between calls within a long-running session.
func (r *Registry) Discover(override string) (RenderFunc, error) {
	if spec := strings.TrimSpace(override); spec != "" {
		return r.resolveOverride(spec)
	}

	seen := make(map[string]bool)
	names := r.Names()
	sorted := make([]string, 0)
	r.mu.RLock()
	for name := range r.providers {
		sorted = append(sorted, name)
	}
	r.mu.RUnlock()
	sort.Strings(sorted)
	names = append(names, sorted...)

	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		p, ok := r.lookup(name)
		if !ok {
			continue
		}
		fn, err := p.Resolve()
		if err == nil && fn != nil {
			return fn, nil
		}
	}
	return nil, ErrRendererUnavailable
}

func (r *Registry) resolveOverride(spec string) (RenderFunc, error) {
	name, attr := spec, ""
	if i := strings.IndexByte(spec, ':'); i >= 0 {
		name, attr = spec[:i], spec[i+1:]
	}

	p, ok := r.lookup(name)
	if !ok {
		return nil, fmt.Errorf("renderer override %q: provider %q not registered: %w", spec, name, ErrRendererUnavailable)
	}

	if attr != "" {
		ap, ok := p.(AttrProvider)
		if !ok {
			return nil, fmt.Errorf("renderer override %q: provider %q has no named entry points: %w", spec, name, ErrRendererUnavailable)
		}
		fn, err := ap.ResolveAttr(attr)
		if err != nil || fn == nil {
			return nil, fmt.Errorf("renderer override %q: %w", spec, ErrRendererUnavailable)
		}
		return fn, nil
	}

	fn, err := p.Resolve()
	if err != nil || fn == nil {
		return nil, fmt.Errorf("renderer override %q: %w", spec, ErrRendererUnavailable)
	}
	return fn, nil
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide registry with the built-in harmony
// renderer pre-registered.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
		defaultRegistry.Register("harmony", harmonyProvider{})
	})
	return defaultRegistry
}
