package providers

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry binds validated "provider:model" IDs to callable handles. One
// factory is registered per vendor; minted handles are cached for the process
// lifetime and shared read-only across requests.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	handles   map[string]Handle // keyed by resolved id
}

// NewRegistry creates a registry with the given factories registered.
func NewRegistry(factories ...Factory) *Registry {
	r := &Registry{
		factories: make(map[string]Factory, len(factories)),
		handles:   make(map[string]Handle),
	}
	for _, f := range factories {
		r.Register(f)
	}
	return r
}

// Register adds a vendor factory. Registering a name twice replaces the
// previous factory and drops its cached handles.
func (r *Registry) Register(f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := f.Name()
	if _, exists := r.factories[name]; exists {
		for id := range r.handles {
			if strings.HasPrefix(id, name+":") {
				delete(r.handles, id)
			}
		}
	}
	r.factories[name] = f
}

// Handle returns the handle for a resolved "provider:model" ID, minting and
// caching it on first use. Handle construction never touches the network, so
// caching is purely to keep the hot path allocation-free.
func (r *Registry) Handle(resolvedID string) (Handle, error) {
	provider, model, found := strings.Cut(resolvedID, ":")
	if !found || provider == "" || model == "" {
		return nil, fmt.Errorf("%w: malformed id %q", ErrUnsupportedProvider, resolvedID)
	}

	r.mu.RLock()
	if h, ok := r.handles[resolvedID]; ok {
		r.mu.RUnlock()
		return h, nil
	}
	factory, ok := r.factories[provider]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}

	h, err := factory.CreateHandle(model)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another request may have raced us here; keep the first handle so all
	// callers share one instance.
	if existing, ok := r.handles[resolvedID]; ok {
		return existing, nil
	}
	r.handles[resolvedID] = h
	return h, nil
}

// Providers returns the registered provider names, sorted.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
