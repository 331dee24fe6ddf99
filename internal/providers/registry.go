package providers

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a verifier. It is called once, on first use.
type Factory func() (Verifier, error)

// ErrUnsupported is returned by Get for names with no registered factory.
var ErrUnsupported = fmt.Errorf("provider not supported")

// Registry maps provider names to verifiers.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	cache     map[string]Verifier
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		cache:     make(map[string]Verifier),
	}
}

// RegisterFactory registers (or replaces) the factory for name.
func (r *Registry) RegisterFactory(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
	delete(r.cache, name)
}

// Register adds an already built verifier under its own name.
func (r *Registry) Register(v Verifier) {
	r.RegisterFactory(v.Name(), func() (Verifier, error) { return v, nil })
}

// Get returns the verifier for name, building it on first use.
func (r *Registry) Get(name string) (Verifier, error) {
	r.mu.RLock()
	if v, ok := r.cache[name]; ok {
		r.mu.RUnlock()
		return v, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.cache[name]; ok {
		return v, nil
	}
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, name)
	}
	v, err := factory()
	if err != nil {
		return nil, fmt.Errorf("build verifier %s: %w", name, err)
	}
	r.cache[name] = v
	return v, nil
}

// AvailableProviders returns the registered names, sorted.
func (r *Registry) AvailableProviders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
