package backend

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/compositor/render"
)

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
	// Priority order for backend selection (first available wins).
	// Pixels are only produced by soft, so it leads.
	backendPriority = []string{BackendSoft, BackendHALRS}
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory Factory) {
	if factory == nil {
		panic("backend: Register factory is nil for " + name)
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the registered backend names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Open creates a render system from the named backend.
func Open(name string) (render.RenderSystem, error) {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}
	rs, err := factory()
	if err != nil {
		return nil, fmt.Errorf("backend: open %s: %w", name, err)
	}
	return rs, nil
}

// Default opens the best available backend based on priority, then any
// other registered backend in name order.
func Default() (render.RenderSystem, error) {
	names := append(append([]string(nil), backendPriority...), Available()...)
	tried := make(map[string]bool)
	for _, name := range names {
		if tried[name] || !IsRegistered(name) {
			continue
		}
		tried[name] = true
		if rs, err := Open(name); err == nil {
			return rs, nil
		}
	}
	return nil, ErrBackendNotAvailable
}

// MustDefault returns the default backend or panics.
func MustDefault() render.RenderSystem {
	rs, err := Default()
	if err != nil {
		panic("backend: no backend available")
	}
	return rs
}
