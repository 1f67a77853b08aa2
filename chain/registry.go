package chain

import (
	"sort"
	"sync"

	"github.com/kbukum/runkit/runnable"
)

// Registry provides named unit lookup for building chains.
type Registry struct {
	mu    sync.RWMutex
	units map[string]runnable.Runnable[any, any]
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{units: make(map[string]runnable.Runnable[any, any])}
}

// Register adds a unit under name, replacing any previous one.
func (r *Registry) Register(name string, unit runnable.Runnable[any, any]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.units[name] = unit
}

// Get retrieves a unit by name.
func (r *Registry) Get(name string) (runnable.Runnable[any, any], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.units[name]
	return u, ok
}

// List returns sorted names of all registered units.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.units))
	for name := range r.units {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register adds a typed unit to reg. Inputs of the wrong type fail with a
// *runnable.TypeError at invocation.
func Register[I, O any](reg *Registry, unit runnable.Runnable[I, O]) {
	reg.Register(unit.Name(), runnable.Any(unit))
}
