package executor

import "sync"

// Registry provides thread-safe executor registration and lookup, keyed by
// executor ID and by capability. It is an explicit injected store so tests
// can instantiate isolated instances per case.
type Registry struct {
	// executors maps executor ID to the executor.
	executors map[string]Executor
	// order preserves registration order for capability lookups.
	order []string
	// mu protects all fields.
	mu sync.RWMutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[string]Executor)}
}

// Register adds an executor. Re-registering an ID replaces the previous
// entry but keeps its original position in capability lookup order.
func (r *Registry) Register(e Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.executors[e.ID()]; !exists {
		r.order = append(r.order, e.ID())
	}
	r.executors[e.ID()] = e
}

// Get retrieves an executor by ID.
func (r *Registry) Get(id string) (Executor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.executors[id]
	return e, ok
}

// FindByCapability returns all executors serving the given capability, in
// registration order.
func (r *Registry) FindByCapability(capability string) []Executor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []Executor
	for _, id := range r.order {
		e := r.executors[id]
		for _, c := range e.Capabilities() {
			if c == capability {
				matches = append(matches, e)
				break
			}
		}
	}
	return matches
}

// All returns every registered executor in registration order.
func (r *Registry) All() []Executor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Executor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.executors[id])
	}
	return out
}

// Count returns the number of registered executors.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.executors)
}
