// Package registry tracks the targets an engine should consider each tick.
package registry

import "github.com/OCAP2/indicator/pkg/core"

// Registry is an ordered set of targets keyed by ID. It is not safe for
// concurrent use; it belongs to the goroutine that drives the engine.
type Registry struct {
	order []core.Target
	index map[string]int
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		index: make(map[string]int),
	}
}

// Register adds t. Registering an ID that is already present is a no-op
// and returns false.
func (r *Registry) Register(t core.Target) bool {
	if t == nil {
		return false
	}
	id := t.ID()
	if _, ok := r.index[id]; ok {
		return false
	}
	r.index[id] = len(r.order)
	r.order = append(r.order, t)
	return true
}

// Unregister removes the target with the given ID, keeping the order of the
// remaining targets. Returns false if it was not registered.
func (r *Registry) Unregister(id string) bool {
	i, ok := r.index[id]
	if !ok {
		return false
	}
	delete(r.index, id)
	copy(r.order[i:], r.order[i+1:])
	r.order[len(r.order)-1] = nil
	r.order = r.order[:len(r.order)-1]
	for j := i; j < len(r.order); j++ {
		r.index[r.order[j].ID()] = j
	}
	return true
}

// Get returns the registered target with the given ID.
func (r *Registry) Get(id string) (core.Target, bool) {
	i, ok := r.index[id]
	if !ok {
		return nil, false
	}
	return r.order[i], true
}

// Contains reports whether id is registered.
func (r *Registry) Contains(id string) bool {
	_, ok := r.index[id]
	return ok
}

// Len returns the number of registered targets.
func (r *Registry) Len() int {
	return len(r.order)
}

// Snapshot returns the targets in registration order. The slice is a copy,
// so callers may unregister while walking it.
func (r *Registry) Snapshot() []core.Target {
	out := make([]core.Target, len(r.order))
	copy(out, r.order)
	return out
}

// Each calls fn for every target in registration order until fn returns false.
// fn must not modify the registry; use Snapshot for that.
func (r *Registry) Each(fn func(core.Target) bool) {
	for _, t := range r.order {
		if !fn(t) {
			return
		}
	}
}

// Clear removes every target.
func (r *Registry) Clear() {
	clear(r.order)
	r.order = r.order[:0]
	r.index = make(map[string]int)
}
