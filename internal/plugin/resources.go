package plugin

import "sync"

// Key names a typed slot in Resources. Keys with the same name but different
// value types are distinct.
type Key[T any] struct {
	name string
}

// NewKey creates a key.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

func (k Key[T]) String() string { return k.name }

// Resources is a typed key-value registry for passing data between plugins
// of one phase-unit execution. The runner creates a fresh one per run; it is
// never persisted.
type Resources struct {
	mu sync.Mutex
	m  map[any]any
}

// NewResources creates an empty registry.
func NewResources() *Resources {
	return &Resources{m: make(map[any]any)}
}

// Put stores v under k, replacing any previous value.
func Put[T any](r *Resources, k Key[T], v T) {
	r.mu.Lock()
	r.m[k] = v
	r.mu.Unlock()
}

// Get returns the value stored under k.
func Get[T any](r *Resources, k Key[T]) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.m[k]
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// Len returns the number of stored values.
func (r *Resources) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}
