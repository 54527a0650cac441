package plugin

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrDuplicatePlugin is returned when two plugins share a name.
	ErrDuplicatePlugin = errors.New("duplicate plugin")
	// ErrUnknownPlugin is returned when a name does not match any registered
	// plugin.
	ErrUnknownPlugin = errors.New("unknown plugin")
)

// registered pins the descriptor captured at registration time.
type registered struct {
	inner Plugin
	desc  Descriptor
}

func (r *registered) Descriptor() Descriptor { return r.desc.Clone() }

func (r *registered) Execute(ctx context.Context, ec *ExecContext) (*Result, error) {
	return r.inner.Execute(ctx, ec)
}

// Registry holds plugins in registration order. Configuration errors
// (duplicate names, unknown phases, dependency cycles) are reported by
// Register and leave the registry unchanged.
type Registry struct {
	mu      sync.RWMutex
	plugins []*registered
	byName  map[string]*registered
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*registered)}
}

// Register adds p. Its descriptor is copied and frozen.
func (r *Registry) Register(p Plugin) error {
	d := p.Descriptor().Clone()
	if err := d.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byName[d.Name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicatePlugin, d.Name)
	}

	var same []Descriptor
	for _, existing := range r.plugins {
		if existing.desc.Phase == d.Phase {
			same = append(same, existing.desc)
		}
	}
	if _, err := order(d.Phase, append(same, d)); err != nil {
		return fmt.Errorf("register %s: %w", d.Name, err)
	}

	reg := &registered{inner: p, desc: d}
	r.plugins = append(r.plugins, reg)
	r.byName[d.Name] = reg
	return nil
}

// MustRegister is Register for static wiring; it panics on error.
func (r *Registry) MustRegister(ps ...Plugin) {
	for _, p := range ps {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
}

// All returns every plugin in registration order.
func (r *Registry) All() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Plugin, len(r.plugins))
	for i, p := range r.plugins {
		out[i] = p
	}
	return out
}

// Plugins returns the plugins of one phase in registration order.
func (r *Registry) Plugins(phase Phase) []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Plugin
	for _, p := range r.plugins {
		if p.desc.Phase == phase {
			out = append(out, p)
		}
	}
	return out
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byName[name]
	if !ok {
		return Descriptor{}, false
	}
	return p.desc.Clone(), true
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// Validate re-checks every phase for cycles.
func (r *Registry) Validate() error {
	all := r.All()
	for _, ph := range Phases {
		if _, err := Order(ph, all); err != nil {
			return err
		}
	}
	return nil
}

// Subset returns a new registry with only the named plugins, kept in the
// original registration order. An empty list keeps everything. Selecting a
// plugin without a registered plugin it depends on is an error.
func (r *Registry) Subset(names []string) (*Registry, error) {
	if len(names) == 0 {
		return r, nil
	}
	want := make(map[string]bool, len(names))
	r.mu.RLock()
	for _, n := range names {
		if _, ok := r.byName[n]; !ok {
			r.mu.RUnlock()
			return nil, fmt.Errorf("%w: %s", ErrUnknownPlugin, n)
		}
		want[n] = true
	}
	for _, n := range names {
		for _, dep := range r.byName[n].desc.Dependencies {
			if _, known := r.byName[dep]; known && !want[dep] {
				r.mu.RUnlock()
				return nil, fmt.Errorf("%w: %s depends on unselected %s", ErrUnknownPlugin, n, dep)
			}
		}
	}
	r.mu.RUnlock()

	out := NewRegistry()
	for _, p := range r.All() {
		reg := p.(*registered)
		if !want[reg.desc.Name] {
			continue
		}
		if err := out.Register(reg); err != nil {
			return nil, err
		}
	}
	return out, nil
}
