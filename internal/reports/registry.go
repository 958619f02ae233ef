package reports

import (
	"fmt"
	"sync"
)

// Registry maps template ids to templates. It is built once at startup and
// read concurrently afterwards.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]Template
	order     []string
}

// NewRegistry returns a registry holding templates in the given order.
// Duplicate ids panic, since they are a programming error.
func NewRegistry(templates ...Template) *Registry {
	r := &Registry{templates: make(map[string]Template, len(templates))}
	for _, t := range templates {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	return r
}

// DefaultRegistry holds every built-in report type.
func DefaultRegistry() *Registry {
	return NewRegistry(NewTrafficOverview())
}

// Register adds t. It fails if the id is empty or already taken.
func (r *Registry) Register(t Template) error {
	id := t.ID()
	if id == "" {
		return fmt.Errorf("template has empty id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.templates[id]; exists {
		return fmt.Errorf("template %q already registered", id)
	}
	r.templates[id] = t
	r.order = append(r.order, id)
	return nil
}

// Lookup returns the template with the given id.
func (r *Registry) Lookup(id string) (Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[id]
	return t, ok
}

// List returns every template in registration order.
func (r *Registry) List() []Template {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Template, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.templates[id])
	}
	return out
}

// Infos returns discovery metadata for every template.
func (r *Registry) Infos() []Info {
	list := r.List()
	out := make([]Info, 0, len(list))
	for _, t := range list {
		out = append(out, Describe(t))
	}
	return out
}
