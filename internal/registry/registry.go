package registry

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/vk/rehydrator/internal/schema"
)

// Module is implemented by packages that contribute classes.
type Module interface {
	Register(r *Registry)
}

// Registry stores registered classes in registration order.
type Registry struct {
	mu         sync.RWMutex
	classes    []*schema.Class
	known      map[*schema.Class]struct{}
	byName     map[string][]*schema.Class
	generation uint64
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		known:  make(map[*schema.Class]struct{}),
		byName: make(map[string][]*schema.Class),
	}
}

// Register adds c to the registry. Registering the same class twice, or the
// root, is a programming error and panics.
func (r *Registry) Register(c *schema.Class) {
	if c == nil || c == schema.Root {
		panic("cannot register the taxonomy root or a nil class")
	}
	if c.Name == "" {
		panic("cannot register a class without a name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.known[c]; exists {
		panic(fmt.Sprintf("class '%s' already registered", c.Name))
	}
	slog.Debug("Registering class.", "name", c.Name, "bases", len(c.Bases), "fields", len(c.Fields))
	r.known[c] = struct{}{}
	r.classes = append(r.classes, c)
	r.byName[c.Name] = append(r.byName[c.Name], c)
	r.generation++
}

// RegisterAll registers every class in order.
func (r *Registry) RegisterAll(classes ...*schema.Class) {
	for _, c := range classes {
		r.Register(c)
	}
}

// Contains reports whether c has been registered.
func (r *Registry) Contains(c *schema.Class) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.known[c]
	return ok
}

// Classes returns every registered class in registration order.
func (r *Registry) Classes() []*schema.Class {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*schema.Class, len(r.classes))
	copy(out, r.classes)
	return out
}

// ByName returns all registered classes with the given simple name.
func (r *Registry) ByName(name string) []*schema.Class {
	r.mu.RLock()
	defer r.mu.RUnlock()
	found := r.byName[name]
	out := make([]*schema.Class, len(found))
	copy(out, found)
	return out
}

// Subclasses returns the registered classes that list parent among their
// direct bases, in registration order.
func (r *Registry) Subclasses(parent *schema.Class) []*schema.Class {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*schema.Class
	for _, c := range r.classes {
		for _, base := range c.Bases {
			if base == parent {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Generation returns a counter that changes whenever the registry does.
func (r *Registry) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}
