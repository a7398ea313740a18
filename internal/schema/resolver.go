package schema

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of resolved schemas a Resolver keeps.
const DefaultCacheSize = 256

// Schema is the ordered field mapping of a class after inheritance.
type Schema struct {
	fields  []Field
	index   map[string]int
	appends map[string]string
}

// Fields returns the resolved fields in resolution order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Names returns the resolved field names in resolution order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Field returns the resolved field called name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Kind returns the resolved kind of name, or false if no such field exists.
func (s *Schema) Kind(name string) (FieldKind, bool) {
	f, ok := s.Field(name)
	return f.Kind, ok
}

// Append returns the append locator configured for field name.
func (s *Schema) Append(name string) (string, bool) {
	loc, ok := s.appends[name]
	return loc, ok
}

// Appends returns a copy of every append override in effect.
func (s *Schema) Appends() map[string]string {
	out := make(map[string]string, len(s.appends))
	for k, v := range s.appends {
		out[k] = v
	}
	return out
}

// Len returns the number of resolved fields.
func (s *Schema) Len() int { return len(s.fields) }

func (s *Schema) set(f Field) {
	if i, ok := s.index[f.Name]; ok {
		s.fields[i] = f
		return
	}
	s.index[f.Name] = len(s.fields)
	s.fields = append(s.fields, f)
}

// Resolver merges declared fields across a class's persistable ancestors.
// Results are cached per class; classes must not be mutated once resolved.
type Resolver struct {
	cache *lru.Cache[*Class, *Schema]
}

// NewResolver creates a resolver caching up to size schemas.
func NewResolver(size int) *Resolver {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[*Class, *Schema](size)
	if err != nil {
		// Only reachable with a non-positive size, which is guarded above.
		panic(err)
	}
	return &Resolver{cache: cache}
}

// Resolve returns the schema of c.
//
// Ancestors are merged base-first: each persistable base is resolved in
// declaration order (so a later base overrides an earlier one), an ancestor
// reached through several bases is merged once, and c's own fields go last.
// A later merge replaces the earlier kind but keeps the field's first
// position. Append-override names are never fields.
func (r *Resolver) Resolve(c *Class) *Schema {
	if s, ok := r.cache.Get(c); ok {
		return s
	}
	s := resolve(c)
	r.cache.Add(c, s)
	return s
}

func resolve(c *Class) *Schema {
	s := &Schema{
		index:   make(map[string]int),
		appends: make(map[string]string),
	}
	for _, k := range Linearize(c) {
		for _, f := range k.Fields {
			if IsAppendName(f.Name) {
				continue
			}
			s.set(f)
		}
		for field, loc := range k.Appends {
			s.appends[field] = loc
		}
	}
	return s
}

// Linearize returns c and its persistable ancestors in merge order: every
// class after all of its bases, bases visited in declaration order, each class
// once. Root is omitted.
func Linearize(c *Class) []*Class {
	var order []*Class
	seen := make(map[*Class]bool)
	var visit func(k *Class)
	visit = func(k *Class) {
		if seen[k] {
			return
		}
		seen[k] = true
		for _, base := range k.Bases {
			if base == Root || !base.IsPersistable() {
				continue
			}
			visit(base)
		}
		order = append(order, k)
	}
	visit(c)
	return order
}
