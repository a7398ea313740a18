package schema

import (
	"context"
	"slices"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// AppendSuffix marks a field name as an append override for another field.
const AppendSuffix = "_append_from"

// ReservedPrefix starts every name the persistence core keeps for itself.
const ReservedPrefix = "__"

// Root is the taxonomy root every persistable class descends from. It is
// never instantiated and never appears in an identity chain.
var Root = &Class{Name: "Rehydratable"}

// Assigner is the write surface an Init hook gets. It is implemented by the
// instance under construction.
type Assigner interface {
	Set(ctx context.Context, name string, value any) error
}

// Field is one declared field of a class.
type Field struct {
	Name        string
	Kind        FieldKind
	Default     *cty.Value // opaque fields only; applied on fresh construction
	Description string
}

// Class is the declaration of a persistable type.
type Class struct {
	// Name is the simple name; identity chains join these with '.'.
	Name string
	// Bases are the direct parents in declaration order. A class deriving
	// directly from the taxonomy root lists Root here. A class with no
	// persistable base cannot be encoded.
	Bases []*Class
	// Fields are declared directly on this class, in declaration order.
	Fields []Field
	// Appends maps a field name to an external resource locator
	// ("path@name") the field is imported from instead of being created.
	Appends map[string]string
	// Init runs after materialization on fresh construction only.
	Init func(ctx context.Context, a Assigner) error
}

// PersistenceParent returns the first base that is the root or is itself
// persistable, or nil. A base that leads back to c through its own bases
// does not count.
func (c *Class) PersistenceParent() *Class {
	return c.persistenceParent(map[*Class]bool{c: true})
}

func (c *Class) persistenceParent(path map[*Class]bool) *Class {
	for _, base := range c.Bases {
		if base == Root {
			return base
		}
		if path[base] {
			continue
		}
		path[base] = true
		parent := base.persistenceParent(path)
		delete(path, base)
		if parent != nil {
			return base
		}
	}
	return nil
}

// IsPersistable reports whether c descends from Root.
func (c *Class) IsPersistable() bool {
	return c != Root && c.PersistenceParent() != nil
}

// Lineage returns c and its persistence parents, root-most first. Root is
// not included. It returns nil when c is not persistable or when following
// persistence parents revisits a class.
func (c *Class) Lineage() []*Class {
	var chain []*Class
	seen := make(map[*Class]bool)
	for k := c; k != Root; k = k.PersistenceParent() {
		if k == nil || seen[k] {
			return nil
		}
		seen[k] = true
		chain = append(chain, k)
	}
	slices.Reverse(chain)
	return chain
}

// IsSubclassOf reports whether c is other or descends from it through any
// base.
func (c *Class) IsSubclassOf(other *Class) bool {
	seen := make(map[*Class]bool)
	var walk func(k *Class) bool
	walk = func(k *Class) bool {
		if k == other {
			return true
		}
		if seen[k] {
			return false
		}
		seen[k] = true
		for _, base := range k.Bases {
			if walk(base) {
				return true
			}
		}
		return false
	}
	return walk(c)
}

// Field returns the directly declared field called name.
func (c *Class) Field(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (c *Class) String() string { return c.Name }

// IsAppendName reports whether name configures another field's append
// override rather than naming a field.
func IsAppendName(name string) bool {
	return strings.HasSuffix(name, AppendSuffix) && len(name) > len(AppendSuffix)
}

// IsReserved reports whether name is kept for the persistence core.
func IsReserved(name string) bool {
	return strings.HasPrefix(name, ReservedPrefix)
}
