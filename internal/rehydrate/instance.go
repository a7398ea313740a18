package rehydrate

import (
	"context"
	"fmt"
	"maps"

	"github.com/vk/rehydrator/internal/blob"
	"github.com/vk/rehydrator/internal/scenegraph"
	"github.com/vk/rehydrator/internal/schema"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
	"golang.org/x/text/unicode/norm"
)

// Instance is a live persistable object bound to one container collection.
type Instance struct {
	engine    *Engine
	class     *schema.Class
	schema    *schema.Schema
	prefix    string
	container *scenegraph.Collection
	data      *scenegraph.Object

	collections map[string]*scenegraph.Collection
	objects     map[string]*scenegraph.Object
	nested      map[string]*Instance

	// values holds every opaque schema field, null until assigned.
	values map[string]cty.Value
	// extra holds opaque attributes that are not schema fields.
	extra map[string]cty.Value
}

var _ schema.Assigner = (*Instance)(nil)

// Class returns the instance's class.
func (i *Instance) Class() *schema.Class { return i.class }

// Prefix returns the identity chain of the instance's class.
func (i *Instance) Prefix() string { return i.prefix }

// Container returns the collection the instance is bound to.
func (i *Instance) Container() *scenegraph.Collection { return i.container }

// DataNode returns the object holding the identity marker and the blob.
func (i *Instance) DataNode() *scenegraph.Object { return i.data }

// Schema returns the resolved schema of the instance's class.
func (i *Instance) Schema() *schema.Schema { return i.schema }

// Names returns the schema's field names in resolution order.
func (i *Instance) Names() []string { return i.schema.Names() }

// Set assigns value to the field or attribute called name, dispatching on the
// field's kind:
//
//   - container fields take a *scenegraph.Collection;
//   - leaf fields take a *scenegraph.Object;
//   - nested fields take an *Instance of the field's class, or a bare
//     *scenegraph.Collection;
//   - everything else is opaque and is written through to the blob.
//
// Graph values are held in memory only. A nil value clears the field. Names
// are compared in Unicode normal form C, the form blob keys are stored in.
func (i *Instance) Set(ctx context.Context, name string, value any) error {
	name = norm.NFC.String(name)
	if schema.IsReserved(name) {
		return fmt.Errorf("cannot assign '%s': %w", name, ErrReservedName)
	}
	kind, ok := i.schema.Kind(name)
	if !ok || !kind.IsGraph() {
		return i.SetOpaque(ctx, name, value)
	}

	switch kind.Tag {
	case schema.KindContainer:
		switch v := value.(type) {
		case nil:
			delete(i.collections, name)
			return nil
		case *scenegraph.Collection:
			i.collections[name] = v
			return nil
		}
	case schema.KindLeaf:
		switch v := value.(type) {
		case nil:
			delete(i.objects, name)
			return nil
		case *scenegraph.Object:
			i.objects[name] = v
			return nil
		}
	case schema.KindNested:
		switch v := value.(type) {
		case nil:
			delete(i.nested, name)
			delete(i.collections, name)
			return nil
		case *Instance:
			if !v.class.IsSubclassOf(kind.Class) {
				break
			}
			delete(i.collections, name)
			i.nested[name] = v
			return nil
		case *scenegraph.Collection:
			delete(i.nested, name)
			i.collections[name] = v
			return nil
		}
	}
	return &FieldTypeError{Field: name, Kind: kind, Got: describe(value)}
}

// SetOpaque converts value to a cty value and writes it to the blob under
// name. Schema fields are converted to their declared type; any other name
// is stored as given and shows up in Extra.
func (i *Instance) SetOpaque(ctx context.Context, name string, value any) error {
	name = norm.NFC.String(name)
	if schema.IsReserved(name) {
		return fmt.Errorf("cannot assign '%s': %w", name, ErrReservedName)
	}
	kind, known := i.schema.Kind(name)
	if known && kind.IsGraph() {
		return &FieldTypeError{Field: name, Kind: kind, Got: describe(value), Err: fmt.Errorf("graph fields are not stored in the blob")}
	}
	if !known {
		kind = schema.Opaque(cty.DynamicPseudoType)
	}

	v, err := toCty(value, kind.ValueType())
	if err != nil {
		return &FieldTypeError{Field: name, Kind: kind, Got: describe(value), Err: err}
	}
	if i.data == nil {
		return fmt.Errorf("cannot assign '%s': instance has no data node", name)
	}
	if err := blob.Write(i.data, name, v); err != nil {
		return fmt.Errorf("cannot assign '%s': %w", name, err)
	}

	if known {
		i.values[name] = v
	} else {
		i.extra[name] = v
	}
	return nil
}

func toCty(value any, want cty.Type) (cty.Value, error) {
	var v cty.Value
	switch raw := value.(type) {
	case nil:
		return cty.NullVal(want), nil
	case cty.Value:
		v = raw
	default:
		ty, err := gocty.ImpliedType(raw)
		if err != nil {
			return cty.NilVal, err
		}
		v, err = gocty.ToCtyValue(raw, ty)
		if err != nil {
			return cty.NilVal, err
		}
	}
	if want == cty.DynamicPseudoType {
		return v, nil
	}
	return convert.Convert(v, want)
}

// Collection returns the collection bound to a container field, or to a
// nested field that holds a bare collection.
func (i *Instance) Collection(name string) (*scenegraph.Collection, bool) {
	c, ok := i.collections[name]
	return c, ok
}

// Object returns the object bound to a leaf field.
func (i *Instance) Object(name string) (*scenegraph.Object, bool) {
	o, ok := i.objects[name]
	return o, ok
}

// Nested returns the instance bound to a nested field.
func (i *Instance) Nested(name string) (*Instance, bool) {
	n, ok := i.nested[name]
	return n, ok
}

// Value returns the opaque value stored under name, looking at schema fields
// first and then at extra attributes.
func (i *Instance) Value(name string) (cty.Value, bool) {
	name = norm.NFC.String(name)
	if v, ok := i.values[name]; ok {
		return v, true
	}
	v, ok := i.extra[name]
	return v, ok
}

// Get decodes the opaque value under name into dst, which must be a pointer.
func (i *Instance) Get(name string, dst any) error {
	v, ok := i.Value(name)
	if !ok {
		return fmt.Errorf("no attribute '%s' on %s", name, i.class.Name)
	}
	return gocty.FromCtyValue(v, dst)
}

// Attributes returns a copy of every opaque schema field's value.
func (i *Instance) Attributes() map[string]cty.Value {
	return maps.Clone(i.values)
}

// Extra returns a copy of the stored attributes that are not opaque schema
// fields.
func (i *Instance) Extra() map[string]cty.Value {
	return maps.Clone(i.extra)
}

func (i *Instance) String() string {
	return fmt.Sprintf("%s(%s)", i.prefix, i.container.Name())
}
