package schema

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/ext/typeexpr"
	"github.com/vk/rehydrator/internal/scenegraph"
	"github.com/zclconf/go-cty/cty"
)

// KindTag discriminates the FieldKind variants.
type KindTag int

const (
	// KindOpaque fields live in the data node's attribute blob.
	KindOpaque KindTag = iota
	// KindContainer fields are bare collections.
	KindContainer
	// KindLeaf fields are objects carrying a payload of a fixed kind.
	KindLeaf
	// KindNested fields are collections wrapped by an instance of another class.
	KindNested
)

func (t KindTag) String() string {
	switch t {
	case KindOpaque:
		return "opaque"
	case KindContainer:
		return "container"
	case KindLeaf:
		return "leaf"
	case KindNested:
		return "nested"
	default:
		return fmt.Sprintf("KindTag(%d)", int(t))
	}
}

// FieldKind is the declared type of a field, resolved once at declaration so
// materialization and reconstruction dispatch on a tag instead of inspecting
// types at runtime.
type FieldKind struct {
	Tag     KindTag
	Payload scenegraph.PayloadKind // KindLeaf only
	Class   *Class                 // KindNested only
	Type    cty.Type               // KindOpaque only
}

// Container declares a bare collection field.
func Container() FieldKind { return FieldKind{Tag: KindContainer} }

// Leaf declares an object field whose payload has the given kind.
func Leaf(payload scenegraph.PayloadKind) FieldKind {
	return FieldKind{Tag: KindLeaf, Payload: payload}
}

// Nested declares a field holding an instance of class c.
func Nested(c *Class) FieldKind { return FieldKind{Tag: KindNested, Class: c} }

// Opaque declares a blob-stored field of cty type t. cty.DynamicPseudoType
// accepts any value.
func Opaque(t cty.Type) FieldKind {
	if t == cty.NilType {
		t = cty.DynamicPseudoType
	}
	return FieldKind{Tag: KindOpaque, Type: t}
}

// ValueType returns the cty type opaque values must convert to. A zero
// FieldKind accepts anything.
func (k FieldKind) ValueType() cty.Type {
	if k.Type == cty.NilType {
		return cty.DynamicPseudoType
	}
	return k.Type
}

// IsGraph reports whether the field materializes as a node of its own.
func (k FieldKind) IsGraph() bool { return k.Tag != KindOpaque }

// IsComposite reports whether the field materializes as a collection.
func (k FieldKind) IsComposite() bool {
	return k.Tag == KindContainer || k.Tag == KindNested
}

// Equal compares two kinds structurally. Nested kinds compare by class
// identity.
func (k FieldKind) Equal(other FieldKind) bool {
	if k.Tag != other.Tag {
		return false
	}
	switch k.Tag {
	case KindLeaf:
		return k.Payload == other.Payload
	case KindNested:
		return k.Class == other.Class
	case KindOpaque:
		return k.ValueType().Equals(other.ValueType())
	default:
		return true
	}
}

func (k FieldKind) String() string {
	switch k.Tag {
	case KindContainer:
		return "collection"
	case KindLeaf:
		return k.Payload.String() + "_object"
	case KindNested:
		if k.Class == nil {
			return "class.<nil>"
		}
		return "class." + k.Class.Name
	case KindOpaque:
		if k.Type == cty.NilType {
			return "any"
		}
		return typeexpr.TypeString(k.Type)
	default:
		return k.Tag.String()
	}
}
