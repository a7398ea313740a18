package manifest

import (
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/ext/typeexpr"
	"github.com/vk/rehydrator/internal/scenegraph"
	"github.com/vk/rehydrator/internal/schema"
)

const (
	collectionKeyword = "collection"
	objectSuffix      = "_object"
	classNamespace    = "class"
)

// classLookup resolves the NAME in a `class.NAME` type reference.
type classLookup func(name string) (*schema.Class, error)

// fieldKind converts a field's type expression into a FieldKind. Graph
// keywords and class references are recognised first; everything else must
// be a type constraint.
func fieldKind(expr hcl.Expression, lookup classLookup) (schema.FieldKind, hcl.Diagnostics) {
	if traversal, diags := hcl.AbsTraversalForExpr(expr); !diags.HasErrors() {
		if kind, ok, diags := graphKind(traversal, lookup); ok || diags.HasErrors() {
			return kind, diags
		}
	}

	ty, diags := typeexpr.TypeConstraint(expr)
	if diags.HasErrors() {
		return schema.FieldKind{}, diags
	}
	return schema.Opaque(ty), nil
}

func graphKind(traversal hcl.Traversal, lookup classLookup) (schema.FieldKind, bool, hcl.Diagnostics) {
	root := traversal.RootName()

	if root == classNamespace {
		if len(traversal) != 2 {
			return schema.FieldKind{}, false, hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Invalid class reference",
				Detail:   "A class reference must have the form class.NAME.",
				Subject:  traversal.SourceRange().Ptr(),
			}}
		}
		attr, ok := traversal[1].(hcl.TraverseAttr)
		if !ok {
			return schema.FieldKind{}, false, hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Invalid class reference",
				Detail:   "A class reference must have the form class.NAME.",
				Subject:  traversal.SourceRange().Ptr(),
			}}
		}
		class, err := lookup(attr.Name)
		if err != nil {
			return schema.FieldKind{}, false, hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Unknown class",
				Detail:   err.Error(),
				Subject:  traversal.SourceRange().Ptr(),
			}}
		}
		return schema.Nested(class), true, nil
	}

	if len(traversal) != 1 {
		return schema.FieldKind{}, false, nil
	}
	if root == collectionKeyword {
		return schema.Container(), true, nil
	}
	if payload, found := strings.CutSuffix(root, objectSuffix); found {
		kind, err := scenegraph.ParsePayloadKind(payload)
		if err != nil {
			return schema.FieldKind{}, false, hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Unknown object type",
				Detail:   "No payload kind called " + payload + ".",
				Subject:  traversal.SourceRange().Ptr(),
			}}
		}
		return schema.Leaf(kind), true, nil
	}
	return schema.FieldKind{}, false, nil
}
