package props

import (
	"context"

	"github.com/vk/rehydrator/internal/registry"
	"github.com/vk/rehydrator/internal/scenegraph"
	"github.com/vk/rehydrator/internal/schema"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

var defaultCapacity = cty.NumberIntVal(8)

var (
	// Prop is a placeable scene prop: a mesh body with a motion path.
	Prop = &schema.Class{
		Name:  "Prop",
		Bases: []*schema.Class{schema.Root},
		Fields: []schema.Field{
			{Name: "body", Kind: schema.Leaf(scenegraph.PayloadMesh)},
			{Name: "path", Kind: schema.Leaf(scenegraph.PayloadCurve)},
			{Name: "tags", Kind: schema.Opaque(cty.Set(cty.String)), Description: "Free-form labels."},
		},
		Init: initProp,
	}

	// Crate is a prop that holds other datablocks.
	Crate = &schema.Class{
		Name:  "Crate",
		Bases: []*schema.Class{Prop},
		Fields: []schema.Field{
			{Name: "contents", Kind: schema.Container()},
			{Name: "capacity", Kind: schema.Opaque(cty.Number), Default: &defaultCapacity},
		},
	}
)

// initProp gives every fresh prop an empty tag set instead of null.
func initProp(ctx context.Context, a schema.Assigner) error {
	return a.Set(ctx, "tags", cty.SetValEmpty(cty.String))
}

// Register adds the prop classes to r.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAll(Prop, Crate)
}
