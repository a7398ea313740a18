package camerarig

import (
	"context"

	"github.com/vk/rehydrator/internal/registry"
	"github.com/vk/rehydrator/internal/scenegraph"
	"github.com/vk/rehydrator/internal/schema"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

var (
	defaultFocalLength = cty.NumberIntVal(50)
	defaultSpeed       = cty.NumberFloatVal(1)
)

var (
	// Rig is a camera aimed at an empty that acts as its target.
	Rig = &schema.Class{
		Name:  "CameraRig",
		Bases: []*schema.Class{schema.Root},
		Fields: []schema.Field{
			{Name: "camera", Kind: schema.Leaf(scenegraph.PayloadCamera)},
			{Name: "target", Kind: schema.Leaf(scenegraph.PayloadEmpty)},
			{Name: "focal_length", Kind: schema.Opaque(cty.Number), Default: &defaultFocalLength, Description: "Lens focal length in millimetres."},
		},
	}

	// Dolly is a rig that travels along a track.
	Dolly = &schema.Class{
		Name:  "Dolly",
		Bases: []*schema.Class{Rig},
		Fields: []schema.Field{
			{Name: "track", Kind: schema.Leaf(scenegraph.PayloadCurve)},
			{Name: "speed", Kind: schema.Opaque(cty.Number), Default: &defaultSpeed},
			{Name: "shots", Kind: schema.Opaque(cty.List(cty.String))},
		},
		Init: initDolly,
	}
)

func initDolly(ctx context.Context, a schema.Assigner) error {
	return a.Set(ctx, "shots", cty.ListValEmpty(cty.String))
}

// Register adds the camera rig classes to r.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAll(Rig, Dolly)
}
