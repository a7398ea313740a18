package rehydrate

import (
	"context"
	"fmt"

	"github.com/vk/rehydrator/internal/ctxlog"
	"github.com/vk/rehydrator/internal/scenegraph"
	"github.com/vk/rehydrator/internal/schema"
)

// payloadSuffixes lists the payload kinds a fresh leaf can be built with, and
// the suffix the new payload's name gets. The empty kind carries no payload.
var payloadSuffixes = map[scenegraph.PayloadKind]string{
	scenegraph.PayloadMesh:   "mesh",
	scenegraph.PayloadCurve:  "curve",
	scenegraph.PayloadCamera: "camera",
}

// materialize creates, or imports, the node backing one field and binds it.
func (e *Engine) materialize(ctx context.Context, inst *Instance, f schema.Field) error {
	switch f.Kind.Tag {
	case schema.KindContainer, schema.KindNested:
		col, err := e.fieldCollection(ctx, inst, f.Name)
		if err != nil {
			return err
		}
		if err := e.store.LinkCollection(ctx, inst.container, col); err != nil {
			return fmt.Errorf("field '%s': %w", f.Name, err)
		}
		col.SetProp(FieldProperty, f.Name)

		if f.Kind.Tag == schema.KindNested {
			nested, err := e.construct(ctx, f.Kind.Class, col)
			if err != nil {
				return fmt.Errorf("field '%s': %w", f.Name, err)
			}
			return inst.Set(ctx, f.Name, nested)
		}
		return inst.Set(ctx, f.Name, col)

	case schema.KindLeaf:
		obj, err := e.fieldObject(ctx, inst, f)
		if err != nil {
			return err
		}
		if err := e.store.LinkObject(ctx, inst.container, obj); err != nil {
			return fmt.Errorf("field '%s': %w", f.Name, err)
		}
		obj.SetProp(FieldProperty, f.Name)
		return inst.Set(ctx, f.Name, obj)

	default:
		// Opaque fields start out null. Nothing reaches the blob until the
		// first explicit assignment.
		return nil
	}
}

func (e *Engine) fieldCollection(ctx context.Context, inst *Instance, field string) (*scenegraph.Collection, error) {
	if raw, ok := inst.schema.Append(field); ok {
		loc, err := schema.ParseLocator(raw)
		if err != nil {
			return nil, fmt.Errorf("field '%s': %w", field, err)
		}
		ctxlog.FromContext(ctx).Debug("Importing collection for field.", "field", field, "locator", loc.String())
		col, err := e.store.ImportCollection(ctx, loc.Path, loc.Name)
		if err != nil {
			return nil, fmt.Errorf("field '%s': failed to import '%s': %w", field, loc, err)
		}
		return col, nil
	}

	col, err := e.store.NewCollection(ctx, inst.prefix+"."+field)
	if err != nil {
		return nil, fmt.Errorf("field '%s': %w", field, err)
	}
	return col, nil
}

func (e *Engine) fieldObject(ctx context.Context, inst *Instance, f schema.Field) (*scenegraph.Object, error) {
	if raw, ok := inst.schema.Append(f.Name); ok {
		loc, err := schema.ParseLocator(raw)
		if err != nil {
			return nil, fmt.Errorf("field '%s': %w", f.Name, err)
		}
		ctxlog.FromContext(ctx).Debug("Importing object for field.", "field", f.Name, "locator", loc.String())
		obj, err := e.store.ImportObject(ctx, loc.Path, loc.Name)
		if err != nil {
			return nil, fmt.Errorf("field '%s': failed to import '%s': %w", f.Name, loc, err)
		}
		return obj, nil
	}

	name := inst.prefix + "." + f.Name
	var data *scenegraph.Payload
	if f.Kind.Payload != scenegraph.PayloadEmpty {
		suffix, ok := payloadSuffixes[f.Kind.Payload]
		if !ok {
			return nil, &UnsupportedTypeError{Class: inst.class.Name, Field: f.Name, Payload: f.Kind.Payload}
		}
		var err error
		data, err = e.store.NewPayload(ctx, f.Kind.Payload, name+"."+suffix)
		if err != nil {
			return nil, fmt.Errorf("field '%s': %w", f.Name, err)
		}
	}

	obj, err := e.store.NewObject(ctx, name, data)
	if err != nil {
		return nil, fmt.Errorf("field '%s': %w", f.Name, err)
	}
	return obj, nil
}
