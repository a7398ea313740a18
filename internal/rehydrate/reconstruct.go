package rehydrate

import (
	"context"
	"fmt"

	"github.com/vk/rehydrator/internal/blob"
	"github.com/vk/rehydrator/internal/ctxlog"
	"github.com/vk/rehydrator/internal/scenegraph"
)

// Reconstruct rebuilds the instance bound to container without allocating
// anything. Every call returns a new Instance.
//
// Tagged nodes are bound to their fields as found, and every stored
// attribute is restored verbatim: values for opaque schema fields are
// trusted as stored, other keys go to Extra.
func (e *Engine) Reconstruct(ctx context.Context, container *scenegraph.Collection) (*Instance, error) {
	data, prefix, ok := DataNode(container)
	if !ok {
		return nil, &NotAPersistedNodeError{Container: container.Name()}
	}
	class, err := e.codec.Decode(prefix)
	if err != nil {
		return nil, err
	}

	logger := ctxlog.FromContext(ctx).With("class", prefix)
	logger.Debug("Reconstructing instance.", "container", container.Name())

	inst := e.newInstance(class, prefix, container)

	for _, obj := range container.Objects() {
		field, ok := obj.Prop(FieldProperty)
		if !ok {
			continue
		}
		if kind, known := inst.schema.Kind(field); !known || !kind.IsGraph() {
			logger.Warn("Object is tagged with a field the class does not declare as a graph field.", "object", obj.Name(), "field", field)
		}
		inst.objects[field] = obj
	}

	for _, child := range container.Children() {
		field, ok := child.Prop(FieldProperty)
		if !ok {
			continue
		}
		if _, marked := Prefix(child); !marked {
			inst.collections[field] = child
			continue
		}
		nested, err := e.Reconstruct(ctx, child)
		if err != nil {
			return nil, fmt.Errorf("field '%s': %w", field, err)
		}
		inst.nested[field] = nested
	}

	inst.data = data
	stored, err := blob.Read(data)
	if err != nil {
		return nil, fmt.Errorf("failed to restore attributes of '%s': %w", container.Name(), err)
	}
	for k, v := range stored {
		if kind, known := inst.schema.Kind(k); known && !kind.IsGraph() {
			inst.values[k] = v
		} else {
			inst.extra[k] = v
		}
	}
	return inst, nil
}

// ReconstructAll walks root and its descendants depth-first in link order and
// reconstructs every marked collection it meets. Marked collections are not
// descended into; their own nested instances come back through their fields.
// A nil root means the scene root.
//
// The walk stops at the first failure.
func (e *Engine) ReconstructAll(ctx context.Context, root *scenegraph.Collection) ([]*Instance, error) {
	if root == nil {
		root = e.store.Scene(ctx)
	}

	var out []*Instance
	var walk func(c *scenegraph.Collection) error
	walk = func(c *scenegraph.Collection) error {
		if _, marked := Prefix(c); marked {
			inst, err := e.Reconstruct(ctx, c)
			if err != nil {
				return err
			}
			out = append(out, inst)
			return nil
		}
		for _, child := range c.Children() {
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Debug("Reconstructed scene.", "root", root.Name(), "instances", len(out))
	return out, nil
}
