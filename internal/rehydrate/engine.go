package rehydrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/rehydrator/internal/blob"
	"github.com/vk/rehydrator/internal/classid"
	"github.com/vk/rehydrator/internal/ctxlog"
	"github.com/vk/rehydrator/internal/registry"
	"github.com/vk/rehydrator/internal/scenegraph"
	"github.com/vk/rehydrator/internal/schema"
	"github.com/zclconf/go-cty/cty"
)

const (
	// PrefixProperty holds the identity chain on a data node.
	PrefixProperty = "__prefix"
	// FieldProperty tags a field node with the field it represents.
	FieldProperty = "__field"
	// DataSuffix ends the name of every data node.
	DataSuffix = ".__data"
)

// Option configures an Engine.
type Option func(*Engine)

// WithCodec replaces the engine's identity codec.
func WithCodec(c *classid.Codec) Option {
	return func(e *Engine) { e.codec = c }
}

// WithResolver replaces the engine's schema resolver.
func WithResolver(r *schema.Resolver) Option {
	return func(e *Engine) { e.resolver = r }
}

// Engine constructs and reconstructs instances against one document.
type Engine struct {
	store    scenegraph.Store
	registry *registry.Registry
	codec    *classid.Codec
	resolver *schema.Resolver
}

// New creates an engine over store, decoding classes from reg.
func New(store scenegraph.Store, reg *registry.Registry, opts ...Option) *Engine {
	e := &Engine{store: store, registry: reg}
	for _, opt := range opts {
		opt(e)
	}
	if e.codec == nil {
		e.codec = classid.NewCodec(reg, classid.DefaultCacheSize)
	}
	if e.resolver == nil {
		e.resolver = schema.NewResolver(schema.DefaultCacheSize)
	}
	return e
}

// Store returns the document the engine works on.
func (e *Engine) Store() scenegraph.Store { return e.store }

// Registry returns the registry classes are decoded from.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Codec returns the engine's identity codec.
func (e *Engine) Codec() *classid.Codec { return e.codec }

// Schema resolves the flattened field table of class.
func (e *Engine) Schema(class *schema.Class) *schema.Schema { return e.resolver.Resolve(class) }

// Construct creates a fresh instance of class bound to container. A nil
// container gets a new collection named after the class and linked under the
// scene root.
//
// A container that already holds a persisted instance is refused, and so is
// a class whose nested fields lead back to itself. A failure partway through
// leaves every node created so far in the document.
func (e *Engine) Construct(ctx context.Context, class *schema.Class, container *scenegraph.Collection) (*Instance, error) {
	if container != nil {
		if prefix, ok := Prefix(container); ok {
			return nil, &AlreadyPersistedError{Container: container.Name(), Prefix: prefix}
		}
	}
	if cycle := schema.NestedCycle(class, e.resolver); cycle != nil {
		return nil, fmt.Errorf("cannot construct '%s': %w", class.Name, cycle)
	}
	return e.construct(ctx, class, container)
}

func (e *Engine) construct(ctx context.Context, class *schema.Class, container *scenegraph.Collection) (*Instance, error) {
	prefix, err := e.codec.Encode(class)
	if err != nil {
		return nil, err
	}
	logger := ctxlog.FromContext(ctx).With("class", prefix)

	if container == nil {
		container, err = e.store.NewCollection(ctx, prefix)
		if err != nil {
			return nil, fmt.Errorf("failed to create container for '%s': %w", prefix, err)
		}
		if err := e.store.LinkCollection(ctx, e.store.Scene(ctx), container); err != nil {
			return nil, fmt.Errorf("failed to link container '%s': %w", container.Name(), err)
		}
	}
	logger.Debug("Constructing instance.", "container", container.Name())

	inst := e.newInstance(class, prefix, container)

	data, err := e.store.NewObject(ctx, prefix+DataSuffix, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create data node for '%s': %w", prefix, err)
	}
	if err := e.store.LinkObject(ctx, container, data); err != nil {
		return nil, fmt.Errorf("failed to link data node '%s': %w", data.Name(), err)
	}
	data.SetProp(PrefixProperty, prefix)
	if err := blob.Init(data); err != nil {
		return nil, err
	}
	inst.data = data

	for _, f := range inst.schema.Fields() {
		if err := e.materialize(ctx, inst, f); err != nil {
			return nil, err
		}
	}

	for _, f := range inst.schema.Fields() {
		if f.Default == nil || f.Kind.IsGraph() {
			continue
		}
		if err := inst.Set(ctx, f.Name, *f.Default); err != nil {
			return nil, fmt.Errorf("failed to apply default for '%s': %w", f.Name, err)
		}
	}
	if err := runInit(ctx, class, inst); err != nil {
		return nil, err
	}

	logger.Debug("Constructed instance.", "container", container.Name(), "fields", inst.schema.Len())
	return inst, nil
}

// runInit runs every Init hook along the persistence chain, root-most first.
func runInit(ctx context.Context, class *schema.Class, inst *Instance) error {
	for _, c := range class.Lineage() {
		if c.Init == nil {
			continue
		}
		if err := c.Init(ctx, inst); err != nil {
			return fmt.Errorf("init of '%s' failed: %w", c.Name, err)
		}
	}
	return nil
}

func (e *Engine) newInstance(class *schema.Class, prefix string, container *scenegraph.Collection) *Instance {
	s := e.resolver.Resolve(class)
	inst := &Instance{
		engine:      e,
		class:       class,
		schema:      s,
		prefix:      prefix,
		container:   container,
		collections: make(map[string]*scenegraph.Collection),
		objects:     make(map[string]*scenegraph.Object),
		nested:      make(map[string]*Instance),
		values:      make(map[string]cty.Value),
		extra:       make(map[string]cty.Value),
	}
	for _, f := range s.Fields() {
		if !f.Kind.IsGraph() {
			inst.values[f.Name] = cty.NullVal(f.Kind.ValueType())
		}
	}
	return inst
}

// DataNode returns the data node of container and its identity marker. ok is
// false when container has no marked data node.
func DataNode(container *scenegraph.Collection) (node *scenegraph.Object, prefix string, ok bool) {
	for _, obj := range container.Objects() {
		if !strings.Contains(obj.Name(), DataSuffix) {
			continue
		}
		if p, has := obj.Prop(PrefixProperty); has && p != "" {
			return obj, p, true
		}
	}
	return nil, "", false
}

// Prefix returns the identity marker of container, if it has one.
func Prefix(container *scenegraph.Collection) (string, bool) {
	_, p, ok := DataNode(container)
	return p, ok
}
