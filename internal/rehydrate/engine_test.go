package rehydrate

import (
	"context"
	"errors"
	"maps"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/rehydrator/internal/blob"
	"github.com/vk/rehydrator/internal/classid"
	"github.com/vk/rehydrator/internal/inmemoryscene"
	"github.com/vk/rehydrator/internal/registry"
	"github.com/vk/rehydrator/internal/scenegraph"
	"github.com/vk/rehydrator/internal/schema"
	"github.com/zclconf/go-cty/cty"
)

func newEngine(t *testing.T, opts []inmemoryscene.Option, classes ...*schema.Class) (*Engine, *inmemoryscene.Store) {
	t.Helper()
	reg := registry.New()
	reg.RegisterAll(classes...)
	store := inmemoryscene.New(opts...)
	return New(store, reg), store
}

func objectNames(c *scenegraph.Collection) []string {
	var names []string
	for _, o := range c.Objects() {
		names = append(names, o.Name())
	}
	return names
}

func childNames(c *scenegraph.Collection) []string {
	var names []string
	for _, ch := range c.Children() {
		names = append(names, ch.Name())
	}
	return names
}

// exampleClasses declares B{obj: empty} and A{mesh, curve, counter, b: B},
// where A's initializer sets counter to 0.
func exampleClasses() (a, b *schema.Class) {
	b = &schema.Class{
		Name:   "B",
		Bases:  []*schema.Class{schema.Root},
		Fields: []schema.Field{{Name: "obj", Kind: schema.Leaf(scenegraph.PayloadEmpty)}},
	}
	a = &schema.Class{
		Name:  "A",
		Bases: []*schema.Class{schema.Root},
		Fields: []schema.Field{
			{Name: "mesh", Kind: schema.Leaf(scenegraph.PayloadMesh)},
			{Name: "curve", Kind: schema.Leaf(scenegraph.PayloadCurve)},
			{Name: "counter", Kind: schema.Opaque(cty.Number)},
			{Name: "b", Kind: schema.Nested(b)},
		},
		Init: func(ctx context.Context, inst schema.Assigner) error {
			return inst.Set(ctx, "counter", 0)
		},
	}
	return a, b
}

func TestConstruct_RootLevelContainer(t *testing.T) {
	ctx := context.Background()
	foo := &schema.Class{
		Name:   "Foo",
		Bases:  []*schema.Class{schema.Root},
		Fields: []schema.Field{{Name: "a", Kind: schema.Container()}},
	}
	e, store := newEngine(t, nil, foo)

	inst, err := e.Construct(ctx, foo, nil)
	require.NoError(t, err)

	scene := store.Scene(ctx)
	require.Equal(t, []string{"Foo"}, childNames(scene))
	container := scene.Children()[0]
	assert.Same(t, container, inst.Container())

	assert.Equal(t, []string{"Foo.__data"}, objectNames(container))
	data := container.Objects()[0]
	prefix, _ := data.Prop(PrefixProperty)
	assert.Equal(t, "Foo", prefix)
	assert.Same(t, data, inst.DataNode())

	require.Equal(t, []string{"Foo.a"}, childNames(container))
	field, _ := container.Children()[0].Prop(FieldProperty)
	assert.Equal(t, "a", field)
	got, ok := inst.Collection("a")
	require.True(t, ok)
	assert.Same(t, container.Children()[0], got)

	all, err := e.ReconstructAll(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	name, err := e.Codec().Encode(all[0].Class())
	require.NoError(t, err)
	assert.Equal(t, "Foo", name)
}

func TestConstruct_ExampleLayout(t *testing.T) {
	ctx := context.Background()
	a, b := exampleClasses()
	e, store := newEngine(t, nil, b, a)

	inst, err := e.Construct(ctx, a, nil)
	require.NoError(t, err)

	container := inst.Container()
	assert.Equal(t, []string{"A.__data", "A.mesh", "A.curve"}, objectNames(container))
	assert.Equal(t, []string{"A.b"}, childNames(container))

	mesh, ok := inst.Object("mesh")
	require.True(t, ok)
	require.NotNil(t, mesh.Data())
	assert.Equal(t, scenegraph.PayloadMesh, mesh.Data().Kind)
	assert.Equal(t, "A.mesh.mesh", mesh.Data().Name)

	curve, ok := inst.Object("curve")
	require.True(t, ok)
	assert.Equal(t, "A.curve.curve", curve.Data().Name)
	assert.Len(t, store.Payloads(ctx), 2)

	var counter int
	require.NoError(t, inst.Get("counter", &counter))
	assert.Equal(t, 0, counter)
	stored, err := blob.Read(inst.DataNode())
	require.NoError(t, err)
	assert.Equal(t, []string{"counter"}, mapKeys(stored))

	nested, ok := inst.Nested("b")
	require.True(t, ok)
	assert.Equal(t, b, nested.Class())
	assert.Equal(t, "A.b", nested.Container().Name())
	assert.Equal(t, []string{"B.__data", "B.obj"}, objectNames(nested.Container()))
	obj, ok := nested.Object("obj")
	require.True(t, ok)
	assert.Nil(t, obj.Data())
}

func TestConstruct_OpaqueFieldsStartNull(t *testing.T) {
	ctx := context.Background()
	five := cty.NumberIntVal(5)
	foo := &schema.Class{
		Name:  "Foo",
		Bases: []*schema.Class{schema.Root},
		Fields: []schema.Field{
			{Name: "label", Kind: schema.Opaque(cty.String)},
			{Name: "size", Kind: schema.Opaque(cty.Number), Default: &five},
		},
	}
	e, _ := newEngine(t, nil, foo)

	inst, err := e.Construct(ctx, foo, nil)
	require.NoError(t, err)

	label, ok := inst.Value("label")
	require.True(t, ok)
	assert.True(t, label.IsNull())
	assert.Equal(t, cty.String, label.Type())

	stored, err := blob.Read(inst.DataNode())
	require.NoError(t, err)
	assert.Equal(t, []string{"size"}, mapKeys(stored), "only the defaulted field reaches the blob")
	assert.True(t, stored["size"].RawEquals(five))
}

func TestConstruct_AppendImport(t *testing.T) {
	ctx := context.Background()

	lib := inmemoryscene.New()
	meshData, err := lib.NewPayload(ctx, scenegraph.PayloadMesh, "CubeMesh")
	require.NoError(t, err)
	_, err = lib.NewObject(ctx, "Cube", meshData)
	require.NoError(t, err)
	rig, err := lib.NewCollection(ctx, "Rig")
	require.NoError(t, err)
	bone, err := lib.NewObject(ctx, "Bone", nil)
	require.NoError(t, err)
	require.NoError(t, lib.LinkObject(ctx, rig, bone))

	var opened []string
	library := scenegraph.LibraryFunc(func(ctx context.Context, path string) (scenegraph.Store, error) {
		opened = append(opened, path)
		return lib, nil
	})

	foo := &schema.Class{
		Name:  "Foo",
		Bases: []*schema.Class{schema.Root},
		Fields: []schema.Field{
			{Name: "a", Kind: schema.Leaf(scenegraph.PayloadMesh)},
			{Name: "rig", Kind: schema.Container()},
		},
		Appends: map[string]string{
			"a":   "/home/user/untitled.rhd@Cube",
			"rig": "/home/user/untitled.rhd@Rig",
		},
	}
	e, store := newEngine(t, []inmemoryscene.Option{inmemoryscene.WithLibrary(library)}, foo)

	inst, err := e.Construct(ctx, foo, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"/home/user/untitled.rhd", "/home/user/untitled.rhd"}, opened)

	obj, ok := inst.Object("a")
	require.True(t, ok)
	assert.Equal(t, "Cube", obj.Name())
	tag, _ := obj.Prop(FieldProperty)
	assert.Equal(t, "a", tag)
	_, created := store.Object(ctx, "Foo.a")
	assert.False(t, created, "no node is allocated for an appended field")
	require.Len(t, store.Payloads(ctx), 1)
	assert.Equal(t, "CubeMesh", store.Payloads(ctx)[0].Name)

	col, ok := inst.Collection("rig")
	require.True(t, ok)
	assert.Equal(t, "Rig", col.Name())
	assert.Equal(t, []string{"Bone"}, objectNames(col))
	assert.Contains(t, inst.Container().Children(), col)
}

func TestConstruct_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("unsupported payload leaves earlier fields in place", func(t *testing.T) {
		foo := &schema.Class{
			Name:  "Foo",
			Bases: []*schema.Class{schema.Root},
			Fields: []schema.Field{
				{Name: "a", Kind: schema.Container()},
				{Name: "lamp", Kind: schema.Leaf(scenegraph.PayloadLight)},
			},
		}
		e, store := newEngine(t, nil, foo)

		_, err := e.Construct(ctx, foo, nil)
		var unsupported *UnsupportedTypeError
		require.ErrorAs(t, err, &unsupported)
		assert.Equal(t, "lamp", unsupported.Field)
		assert.Equal(t, scenegraph.PayloadLight, unsupported.Payload)

		_, ok := store.Collection(ctx, "Foo.a")
		assert.True(t, ok)
		_, ok = store.Object(ctx, "Foo.lamp")
		assert.False(t, ok)
	})

	t.Run("class without persistable base", func(t *testing.T) {
		e, _ := newEngine(t, nil)
		_, err := e.Construct(ctx, &schema.Class{Name: "Loose"}, nil)
		var schemaErr *classid.SchemaError
		assert.ErrorAs(t, err, &schemaErr)
	})

	t.Run("malformed locator", func(t *testing.T) {
		foo := &schema.Class{
			Name:    "Foo",
			Bases:   []*schema.Class{schema.Root},
			Fields:  []schema.Field{{Name: "a", Kind: schema.Leaf(scenegraph.PayloadEmpty)}},
			Appends: map[string]string{"a": "no-separator"},
		}
		e, _ := newEngine(t, nil, foo)
		_, err := e.Construct(ctx, foo, nil)
		var locErr *schema.LocatorError
		assert.ErrorAs(t, err, &locErr)
	})

	t.Run("import without library", func(t *testing.T) {
		foo := &schema.Class{
			Name:    "Foo",
			Bases:   []*schema.Class{schema.Root},
			Fields:  []schema.Field{{Name: "a", Kind: schema.Leaf(scenegraph.PayloadEmpty)}},
			Appends: map[string]string{"a": "/lib.rhd@Thing"},
		}
		e, _ := newEngine(t, nil, foo)
		_, err := e.Construct(ctx, foo, nil)
		assert.ErrorIs(t, err, scenegraph.ErrNoLibrary)
	})

	t.Run("failing init", func(t *testing.T) {
		boom := errors.New("boom")
		foo := &schema.Class{
			Name:  "Foo",
			Bases: []*schema.Class{schema.Root},
			Init:  func(ctx context.Context, a schema.Assigner) error { return boom },
		}
		e, _ := newEngine(t, nil, foo)
		_, err := e.Construct(ctx, foo, nil)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("container already persisted", func(t *testing.T) {
		a, b := exampleClasses()
		e, store := newEngine(t, nil, b, a)
		first, err := e.Construct(ctx, a, nil)
		require.NoError(t, err)
		before := objectNames(first.Container())

		for _, class := range []*schema.Class{a, b} {
			_, err = e.Construct(ctx, class, first.Container())
			var persisted *AlreadyPersistedError
			require.ErrorAs(t, err, &persisted)
			assert.Equal(t, "A", persisted.Prefix)
		}
		assert.Equal(t, before, objectNames(first.Container()))
		assert.Len(t, store.Scene(ctx).Children(), 1)

		got, err := e.Reconstruct(ctx, first.Container())
		require.NoError(t, err)
		assert.Same(t, a, got.Class())
	})

	t.Run("nested field cycle", func(t *testing.T) {
		x := &schema.Class{Name: "X", Bases: []*schema.Class{schema.Root}}
		y := &schema.Class{Name: "Y", Bases: []*schema.Class{schema.Root}, Fields: []schema.Field{
			{Name: "x", Kind: schema.Nested(x)},
		}}
		x.Fields = []schema.Field{{Name: "y", Kind: schema.Nested(y)}}
		e, store := newEngine(t, nil, x, y)

		_, err := e.Construct(ctx, x, nil)
		var cycle *schema.CycleError
		require.ErrorAs(t, err, &cycle)
		assert.Empty(t, store.Scene(ctx).Children(), "nothing is created")
	})
}

func TestConstruct_InitRunsAlongChain(t *testing.T) {
	ctx := context.Background()
	var calls []string
	base := &schema.Class{
		Name:   "Base",
		Bases:  []*schema.Class{schema.Root},
		Fields: []schema.Field{{Name: "n", Kind: schema.Opaque(cty.Number)}},
		Init: func(ctx context.Context, a schema.Assigner) error {
			calls = append(calls, "Base")
			return a.Set(ctx, "n", 1)
		},
	}
	derived := &schema.Class{
		Name:  "Derived",
		Bases: []*schema.Class{base},
		Init: func(ctx context.Context, a schema.Assigner) error {
			calls = append(calls, "Derived")
			return a.Set(ctx, "n", 2)
		},
	}
	e, _ := newEngine(t, nil, base, derived)

	inst, err := e.Construct(ctx, derived, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Base", "Derived"}, calls)
	assert.Equal(t, "Base.Derived", inst.Prefix())

	var n int
	require.NoError(t, inst.Get("n", &n))
	assert.Equal(t, 2, n)
}

func TestConstruct_IntoExistingContainer(t *testing.T) {
	ctx := context.Background()
	foo := &schema.Class{Name: "Foo", Bases: []*schema.Class{schema.Root}}
	e, store := newEngine(t, nil, foo)

	group, err := store.NewCollection(ctx, "Group")
	require.NoError(t, err)
	inst, err := e.Construct(ctx, foo, group)
	require.NoError(t, err)
	assert.Same(t, group, inst.Container())
	assert.Empty(t, store.Scene(ctx).Children(), "no root-level container is created")
	p, ok := Prefix(group)
	require.True(t, ok)
	assert.Equal(t, "Foo", p)
}

func mapKeys(m map[string]cty.Value) []string {
	return slices.Sorted(maps.Keys(m))
}
