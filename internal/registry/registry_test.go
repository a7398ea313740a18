package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/rehydrator/internal/scenegraph"
	"github.com/vk/rehydrator/internal/schema"
	"github.com/zclconf/go-cty/cty"
	"go.uber.org/multierr"
)

func TestRegister(t *testing.T) {
	r := New()
	foo := &schema.Class{Name: "Foo", Bases: []*schema.Class{schema.Root}}
	bar := &schema.Class{Name: "Bar", Bases: []*schema.Class{foo}}
	baz := &schema.Class{Name: "Baz", Bases: []*schema.Class{bar, foo}}

	assert.Equal(t, uint64(0), r.Generation())
	r.RegisterAll(foo, bar, baz)
	assert.Equal(t, uint64(3), r.Generation())

	assert.Equal(t, []*schema.Class{foo, bar, baz}, r.Classes())
	assert.Equal(t, []*schema.Class{foo}, r.Subclasses(schema.Root))
	assert.Equal(t, []*schema.Class{bar, baz}, r.Subclasses(foo))
	assert.Equal(t, []*schema.Class{baz}, r.Subclasses(bar))
	assert.Equal(t, []*schema.Class{bar}, r.ByName("Bar"))
	assert.True(t, r.Contains(baz))
	assert.False(t, r.Contains(&schema.Class{Name: "Baz"}))
}

func TestRegister_Panics(t *testing.T) {
	r := New()
	foo := &schema.Class{Name: "Foo", Bases: []*schema.Class{schema.Root}}
	r.Register(foo)

	assert.Panics(t, func() { r.Register(foo) })
	assert.Panics(t, func() { r.Register(schema.Root) })
	assert.Panics(t, func() { r.Register(nil) })
	assert.Panics(t, func() { r.Register(&schema.Class{}) })
}

func TestValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid registry", func(t *testing.T) {
		r := New()
		b := &schema.Class{Name: "B", Bases: []*schema.Class{schema.Root}, Fields: []schema.Field{
			{Name: "obj", Kind: schema.Leaf(scenegraph.PayloadEmpty)},
		}}
		zero := cty.NumberIntVal(0)
		a := &schema.Class{
			Name:  "A",
			Bases: []*schema.Class{schema.Root},
			Fields: []schema.Field{
				{Name: "mesh", Kind: schema.Leaf(scenegraph.PayloadMesh)},
				{Name: "counter", Kind: schema.Opaque(cty.Number), Default: &zero},
				{Name: "b", Kind: schema.Nested(b)},
			},
			Appends: map[string]string{"mesh": "/lib/a.rhd@Cube"},
		}
		r.RegisterAll(b, a)
		assert.NoError(t, r.Validate(ctx))
	})

	t.Run("collects every problem", func(t *testing.T) {
		r := New()
		unregistered := &schema.Class{Name: "Ghost", Bases: []*schema.Class{schema.Root}}
		bad := &schema.Class{
			Name:  "Bad",
			Bases: []*schema.Class{unregistered},
			Fields: []schema.Field{
				{Name: "__data", Kind: schema.Container()},
				{Name: "dup", Kind: schema.Container()},
				{Name: "dup", Kind: schema.Container()},
				{Name: "ghost", Kind: schema.Nested(unregistered)},
				{Name: "label", Kind: schema.Opaque(cty.Number), Default: ptr(cty.StringVal("not a number"))},
			},
			Appends: map[string]string{
				"dup":     "no-separator",
				"label":   "/lib/x.rhd@X",
				"missing": "/lib/x.rhd@X",
			},
		}
		r.Register(bad)

		err := r.Validate(ctx)
		require.Error(t, err)
		errs := multierr.Errors(err)
		assert.Len(t, errs, 8)
		msg := err.Error()
		assert.Contains(t, msg, "base 'Ghost' is not registered")
		assert.Contains(t, msg, "'__data' is reserved")
		assert.Contains(t, msg, "field 'dup' declared twice")
		assert.Contains(t, msg, "unregistered class 'Ghost'")
		assert.Contains(t, msg, "default for field 'label'")
		assert.Contains(t, msg, "malformed resource locator")
		assert.Contains(t, msg, "unknown field 'missing'")
		assert.Contains(t, msg, "append override for opaque field 'label'")
	})

	t.Run("opaque append is rejected", func(t *testing.T) {
		r := New()
		r.Register(&schema.Class{
			Name:    "Foo",
			Bases:   []*schema.Class{schema.Root},
			Fields:  []schema.Field{{Name: "n", Kind: schema.Opaque(cty.Number)}},
			Appends: map[string]string{"n": "/lib/x.rhd@X"},
		})
		assert.ErrorContains(t, r.Validate(ctx), "append override for opaque field 'n'")
	})

	t.Run("field name not in normal form", func(t *testing.T) {
		r := New()
		r.Register(&schema.Class{
			Name:   "Foo",
			Bases:  []*schema.Class{schema.Root},
			Fields: []schema.Field{{Name: "cafe\u0301", Kind: schema.Opaque(cty.String)}},
		})
		assert.ErrorContains(t, r.Validate(ctx), "not in Unicode normal form C")
	})
}

func TestValidate_Cycles(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name    string
		classes func() []*schema.Class
		wantErr []string
	}{
		{
			name: "bases",
			classes: func() []*schema.Class {
				a := &schema.Class{Name: "A"}
				b := &schema.Class{Name: "B", Bases: []*schema.Class{a}}
				a.Bases = []*schema.Class{b}
				return []*schema.Class{a, b}
			},
			wantErr: []string{"base cycle: A -> B -> A"},
		},
		{
			name: "bases reaching root",
			classes: func() []*schema.Class {
				x := &schema.Class{Name: "X"}
				y := &schema.Class{Name: "Y", Bases: []*schema.Class{x, schema.Root}}
				x.Bases = []*schema.Class{y, schema.Root}
				return []*schema.Class{x, y}
			},
			wantErr: []string{"base cycle: X -> Y -> X"},
		},
		{
			name: "nested fields",
			classes: func() []*schema.Class {
				x := &schema.Class{Name: "X", Bases: []*schema.Class{schema.Root}}
				y := &schema.Class{Name: "Y", Bases: []*schema.Class{schema.Root}, Fields: []schema.Field{
					{Name: "x", Kind: schema.Nested(x)},
				}}
				x.Fields = []schema.Field{{Name: "y", Kind: schema.Nested(y)}}
				return []*schema.Class{x, y}
			},
			wantErr: []string{"nested field cycle: X -> Y -> X"},
		},
		{
			name: "both kinds at once",
			classes: func() []*schema.Class {
				a := &schema.Class{Name: "A"}
				a.Bases = []*schema.Class{a}
				node := &schema.Class{Name: "Node", Bases: []*schema.Class{schema.Root}}
				node.Fields = []schema.Field{{Name: "next", Kind: schema.Nested(node)}}
				return []*schema.Class{a, node}
			},
			wantErr: []string{"base cycle: A -> A", "nested field cycle: Node -> Node"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := New()
			r.RegisterAll(tc.classes()...)

			var err error
			require.NotPanics(t, func() { err = r.Validate(ctx) })
			require.Error(t, err)
			assert.Len(t, multierr.Errors(err), len(tc.wantErr))
			for _, want := range tc.wantErr {
				assert.ErrorContains(t, err, want)
			}
			var cycle *schema.CycleError
			assert.ErrorAs(t, err, &cycle)
		})
	}
}

func ptr[T any](v T) *T { return &v }
