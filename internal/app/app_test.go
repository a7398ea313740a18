package app_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/rehydrator/internal/app"
	"github.com/vk/rehydrator/internal/classid"
	"github.com/vk/rehydrator/internal/rehydrate"
	"github.com/vk/rehydrator/internal/testutil"
	"github.com/zclconf/go-cty/cty"
)

const classesHCL = `
class "Foo" {
  field "a" { type = collection }
  field "shape" { type = mesh_object }
  field "counter" {
    type    = number
    default = 0
  }
}

class "Bar" {
  extends = ["Foo"]
  field "inner" { type = class.Baz }
}

class "Baz" {
  field "label" { type = string }
}
`

func setup(t *testing.T) (app.Config, string) {
	t.Helper()
	dir := testutil.WriteFiles(t, map[string]string{"classes/main.hcl": classesHCL})
	cfg := app.DefaultConfig()
	cfg.DocumentPath = filepath.Join(dir, "scene.rhd")
	cfg.ClassesPaths = []string{filepath.Join(dir, "classes")}
	return cfg, dir
}

func TestApp_Classes(t *testing.T) {
	cfg, _ := setup(t)
	h := testutil.SetupAppTest(t, cfg)

	require.NoError(t, h.App.Classes())
	out := h.Out.String()
	for _, chain := range []string{"Prop\n", "Prop.Crate\n", "CameraRig.Dolly\n", "Foo\n", "Foo.Bar\n", "Baz\n"} {
		assert.Contains(t, out, chain)
	}
	assert.Contains(t, out, "  counter: number = 0\n")
	assert.Contains(t, out, "  inner: class.Baz\n")
	assert.Contains(t, out, "  shape: mesh_object\n")
}

func TestApp_NewSetScene(t *testing.T) {
	ctx := context.Background()
	cfg, _ := setup(t)

	h := testutil.SetupAppTest(t, cfg)
	inst, err := h.App.New(ctx, "Foo.Bar", "")
	require.NoError(t, err)
	assert.Equal(t, "Foo.Bar", inst.Container().Name())
	assert.Contains(t, h.Out.String(), "Created Foo.Bar in 'Foo.Bar'.")

	// A second app sees what the first one saved.
	h = testutil.SetupAppTest(t, cfg)
	require.NoError(t, h.App.Set(ctx, "Foo.Bar", "counter", "5"))
	require.NoError(t, h.App.Set(ctx, "Foo.Bar", "note", `{ tags = ["a", "b"] }`))

	h = testutil.SetupAppTest(t, cfg)
	require.NoError(t, h.App.Scene(ctx))
	out := h.Out.String()
	assert.Contains(t, out, "Foo.Bar (Foo.Bar)\n")
	assert.Contains(t, out, "  a -> collection Foo.Bar.a\n")
	assert.Contains(t, out, "  shape -> object Foo.Bar.shape\n")
	assert.Contains(t, out, "  counter = 5\n")
	assert.Contains(t, out, "  inner:\n    Foo.Bar.inner (Baz)\n      label = null\n")
	assert.Contains(t, out, `  +note = {"tags":["a","b"]}`)
}

func TestApp_NewInto(t *testing.T) {
	ctx := context.Background()
	cfg, _ := setup(t)
	h := testutil.SetupAppTest(t, cfg)

	crate, err := h.App.New(ctx, "Prop.Crate", "")
	require.NoError(t, err)
	contents, ok := crate.Collection("contents")
	require.True(t, ok)

	rig, err := h.App.New(ctx, "CameraRig", contents.Name())
	require.NoError(t, err)
	assert.Same(t, contents, rig.Container())

	h = testutil.SetupAppTest(t, cfg)
	require.NoError(t, h.App.Scene(ctx))
	assert.Contains(t, h.Out.String(), "Prop.Crate (Prop.Crate)\n")
	assert.Contains(t, h.Out.String(), "Prop.Crate.contents (CameraRig)\n")
}

func TestApp_Errors(t *testing.T) {
	ctx := context.Background()
	cfg, _ := setup(t)
	h := testutil.SetupAppTest(t, cfg)
	_, err := h.App.New(ctx, "Foo", "")
	require.NoError(t, err)

	t.Run("unknown class", func(t *testing.T) {
		_, err := h.App.New(ctx, "Foo.Nope", "")
		var nf *classid.NotFoundError
		assert.ErrorAs(t, err, &nf)
	})
	t.Run("unknown target collection", func(t *testing.T) {
		_, err := h.App.New(ctx, "Foo", "Nowhere")
		assert.ErrorContains(t, err, "no collection named 'Nowhere'")
	})
	t.Run("into a persisted container", func(t *testing.T) {
		_, err := h.App.New(ctx, "Baz", "Foo")
		var persisted *rehydrate.AlreadyPersistedError
		require.ErrorAs(t, err, &persisted)
		assert.Equal(t, "Foo", persisted.Prefix)
	})
	t.Run("set on plain collection", func(t *testing.T) {
		err := h.App.Set(ctx, "Foo.a", "counter", "1")
		var np *rehydrate.NotAPersistedNodeError
		assert.ErrorAs(t, err, &np)
	})
	t.Run("bad expression", func(t *testing.T) {
		assert.ErrorContains(t, h.App.Set(ctx, "Foo", "counter", "1 +"), "failed to parse value")
		assert.ErrorContains(t, h.App.Set(ctx, "Foo", "counter", "var.x"), "failed to evaluate value")
	})
	t.Run("wrong type", func(t *testing.T) {
		var fte *rehydrate.FieldTypeError
		assert.ErrorAs(t, h.App.Set(ctx, "Foo", "counter", `"many"`), &fte)
		assert.ErrorAs(t, h.App.Set(ctx, "Foo", "shape", "1"), &fte)
	})
	t.Run("reserved name", func(t *testing.T) {
		assert.ErrorIs(t, h.App.Set(ctx, "Foo", "__data", "1"), rehydrate.ErrReservedName)
	})
}

func TestNewApp_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("broken manifest", func(t *testing.T) {
		dir := testutil.WriteFiles(t, map[string]string{"classes/bad.hcl": `
class "X" {
  field "a" { type = bogus_object }
}
`})
		cfg := app.DefaultConfig()
		cfg.DocumentPath = filepath.Join(dir, "scene.rhd")
		cfg.ClassesPaths = []string{filepath.Join(dir, "classes")}
		config, err := app.NewConfig(cfg)
		require.NoError(t, err)
		_, err = app.NewApp(ctx, &testutil.SafeBuffer{}, &testutil.SafeBuffer{}, config)
		assert.ErrorContains(t, err, "failed to load classes")
	})

	t.Run("document is not a document", func(t *testing.T) {
		dir := testutil.WriteFiles(t, map[string]string{"scene.rhd": "plain text"})
		cfg := app.DefaultConfig()
		cfg.DocumentPath = filepath.Join(dir, "scene.rhd")
		config, err := app.NewConfig(cfg)
		require.NoError(t, err)
		_, err = app.NewApp(ctx, &testutil.SafeBuffer{}, &testutil.SafeBuffer{}, config)
		assert.ErrorContains(t, err, "failed to open document")
	})
}

func TestParseValue(t *testing.T) {
	testCases := []struct {
		src  string
		want cty.Value
	}{
		{`42`, cty.NumberIntVal(42)},
		{`"text"`, cty.StringVal("text")},
		{`true`, cty.True},
		{`null`, cty.NullVal(cty.DynamicPseudoType)},
		{`["a", "b"]`, cty.TupleVal([]cty.Value{cty.StringVal("a"), cty.StringVal("b")})},
		{`{ x = "y" }`, cty.ObjectVal(map[string]cty.Value{"x": cty.StringVal("y")})},
	}
	for _, tc := range testCases {
		t.Run(tc.src, func(t *testing.T) {
			got, err := app.ParseValue(tc.src)
			require.NoError(t, err)
			assert.True(t, tc.want.RawEquals(got), "want %#v, got %#v", tc.want, got)
		})
	}
}
