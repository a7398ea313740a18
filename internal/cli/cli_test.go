package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/rehydrator/internal/testutil"
)

const manifest = `
class "Lamp" {
  field "bulb" { type = empty_object }
  field "watts" {
    type    = number
    default = 40
  }
}
`

func TestExecute_Workflow(t *testing.T) {
	ctx := context.Background()
	dir := testutil.WriteFiles(t, map[string]string{
		"classes/lamp.hcl": manifest,
		"rehydrator.yaml":  "document: scene.rhd\nclasses: [classes]\n",
	})
	doc := filepath.Join(dir, "scene.rhd")
	base := []string{"--document", doc, "--classes", filepath.Join(dir, "classes")}

	out, logs := &testutil.SafeBuffer{}, &testutil.SafeBuffer{}
	require.NoError(t, Execute(ctx, append([]string{"new", "Lamp"}, base...), out, logs))
	assert.Contains(t, out.String(), "Created Lamp in 'Lamp'.")

	require.NoError(t, Execute(ctx, append([]string{"set", "Lamp", "watts", "60"}, base...), out, logs))

	out.Reset()
	require.NoError(t, Execute(ctx, append([]string{"scene"}, base...), out, logs))
	assert.Contains(t, out.String(), "Lamp (Lamp)\n")
	assert.Contains(t, out.String(), "  bulb -> object Lamp.bulb\n")
	assert.Contains(t, out.String(), "  watts = 60\n")

	t.Run("config file supplies the paths", func(t *testing.T) {
		out.Reset()
		args := []string{"classes", "--config", filepath.Join(dir, "rehydrator.yaml")}
		// Relative paths in the file are resolved from the working directory.
		t.Chdir(dir)
		require.NoError(t, Execute(ctx, args, out, logs))
		assert.Contains(t, out.String(), "Lamp\n  bulb: empty_object\n  watts: number = 40\n")
	})
}

func TestExecute_Errors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	doc := filepath.Join(dir, "scene.rhd")

	testCases := []struct {
		name     string
		args     []string
		wantCode int
		wantMsg  string
	}{
		{"unknown flag", []string{"scene", "--nope"}, 2, "unknown flag: --nope"},
		{"missing argument", []string{"new", "-d", doc}, 2, "accepts 1 arg(s), received 0"},
		{"missing document", []string{"scene", "--config", filepath.Join(dir, "none.yaml")}, 2, "failed to read config file"},
		{"invalid level", []string{"scene", "-d", doc, "--log-level", "loud"}, 2, "LogLevel"},
		{"unknown class", []string{"new", "Nope", "-d", doc}, 0, "Nope"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Execute(ctx, tc.args, &testutil.SafeBuffer{}, &testutil.SafeBuffer{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantMsg)

			exitErr, ok := err.(*ExitError)
			if tc.wantCode == 0 {
				assert.False(t, ok, "runtime failures are not usage errors")
				return
			}
			require.True(t, ok, "want *ExitError, got %T", err)
			assert.Equal(t, tc.wantCode, exitErr.Code)
		})
	}
}

func TestExecute_Help(t *testing.T) {
	out := &testutil.SafeBuffer{}
	require.NoError(t, Execute(context.Background(), []string{"--help"}, out, &testutil.SafeBuffer{}))
	assert.Contains(t, out.String(), "Usage:")
	assert.Contains(t, out.String(), "new")
	assert.Contains(t, out.String(), "--document")
}
