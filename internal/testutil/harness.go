package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/rehydrator/internal/app"
	"github.com/vk/rehydrator/internal/ctxlog"
	"github.com/vk/rehydrator/internal/registry"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Reset discards everything written so far.
func (b *SafeBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.b.Reset()
}

// WriteFiles writes files, keyed by slash-separated relative path, under a
// fresh temporary directory and returns that directory.
func WriteFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// Context returns a background context whose logger writes debug output to
// the returned buffer.
func Context(t *testing.T) (context.Context, *SafeBuffer) {
	t.Helper()
	logs := &SafeBuffer{}
	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
	dumpOnFailure(t, logs)
	return ctx, logs
}

// Harness holds an app under test together with its captured output.
type Harness struct {
	App  *app.App
	Out  *SafeBuffer
	Logs *SafeBuffer
}

// SetupAppTest creates a new app instance for system testing. Logging is
// forced to debug level. Logs are printed after the test when
// REHYDRATOR_TEST_LOGS=true or when the test fails.
func SetupAppTest(t *testing.T, cfg app.Config, modules ...registry.Module) *Harness {
	t.Helper()

	h := &Harness{Out: &SafeBuffer{}, Logs: &SafeBuffer{}}
	cfg.LogLevel = "debug"
	config, err := app.NewConfig(cfg)
	require.NoError(t, err)

	h.App, err = app.NewApp(context.Background(), h.Out, h.Logs, config, modules...)
	require.NoError(t, err)
	dumpOnFailure(t, h.Logs)
	return h
}

func dumpOnFailure(t *testing.T, logs *SafeBuffer) {
	t.Cleanup(func() {
		if t.Failed() || os.Getenv("REHYDRATOR_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})
}
