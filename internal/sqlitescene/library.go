package sqlitescene

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vk/rehydrator/internal/ctxlog"
	"github.com/vk/rehydrator/internal/inmemoryscene"
	"github.com/vk/rehydrator/internal/scenegraph"
)

// DefaultLibraryCacheSize is the number of opened documents a Library keeps.
const DefaultLibraryCacheSize = 16

type cacheKey struct {
	path    string
	modTime time.Time
	size    int64
}

// Library opens document files for imports. Relative paths are resolved
// against Base. Opened documents are cached until the file changes.
type Library struct {
	Base  string
	cache *lru.Cache[cacheKey, *inmemoryscene.Store]
}

var _ scenegraph.Library = (*Library)(nil)

// NewLibrary creates a library resolving relative paths against base.
func NewLibrary(base string, size int) *Library {
	if size <= 0 {
		size = DefaultLibraryCacheSize
	}
	cache, err := lru.New[cacheKey, *inmemoryscene.Store](size)
	if err != nil {
		panic(err)
	}
	return &Library{Base: base, cache: cache}
}

// Open loads the document at path. The returned store must be treated as
// read-only: it is shared by every import from the same file.
func (l *Library) Open(ctx context.Context, path string) (scenegraph.Store, error) {
	resolved := path
	if !filepath.IsAbs(resolved) && l.Base != "" {
		resolved = filepath.Join(l.Base, resolved)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("library %s: %w", path, err)
	}
	key := cacheKey{path: resolved, modTime: info.ModTime(), size: info.Size()}
	if store, ok := l.cache.Get(key); ok {
		return store, nil
	}

	store, err := Load(ctx, resolved)
	if err != nil {
		return nil, err
	}
	l.cache.Add(key, store)
	ctxlog.FromContext(ctx).Debug("Opened library document.", "path", resolved)
	return store, nil
}
