package inmemoryscene

import (
	"context"
	"fmt"

	"github.com/vk/rehydrator/internal/ctxlog"
	"github.com/vk/rehydrator/internal/scenegraph"
)

// ImportCollection deep-copies the named collection out of the document at
// path. The copy keeps its name unless the name is already taken here.
func (s *Store) ImportCollection(ctx context.Context, path, name string) (*scenegraph.Collection, error) {
	src, err := s.openLibrary(ctx, path)
	if err != nil {
		return nil, err
	}
	source, ok := src.Collection(ctx, name)
	if !ok {
		return nil, fmt.Errorf("collection '%s' in '%s': %w", name, path, scenegraph.ErrResourceNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := newCopier(s)
	c, err := cp.collection(source)
	if err != nil {
		return nil, fmt.Errorf("importing collection '%s' from '%s': %w", name, path, err)
	}
	ctxlog.FromContext(ctx).Debug("Imported collection.", "path", path, "source", name, "name", c.Name(), "objects", cp.objectCount())
	return c, nil
}

// ImportObject deep-copies the named object and its payload out of the
// document at path.
func (s *Store) ImportObject(ctx context.Context, path, name string) (*scenegraph.Object, error) {
	src, err := s.openLibrary(ctx, path)
	if err != nil {
		return nil, err
	}
	source, ok := src.Object(ctx, name)
	if !ok {
		return nil, fmt.Errorf("object '%s' in '%s': %w", name, path, scenegraph.ErrResourceNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := newCopier(s).object(source)
	if err != nil {
		return nil, fmt.Errorf("importing object '%s' from '%s': %w", name, path, err)
	}
	ctxlog.FromContext(ctx).Debug("Imported object.", "path", path, "source", name, "name", o.Name())
	return o, nil
}

func (s *Store) openLibrary(ctx context.Context, path string) (scenegraph.Store, error) {
	if s.library == nil {
		return nil, fmt.Errorf("import from '%s': %w", path, scenegraph.ErrNoLibrary)
	}
	src, err := s.library.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("opening library '%s': %w", path, err)
	}
	return src, nil
}

// copier copies a source subtree into a store whose lock is held. Nodes shared
// inside the subtree are copied once and linked everywhere they appeared.
type copier struct {
	dst         *Store
	collections map[*scenegraph.Collection]*scenegraph.Collection
	objects     map[*scenegraph.Object]*scenegraph.Object
	payloads    map[*scenegraph.Payload]*scenegraph.Payload
}

func newCopier(dst *Store) *copier {
	return &copier{
		dst:         dst,
		collections: make(map[*scenegraph.Collection]*scenegraph.Collection),
		objects:     make(map[*scenegraph.Object]*scenegraph.Object),
		payloads:    make(map[*scenegraph.Payload]*scenegraph.Payload),
	}
}

func (cp *copier) objectCount() int { return len(cp.objects) }

func (cp *copier) collection(src *scenegraph.Collection) (*scenegraph.Collection, error) {
	if done, ok := cp.collections[src]; ok {
		return done, nil
	}
	c, err := cp.dst.newCollectionLocked(src.Name())
	if err != nil {
		return nil, err
	}
	cp.collections[src] = c
	for k, v := range src.Props() {
		c.SetProp(k, v)
	}
	for _, obj := range src.Objects() {
		o, err := cp.object(obj)
		if err != nil {
			return nil, err
		}
		c.AttachObject(o)
	}
	for _, child := range src.Children() {
		cc, err := cp.collection(child)
		if err != nil {
			return nil, err
		}
		c.AttachChild(cc)
	}
	return c, nil
}

func (cp *copier) object(src *scenegraph.Object) (*scenegraph.Object, error) {
	if done, ok := cp.objects[src]; ok {
		return done, nil
	}
	var data *scenegraph.Payload
	if p := src.Data(); p != nil {
		var ok bool
		if data, ok = cp.payloads[p]; !ok {
			var err error
			data, err = cp.dst.newPayloadLocked(p.Kind, p.Name)
			if err != nil {
				return nil, err
			}
			cp.payloads[p] = data
		}
	}
	o, err := cp.dst.newObjectLocked(src.Name(), data)
	if err != nil {
		return nil, err
	}
	cp.objects[src] = o
	for k, v := range src.Props() {
		o.SetProp(k, v)
	}
	return o, nil
}
