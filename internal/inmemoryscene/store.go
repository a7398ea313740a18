package inmemoryscene

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/rehydrator/internal/ctxlog"
	"github.com/vk/rehydrator/internal/scenegraph"
)

// SceneName is the name given to the root collection of every store.
const SceneName = "Scene Collection"

// Option configures a Store.
type Option func(*Store)

// WithLibrary sets the library used to resolve imports.
func WithLibrary(lib scenegraph.Library) Option {
	return func(s *Store) { s.library = lib }
}

// Store implements scenegraph.Store with plain maps guarded by a mutex.
type Store struct {
	mu      sync.RWMutex
	library scenegraph.Library
	scene   *scenegraph.Collection

	collections     map[string]*scenegraph.Collection
	collectionOrder []*scenegraph.Collection
	objects         map[string]*scenegraph.Object
	objectOrder     []*scenegraph.Object
	payloads        map[string]*scenegraph.Payload
	payloadOrder    []*scenegraph.Payload
}

var _ scenegraph.Store = (*Store)(nil)

// New creates an empty document containing only the scene root.
func New(opts ...Option) *Store {
	s := &Store{
		scene:       scenegraph.NewCollection(SceneName),
		collections: make(map[string]*scenegraph.Collection),
		objects:     make(map[string]*scenegraph.Object),
		payloads:    make(map[string]*scenegraph.Payload),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scene returns the root collection.
func (s *Store) Scene(ctx context.Context) *scenegraph.Collection {
	return s.scene
}

// NewCollection allocates a collection datablock.
func (s *Store) NewCollection(ctx context.Context, name string) (*scenegraph.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newCollectionLocked(name)
}

func (s *Store) newCollectionLocked(name string) (*scenegraph.Collection, error) {
	if name == "" {
		return nil, fmt.Errorf("collection name cannot be empty")
	}
	c := scenegraph.NewCollection(uniqueName(name, func(n string) bool {
		_, taken := s.collections[n]
		return taken
	}))
	s.collections[c.Name()] = c
	s.collectionOrder = append(s.collectionOrder, c)
	return c, nil
}

// NewObject allocates an object datablock.
func (s *Store) NewObject(ctx context.Context, name string, data *scenegraph.Payload) (*scenegraph.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newObjectLocked(name, data)
}

func (s *Store) newObjectLocked(name string, data *scenegraph.Payload) (*scenegraph.Object, error) {
	if name == "" {
		return nil, fmt.Errorf("object name cannot be empty")
	}
	if data != nil {
		if owned, ok := s.payloads[data.Name]; !ok || owned != data {
			return nil, fmt.Errorf("payload '%s' does not belong to this store", data.Name)
		}
	}
	o := scenegraph.NewObject(uniqueName(name, func(n string) bool {
		_, taken := s.objects[n]
		return taken
	}), data)
	s.objects[o.Name()] = o
	s.objectOrder = append(s.objectOrder, o)
	return o, nil
}

// NewPayload allocates a payload datablock. Asking for PayloadEmpty is an
// error: an empty is an object without a payload.
func (s *Store) NewPayload(ctx context.Context, kind scenegraph.PayloadKind, name string) (*scenegraph.Payload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newPayloadLocked(kind, name)
}

func (s *Store) newPayloadLocked(kind scenegraph.PayloadKind, name string) (*scenegraph.Payload, error) {
	if kind == scenegraph.PayloadEmpty {
		return nil, fmt.Errorf("cannot allocate a payload of kind '%s'", kind)
	}
	if name == "" {
		return nil, fmt.Errorf("payload name cannot be empty")
	}
	p := &scenegraph.Payload{
		Kind: kind,
		Name: uniqueName(name, func(n string) bool {
			_, taken := s.payloads[n]
			return taken
		}),
	}
	s.payloads[p.Name] = p
	s.payloadOrder = append(s.payloadOrder, p)
	return p, nil
}

// LinkCollection makes child a child of parent.
func (s *Store) LinkCollection(ctx context.Context, parent, child *scenegraph.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ownsCollectionLocked(parent) {
		return fmt.Errorf("parent '%s' does not belong to this store", parent.Name())
	}
	if child == s.scene || !s.ownsCollectionLocked(child) {
		return fmt.Errorf("child '%s' does not belong to this store", child.Name())
	}
	if child.Contains(parent) {
		return fmt.Errorf("linking '%s' under '%s': %w", child.Name(), parent.Name(), scenegraph.ErrCycle)
	}
	parent.AttachChild(child)
	ctxlog.FromContext(ctx).Debug("Linked collection.", "parent", parent.Name(), "child", child.Name())
	return nil
}

// LinkObject makes obj a child of parent.
func (s *Store) LinkObject(ctx context.Context, parent *scenegraph.Collection, obj *scenegraph.Object) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ownsCollectionLocked(parent) {
		return fmt.Errorf("parent '%s' does not belong to this store", parent.Name())
	}
	if owned, ok := s.objects[obj.Name()]; !ok || owned != obj {
		return fmt.Errorf("object '%s' does not belong to this store", obj.Name())
	}
	parent.AttachObject(obj)
	ctxlog.FromContext(ctx).Debug("Linked object.", "parent", parent.Name(), "object", obj.Name())
	return nil
}

func (s *Store) ownsCollectionLocked(c *scenegraph.Collection) bool {
	if c == s.scene {
		return true
	}
	owned, ok := s.collections[c.Name()]
	return ok && owned == c
}

// Collection looks a collection up by name.
func (s *Store) Collection(ctx context.Context, name string) (*scenegraph.Collection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	return c, ok
}

// Object looks an object up by name.
func (s *Store) Object(ctx context.Context, name string) (*scenegraph.Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[name]
	return o, ok
}

// Collections returns all collection datablocks in creation order.
func (s *Store) Collections(ctx context.Context) []*scenegraph.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*scenegraph.Collection, len(s.collectionOrder))
	copy(out, s.collectionOrder)
	return out
}

// Objects returns all object datablocks in creation order.
func (s *Store) Objects(ctx context.Context) []*scenegraph.Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*scenegraph.Object, len(s.objectOrder))
	copy(out, s.objectOrder)
	return out
}

// Payloads returns all payload datablocks in creation order.
func (s *Store) Payloads(ctx context.Context) []*scenegraph.Payload {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*scenegraph.Payload, len(s.payloadOrder))
	copy(out, s.payloadOrder)
	return out
}

// uniqueName returns name, or name with the first free `.NNN` suffix.
func uniqueName(name string, taken func(string) bool) string {
	if !taken(name) {
		return name
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s.%03d", name, i)
		if !taken(candidate) {
			return candidate
		}
	}
}
