package scenegraph

import (
	"context"
	"errors"
)

var (
	// ErrResourceNotFound is returned when an import names a resource the
	// library does not contain.
	ErrResourceNotFound = errors.New("resource not found in library")
	// ErrNoLibrary is returned by imports on a store without a Library.
	ErrNoLibrary = errors.New("store has no library configured")
	// ErrCycle is returned when linking would make a collection its own
	// ancestor.
	ErrCycle = errors.New("link would create a cycle")
)

// Store is the host scene-graph document.
//
// # Thread-Safety Requirements
//
// Implementations must keep their own datablock tables consistent under
// concurrent calls, but node values themselves are unsynchronized. One
// document is meant to be mutated by one goroutine at a time.
type Store interface {
	// Scene returns the root collection of the document.
	Scene(ctx context.Context) *Collection

	// NewCollection allocates an unlinked collection. If name is taken, a
	// numeric suffix is appended.
	NewCollection(ctx context.Context, name string) (*Collection, error)

	// NewObject allocates an unlinked object carrying data (nil for an empty).
	NewObject(ctx context.Context, name string, data *Payload) (*Object, error)

	// NewPayload allocates a payload datablock of the given kind.
	NewPayload(ctx context.Context, kind PayloadKind, name string) (*Payload, error)

	// LinkCollection makes child a child of parent.
	LinkCollection(ctx context.Context, parent, child *Collection) error

	// LinkObject makes obj a child of parent.
	LinkObject(ctx context.Context, parent *Collection, obj *Object) error

	// ImportCollection copies the collection called name, with everything it
	// contains, out of the document at path and into this store. The copy is
	// not linked anywhere.
	ImportCollection(ctx context.Context, path, name string) (*Collection, error)

	// ImportObject copies the object called name, with its payload, out of the
	// document at path and into this store. The copy is not linked anywhere.
	ImportObject(ctx context.Context, path, name string) (*Object, error)

	// Collection looks a collection datablock up by name.
	Collection(ctx context.Context, name string) (*Collection, bool)

	// Object looks an object datablock up by name.
	Object(ctx context.Context, name string) (*Object, bool)

	// Collections returns every collection datablock in creation order. The
	// scene root is not included.
	Collections(ctx context.Context) []*Collection

	// Objects returns every object datablock in creation order.
	Objects(ctx context.Context) []*Object

	// Payloads returns every payload datablock in creation order.
	Payloads(ctx context.Context) []*Payload
}

// Library opens external documents for imports.
type Library interface {
	Open(ctx context.Context, path string) (Store, error)
}

// LibraryFunc adapts a function to the Library interface.
type LibraryFunc func(ctx context.Context, path string) (Store, error)

// Open calls f.
func (f LibraryFunc) Open(ctx context.Context, path string) (Store, error) {
	return f(ctx, path)
}
