// Package scenegraph defines the host scene graph that persistable instances
// are mapped onto, and the Store interface through which the rest of the
// system creates, links, looks up and imports its nodes.
//
// # Model
//
// The graph has two node shapes:
//   - **Collection:** a composite, nestable grouping node. Collections own an
//     ordered list of child collections and an ordered list of objects.
//   - **Object:** a leaf node carrying an optional typed Payload (a mesh, a
//     curve, a camera, ...). An object without a payload is an "empty".
//
// Both node shapes carry arbitrary string-keyed properties. The persistence
// core stores its identity markers, field tags and opaque attribute blobs in
// these properties and never relies on anything else to find its way back.
//
// Collections, objects and payloads are datablocks: their names are unique per
// datablock type within one Store. Every Store also owns a scene root
// collection which is not itself a datablock.
//
// # Concurrency
//
// Node values are not synchronized. Stores serialize structural mutation of
// their own datablock tables, but callers must not mutate the same document
// from several goroutines at once.
package scenegraph
