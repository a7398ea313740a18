// Package inmemoryscene provides an in-memory implementation of the
// scenegraph.Store interface.
//
// # Purpose
//
// This is the host document the persistence core runs against in tests and
// in the CLI: sqlitescene loads documents from disk into it and saves them
// back out.
//
// # Characteristics
//
//   - **Unique names:** datablock names clash-resolve to `name.001`, `name.002`, ...
//   - **Imports:** ImportCollection and ImportObject deep-copy a subtree out of
//     a document opened through the configured scenegraph.Library.
//   - **Locking:** a sync.RWMutex guards the datablock tables. Node contents
//     (properties, child lists) are not guarded.
package inmemoryscene
