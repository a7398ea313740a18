// Package blob stores a persistable instance's opaque attributes as a single
// serialized mapping in the `__data` string property of its data node.
//
// Every write is a full read-modify-write of the whole mapping.
package blob
