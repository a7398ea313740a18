// Package sqlitescene stores scene documents as SQLite files and opens them
// again as in-memory stores. It also provides the scenegraph.Library that
// resolves append imports against such files.
package sqlitescene
