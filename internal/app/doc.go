// Package app contains the core application logic. It wires the class
// registry, the open document and the persistence engine together, and
// implements the user-facing commands, decoupled from any specific
// entrypoint like a CLI.
package app
