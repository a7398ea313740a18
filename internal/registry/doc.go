// Package registry holds the explicit, process-wide set of persistable
// classes.
//
// The identity codec searches this registry instead of enumerating live
// subclasses, so a class can only be reconstructed once it has been
// registered. Classes are registered at startup, either from Go code or from
// HCL manifests (see package manifest), and the registry is then validated to
// catch declarations that can never be materialized.
//
// Every registration bumps a generation counter. Caches derived from the
// registry key their entries by generation, so registering a class after a
// lookup never serves stale results.
package registry
