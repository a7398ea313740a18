/*
Package classid encodes a persistable class's position in the class
hierarchy as a stable string, and decodes such strings back into classes.

An identity chain is the dot-separated sequence of simple class names from
the root's nearest descendant down to the class itself, following the first
persistable base at every step, e.g. `Foo.Bar.Baz`.

Two classes that are not related but share every name at every chain
position encode identically; decoding returns the first one found. The
registry logs a warning when this happens.
*/
package classid
