// Package schema is the declaration surface of persistable classes.
//
// A Class names its bases and declares fields. Each field has a FieldKind,
// a closed tagged variant deciding how the field is persisted:
//
//   - Container: a bare collection node.
//   - Leaf: an object node with a payload of a fixed kind.
//   - Nested: a collection wrapped by an instance of another class.
//   - Opaque: a cty value kept in the instance's attribute blob.
//
// The Resolver folds a class's declarations together with those of its
// persistable ancestors into one ordered Schema.
package schema
