/*
Package rehydrate binds persistable class instances to nodes of a host scene
graph and rebuilds them from those nodes later.

# Layout

Every instance owns one container collection. Inside it the engine keeps:

  - a data object named `<chain>.__data`, whose `__prefix` property holds the
    class's identity chain and whose `__data` property holds the opaque
    attribute blob;
  - one field node per graph field, named `<chain>.<field>` and tagged with a
    `__field` property.

Graph fields (collections, objects, nested instances) live only in the scene
graph and in memory. Every other attribute is written through to the blob on
assignment.

# Construction and reconstruction

Construct allocates the layout for a class once. Reconstruct reads it back
without allocating anything. ReconstructAll walks a subtree of the document and
reconstructs every marked container it finds, without descending into them.

An Engine is not safe for concurrent use against the same document.
*/
package rehydrate
