/*
Package manifest declares persistable classes in HCL files and registers them.

A manifest holds any number of class blocks:

	class "A" {
	  extends = ["Base"]

	  field "mesh"    { type = mesh_object }
	  field "b"       { type = class.B }
	  field "counter" {
	    type    = number
	    default = 0
	  }

	  mesh_append_from = "/assets/shapes.rhd@Cube"
	}

Field types are either graph keywords (`collection`, `<payload>_object`),
a reference to another class (`class.NAME`), or any HCL type constraint, which
declares an opaque field of that type.

Classes may extend classes from any loaded file, or classes already present in
the registry. A class without `extends` derives directly from the root.
*/
package manifest
