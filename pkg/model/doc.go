// Package model compiles normalized form schemas into Field descriptors.
//
// A compiled form is a FieldMap keyed by dotted path id. Root properties use
// their bare key as id, nested object properties are prefixed with the parent
// id, and array item templates use the parent id followed by the "*" segment
// until they are itemized (see package itemize). Each Field stores its fully
// qualified id so callers never rebuild paths by walking the tree.
package model
