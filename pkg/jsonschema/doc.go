// Package jsonschema prepares raw form schema documents for compilation: it
// parses JSON or YAML payloads, resolves $ref pointers, and flattens the
// allOf/anyOf/oneOf combinators into plain schema nodes.
//
// Flattening follows a fixed precedence. allOf branches are merged left to
// right and the node's own keys win over the merged result. anyOf and oneOf
// select the first non-null branch, again with the node's own keys on top. A
// branch list of the shape [X, {"type": "null"}] is the accepted idiom for an
// optional X and only marks the result nullable. Anything else the form
// pipeline cannot express is logged as a Warning and resolved through the same
// fallbacks, never returned as an error.
package jsonschema
