// Package session drives multi-step form submissions. A Session fetches the
// schema of the current step through a Transport, compiles it into fields,
// collects values, validates them client side and submits the growing list
// of step payloads. Values typed into a step are kept in a History keyed by
// a hash of the steps that preceded it, so stepping back and forth restores
// them.
//
// Transport failures never escape as errors: they become a generic form
// error on the snapshot and the session returns to its last good state.
package session
