// Package orchestrator wires the compile pipeline end to end: load a schema
// document, optionally extract an OpenAPI operation, resolve references,
// compile the field tree, apply transformers and derive the validation rule.
package orchestrator
