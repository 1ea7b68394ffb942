// Package openapi extracts form schemas from OpenAPI 3 documents. The request
// body of an operation becomes the root schema of a form, with component
// references inlined so the result compiles like any other form schema.
package openapi
