package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	json "github.com/goccy/go-json"

	"github.com/goliatone/go-formflow/pkg/jsonschema"
	"github.com/goliatone/go-formflow/pkg/schema"
)

var preferredMediaTypes = []string{
	"application/json",
	"application/x-www-form-urlencoded",
	"multipart/form-data",
}

// Operation is an OpenAPI operation that accepts a request body.
type Operation struct {
	ID          string
	Method      string
	Path        string
	Summary     string
	Description string
	MediaType   string
	// Schema is the request body schema with every reference inlined.
	Schema schema.Node
}

// Options configures Extractor.
type Options struct {
	// Loader fetches documents referenced from outside the OpenAPI document.
	Loader jsonschema.Loader
	// AllowExternalRefs permits such references.
	AllowExternalRefs bool
	// Validate runs the kin-openapi document validator before extraction.
	Validate bool
}

// Extractor turns OpenAPI operations into form schemas.
type Extractor struct {
	opts Options
}

// NewExtractor constructs an Extractor.
func NewExtractor(opts Options) *Extractor {
	return &Extractor{opts: opts}
}

// Operations returns every operation with a request body, keyed by
// operationId. Operations without an id are keyed "<method>:<path>".
func (e *Extractor) Operations(ctx context.Context, doc schema.Document) (map[string]Operation, error) {
	spec, root, err := e.load(ctx, doc)
	if err != nil {
		return nil, err
	}
	resolver := jsonschema.NewResolver(e.opts.Loader, jsonschema.ResolveOptions{AllowExternalRefs: e.opts.AllowExternalRefs})

	operations := make(map[string]Operation)
	if spec.Paths == nil {
		return operations, nil
	}
	paths := spec.Paths.Map()
	keys := make([]string, 0, len(paths))
	for path := range paths {
		keys = append(keys, path)
	}
	sort.Strings(keys)

	for _, path := range keys {
		for method, operation := range paths[path].Operations() {
			op, ok, err := e.operation(ctx, resolver, root, method, path, operation)
			if err != nil {
				return nil, err
			}
			if ok {
				operations[op.ID] = op
			}
		}
	}
	return operations, nil
}

// FormSchema returns the request body schema of the named operation.
func (e *Extractor) FormSchema(ctx context.Context, doc schema.Document, operationID string) (schema.Node, error) {
	operations, err := e.Operations(ctx, doc)
	if err != nil {
		return nil, err
	}
	op, ok := operations[operationID]
	if !ok {
		return nil, fmt.Errorf("openapi: operation %q not found or has no request body", operationID)
	}
	return op.Schema, nil
}

func (e *Extractor) load(ctx context.Context, doc schema.Document) (*openapi3.T, schema.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	raw := doc.Raw()
	if len(raw) == 0 {
		return nil, nil, errors.New("openapi: document payload is empty")
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = e.opts.AllowExternalRefs
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("openapi: load %s: %w", doc.Location(), err)
	}
	if e.opts.Validate {
		if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return nil, nil, fmt.Errorf("openapi: validate %s: %w", doc.Location(), err)
		}
	}

	encoded, err := json.Marshal(spec)
	if err != nil {
		return nil, nil, fmt.Errorf("openapi: encode document: %w", err)
	}
	root, err := jsonschema.Parse(encoded)
	if err != nil {
		return nil, nil, fmt.Errorf("openapi: decode document: %w", err)
	}
	return spec, root, nil
}

func (e *Extractor) operation(ctx context.Context, resolver *jsonschema.Resolver, root schema.Node, method, path string, operation *openapi3.Operation) (Operation, bool, error) {
	if operation == nil || operation.RequestBody == nil || operation.RequestBody.Value == nil {
		return Operation{}, false, nil
	}
	mediaType, ref := requestSchema(operation.RequestBody.Value.Content)
	if ref == nil {
		return Operation{}, false, nil
	}

	var node schema.Node
	if ref.Ref != "" {
		node = schema.Node{schema.KeyRef: ref.Ref}
	} else {
		encoded, err := json.Marshal(ref.Value)
		if err != nil {
			return Operation{}, false, fmt.Errorf("openapi: encode %s %s schema: %w", method, path, err)
		}
		if node, err = jsonschema.Parse(encoded); err != nil {
			return Operation{}, false, fmt.Errorf("openapi: decode %s %s schema: %w", method, path, err)
		}
	}

	resolved, err := resolver.ResolveNode(ctx, root, node)
	if err != nil {
		return Operation{}, false, fmt.Errorf("openapi: %s %s: %w", method, path, err)
	}

	id := operation.OperationID
	if id == "" {
		id = strings.ToLower(method) + ":" + path
	}
	return Operation{
		ID:          id,
		Method:      strings.ToUpper(method),
		Path:        path,
		Summary:     operation.Summary,
		Description: operation.Description,
		MediaType:   mediaType,
		Schema:      resolved,
	}, true, nil
}

func requestSchema(content openapi3.Content) (string, *openapi3.SchemaRef) {
	for _, mediaType := range preferredMediaTypes {
		if mt := content.Get(mediaType); mt != nil && mt.Schema != nil {
			return mediaType, mt.Schema
		}
	}
	keys := make([]string, 0, len(content))
	for key := range content {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if mt := content[key]; mt != nil && mt.Schema != nil {
			return key, mt.Schema
		}
	}
	return "", nil
}
