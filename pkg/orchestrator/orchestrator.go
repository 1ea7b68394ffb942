package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/goliatone/go-formflow/internal/loader"
	"github.com/goliatone/go-formflow/pkg/jsonschema"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/openapi"
	"github.com/goliatone/go-formflow/pkg/rules"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/validation"
	"github.com/goliatone/go-formflow/pkg/widgets"
)

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithLoader injects the loader used for sources and external references.
func WithLoader(l jsonschema.Loader) Option {
	return func(o *Orchestrator) {
		o.loader = l
	}
}

// WithResolveOptions configures reference resolution.
func WithResolveOptions(opts jsonschema.ResolveOptions) Option {
	return func(o *Orchestrator) {
		o.resolveOpts = opts
	}
}

// WithBuilder injects a custom field tree compiler.
func WithBuilder(builder *model.Builder) Option {
	return func(o *Orchestrator) {
		o.builder = builder
	}
}

// WithMatcher injects the component matcher used to derive rules.
func WithMatcher(matcher *widgets.Matcher) Option {
	return func(o *Orchestrator) {
		o.matcher = matcher
	}
}

// WithTransformers registers transformers that run, in order, after the
// field tree is compiled and before the rule is derived.
func WithTransformers(transformers ...Transformer) Option {
	return func(o *Orchestrator) {
		o.transformers = append(o.transformers, transformers...)
	}
}

// WithLogger routes pipeline diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Orchestrator coordinates the pipeline from schema document to compiled
// form. Missing dependencies are initialised with the built-in
// implementations so callers can start with a single constructor call.
type Orchestrator struct {
	loader       jsonschema.Loader
	resolveOpts  jsonschema.ResolveOptions
	builder      *model.Builder
	matcher      *widgets.Matcher
	normalizer   *jsonschema.Normalizer
	transformers []Transformer
	logger       *slog.Logger
}

// New constructs an Orchestrator applying any provided options.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	if o.loader == nil {
		o.loader = loader.New(jsonschema.NewLoaderOptions())
	}
	if o.builder == nil {
		o.builder = model.NewBuilder(model.WithLogger(o.logger))
	}
	if o.matcher == nil {
		o.matcher = widgets.NewMatcher()
	}
	o.normalizer = jsonschema.NewNormalizer(jsonschema.WithLogger(o.logger))
	return o
}

// Request describes the inputs of one compilation.
type Request struct {
	// Source identifies where the document lives. Optional when Document is
	// supplied.
	Source schema.Source

	// Document allows callers to bypass the loader when they already have the
	// raw payload.
	Document *schema.Document

	// OperationID treats the document as OpenAPI and compiles the request
	// body of the named operation. Empty means the document is a JSON Schema.
	OperationID string

	// Prefix is prepended to every field id.
	Prefix string

	Labels    model.Labels
	Overrides model.Overrides
}

// Form is a compiled form ready to be rendered and validated.
type Form struct {
	Schema    schema.Node
	Fields    model.FieldMap
	Rule      rules.Rule
	Warnings  []jsonschema.Warning
	Operation *openapi.Operation
}

// Compile executes the load, resolve, compile and rule derivation sequence.
func (o *Orchestrator) Compile(ctx context.Context, req Request) (Form, error) {
	if ctx == nil {
		return Form{}, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return Form{}, err
	}

	doc, err := o.resolveDocument(ctx, req)
	if err != nil {
		return Form{}, err
	}

	var form Form
	if req.OperationID != "" {
		extractor := openapi.NewExtractor(openapi.Options{
			Loader:            o.loader,
			AllowExternalRefs: o.resolveOpts.AllowExternalRefs,
		})
		operations, err := extractor.Operations(ctx, doc)
		if err != nil {
			return Form{}, fmt.Errorf("orchestrator: parse operations: %w", err)
		}
		op, ok := operations[req.OperationID]
		if !ok {
			return Form{}, fmt.Errorf("orchestrator: operation %q not found", req.OperationID)
		}
		form.Schema = op.Schema
		form.Operation = &op
	} else {
		resolved, err := jsonschema.NewResolver(o.loader, o.resolveOpts).Resolve(ctx, doc)
		if err != nil {
			return Form{}, fmt.Errorf("orchestrator: resolve schema: %w", err)
		}
		form.Schema = resolved
	}

	// The builder sees a combinator-free tree, so each warning is logged once.
	normalized := o.normalizer.NormalizeTree(form.Schema)
	form.Warnings = normalized.Warnings
	form.Fields = o.builder.Compile(normalized.Schema, req.Labels, req.Overrides, req.Prefix)

	for _, transformer := range o.transformers {
		if transformer == nil {
			continue
		}
		if err := transformer.Transform(ctx, &form); err != nil {
			return Form{}, fmt.Errorf("orchestrator: transform form: %w", err)
		}
	}

	form.Rule = validation.Build(form.Fields, o.matcher)
	o.logger.Debug("compiled form",
		slog.String("source", doc.Location()),
		slog.Int("fields", len(form.Fields)),
		slog.Int("warnings", len(form.Warnings)),
	)
	return form, nil
}

// Validate checks values against a compiled form and returns the failures
// keyed by field id.
func (o *Orchestrator) Validate(form Form, values map[string]any) map[string]string {
	var payload any = values
	if values == nil {
		payload = map[string]any{}
	}
	rule := form.Rule
	if rule == nil {
		rule = validation.Build(form.Fields, o.matcher)
	}
	return validation.FieldErrors(rules.Validate(rule, payload))
}

func (o *Orchestrator) resolveDocument(ctx context.Context, req Request) (schema.Document, error) {
	if req.Document != nil {
		return *req.Document, nil
	}
	if req.Source == nil {
		return schema.Document{}, errors.New("orchestrator: source or document is required")
	}
	doc, err := o.loader.Load(ctx, req.Source)
	if err != nil {
		return schema.Document{}, fmt.Errorf("orchestrator: load document: %w", err)
	}
	return doc, nil
}
