// Package formflow is the convenience entry point of the module. It exposes
// the compile pipeline and the session constructor without requiring callers
// to wire the individual packages.
package formflow

import (
	"context"

	"github.com/goliatone/go-formflow/internal/loader"
	"github.com/goliatone/go-formflow/pkg/jsonschema"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/orchestrator"
	"github.com/goliatone/go-formflow/pkg/rules"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/session"
	"github.com/goliatone/go-formflow/pkg/validation"
	"github.com/goliatone/go-formflow/pkg/widgets"
)

// Form aliases orchestrator.Form for callers of the root package.
type Form = orchestrator.Form

// Request aliases orchestrator.Request.
type Request = orchestrator.Request

// NewLoader constructs a document loader using the internal implementation
// while keeping the concrete type hidden from consumers.
func NewLoader(options ...jsonschema.LoaderOption) jsonschema.Loader {
	return loader.New(jsonschema.NewLoaderOptions(options...))
}

// NewOrchestrator exposes the orchestrator constructor from the top-level
// module.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// CompileSource loads a JSON Schema document from source and compiles it.
func CompileSource(ctx context.Context, source schema.Source, options ...orchestrator.Option) (Form, error) {
	return orchestrator.New(options...).Compile(ctx, orchestrator.Request{Source: source})
}

// CompileOperation compiles the request body of an OpenAPI operation.
func CompileOperation(ctx context.Context, source schema.Source, operationID string, options ...orchestrator.Option) (Form, error) {
	return orchestrator.New(options...).Compile(ctx, orchestrator.Request{
		Source:      source,
		OperationID: operationID,
	})
}

// Compile compiles an already resolved schema node with the default builder.
func Compile(node schema.Node, labels model.Labels, overrides model.Overrides) model.FieldMap {
	return model.NewBuilder().Compile(node, labels, overrides, "")
}

// Rules derives the validation rule for fields with the default matcher.
func Rules(fields model.FieldMap) rules.Rule {
	return validation.Build(fields, widgets.NewMatcher())
}

// NewSession constructs a form session for formKey talking to transport.
func NewSession(formKey string, transport session.Transport, options ...session.Option) (*session.Session, error) {
	return session.New(formKey, transport, options...)
}
