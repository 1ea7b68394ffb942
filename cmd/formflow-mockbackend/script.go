package main

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formflow/pkg/jsonschema"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/rules"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/validation"
	"github.com/goliatone/go-formflow/pkg/widgets"
)

// Script describes the forms the mock backend serves:
//
//	forms:
//	  signup:
//	    labels: {email: E-mail}
//	    steps:
//	      - schema: {type: object, properties: {email: {type: string}}}
//	      - schema: ...
type Script struct {
	Forms map[string]ScriptForm `yaml:"forms"`
}

// ScriptForm is one multi-step form.
type ScriptForm struct {
	Labels map[string]string `yaml:"labels"`
	Data   map[string]any    `yaml:"data"`
	Steps  []ScriptStep      `yaml:"steps"`
}

// ScriptStep holds the schema served for one step. Values submitted for the
// step are validated against the rules derived from it.
type ScriptStep struct {
	Schema map[string]any `yaml:"schema"`
}

type compiledStep struct {
	schema schema.Node
	rule   rules.Rule
}

type compiledForm struct {
	labels model.Labels
	steps  []compiledStep
}

// ParseScript decodes a YAML (or JSON) script.
func ParseScript(raw []byte) (Script, error) {
	var script Script
	if err := yaml.Unmarshal(raw, &script); err != nil {
		return Script{}, fmt.Errorf("mockbackend: parse script: %w", err)
	}
	return script, nil
}

// compile resolves every step schema and derives its rule.
func (s Script) compile(ctx context.Context) (map[string]compiledForm, error) {
	resolver := jsonschema.NewResolver(nil, jsonschema.ResolveOptions{})
	builder := model.NewBuilder()
	matcher := widgets.NewMatcher()

	out := make(map[string]compiledForm, len(s.Forms))
	for key, form := range s.Forms {
		if len(form.Steps) == 0 {
			return nil, fmt.Errorf("mockbackend: form %q has no steps", key)
		}
		compiled := compiledForm{labels: model.Labels{Labels: form.Labels, Values: form.Data}}
		for idx, step := range form.Steps {
			if step.Schema == nil {
				return nil, fmt.Errorf("mockbackend: form %q step %d has no schema", key, idx)
			}
			encoded, err := json.Marshal(step.Schema)
			if err != nil {
				return nil, fmt.Errorf("mockbackend: form %q step %d: %w", key, idx, err)
			}
			node, err := jsonschema.Parse(encoded)
			if err != nil {
				return nil, fmt.Errorf("mockbackend: form %q step %d: %w", key, idx, err)
			}
			resolved, err := resolver.ResolveNode(ctx, node, node)
			if err != nil {
				return nil, fmt.Errorf("mockbackend: form %q step %d: %w", key, idx, err)
			}
			fields := builder.Compile(resolved, compiled.labels, nil, "")
			compiled.steps = append(compiled.steps, compiledStep{
				schema: node,
				rule:   validation.Build(fields, matcher),
			})
		}
		out[key] = compiled
	}
	return out, nil
}
