package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formflow/pkg/model"
)

// Transformer mutates a compiled Form before its rule is derived.
// Implementations can retitle fields, change requiredness, or rewrite the
// tree entirely.
type Transformer interface {
	Transform(ctx context.Context, form *Form) error
}

// TransformerFunc adapts plain functions to the Transformer interface.
type TransformerFunc func(ctx context.Context, form *Form) error

// Transform executes the wrapped function when non-nil.
func (fn TransformerFunc) Transform(ctx context.Context, form *Form) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, form)
}

// PresetTransformer applies declarative field patches loaded from a YAML or
// JSON document:
//
//	fields:
//	  email:
//	    title: Work email
//	    required: true
//	  tags.*:
//	    description: One tag per entry
//
// Keys are full field ids; array item templates are addressed with "*".
type PresetTransformer struct {
	patches map[string]presetPatch
}

type presetDocument struct {
	Fields map[string]presetPatch `yaml:"fields"`
}

type presetPatch struct {
	Title       *string        `yaml:"title"`
	Description *string        `yaml:"description"`
	Format      *string        `yaml:"format"`
	Required    *bool          `yaml:"required"`
	Default     any            `yaml:"default"`
	Disabled    *bool          `yaml:"disabled"`
	Sensitive   *bool          `yaml:"sensitive"`
	Options     []model.Option `yaml:"options"`
	Extensions  map[string]any `yaml:"extensions"`
}

// NewPresetTransformer constructs a transformer from raw YAML or JSON bytes.
func NewPresetTransformer(data []byte) (*PresetTransformer, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("preset transformer: document is empty")
	}
	var document presetDocument
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("preset transformer: parse document: %w", err)
	}
	patches := make(map[string]presetPatch, len(document.Fields))
	for id, patch := range document.Fields {
		patches[strings.TrimSpace(id)] = patch
	}
	return &PresetTransformer{patches: patches}, nil
}

// NewPresetTransformerFromFS loads a preset document from the provided
// filesystem path.
func NewPresetTransformerFromFS(fsys fs.FS, path string) (*PresetTransformer, error) {
	if fsys == nil {
		return nil, errors.New("preset transformer: filesystem is nil")
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("preset transformer: path is required")
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("preset transformer: read %s: %w", path, err)
	}
	return NewPresetTransformer(data)
}

// Transform applies the patches onto the supplied form.
func (t *PresetTransformer) Transform(ctx context.Context, form *Form) error {
	if form == nil {
		return errors.New("preset transformer: form is nil")
	}
	for id, patch := range t.patches {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !patchField(form.Fields, id, patch) {
			return fmt.Errorf("preset transformer: field %q not found", id)
		}
	}
	return nil
}

func (p presetPatch) apply(field model.Field) model.Field {
	override := model.FieldOverride{
		Title:       p.Title,
		Description: p.Description,
		Format:      p.Format,
		Required:    p.Required,
		Default:     p.Default,
		Options:     p.Options,
		Extensions:  p.Extensions,
	}
	if p.Disabled != nil || p.Sensitive != nil {
		attrs := field.Attributes
		if p.Disabled != nil {
			attrs.Disabled = *p.Disabled
		}
		if p.Sensitive != nil {
			attrs.Sensitive = *p.Sensitive
		}
		override.Attributes = &attrs
	}
	return override.Apply(field)
}

// patchField applies patch to the field with the given id wherever it sits in
// the tree.
func patchField(fields model.FieldMap, id string, patch presetPatch) bool {
	for key, field := range fields {
		if patched, ok := patchTree(field, id, patch); ok {
			fields[key] = patched
			return true
		}
	}
	return false
}

func patchTree(field model.Field, id string, patch presetPatch) (model.Field, bool) {
	if field.ID == id {
		return patch.apply(field), true
	}
	if !strings.HasPrefix(id, field.ID+".") {
		return field, false
	}
	if len(field.Properties) > 0 {
		props := make(model.FieldMap, len(field.Properties))
		for key, child := range field.Properties {
			props[key] = child
		}
		if patchField(props, id, patch) {
			field.Properties = props
			return field, true
		}
	}
	if field.ArrayItem != nil {
		if item, ok := patchTree(*field.ArrayItem, id, patch); ok {
			field.ArrayItem = &item
			return field, true
		}
	}
	return field, false
}
