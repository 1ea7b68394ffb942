package orchestrator

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/model"
)

const preset = `
fields:
  email:
    title: Work email
    disabled: true
  tags.*:
    description: One tag per entry
    options:
      - value: go
        label: Go
  address.street:
    required: true
`

func presetForm() *Form {
	return &Form{Fields: model.FieldMap{
		"email": {ID: "email", Type: model.FieldTypeString, Attributes: model.Attributes{Sensitive: true}},
		"tags": {
			ID:        "tags",
			Type:      model.FieldTypeArray,
			ArrayItem: &model.Field{ID: "tags.*", Type: model.FieldTypeString},
		},
		"address": {
			ID:   "address",
			Type: model.FieldTypeObject,
			Properties: model.FieldMap{
				"street": {ID: "address.street", Type: model.FieldTypeString},
			},
		},
	}}
}

func TestPresetTransformer_PatchesNestedFields(t *testing.T) {
	transformer, err := NewPresetTransformerFromFS(fstest.MapFS{"preset.yaml": {Data: []byte(preset)}}, "preset.yaml")
	if err != nil {
		t.Fatalf("load preset: %v", err)
	}
	form := presetForm()
	if err := transformer.Transform(context.Background(), form); err != nil {
		t.Fatalf("transform: %v", err)
	}

	email := form.Fields["email"]
	if email.Title != "Work email" {
		t.Fatalf("title = %q", email.Title)
	}
	if diff := cmp.Diff(model.Attributes{Disabled: true, Sensitive: true}, email.Attributes); diff != "" {
		t.Fatalf("attributes mismatch (-want +got):\n%s", diff)
	}

	item := form.Fields["tags"].ArrayItem
	if item.Description != "One tag per entry" {
		t.Fatalf("item description = %q", item.Description)
	}
	if diff := cmp.Diff([]model.Option{{Value: "go", Label: "Go"}}, item.Options); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
	if !form.Fields["address"].Properties["street"].Required {
		t.Fatalf("expected nested field to become required")
	}
}

func TestPresetTransformer_DoesNotShareNestedMaps(t *testing.T) {
	transformer, err := NewPresetTransformer([]byte(preset))
	if err != nil {
		t.Fatalf("load preset: %v", err)
	}
	original := presetForm()
	before := original.Fields["address"].Properties
	if err := transformer.Transform(context.Background(), original); err != nil {
		t.Fatalf("transform: %v", err)
	}
	if before["street"].Required {
		t.Fatalf("transform mutated the previous properties map")
	}
}

func TestPresetTransformer_Errors(t *testing.T) {
	if _, err := NewPresetTransformer([]byte("  ")); err == nil {
		t.Fatalf("expected error for empty document")
	}
	if _, err := NewPresetTransformer([]byte("fields: [")); err == nil {
		t.Fatalf("expected error for malformed document")
	}

	transformer, err := NewPresetTransformer([]byte("fields:\n  missing:\n    title: X\n"))
	if err != nil {
		t.Fatalf("load preset: %v", err)
	}
	if err := transformer.Transform(context.Background(), presetForm()); err == nil {
		t.Fatalf("expected error for unknown field")
	}
	if err := transformer.Transform(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil form")
	}
}
