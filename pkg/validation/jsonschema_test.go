package validation

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/schema"
)

func TestLintSchema_Valid(t *testing.T) {
	raw := []byte(`{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "title": { "type": "string", "minLength": 1 }
  }
}`)
	result := LintSchema(context.Background(), schema.SourceInline("schema.json"), raw, JSONSchemaValidationOptions{})
	if !result.Valid {
		t.Fatalf("expected schema to be valid: %#v", result.Issues)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %#v", result.Warnings)
	}
}

func TestLintSchema_FieldPath(t *testing.T) {
	raw := []byte(`{
  "type": "object",
  "properties": {
    "meta": {
      "type": "object",
      "properties": {
        "title": { "type": "string", "minLength": "oops" }
      }
    }
  }
}`)
	result := LintSchema(context.Background(), nil, raw, JSONSchemaValidationOptions{})
	if result.Valid {
		t.Fatalf("expected schema to be invalid")
	}
	if len(result.Issues) == 0 {
		t.Fatalf("expected validation issues")
	}
	if got := result.Issues[0].Field; got != "meta.title" {
		t.Fatalf("expected field path meta.title, got %q", got)
	}
	if got := result.Issues[0].Path; got != "#/properties/meta/properties/title" {
		t.Fatalf("unexpected pointer %q", got)
	}
}

func TestLintSchema_BadPatternInArrayItem(t *testing.T) {
	raw := []byte(`{"properties": {"tags": {"type": "array", "items": {"type": "string", "pattern": "(["}}}}`)
	result := LintSchema(context.Background(), nil, raw, JSONSchemaValidationOptions{})
	if result.Valid || len(result.Issues) != 1 {
		t.Fatalf("expected one issue, got %#v", result)
	}
	if got := result.Issues[0].Field; got != "tags.*" {
		t.Fatalf("expected template id, got %q", got)
	}
}

func TestLintSchema_WarningsKeepSchemaValid(t *testing.T) {
	raw := []byte(`{"properties": {"contact": {"oneOf": [{"type": "string"}, {"type": "integer"}]}}}`)
	result := LintSchema(context.Background(), nil, raw, JSONSchemaValidationOptions{})
	if !result.Valid {
		t.Fatalf("shape warnings must not invalidate: %#v", result.Issues)
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Field != "contact" {
		t.Fatalf("expected one warning on contact, got %#v", result.Warnings)
	}
}

func TestLintSchema_UnresolvableRef(t *testing.T) {
	raw := []byte(`{"properties": {"a": {"$ref": "#/$defs/missing"}}}`)
	result := LintSchema(context.Background(), nil, raw, JSONSchemaValidationOptions{})
	if result.Valid {
		t.Fatalf("expected unresolved ref to be reported")
	}
}

func TestFieldPathFromPointer(t *testing.T) {
	cases := map[string]string{
		"":                                  "",
		"#":                                 "",
		"#/properties/a/properties/b":       "a.b",
		"#/properties/list/items":           "list.*",
		"#/properties/x/anyOf/1":            "x",
		"#/$defs/Address/properties/street": "street",
		"#/properties/a~1b":                 "a/b",
	}
	for pointer, want := range cases {
		if got := fieldPathFromPointer(pointer); got != want {
			t.Fatalf("%q: want %q got %q", pointer, want, got)
		}
	}
}

func TestLintSchema_Extensions(t *testing.T) {
	raw := []byte(`{
  "type": "object",
  "properties": {
    "token": {"type": "string", "x-formflow": {"sensitive": true, "colour": "red"}},
    "locked": {"type": "string", "x-formflow-disabled": "yes"},
    "broken": {"type": "string", "x-formflow": true},
    "fine": {"type": "string", "x-formflow-password": true, "x-other": 1}
  }
}`)
	result := LintSchema(context.Background(), nil, raw, JSONSchemaValidationOptions{})
	if result.Valid {
		t.Fatalf("expected schema to be invalid")
	}

	got := make(map[string]string, len(result.Issues))
	for _, issue := range result.Issues {
		got[issue.Field] = issue.Message
	}
	want := map[string]string{
		"broken": "x-formflow must be an object, found bool",
		"locked": `value for "disabled" must be a boolean (got string)`,
		"token":  `unsupported x-formflow key "colour" (supported: disabled, password, sensitive)`,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
}
