package jsonschema

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/schema"
)

func TestParse_JSONAndYAMLAgree(t *testing.T) {
	fromJSON, err := Parse([]byte(`{"type":"object","properties":{"name":{"type":"string","minLength":2}},"required":["name"]}`))
	if err != nil {
		t.Fatalf("parse json: %v", err)
	}
	fromYAML, err := Parse([]byte(`
type: object
properties:
  name:
    type: string
    minLength: 2.0
required: [name]
`))
	if err != nil {
		t.Fatalf("parse yaml: %v", err)
	}
	if diff := cmp.Diff(fromJSON, fromYAML); diff != "" {
		t.Fatalf("json and yaml disagree (-json +yaml):\n%s", diff)
	}
}

func TestParse_RejectsEmptyAndScalarDocuments(t *testing.T) {
	if _, err := Parse(nil); err == nil {
		t.Fatalf("expected error for empty document")
	}
	if _, err := Parse([]byte("- a\n- b\n")); err == nil {
		t.Fatalf("expected error for non-object root")
	}
}

func TestParseDocument_IncludesLocationInErrors(t *testing.T) {
	doc := schema.MustNewDocument(schema.SourceFromFS("broken.json"), []byte(`{"type":`))
	_, err := ParseDocument(doc)
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := err.Error(); !strings.Contains(got, "broken.json") {
		t.Fatalf("expected location in error, got %q", got)
	}
}
