package session

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSetPath(t *testing.T) {
	values := map[string]any{}
	steps := []struct {
		path  string
		value any
	}{
		{"name", "Ada"},
		{"address.city", "London"},
		{"people.1.name", "Bob"},
		{"matrix.0.2", 3.0},
		{"address.zip", "N1"},
	}
	for _, step := range steps {
		if err := setPath(values, step.path, step.value); err != nil {
			t.Fatalf("set %s: %v", step.path, err)
		}
	}

	want := map[string]any{
		"name":    "Ada",
		"address": map[string]any{"city": "London", "zip": "N1"},
		"people":  []any{nil, map[string]any{"name": "Bob"}},
		"matrix":  []any{[]any{nil, nil, 3.0}},
	}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Fatalf("values (-want +got):\n%s", diff)
	}

	got, ok := getPath(values, "people.1.name")
	if !ok || got != "Bob" {
		t.Fatalf("get people.1.name: %v %v", got, ok)
	}
	if _, ok := getPath(values, "people.5.name"); ok {
		t.Fatalf("out of range index must miss")
	}
}

func TestSetPath_Errors(t *testing.T) {
	values := map[string]any{"list": []any{"a"}}
	if err := setPath(values, "list.name", "x"); err == nil {
		t.Fatalf("expected error writing a key into a list")
	}
	if err := setPath(values, "list.-1", "x"); err == nil {
		t.Fatalf("expected error for negative index")
	}
	if err := setPath(values, "", "x"); err == nil {
		t.Fatalf("expected error for empty id")
	}
}
