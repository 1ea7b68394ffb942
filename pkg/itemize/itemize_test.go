package itemize

import (
	"errors"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/schema"
)

func compileField(t *testing.T, key string, node map[string]any) model.Field {
	t.Helper()
	fields := model.NewBuilder().Compile(schema.Node{
		"properties": map[string]any{key: node},
	}, model.Labels{}, nil, "")
	return fields[key]
}

func peopleField(t *testing.T) model.Field {
	return compileField(t, "people", map[string]any{
		"type": "array",
		"items": map[string]any{
			"type":     "object",
			"required": []any{"name"},
			"properties": map[string]any{
				"name":   map[string]any{"type": "string", "enum": []any{"a", "b"}},
				"emails": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
		},
	})
}

func mustItemize(t *testing.T, index int, template model.Field, parentPath string) model.Field {
	t.Helper()
	item, err := Itemize(index, template, parentPath)
	if err != nil {
		t.Fatalf("itemize %d: %v", index, err)
	}
	return item
}

func TestItemize_IDFormula(t *testing.T) {
	template := *peopleField(t).ArrayItem
	for _, idx := range []int{0, 1, 7, 42} {
		got := mustItemize(t, idx, template, "people")
		if want := "people." + strconv.Itoa(idx); got.ID != want {
			t.Fatalf("want %q got %q", want, got.ID)
		}
	}
	if got := mustItemize(t, 3, template, "").ID; got != "3" {
		t.Fatalf("root parent: got %q", got)
	}
}

func TestItemize_RejectsNegativeIndex(t *testing.T) {
	template := *peopleField(t).ArrayItem
	if _, err := Itemize(-1, template, "people"); !errors.Is(err, ErrNegativeIndex) {
		t.Fatalf("expected ErrNegativeIndex, got %v", err)
	}
}

func TestItemize_DoesNotMutateTemplate(t *testing.T) {
	template := *peopleField(t).ArrayItem
	before := *peopleField(t).ArrayItem

	item := mustItemize(t, 0, template, "people")
	item.Properties["name"].Options[0].Label = "changed"
	item.Properties["emails"].ArrayItem.ID = "changed"
	item.Properties["emails"].ArrayItem.Validations.IsNullable = true
	item.Properties["name"] = model.Field{ID: "changed"}
	_ = Reparent(template)

	if diff := cmp.Diff(before, template); diff != "" {
		t.Fatalf("template mutated (-before +after):\n%s", diff)
	}
}

func TestItemize_LazyOneLevel(t *testing.T) {
	item := mustItemize(t, 2, *peopleField(t).ArrayItem, "people")
	if got := item.Properties["name"].ID; got != "people.*.name" {
		t.Fatalf("nested ids must stay relative to the template until reparented, got %q", got)
	}

	level := Reparent(item)
	if got := level.Properties["name"].ID; got != "people.2.name" {
		t.Fatalf("reparented id: got %q", got)
	}
	emails := level.Properties["emails"]
	if emails.ID != "people.2.emails" {
		t.Fatalf("reparented array id: got %q", emails.ID)
	}
	if got := emails.ArrayItem.ID; got != "people.*.emails.*" {
		t.Fatalf("deeper template must be untouched, got %q", got)
	}
	if got := mustItemize(t, 0, *emails.ArrayItem, emails.ID).ID; got != "people.2.emails.0" {
		t.Fatalf("inner itemization: got %q", got)
	}
}

func TestItemize_ArrayOfArrays(t *testing.T) {
	matrix := compileField(t, "matrix", map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "array", "items": map[string]any{"type": "number"}},
	})

	row, ok := Template(matrix)
	if !ok {
		t.Fatalf("expected template")
	}
	outer := mustItemize(t, 1, row, matrix.ID)
	if outer.ID != "matrix.1" {
		t.Fatalf("outer id: %q", outer.ID)
	}
	if outer.ArrayItem.ID != "matrix.*.*" {
		t.Fatalf("inner template must be deferred, got %q", outer.ArrayItem.ID)
	}
	cell := mustItemize(t, 3, *outer.ArrayItem, outer.ID)
	if cell.ID != "matrix.1.3" || cell.Type != model.FieldTypeNumber {
		t.Fatalf("cell: %+v", cell)
	}
}

func TestItems(t *testing.T) {
	template := *peopleField(t).ArrayItem
	got := Items(template, "people", 3)
	ids := make([]string, 0, len(got))
	for _, field := range got {
		ids = append(ids, field.ID)
	}
	if diff := cmp.Diff([]string{"people.0", "people.1", "people.2"}, ids); diff != "" {
		t.Fatalf("ids (-want +got):\n%s", diff)
	}
	if Items(template, "people", 0) != nil {
		t.Fatalf("expected nil for zero items")
	}
	if _, ok := Template(model.Field{Type: model.FieldTypeString}); ok {
		t.Fatalf("scalar fields have no template")
	}
}
