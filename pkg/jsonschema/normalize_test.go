package jsonschema

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/schema"
)

func TestNormalize_AllOfMergesLeftToRightWithRootPrecedence(t *testing.T) {
	cases := []struct {
		name     string
		branches []any
		root     schema.Node
		want     schema.Node
	}{
		{
			name:     "single branch",
			branches: []any{map[string]any{"type": "string", "title": "Branch"}},
			root:     schema.Node{"title": "Root"},
			want:     schema.Node{"type": "string", "title": "Root"},
		},
		{
			name: "later branch overrides earlier",
			branches: []any{
				map[string]any{"type": "string", "format": "email", "minLength": 1.0},
				map[string]any{"format": "uri"},
			},
			root: schema.Node{},
			want: schema.Node{"type": "string", "format": "uri", "minLength": 1.0},
		},
		{
			name: "root wins over every branch",
			branches: []any{
				map[string]any{"title": "A", "description": "a"},
				map[string]any{"title": "B"},
				map[string]any{"title": "C", "default": "c"},
			},
			root: schema.Node{"title": "Root", "default": "root"},
			want: schema.Node{"title": "Root", "description": "a", "default": "root"},
		},
	}

	normalizer := NewNormalizer()
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			node := schema.Clone(tc.root)
			node[schema.KeyAllOf] = tc.branches

			result := normalizer.Normalize(node)
			if diff := cmp.Diff(tc.want, result.Schema); diff != "" {
				t.Fatalf("normalize mismatch (-want +got):\n%s", diff)
			}
			if len(result.Warnings) != 0 {
				t.Fatalf("expected no warnings, got %#v", result.Warnings)
			}
		})
	}
}

func TestNormalize_NullableWrapperEitherOrder(t *testing.T) {
	integer := map[string]any{"type": "integer", "minimum": 1.0}
	null := map[string]any{"type": "null"}

	for _, keyword := range []string{schema.KeyAnyOf, schema.KeyOneOf} {
		for name, branches := range map[string][]any{
			"value first": {integer, null},
			"null first":  {null, integer},
		} {
			t.Run(keyword+" "+name, func(t *testing.T) {
				node := schema.Node{keyword: branches, "title": "Age"}
				result := NewNormalizer().Normalize(node)

				if !result.Nullable {
					t.Fatalf("expected nullable result")
				}
				if len(result.Warnings) != 0 {
					t.Fatalf("expected no warnings, got %#v", result.Warnings)
				}
				got := schema.Clone(result.Schema)
				if got[schema.KeyNullable] != true {
					t.Fatalf("expected nullable flag on node, got %#v", got)
				}
				delete(got, schema.KeyNullable)
				want := schema.Node{"type": "integer", "minimum": 1.0, "title": "Age"}
				if diff := cmp.Diff(want, got); diff != "" {
					t.Fatalf("normalize mismatch (-want +got):\n%s", diff)
				}
			})
		}
	}
}

func TestNormalize_MultipleBranchesWarnsOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	normalizer := NewNormalizer(WithLogger(logger))

	cases := map[string][]any{
		"two values": {
			map[string]any{"type": "string"},
			map[string]any{"type": "integer"},
		},
		"two values and null": {
			map[string]any{"type": "string"},
			map[string]any{"type": "integer"},
			map[string]any{"type": "null"},
		},
	}

	for name, branches := range cases {
		t.Run(name, func(t *testing.T) {
			buf.Reset()
			result := normalizer.Normalize(schema.Node{schema.KeyOneOf: branches})
			if len(result.Warnings) != 1 {
				t.Fatalf("expected exactly one warning, got %#v", result.Warnings)
			}
			if result.Warnings[0].Code != WarningMultipleBranches {
				t.Fatalf("unexpected warning code %q", result.Warnings[0].Code)
			}
			if got := result.Schema["type"]; got != "string" {
				t.Fatalf("expected branch 0 to win, got type %v", got)
			}
			if strings.Count(buf.String(), "level=WARN") != 1 {
				t.Fatalf("expected one logged warning, got:\n%s", buf.String())
			}
		})
	}
}

func TestNormalize_AllOfWithUnionWarns(t *testing.T) {
	node := schema.Node{
		schema.KeyAllOf: []any{map[string]any{"type": "string"}},
		schema.KeyAnyOf: []any{map[string]any{"type": "integer"}},
	}
	result := NewNormalizer().Normalize(node)
	if len(result.Warnings) != 1 || result.Warnings[0].Code != WarningUnsupportedCombination {
		t.Fatalf("expected unsupported combination warning, got %#v", result.Warnings)
	}
	if diff := cmp.Diff(schema.Node{"type": "string"}, result.Schema); diff != "" {
		t.Fatalf("allOf should apply and anyOf be ignored (-want +got):\n%s", diff)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	normalizer := NewNormalizer()
	node := schema.Node{
		"title": "Price",
		schema.KeyAnyOf: []any{
			map[string]any{schema.KeyAllOf: []any{
				map[string]any{"type": "number"},
				map[string]any{"minimum": 0.0},
			}},
			map[string]any{"type": "null"},
		},
	}
	once := normalizer.Normalize(node)
	twice := normalizer.Normalize(once.Schema)
	if diff := cmp.Diff(once.Schema, twice.Schema); diff != "" {
		t.Fatalf("normalize is not idempotent (-once +twice):\n%s", diff)
	}
	if schema.HasCombinator(once.Schema) {
		t.Fatalf("combinators left behind: %#v", once.Schema)
	}
	if !twice.Nullable {
		t.Fatalf("nullability lost on second pass")
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	node := schema.Node{
		"title":         "Name",
		schema.KeyOneOf: []any{map[string]any{"type": "string"}, map[string]any{"type": "null"}},
	}
	before := schema.DeepClone(node)
	NewNormalizer().Normalize(node)
	if diff := cmp.Diff(before, node); diff != "" {
		t.Fatalf("input mutated (-before +after):\n%s", diff)
	}
}

func TestNormalizeTree_FlattensNestedNodes(t *testing.T) {
	node := schema.Node{
		"type": "object",
		"properties": map[string]any{
			"age": map[string]any{"anyOf": []any{
				map[string]any{"type": "integer"},
				map[string]any{"type": "null"},
			}},
			"tags": map[string]any{
				"type":  "array",
				"items": map[string]any{"allOf": []any{map[string]any{"type": "string"}}},
			},
		},
	}
	result := NewNormalizer().NormalizeTree(node)

	age := schema.Map(schema.Map(result.Schema, "properties"), "age")
	if age["type"] != "integer" || age[schema.KeyNullable] != true {
		t.Fatalf("age not flattened: %#v", age)
	}
	items := schema.Map(schema.Map(schema.Map(result.Schema, "properties"), "tags"), "items")
	if diff := cmp.Diff(schema.Node{"type": "string"}, items); diff != "" {
		t.Fatalf("items not flattened (-want +got):\n%s", diff)
	}
}
