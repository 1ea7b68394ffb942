package widgets

import (
	"testing"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/rules"
)

func TestMatch_Builtins(t *testing.T) {
	matcher := NewMatcher()

	cases := []struct {
		name       string
		field      model.Field
		component  Component
		controlled bool
	}{
		{"boolean", model.Field{Type: model.FieldTypeBoolean}, ComponentCheckbox, true},
		{"password attribute", model.Field{Type: model.FieldTypeString, Attributes: model.Attributes{Password: true}}, ComponentPassword, true},
		{"textarea", model.Field{Type: model.FieldTypeString, Format: "textarea"}, ComponentTextarea, true},
		{"markdown", model.Field{Type: model.FieldTypeString, Format: "markdown"}, ComponentMarkdown, true},
		{"select", model.Field{Type: model.FieldTypeString, Options: []model.Option{{Value: "a", Label: "a"}}}, ComponentSelect, true},
		{"date", model.Field{Type: model.FieldTypeString, Format: "date"}, ComponentDate, true},
		{"datetime", model.Field{Type: model.FieldTypeString, Format: "date-time"}, ComponentDateTime, true},
		{"integer", model.Field{Type: model.FieldTypeInteger}, ComponentInteger, true},
		{"number", model.Field{Type: model.FieldTypeNumber}, ComponentNumber, true},
		{"hidden", model.Field{Type: model.FieldTypeString, Format: "hidden"}, ComponentHidden, true},
		{"divider", model.Field{Format: "divider"}, ComponentDivider, false},
		{"null label", model.Field{Type: model.FieldTypeNull}, ComponentLabel, false},
		{
			"multiselect",
			model.Field{Type: model.FieldTypeArray, ArrayItem: &model.Field{Type: model.FieldTypeString, Options: []model.Option{{Value: "x"}}}},
			ComponentMultiSelect, true,
		},
		{"array", model.Field{Type: model.FieldTypeArray, ArrayItem: &model.Field{Type: model.FieldTypeString}}, ComponentArray, false},
		{"object", model.Field{Type: model.FieldTypeObject}, ComponentObject, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := matcher.Match(tc.field)
			if got.Component != tc.component || got.Controlled != tc.controlled {
				t.Fatalf("expected %s/%v, got %s/%v (rule %q)", tc.component, tc.controlled, got.Component, got.Controlled, got.Rule)
			}
		})
	}
}

func TestMatch_DefaultFallback(t *testing.T) {
	got := NewMatcher().Match(model.Field{Type: model.FieldTypeString})
	if got.Rule != DefaultRuleName || got.Component != ComponentText || !got.Controlled || got.Validator == nil {
		t.Fatalf("unexpected fallback %+v", got)
	}
	untyped := model.Field{Type: model.FieldTypeAny}
	fallback := NewMatcher().Match(untyped).Validator(untyped)
	if err := rules.Validate(fallback, 5); err == nil {
		t.Fatalf("fallback must validate as a string")
	}
	if err := rules.Validate(fallback, rules.Undefined); err == nil {
		t.Fatalf("fallback must reject an omitted value")
	}

	empty := NewMatcher(WithRules(nil)).Match(model.Field{Type: model.FieldTypeBoolean})
	if empty.Component != ComponentText {
		t.Fatalf("empty rule list must fall back to text, got %s", empty.Component)
	}
}

func TestMatch_FirstRuleWins(t *testing.T) {
	field := model.Field{Type: model.FieldTypeString, Format: "date", Options: []model.Option{{Value: "2024-01-01"}}}
	if got := NewMatcher().Match(field).Component; got != ComponentSelect {
		t.Fatalf("select is listed before date, got %s", got)
	}
}

func TestMatch_ExtenderAppliedPerCall(t *testing.T) {
	matcher := NewMatcher()
	field := model.Field{Type: model.FieldTypeBoolean}
	toggle := Rule{Name: "toggle", Match: typeIs(model.FieldTypeBoolean), Component: "toggle", Controlled: true}

	if got := matcher.MatchWith(field, Prepend(toggle)).Component; got != "toggle" {
		t.Fatalf("prepend: got %s", got)
	}
	if got := matcher.MatchWith(field, Append(toggle)).Component; got != ComponentCheckbox {
		t.Fatalf("append must not shadow the builtin, got %s", got)
	}
	if got := matcher.MatchWith(field, Without("checkbox")).Component; got != ComponentText {
		t.Fatalf("without: got %s", got)
	}
	if got := matcher.Match(field).Component; got != ComponentCheckbox {
		t.Fatalf("a previous extender leaked into a plain Match, got %s", got)
	}

	calls := 0
	counting := NewMatcher(WithExtender(func(defaults []Rule) []Rule {
		calls++
		return defaults
	}))
	counting.Match(field)
	counting.Match(field)
	if calls != 2 {
		t.Fatalf("extender must run on every call, ran %d times", calls)
	}
}

func TestMatch_ExtenderCannotMutateDefaults(t *testing.T) {
	matcher := NewMatcher(WithExtender(func(defaults []Rule) []Rule {
		defaults[0] = Rule{Name: "everything", Match: func(model.Field) bool { return true }, Component: "x"}
		return defaults
	}))
	matcher.Match(model.Field{})
	if got := matcher.defaults[0].Name; got != "divider" {
		t.Fatalf("defaults mutated through extender: %s", got)
	}
}

func TestValidators(t *testing.T) {
	minLen := 2
	field := model.Field{Type: model.FieldTypeString, Format: "date", Validations: model.Validations{MinLength: &minLen}}
	rule := NewMatcher().Match(field).Validator(field)
	if err := rules.Validate(rule, "2024-02-30"); err == nil {
		t.Fatalf("expected invalid date to fail")
	}
	if err := rules.Validate(rule, "2024-02-28"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	selectField := model.Field{Type: model.FieldTypeInteger, Options: []model.Option{{Value: 1.0}, {Value: 2.0}}}
	enum := NewMatcher().Match(selectField).Validator(selectField)
	if err := rules.Validate(enum, 2); err != nil {
		t.Fatalf("enum must compare numbers by value: %v", err)
	}
	if err := rules.Validate(enum, 3); err == nil {
		t.Fatalf("expected value outside the enum to fail")
	}

	present := TypeValidator(model.Field{Type: model.FieldTypeAny})
	if err := rules.Validate(present, map[string]any{"k": 1}); err != nil {
		t.Fatalf("untyped fields accept any supplied value: %v", err)
	}
	if err := rules.Validate(present, rules.Undefined); err == nil {
		t.Fatalf("untyped fields must still reject an omitted value")
	}
}
