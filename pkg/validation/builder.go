package validation

import (
	"errors"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/rules"
	"github.com/goliatone/go-formflow/pkg/widgets"
)

// Build derives the rule tree for a compiled field map. Each level is keyed
// by the last id segment so the tree mirrors the nested value shape. An
// empty map yields rules.Any().
//
// Uncontrolled fields without properties or an item template are omitted.
// Objects ignore keys they do not declare.
func Build(fields model.FieldMap, matcher *widgets.Matcher) rules.Rule {
	if len(fields) == 0 {
		return rules.Any()
	}
	if matcher == nil {
		matcher = widgets.NewMatcher()
	}
	shape := make(map[string]rules.Rule, len(fields))
	for _, field := range fields.Fields() {
		rule, ok := fieldRule(field, matcher)
		if !ok {
			continue
		}
		shape[field.Key()] = rule
	}
	return rules.Object(shape)
}

// BuildField derives the rule for a single field, modifiers included. ok is
// false when the field does not take part in validation.
func BuildField(field model.Field, matcher *widgets.Matcher) (rules.Rule, bool) {
	if matcher == nil {
		matcher = widgets.NewMatcher()
	}
	return fieldRule(field, matcher)
}

func fieldRule(field model.Field, matcher *widgets.Matcher) (rules.Rule, bool) {
	match := matcher.Match(field)
	if !match.Controlled && len(field.Properties) == 0 && field.ArrayItem == nil {
		return nil, false
	}

	var rule rules.Rule
	switch field.Type {
	case model.FieldTypeObject:
		rule = Build(field.Properties, matcher)
	case model.FieldTypeArray:
		rule = arrayRule(field, matcher)
	default:
		if match.Validator != nil {
			rule = match.Validator(field)
		} else {
			rule = widgets.TypeValidator(field)
		}
	}

	if field.Validations.IsNullable {
		rule = rules.Nullable(rule)
	}
	if !field.Required {
		rule = rules.Optional(rule)
	}
	return rule, true
}

func arrayRule(field model.Field, matcher *widgets.Matcher) rules.Rule {
	element := rules.Any()
	if field.ArrayItem != nil {
		if itemRule, ok := fieldRule(*field.ArrayItem, matcher); ok {
			element = itemRule
		}
	}
	array := rules.Array(element)
	if v := field.Validations.MinItems; v != nil {
		array.Min(*v)
	}
	if v := field.Validations.MaxItems; v != nil {
		array.Max(*v)
	}
	if field.Validations.UniqueItems {
		return rules.Refine(array, rules.UniqueItems())
	}
	return array
}

// FieldErrors maps the issues of a validation error to field ids. Ids of
// array entries carry the entry index. The first message per id wins. Errors
// that are not validation errors yield nil.
func FieldErrors(err error) map[string]string {
	var verr *rules.ValidationError
	if !errors.As(err, &verr) {
		return nil
	}
	return verr.ByPath()
}

// Validate checks values against the rules derived from fields and returns
// the failures keyed by field id.
func Validate(fields model.FieldMap, matcher *widgets.Matcher, values map[string]any) map[string]string {
	var payload any = values
	if values == nil {
		payload = map[string]any{}
	}
	return FieldErrors(rules.Validate(Build(fields, matcher), payload))
}
