package widgets

import (
	"time"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/rules"
)

// TypeValidator builds the leaf rule implied by the field type alone. It is
// used when the matched rule carries no factory. Untyped fields only need a
// value to be present.
func TypeValidator(field model.Field) rules.Rule {
	switch field.Type {
	case model.FieldTypeString:
		return StringValidator(field)
	case model.FieldTypeNumber, model.FieldTypeInteger:
		return NumberValidator(field)
	case model.FieldTypeBoolean:
		return BooleanValidator(field)
	default:
		return rules.Present()
	}
}

// StringValidator applies length and pattern constraints. A pattern that
// does not compile is skipped.
func StringValidator(field model.Field) rules.Rule {
	rule := rules.String()
	v := field.Validations
	if v.MinLength != nil {
		rule.Min(*v.MinLength)
	}
	if v.MaxLength != nil {
		rule.Max(*v.MaxLength)
	}
	if v.Pattern != "" {
		if withPattern, err := rule.Pattern(v.Pattern); err == nil {
			rule = withPattern
		}
	}
	return rule
}

// NumberValidator applies numeric bounds. Integer fields reject fractions.
func NumberValidator(field model.Field) rules.Rule {
	rule := rules.Number()
	if field.Type == model.FieldTypeInteger {
		rule = rules.Integer()
	}
	v := field.Validations
	if v.Minimum != nil {
		rule.Min(*v.Minimum)
	}
	if v.Maximum != nil {
		rule.Max(*v.Maximum)
	}
	if v.ExclusiveMinimum != nil {
		rule.GreaterThan(*v.ExclusiveMinimum)
	}
	if v.ExclusiveMaximum != nil {
		rule.LessThan(*v.ExclusiveMaximum)
	}
	if v.MultipleOf != nil {
		rule.MultipleOf(*v.MultipleOf)
	}
	return rule
}

// BooleanValidator accepts true and false.
func BooleanValidator(model.Field) rules.Rule {
	return rules.Boolean()
}

// EnumValidator accepts the values of the field's options.
func EnumValidator(field model.Field) rules.Rule {
	values := make([]any, 0, len(field.Options))
	for _, option := range field.Options {
		values = append(values, option.Value)
	}
	return rules.Enum(values...)
}

// DateValidator accepts calendar dates in YYYY-MM-DD form.
func DateValidator(field model.Field) rules.Rule {
	return layoutValidator(field, time.DateOnly, "Invalid date")
}

// DateTimeValidator accepts RFC 3339 timestamps.
func DateTimeValidator(field model.Field) rules.Rule {
	return layoutValidator(field, time.RFC3339, "Invalid datetime")
}

func layoutValidator(field model.Field, layout, message string) rules.Rule {
	return rules.Refine(StringValidator(field), rules.Refinement{
		Code:    rules.CodeInvalidString,
		Message: message,
		Valid: func(value any) bool {
			str, _ := value.(string)
			_, err := time.Parse(layout, str)
			return err == nil
		},
	})
}
