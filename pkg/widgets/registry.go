package widgets

import (
	"strings"

	"github.com/samber/lo"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/rules"
)

// Component identifies the UI widget that renders a field. Renderers map
// these names to concrete implementations.
type Component string

// Built-in component identifiers.
const (
	ComponentText        Component = "text"
	ComponentTextarea    Component = "textarea"
	ComponentMarkdown    Component = "markdown"
	ComponentPassword    Component = "password"
	ComponentNumber      Component = "number"
	ComponentInteger     Component = "integer"
	ComponentCheckbox    Component = "checkbox"
	ComponentSelect      Component = "select"
	ComponentMultiSelect Component = "multiselect"
	ComponentDate        Component = "date"
	ComponentDateTime    Component = "datetime"
	ComponentHidden      Component = "hidden"
	ComponentLabel       Component = "label"
	ComponentDivider     Component = "divider"
	ComponentObject      Component = "object"
	ComponentArray       Component = "array"
)

// DefaultRuleName names the fallback returned when no rule matches.
const DefaultRuleName = "default"

// ValidatorFactory builds the leaf validation rule for a field.
type ValidatorFactory func(field model.Field) rules.Rule

// Rule pairs a field predicate with the component that renders matching
// fields. Uncontrolled components manage their children's bindings
// themselves and are left out of the flat validation object.
type Rule struct {
	Name       string
	Match      func(field model.Field) bool
	Component  Component
	Controlled bool
	Validator  ValidatorFactory
}

// Match is the outcome of matching one field.
type Match struct {
	Rule       string
	Component  Component
	Controlled bool
	Validator  ValidatorFactory
}

// Extender receives a fresh copy of the default rule list and returns the
// list to evaluate.
type Extender func(defaults []Rule) []Rule

// Matcher resolves fields against an ordered rule list. The first matching
// rule wins. A Matcher is immutable and safe for concurrent use.
type Matcher struct {
	defaults []Rule
	extender Extender
}

// Option customises a Matcher.
type Option func(*Matcher)

// WithExtender applies ext on every Match call.
func WithExtender(ext Extender) Option {
	return func(m *Matcher) {
		m.extender = ext
	}
}

// WithRules replaces the built-in rule list.
func WithRules(list []Rule) Option {
	return func(m *Matcher) {
		m.defaults = append([]Rule(nil), list...)
	}
}

// NewMatcher constructs a matcher over the built-in rules.
func NewMatcher(options ...Option) *Matcher {
	m := &Matcher{defaults: DefaultRules()}
	for _, opt := range options {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Rules returns the rule list Match evaluates, extender applied.
func (m *Matcher) Rules() []Rule {
	return m.rules(nil)
}

// Match returns the first rule matching field, or the text input fallback
// validated as a string.
func (m *Matcher) Match(field model.Field) Match {
	return m.MatchWith(field, nil)
}

// MatchWith behaves like Match and additionally applies ext after the
// matcher's own extender. Nothing is cached between calls.
func (m *Matcher) MatchWith(field model.Field, ext Extender) Match {
	for _, rule := range m.rules(ext) {
		if rule.Match != nil && rule.Match(field) {
			return Match{
				Rule:       rule.Name,
				Component:  rule.Component,
				Controlled: rule.Controlled,
				Validator:  rule.Validator,
			}
		}
	}
	return Match{Rule: DefaultRuleName, Component: ComponentText, Controlled: true, Validator: StringValidator}
}

func (m *Matcher) rules(ext Extender) []Rule {
	var list []Rule
	if m == nil {
		list = DefaultRules()
	} else {
		list = append([]Rule(nil), m.defaults...)
		if m.extender != nil {
			list = m.extender(list)
		}
	}
	if ext != nil {
		list = ext(append([]Rule(nil), list...))
	}
	return list
}

// Prepend returns an extender evaluating extra before the defaults.
func Prepend(extra ...Rule) Extender {
	return func(defaults []Rule) []Rule {
		return append(append([]Rule(nil), extra...), defaults...)
	}
}

// Append returns an extender evaluating extra after the defaults.
func Append(extra ...Rule) Extender {
	return func(defaults []Rule) []Rule {
		return append(defaults, extra...)
	}
}

// Without returns an extender dropping the named rules.
func Without(names ...string) Extender {
	return func(defaults []Rule) []Rule {
		return lo.Filter(defaults, func(rule Rule, _ int) bool {
			return !lo.Contains(names, rule.Name)
		})
	}
}

// Chain composes extenders left to right.
func Chain(exts ...Extender) Extender {
	return func(defaults []Rule) []Rule {
		out := defaults
		for _, ext := range exts {
			if ext != nil {
				out = ext(out)
			}
		}
		return out
	}
}

// DefaultRules returns a fresh copy of the built-in rule list.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:      "divider",
			Match:     formatIs("divider"),
			Component: ComponentDivider,
		},
		{
			Name: "label",
			Match: func(field model.Field) bool {
				return field.Type == model.FieldTypeNull || formatIs("label")(field)
			},
			Component: ComponentLabel,
		},
		{
			Name:       "hidden",
			Match:      formatIs("hidden"),
			Component:  ComponentHidden,
			Controlled: true,
		},
		{
			Name:       "checkbox",
			Match:      typeIs(model.FieldTypeBoolean),
			Component:  ComponentCheckbox,
			Controlled: true,
			Validator:  BooleanValidator,
		},
		{
			Name: "password",
			Match: func(field model.Field) bool {
				return field.Type != model.FieldTypeObject && field.Type != model.FieldTypeArray &&
					(field.Attributes.Password || formatIs("password")(field))
			},
			Component:  ComponentPassword,
			Controlled: true,
			Validator:  StringValidator,
		},
		{
			Name:       "markdown",
			Match:      formatIs("markdown"),
			Component:  ComponentMarkdown,
			Controlled: true,
			Validator:  StringValidator,
		},
		{
			Name:       "textarea",
			Match:      formatIs("textarea"),
			Component:  ComponentTextarea,
			Controlled: true,
			Validator:  StringValidator,
		},
		{
			Name: "select",
			Match: func(field model.Field) bool {
				return len(field.Options) > 0 &&
					field.Type != model.FieldTypeArray && field.Type != model.FieldTypeObject
			},
			Component:  ComponentSelect,
			Controlled: true,
			Validator:  EnumValidator,
		},
		{
			Name:       "date",
			Match:      formatIs("date"),
			Component:  ComponentDate,
			Controlled: true,
			Validator:  DateValidator,
		},
		{
			Name:       "datetime",
			Match:      formatIs("date-time"),
			Component:  ComponentDateTime,
			Controlled: true,
			Validator:  DateTimeValidator,
		},
		{
			Name:       "integer",
			Match:      typeIs(model.FieldTypeInteger),
			Component:  ComponentInteger,
			Controlled: true,
			Validator:  NumberValidator,
		},
		{
			Name:       "number",
			Match:      typeIs(model.FieldTypeNumber),
			Component:  ComponentNumber,
			Controlled: true,
			Validator:  NumberValidator,
		},
		{
			Name: "multiselect",
			Match: func(field model.Field) bool {
				return field.Type == model.FieldTypeArray && field.ArrayItem != nil && len(field.ArrayItem.Options) > 0
			},
			Component:  ComponentMultiSelect,
			Controlled: true,
		},
		{
			Name:      "array",
			Match:     typeIs(model.FieldTypeArray),
			Component: ComponentArray,
		},
		{
			Name:      "object",
			Match:     typeIs(model.FieldTypeObject),
			Component: ComponentObject,
		},
	}
}

func typeIs(fieldType model.FieldType) func(model.Field) bool {
	return func(field model.Field) bool {
		return field.Type == fieldType
	}
}

func formatIs(format string) func(model.Field) bool {
	return func(field model.Field) bool {
		return strings.EqualFold(strings.TrimSpace(field.Format), format)
	}
}
