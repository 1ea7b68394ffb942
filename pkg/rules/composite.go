package rules

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/samber/lo"
)

// ObjectRule checks map values against a fixed set of keys.
type ObjectRule struct {
	shape  map[string]Rule
	strict bool
}

// Object returns a rule checking every key of shape. Keys missing from the
// value are checked as Undefined; extra keys are ignored unless Strict is set.
func Object(shape map[string]Rule) *ObjectRule {
	copied := make(map[string]Rule, len(shape))
	for key, rule := range shape {
		copied[key] = rule
	}
	return &ObjectRule{shape: copied}
}

// Strict rejects keys that are not part of the shape.
func (r *ObjectRule) Strict() *ObjectRule {
	r.strict = true
	return r
}

// Shape returns the rule for key.
func (r *ObjectRule) Shape(key string) (Rule, bool) {
	rule, ok := r.shape[key]
	return rule, ok
}

// Keys returns the declared keys in lexical order.
func (r *ObjectRule) Keys() []string {
	keys := lo.Keys(r.shape)
	sort.Strings(keys)
	return keys
}

func (r *ObjectRule) Check(path []string, value any) []Issue {
	if issues := presence(path, value, "object"); issues != nil {
		return issues
	}
	object, ok := asObject(value)
	if !ok {
		return invalidType(path, "object", value)
	}

	var issues []Issue
	for _, key := range r.Keys() {
		child, present := object[key]
		if !present {
			child = Undefined
		}
		issues = append(issues, r.shape[key].Check(childPath(path, key), child)...)
	}
	if r.strict {
		var extra []string
		for key := range object {
			if _, declared := r.shape[key]; !declared {
				extra = append(extra, key)
			}
		}
		if len(extra) > 0 {
			sort.Strings(extra)
			issues = append(issues, issueAt(path, CodeUnrecognizedKeys, "Unrecognized key(s) in object: '%s'", strings.Join(extra, "', '")))
		}
	}
	return issues
}

func asObject(value any) (map[string]any, bool) {
	if object, ok := value.(map[string]any); ok {
		return object, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// ArrayRule checks slice values element by element.
type ArrayRule struct {
	element Rule
	min     *int
	max     *int
}

// Array returns a rule applying element to every entry.
func Array(element Rule) *ArrayRule {
	if element == nil {
		element = Any()
	}
	return &ArrayRule{element: element}
}

// Element returns the rule applied to every entry.
func (r *ArrayRule) Element() Rule { return r.element }

// Min sets the minimum number of entries.
func (r *ArrayRule) Min(n int) *ArrayRule {
	r.min = &n
	return r
}

// Max sets the maximum number of entries.
func (r *ArrayRule) Max(n int) *ArrayRule {
	r.max = &n
	return r
}

func (r *ArrayRule) Check(path []string, value any) []Issue {
	if issues := presence(path, value, "array"); issues != nil {
		return issues
	}
	items, ok := AsSlice(value)
	if !ok {
		return invalidType(path, "array", value)
	}

	var issues []Issue
	if r.min != nil && len(items) < *r.min {
		issues = append(issues, issueAt(path, CodeTooSmall, "Array must contain at least %d element(s)", *r.min))
	}
	if r.max != nil && len(items) > *r.max {
		issues = append(issues, issueAt(path, CodeTooBig, "Array must contain at most %d element(s)", *r.max))
	}
	for idx, item := range items {
		issues = append(issues, r.element.Check(childPath(path, strconv.Itoa(idx)), item)...)
	}
	return issues
}

// AsSlice converts any slice or array value to []any.
func AsSlice(value any) ([]any, bool) {
	if items, ok := value.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for idx := range out {
		out[idx] = rv.Index(idx).Interface()
	}
	return out, true
}

type optionalRule struct{ inner Rule }

// Optional accepts an omitted value and otherwise defers to inner.
func Optional(inner Rule) Rule { return optionalRule{inner: inner} }

func (r optionalRule) Check(path []string, value any) []Issue {
	if IsUndefined(value) {
		return nil
	}
	return r.inner.Check(path, value)
}

type nullableRule struct{ inner Rule }

// Nullable accepts an explicit null and otherwise defers to inner.
func Nullable(inner Rule) Rule { return nullableRule{inner: inner} }

func (r nullableRule) Check(path []string, value any) []Issue {
	if value == nil {
		return nil
	}
	return r.inner.Check(path, value)
}

// Refinement is an extra predicate run after the base rule accepted a value.
type Refinement struct {
	Code    Code
	Message string
	// Fatal stops the refinements that follow when this one fails.
	Fatal bool
	Valid func(value any) bool
}

type refinedRule struct {
	base        Rule
	refinements []Refinement
}

// Refine runs refinements in order once base reports no issue. Omitted and
// null values are left to base.
func Refine(base Rule, refinements ...Refinement) Rule {
	return refinedRule{base: base, refinements: append([]Refinement(nil), refinements...)}
}

func (r refinedRule) Check(path []string, value any) []Issue {
	if issues := r.base.Check(path, value); len(issues) > 0 {
		return issues
	}
	if IsUndefined(value) || value == nil {
		return nil
	}
	var issues []Issue
	for _, refinement := range r.refinements {
		if refinement.Valid == nil || refinement.Valid(value) {
			continue
		}
		code := refinement.Code
		if code == "" {
			code = CodeCustom
		}
		issue := issueAt(path, code, "%s", refinement.Message)
		issue.Fatal = refinement.Fatal
		issues = append(issues, issue)
		if refinement.Fatal {
			break
		}
	}
	return issues
}

// NotUniqueMessage is reported when an array holds duplicate entries.
const NotUniqueMessage = "Items must be unique"

// UniqueItems is a fatal refinement rejecting arrays whose entries, once
// deduplicated by their JSON encoding, shrink in number.
func UniqueItems() Refinement {
	return Refinement{
		Code:    CodeNotUnique,
		Message: NotUniqueMessage,
		Fatal:   true,
		Valid: func(value any) bool {
			items, ok := AsSlice(value)
			if !ok {
				return true
			}
			encoded := lo.Map(items, func(item any, _ int) string {
				raw, err := json.Marshal(item)
				if err != nil {
					return fmt.Sprintf("%#v", item)
				}
				return string(raw)
			})
			return len(lo.Uniq(encoded)) == len(items)
		},
	}
}
