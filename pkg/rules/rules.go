package rules

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"unicode/utf8"
)

type undefined struct{}

func (undefined) String() string { return "undefined" }

// Undefined stands in for a key that is absent from an object value. Object
// rules pass it to the rule of every declared key the value omits.
var Undefined any = undefined{}

// IsUndefined reports whether value is the Undefined sentinel.
func IsUndefined(value any) bool {
	_, ok := value.(undefined)
	return ok
}

// Rule checks one value. path addresses the value inside the submitted
// payload and prefixes every reported issue.
type Rule interface {
	Check(path []string, value any) []Issue
}

// Func adapts a plain function to Rule.
type Func func(path []string, value any) []Issue

func (f Func) Check(path []string, value any) []Issue {
	if f == nil {
		return nil
	}
	return f(path, value)
}

type anyRule struct{}

func (anyRule) Check([]string, any) []Issue { return nil }

// Any accepts every value, including an omitted one.
func Any() Rule { return anyRule{} }

type presentRule struct{}

func (presentRule) Check(path []string, value any) []Issue {
	if IsUndefined(value) {
		return []Issue{issueAt(path, CodeRequired, "Required")}
	}
	return nil
}

// Present accepts any value that was supplied, null included.
func Present() Rule { return presentRule{} }

// IsAny reports whether rule is the permissive rule returned by Any.
func IsAny(rule Rule) bool {
	_, ok := rule.(anyRule)
	return ok
}

func presence(path []string, value any, expected string) []Issue {
	if IsUndefined(value) {
		return []Issue{issueAt(path, CodeRequired, "Required")}
	}
	if value == nil {
		return []Issue{issueAt(path, CodeInvalidType, "Expected %s, received null", expected)}
	}
	return nil
}

func invalidType(path []string, expected string, value any) []Issue {
	return []Issue{issueAt(path, CodeInvalidType, "Expected %s, received %s", expected, TypeName(value))}
}

// StringRule checks string values.
type StringRule struct {
	min     *int
	max     *int
	pattern *regexp.Regexp
}

// String returns a rule accepting any string.
func String() *StringRule { return &StringRule{} }

// Min sets the minimum length in characters.
func (r *StringRule) Min(n int) *StringRule {
	r.min = &n
	return r
}

// Max sets the maximum length in characters.
func (r *StringRule) Max(n int) *StringRule {
	r.max = &n
	return r
}

// Pattern requires the value to match expr. Invalid expressions are ignored
// and reported through the returned error.
func (r *StringRule) Pattern(expr string) (*StringRule, error) {
	if expr == "" {
		return r, nil
	}
	compiled, err := regexp.Compile(expr)
	if err != nil {
		return r, fmt.Errorf("rules: invalid pattern %q: %w", expr, err)
	}
	r.pattern = compiled
	return r, nil
}

func (r *StringRule) Check(path []string, value any) []Issue {
	if issues := presence(path, value, "string"); issues != nil {
		return issues
	}
	str, ok := value.(string)
	if !ok {
		return invalidType(path, "string", value)
	}
	var issues []Issue
	length := utf8.RuneCountInString(str)
	if r.min != nil && length < *r.min {
		issues = append(issues, issueAt(path, CodeTooSmall, "String must contain at least %d character(s)", *r.min))
	}
	if r.max != nil && length > *r.max {
		issues = append(issues, issueAt(path, CodeTooBig, "String must contain at most %d character(s)", *r.max))
	}
	if r.pattern != nil && !r.pattern.MatchString(str) {
		issues = append(issues, issueAt(path, CodeInvalidString, "Invalid"))
	}
	return issues
}

// NumberRule checks numeric values.
type NumberRule struct {
	integer    bool
	min        *float64
	max        *float64
	exclMin    *float64
	exclMax    *float64
	multipleOf *float64
}

// Number returns a rule accepting any finite number.
func Number() *NumberRule { return &NumberRule{} }

// Integer returns a rule accepting whole numbers only.
func Integer() *NumberRule { return &NumberRule{integer: true} }

// Min sets an inclusive lower bound.
func (r *NumberRule) Min(v float64) *NumberRule {
	r.min = &v
	return r
}

// Max sets an inclusive upper bound.
func (r *NumberRule) Max(v float64) *NumberRule {
	r.max = &v
	return r
}

// GreaterThan sets an exclusive lower bound.
func (r *NumberRule) GreaterThan(v float64) *NumberRule {
	r.exclMin = &v
	return r
}

// LessThan sets an exclusive upper bound.
func (r *NumberRule) LessThan(v float64) *NumberRule {
	r.exclMax = &v
	return r
}

// MultipleOf requires the value to be a multiple of step. Non-positive steps
// are ignored.
func (r *NumberRule) MultipleOf(step float64) *NumberRule {
	if step > 0 {
		r.multipleOf = &step
	}
	return r
}

func (r *NumberRule) Check(path []string, value any) []Issue {
	expected := "number"
	if r.integer {
		expected = "integer"
	}
	if issues := presence(path, value, expected); issues != nil {
		return issues
	}
	number, ok := ToFloat(value)
	if !ok || math.IsNaN(number) || math.IsInf(number, 0) {
		return invalidType(path, expected, value)
	}
	if r.integer && number != math.Trunc(number) {
		return invalidType(path, "integer", value)
	}

	var issues []Issue
	if r.min != nil && number < *r.min {
		issues = append(issues, issueAt(path, CodeTooSmall, "Number must be greater than or equal to %v", *r.min))
	}
	if r.exclMin != nil && number <= *r.exclMin {
		issues = append(issues, issueAt(path, CodeTooSmall, "Number must be greater than %v", *r.exclMin))
	}
	if r.max != nil && number > *r.max {
		issues = append(issues, issueAt(path, CodeTooBig, "Number must be less than or equal to %v", *r.max))
	}
	if r.exclMax != nil && number >= *r.exclMax {
		issues = append(issues, issueAt(path, CodeTooBig, "Number must be less than %v", *r.exclMax))
	}
	if r.multipleOf != nil {
		quotient := number / *r.multipleOf
		if math.Abs(quotient-math.Round(quotient)) > 1e-9 {
			issues = append(issues, issueAt(path, CodeNotMultipleOf, "Number must be a multiple of %v", *r.multipleOf))
		}
	}
	return issues
}

type booleanRule struct{}

// Boolean returns a rule accepting true and false.
func Boolean() Rule { return booleanRule{} }

func (booleanRule) Check(path []string, value any) []Issue {
	if issues := presence(path, value, "boolean"); issues != nil {
		return issues
	}
	if _, ok := value.(bool); !ok {
		return invalidType(path, "boolean", value)
	}
	return nil
}

type enumRule struct {
	values []any
}

// Enum returns a rule accepting only the listed values. Numbers compare by
// value regardless of their Go type.
func Enum(values ...any) Rule {
	return enumRule{values: append([]any(nil), values...)}
}

func (r enumRule) Check(path []string, value any) []Issue {
	if IsUndefined(value) {
		return []Issue{issueAt(path, CodeRequired, "Required")}
	}
	for _, candidate := range r.values {
		if Equal(candidate, value) {
			return nil
		}
	}
	return []Issue{issueAt(path, CodeInvalidEnumValue, "Invalid enum value. Expected %s, received '%v'", formatEnum(r.values), value)}
}

func formatEnum(values []any) string {
	out := ""
	for idx, value := range values {
		if idx > 0 {
			out += " | "
		}
		out += fmt.Sprintf("'%v'", value)
	}
	return out
}

// Equal compares two decoded values. Numbers are compared as float64.
func Equal(a, b any) bool {
	if af, ok := ToFloat(a); ok {
		if bf, ok := ToFloat(b); ok {
			return af == bf
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

// ToFloat converts any Go numeric value, or a value exposing Float64 such as
// json.Number, to float64.
func ToFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int8:
		return float64(typed), true
	case int16:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case uint:
		return float64(typed), true
	case uint8:
		return float64(typed), true
	case uint16:
		return float64(typed), true
	case uint32:
		return float64(typed), true
	case uint64:
		return float64(typed), true
	case interface{ Float64() (float64, error) }:
		number, err := typed.Float64()
		return number, err == nil
	}
	return 0, false
}

// TypeName describes the dynamic type of a decoded value the way issue
// messages report it.
func TypeName(value any) string {
	if IsUndefined(value) {
		return "undefined"
	}
	if value == nil {
		return "null"
	}
	if _, ok := ToFloat(value); ok {
		return "number"
	}
	switch reflect.ValueOf(value).Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	default:
		return reflect.TypeOf(value).String()
	}
}
