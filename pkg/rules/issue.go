package rules

import (
	"fmt"
	"strings"
)

// Code classifies a validation issue.
type Code string

const (
	CodeInvalidType      Code = "invalid_type"
	CodeRequired         Code = "required"
	CodeTooSmall         Code = "too_small"
	CodeTooBig           Code = "too_big"
	CodeInvalidString    Code = "invalid_string"
	CodeNotMultipleOf    Code = "not_multiple_of"
	CodeInvalidEnumValue Code = "invalid_enum_value"
	CodeUnrecognizedKeys Code = "unrecognized_keys"
	CodeNotUnique        Code = "not_unique"
	CodeCustom           Code = "custom"
)

// Issue is one failed check.
type Issue struct {
	Code    Code     `json:"code"`
	Path    []string `json:"path"`
	Message string   `json:"message"`
	// Fatal marks refinements that stopped the remaining refinements of the
	// same value from running.
	Fatal bool `json:"fatal,omitempty"`
}

// DottedPath joins the issue path with ".".
func (i Issue) DottedPath() string {
	return strings.Join(i.Path, ".")
}

func (i Issue) String() string {
	if len(i.Path) == 0 {
		return i.Message
	}
	return i.DottedPath() + ": " + i.Message
}

// ValidationError carries every issue found by Validate.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Issues) == 0 {
		return "rules: validation failed"
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.String())
	}
	return fmt.Sprintf("rules: %d issue(s): %s", len(e.Issues), strings.Join(parts, "; "))
}

// ByPath groups issue messages by dotted path. The first message per path
// wins.
func (e *ValidationError) ByPath() map[string]string {
	out := make(map[string]string)
	if e == nil {
		return out
	}
	for _, issue := range e.Issues {
		key := issue.DottedPath()
		if _, exists := out[key]; !exists {
			out[key] = issue.Message
		}
	}
	return out
}

// Validate checks value against rule and returns nil or a *ValidationError.
func Validate(rule Rule, value any) error {
	if rule == nil {
		return nil
	}
	issues := rule.Check(nil, value)
	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: issues}
}

func issueAt(path []string, code Code, format string, args ...any) Issue {
	return Issue{
		Code:    code,
		Path:    append([]string(nil), path...),
		Message: fmt.Sprintf(format, args...),
	}
}

func childPath(path []string, segment string) []string {
	out := make([]string, len(path)+1)
	copy(out, path)
	out[len(path)] = segment
	return out
}
