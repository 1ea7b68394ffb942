package session

import (
	"strings"

	"github.com/goliatone/go-formflow/pkg/model"
)

// FieldError is a rejection attached to one field, with the value that was
// rejected.
type FieldError struct {
	Value   any    `json:"value,omitempty"`
	Message string `json:"message"`
}

var formLevelKeys = map[string]struct{}{
	RootLocation:       {},
	"__all__":          {},
	"non_field_errors": {},
}

var wrapperSegments = map[string]struct{}{
	"body":    {},
	"request": {},
	"payload": {},
}

// MapValidationErrors splits backend validation errors into field errors,
// keyed by the first location segment, and form-level messages. Errors
// addressing a field the form does not contain are kept as form errors so the
// message is not lost. The first message per field wins.
func MapValidationErrors(fields model.FieldMap, errs []ValidationError) (map[string]FieldError, []string) {
	fieldErrors := make(map[string]FieldError)
	var formErrors []string

	for _, verr := range errs {
		message := strings.TrimSpace(verr.Msg)
		if message == "" {
			continue
		}
		key, formLevel := errorKey(fields, verr.Loc)
		if !formLevel && fields != nil {
			if _, known := fields[key]; !known {
				formLevel = true
			}
		}
		if formLevel {
			formErrors = append(formErrors, message)
			continue
		}
		if _, exists := fieldErrors[key]; exists {
			continue
		}
		fieldErrors[key] = FieldError{Value: verr.Input, Message: message}
	}
	return fieldErrors, mergeMessages(nil, formErrors...)
}

// errorKey strips transport wrappers such as "body" from the front of loc,
// unless the form has a field of that name.
func errorKey(fields model.FieldMap, loc Location) (string, bool) {
	segments := loc
	for len(segments) > 1 {
		if _, wrapper := wrapperSegments[strings.ToLower(segments[0])]; !wrapper {
			break
		}
		if _, isField := fields[strings.TrimSpace(segments[0])]; isField {
			break
		}
		segments = segments[1:]
	}
	if len(segments) == 0 {
		return "", true
	}
	key := strings.TrimSpace(segments[0])
	if key == "" {
		return "", true
	}
	if _, ok := formLevelKeys[key]; ok {
		return "", true
	}
	return key, false
}

// mergeMessages appends extras to existing, trimming whitespace and dropping
// duplicates while preserving order.
func mergeMessages(existing []string, extras ...string) []string {
	seen := make(map[string]struct{}, len(existing)+len(extras))
	var out []string
	for _, message := range append(append([]string(nil), existing...), extras...) {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
