package model

import (
	"html"
	"strings"
	"sync"

	"github.com/iancoleman/strcase"
	"github.com/microcosm-cc/bluemonday"
)

// DescriptionSuffix is appended to a field key to look up its description in
// a label set.
const DescriptionSuffix = "_info"

// Labels carries display strings and value overrides supplied by the backend
// next to the schema. Both maps are keyed by bare field key.
type Labels struct {
	Labels map[string]string `json:"labels,omitempty"`
	Values map[string]any    `json:"data,omitempty"`
}

// Title returns the sanitized label for key.
func (l Labels) Title(key string) string {
	return sanitizeLabel(l.Labels[key])
}

// Description returns the sanitized "<key>_info" label.
func (l Labels) Description(key string) string {
	return sanitizeLabel(l.Labels[key+DescriptionSuffix])
}

// Value returns the value override for key.
func (l Labels) Value(key string) (any, bool) {
	if l.Values == nil {
		return nil, false
	}
	value, ok := l.Values[key]
	return value, ok
}

// IsZero reports whether the label set is empty.
func (l Labels) IsZero() bool {
	return len(l.Labels) == 0 && len(l.Values) == 0
}

// DefaultLabeler converts a field key into a human-friendly title, splitting
// snake, kebab, and camel case boundaries.
func DefaultLabeler(key string) string {
	words := strings.TrimSpace(strcase.ToDelimited(key, ' '))
	if words == "" {
		return ""
	}
	return strings.ToUpper(words[:1]) + words[1:]
}

var (
	labelPolicyOnce sync.Once
	labelPolicy     *bluemonday.Policy
)

// sanitizeLabel strips markup from label source strings. Labels are plain
// text; the strict policy escapes entities, so they are decoded again.
func sanitizeLabel(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	labelPolicyOnce.Do(func() {
		labelPolicy = bluemonday.StrictPolicy()
	})
	return strings.TrimSpace(html.UnescapeString(labelPolicy.Sanitize(trimmed)))
}
