package model

import (
	"sort"
	"strings"
)

// FieldType is the simplified enum for form-friendly field kinds.
type FieldType string

const (
	FieldTypeObject  FieldType = "object"
	FieldTypeArray   FieldType = "array"
	FieldTypeString  FieldType = "string"
	FieldTypeNumber  FieldType = "number"
	FieldTypeInteger FieldType = "integer"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeNull    FieldType = "null"
	// FieldTypeAny covers nodes without a recognised type, for example
	// combinator-only shapes that resolved to an empty branch.
	FieldTypeAny FieldType = "any"
)

// TemplateSegment marks the id segment of an array item template. It is
// replaced by a concrete index when the template is itemized.
const TemplateSegment = "*"

// Option is one selectable value.
type Option struct {
	Value any    `json:"value"`
	Label string `json:"label"`
}

// Validations carries the constraints the validation builder turns into
// rules. Pointer fields are nil when the schema does not declare them.
type Validations struct {
	MinLength        *int     `json:"minLength,omitempty"`
	MaxLength        *int     `json:"maxLength,omitempty"`
	Pattern          string   `json:"pattern,omitempty"`
	Minimum          *float64 `json:"minimum,omitempty"`
	Maximum          *float64 `json:"maximum,omitempty"`
	ExclusiveMinimum *float64 `json:"exclusiveMinimum,omitempty"`
	ExclusiveMaximum *float64 `json:"exclusiveMaximum,omitempty"`
	MultipleOf       *float64 `json:"multipleOf,omitempty"`
	MinItems         *int     `json:"minItems,omitempty"`
	MaxItems         *int     `json:"maxItems,omitempty"`
	UniqueItems      bool     `json:"uniqueItems,omitempty"`
	IsNullable       bool     `json:"isNullable,omitempty"`
}

// Attributes are UI hint flags.
type Attributes struct {
	Disabled  bool `json:"disabled,omitempty"`
	Sensitive bool `json:"sensitive,omitempty"`
	Password  bool `json:"password,omitempty"`
}

// Field is the compiled, renderable description of one schema property or
// array item. A Field carries either Properties (objects), an ArrayItem
// (arrays), or neither.
type Field struct {
	ID          string         `json:"id"`
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Type        FieldType      `json:"type"`
	Format      string         `json:"format,omitempty"`
	Options     []Option       `json:"options,omitempty"`
	Default     any            `json:"default,omitempty"`
	Const       any            `json:"const,omitempty"`
	Required    bool           `json:"required"`
	Validations Validations    `json:"validations"`
	Attributes  Attributes     `json:"attributes"`
	Properties  FieldMap       `json:"properties,omitempty"`
	ArrayItem   *Field         `json:"arrayItem,omitempty"`
	Extensions  map[string]any `json:"extensions,omitempty"`
}

// Key returns the last segment of the field id.
func (f Field) Key() string {
	return LastSegment(f.ID)
}

// IsTemplate reports whether the id still contains an unexpanded array item
// segment.
func (f Field) IsTemplate() bool {
	for _, segment := range strings.Split(f.ID, ".") {
		if segment == TemplateSegment {
			return true
		}
	}
	return false
}

// FieldMap holds compiled fields. The compiler returns maps keyed by full id;
// Field.Properties maps are keyed by bare property key.
type FieldMap map[string]Field

// Keys returns the map keys in lexical order.
func (m FieldMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Fields returns the fields ordered by key.
func (m FieldMap) Fields() []Field {
	out := make([]Field, 0, len(m))
	for _, key := range m.Keys() {
		out = append(out, m[key])
	}
	return out
}

// Lookup finds a field by full id anywhere in the tree, including array item
// templates.
func (m FieldMap) Lookup(id string) (Field, bool) {
	for _, field := range m {
		if found, ok := lookupField(field, id); ok {
			return found, true
		}
	}
	return Field{}, false
}

func lookupField(field Field, id string) (Field, bool) {
	if field.ID == id {
		return field, true
	}
	if !strings.HasPrefix(id, field.ID+".") {
		return Field{}, false
	}
	for _, child := range field.Properties {
		if found, ok := lookupField(child, id); ok {
			return found, true
		}
	}
	if field.ArrayItem != nil {
		return lookupField(*field.ArrayItem, id)
	}
	return Field{}, false
}

// Walk visits every field depth first, parents before children. Returning
// false from fn skips the children of that field.
func (m FieldMap) Walk(fn func(Field) bool) {
	for _, key := range m.Keys() {
		walkField(m[key], fn)
	}
}

func walkField(field Field, fn func(Field) bool) {
	if !fn(field) {
		return
	}
	field.Properties.Walk(fn)
	if field.ArrayItem != nil {
		walkField(*field.ArrayItem, fn)
	}
}

// JoinID appends key to a parent id.
func JoinID(parent, key string) string {
	if parent == "" {
		return key
	}
	if key == "" {
		return parent
	}
	return parent + "." + key
}

// LastSegment returns the text after the last "." of id.
func LastSegment(id string) string {
	if idx := strings.LastIndex(id, "."); idx >= 0 {
		return id[idx+1:]
	}
	return id
}

// ParentID returns id without its last segment.
func ParentID(id string) string {
	if idx := strings.LastIndex(id, "."); idx >= 0 {
		return id[:idx]
	}
	return ""
}
