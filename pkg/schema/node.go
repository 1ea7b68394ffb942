package schema

import (
	"sort"
	"strings"

	"github.com/mohae/deepcopy"
)

// Node is a decoded JSON-Schema-like object. Forms are exchanged as loosely
// typed maps so unknown keywords and vendor extensions survive every stage of
// the pipeline untouched.
type Node = map[string]any

// Keywords read by the normalizer and compiler.
const (
	KeyRef              = "$ref"
	KeyDefs             = "$defs"
	KeyDefinitions      = "definitions"
	KeyType             = "type"
	KeyFormat           = "format"
	KeyTitle            = "title"
	KeyDescription      = "description"
	KeyDefault          = "default"
	KeyConst            = "const"
	KeyEnum             = "enum"
	KeyOptions          = "options"
	KeyProperties       = "properties"
	KeyRequired         = "required"
	KeyItems            = "items"
	KeyAllOf            = "allOf"
	KeyAnyOf            = "anyOf"
	KeyOneOf            = "oneOf"
	KeyNullable         = "nullable"
	KeyReadOnly         = "readOnly"
	KeyWriteOnly        = "writeOnly"
	KeyMinLength        = "minLength"
	KeyMaxLength        = "maxLength"
	KeyPattern          = "pattern"
	KeyMinimum          = "minimum"
	KeyMaximum          = "maximum"
	KeyExclusiveMinimum = "exclusiveMinimum"
	KeyExclusiveMaximum = "exclusiveMaximum"
	KeyMultipleOf       = "multipleOf"
	KeyMinItems         = "minItems"
	KeyMaxItems         = "maxItems"
	KeyUniqueItems      = "uniqueItems"
)

// TypeNull is the JSON Schema null type name.
const TypeNull = "null"

// String reads a trimmed string keyword, returning "" when absent or not a
// string.
func String(node Node, key string) string {
	if node == nil {
		return ""
	}
	value, _ := node[key].(string)
	return strings.TrimSpace(value)
}

// Bool reads a boolean keyword.
func Bool(node Node, key string) bool {
	if node == nil {
		return false
	}
	value, _ := node[key].(bool)
	return value
}

// Map reads a nested object keyword.
func Map(node Node, key string) Node {
	if node == nil {
		return nil
	}
	value, _ := node[key].(map[string]any)
	return value
}

// List reads an array keyword.
func List(node Node, key string) []any {
	if node == nil {
		return nil
	}
	value, _ := node[key].([]any)
	return value
}

// Strings reads an array keyword keeping only non-empty string entries.
func Strings(node Node, key string) []string {
	raw := List(node, key)
	if len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if str, ok := item.(string); ok && strings.TrimSpace(str) != "" {
			out = append(out, str)
		}
	}
	return out
}

// Types returns the declared type names. Both the single string form and the
// array form ("type": ["string", "null"]) are supported.
func Types(node Node) []string {
	if node == nil {
		return nil
	}
	switch typed := node[KeyType].(type) {
	case string:
		if trimmed := strings.TrimSpace(typed); trimmed != "" {
			return []string{trimmed}
		}
	case []any:
		out := make([]string, 0, len(typed))
		for _, entry := range typed {
			if str, ok := entry.(string); ok && strings.TrimSpace(str) != "" {
				out = append(out, strings.TrimSpace(str))
			}
		}
		return out
	case []string:
		return append([]string(nil), typed...)
	}
	return nil
}

// PrimaryType returns the first non-null declared type.
func PrimaryType(node Node) string {
	for _, name := range Types(node) {
		if name != TypeNull {
			return name
		}
	}
	return ""
}

// IncludesNull reports whether the declared type admits null, either through
// the type list or the OpenAPI 3.0 "nullable" flag.
func IncludesNull(node Node) bool {
	if Bool(node, KeyNullable) {
		return true
	}
	for _, name := range Types(node) {
		if name == TypeNull {
			return true
		}
	}
	return false
}

// IsNullOnly reports whether the node describes nothing but null.
func IsNullOnly(node Node) bool {
	types := Types(node)
	if len(types) == 0 {
		return false
	}
	for _, name := range types {
		if name != TypeNull {
			return false
		}
	}
	return true
}

// HasCombinator reports whether any composition keyword is present.
func HasCombinator(node Node) bool {
	if node == nil {
		return false
	}
	for _, key := range []string{KeyAllOf, KeyAnyOf, KeyOneOf} {
		if _, ok := node[key]; ok {
			return true
		}
	}
	return false
}

// IsVendorExtension reports whether key is an "x-" prefixed extension.
func IsVendorExtension(key string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(key)), "x-")
}

// Extensions collects vendor extension keys.
func Extensions(node Node) map[string]any {
	var out map[string]any
	for key, value := range node {
		if !IsVendorExtension(key) {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[key] = value
	}
	return out
}

// SortedKeys returns the keys of a map in lexical order.
func SortedKeys(node map[string]any) []string {
	keys := make([]string, 0, len(node))
	for key := range node {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy of node.
func Clone(node Node) Node {
	if node == nil {
		return nil
	}
	out := make(Node, len(node))
	for key, value := range node {
		out[key] = value
	}
	return out
}

// DeepClone returns an independent copy of node, including nested maps and
// slices.
func DeepClone(node Node) Node {
	if node == nil {
		return nil
	}
	cloned, _ := deepcopy.Copy(map[string]any(node)).(map[string]any)
	return cloned
}
