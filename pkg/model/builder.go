package model

import (
	"fmt"
	"sort"

	"github.com/spf13/cast"

	"github.com/goliatone/go-formflow/pkg/jsonschema"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// ExtensionNamespace is the vendor extension carrying UI hints, either as an
// object ("x-formflow": {"disabled": true}) or as prefixed keys
// ("x-formflow-disabled": true).
const ExtensionNamespace = "x-formflow"

const extensionNamespace = ExtensionNamespace

// HintKeys lists the UI hint keys understood inside ExtensionNamespace.
func HintKeys() []string {
	return []string{"disabled", "password", "sensitive"}
}

// Builder compiles normalized schema nodes into FieldMaps. It is stateless and
// safe to reuse across forms and goroutines.
type Builder struct {
	normalizer *jsonschema.Normalizer
	labeler    func(string) string
}

// NewBuilder constructs a Builder with the default normalizer and labeler.
func NewBuilder(options ...BuilderOption) *Builder {
	b := &Builder{
		normalizer: jsonschema.NewNormalizer(),
		labeler:    DefaultLabeler,
	}
	for _, opt := range options {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Compile builds one Field per entry of node's properties, keyed by full id.
// prefix is prepended to every id; pass "" for a form root. Nested objects are
// compiled recursively and their Properties maps are keyed by bare key. A node
// without properties yields an empty map.
func (b *Builder) Compile(node schema.Node, labels Labels, overrides Overrides, prefix string) FieldMap {
	return b.compile(node, labels, overrides, prefix, true)
}

func (b *Builder) compile(node schema.Node, labels Labels, overrides Overrides, prefix string, keyByID bool) FieldMap {
	out := FieldMap{}
	if node == nil {
		return out
	}
	node = b.normalizer.Normalize(node).Schema

	props := schema.Map(node, schema.KeyProperties)
	if len(props) == 0 {
		return out
	}

	required := make(map[string]struct{})
	for _, key := range schema.Strings(node, schema.KeyRequired) {
		required[key] = struct{}{}
	}

	for _, key := range schema.SortedKeys(props) {
		child, ok := props[key].(map[string]any)
		if !ok {
			continue
		}
		_, isRequired := required[key]
		field := b.field(JoinID(prefix, key), key, child, isRequired, labels, overrides)
		if keyByID {
			out[field.ID] = field
		} else {
			out[key] = field
		}
	}
	return out
}

func (b *Builder) field(id, key string, raw schema.Node, required bool, labels Labels, overrides Overrides) Field {
	normalized := b.normalizer.Normalize(raw)
	node := normalized.Schema

	field := Field{
		ID:          id,
		Type:        fieldType(node),
		Title:       firstNonEmpty(labels.Title(key), schema.String(node, schema.KeyTitle)),
		Description: firstNonEmpty(labels.Description(key), schema.String(node, schema.KeyDescription)),
		Format:      schema.String(node, schema.KeyFormat),
		Options:     deriveOptions(node),
		Default:     node[schema.KeyDefault],
		Required:    required,
		Validations: validationsFrom(node),
		Attributes:  attributesFrom(node),
		Extensions:  schema.Extensions(node),
	}
	if field.Title == "" && b.labeler != nil {
		field.Title = b.labeler(key)
	}
	field.Validations.IsNullable = normalized.Nullable
	if constValue, ok := node[schema.KeyConst]; ok {
		field.Const = constValue
		if field.Default == nil {
			field.Default = constValue
		}
	}
	if value, ok := labels.Value(key); ok {
		field.Default = value
	}

	switch field.Type {
	case FieldTypeObject:
		if props := b.compile(node, labels, overrides, id, false); len(props) > 0 {
			field.Properties = props
		}
	case FieldTypeArray:
		if items := schema.Map(node, schema.KeyItems); items != nil {
			item := b.field(JoinID(id, TemplateSegment), key, items, true, Labels{Labels: labels.Labels}, overrides)
			field.ArrayItem = &item
		}
	}

	if override, ok := overrides[id]; ok {
		field = override.Apply(field)
	}
	return field
}

func fieldType(node schema.Node) FieldType {
	switch primary := schema.PrimaryType(node); primary {
	case "object":
		return FieldTypeObject
	case "array":
		return FieldTypeArray
	case "string":
		return FieldTypeString
	case "number":
		return FieldTypeNumber
	case "integer":
		return FieldTypeInteger
	case "boolean":
		return FieldTypeBoolean
	case "":
		if schema.IsNullOnly(node) {
			return FieldTypeNull
		}
		if _, ok := node[schema.KeyProperties]; ok {
			return FieldTypeObject
		}
		if _, ok := node[schema.KeyItems]; ok {
			return FieldTypeArray
		}
		return FieldTypeAny
	default:
		return FieldTypeAny
	}
}

// deriveOptions reads enum and the custom options map from the node, or from
// its items schema for array fields. Custom options are ordered by the
// position of their key in enum; keys missing from enum take position 0.
func deriveOptions(node schema.Node) []Option {
	source := node
	if schema.PrimaryType(node) == "array" && !hasOptionKeywords(node) {
		if items := schema.Map(node, schema.KeyItems); hasOptionKeywords(items) {
			source = items
		}
	}

	enum := schema.List(source, schema.KeyEnum)
	custom := schema.Map(source, schema.KeyOptions)

	if len(custom) > 0 {
		keys := schema.SortedKeys(custom)
		position := func(key string) int {
			for idx, value := range enum {
				if fmt.Sprint(value) == key {
					return idx
				}
			}
			return 0
		}
		sort.SliceStable(keys, func(i, j int) bool {
			return position(keys[i]) < position(keys[j])
		})
		out := make([]Option, 0, len(keys))
		for _, key := range keys {
			out = append(out, Option{Value: enumValue(enum, key), Label: fmt.Sprint(custom[key])})
		}
		return out
	}

	if len(enum) == 0 {
		return nil
	}
	out := make([]Option, 0, len(enum))
	for _, value := range enum {
		out = append(out, Option{Value: value, Label: fmt.Sprint(value)})
	}
	return out
}

func hasOptionKeywords(node schema.Node) bool {
	if node == nil {
		return false
	}
	_, hasEnum := node[schema.KeyEnum]
	_, hasOptions := node[schema.KeyOptions]
	return hasEnum || hasOptions
}

func enumValue(enum []any, key string) any {
	for _, value := range enum {
		if fmt.Sprint(value) == key {
			return value
		}
	}
	return key
}

func validationsFrom(node schema.Node) Validations {
	v := Validations{
		MinLength:   intKeyword(node, schema.KeyMinLength),
		MaxLength:   intKeyword(node, schema.KeyMaxLength),
		Pattern:     schema.String(node, schema.KeyPattern),
		Minimum:     floatKeyword(node, schema.KeyMinimum),
		Maximum:     floatKeyword(node, schema.KeyMaximum),
		MultipleOf:  floatKeyword(node, schema.KeyMultipleOf),
		MinItems:    intKeyword(node, schema.KeyMinItems),
		MaxItems:    intKeyword(node, schema.KeyMaxItems),
		UniqueItems: cast.ToBool(node[schema.KeyUniqueItems]),
	}

	// Draft 4 style boolean exclusivity turns the inclusive bound exclusive.
	switch exclusive := node[schema.KeyExclusiveMinimum].(type) {
	case bool:
		if exclusive && v.Minimum != nil {
			v.ExclusiveMinimum, v.Minimum = v.Minimum, nil
		}
	default:
		v.ExclusiveMinimum = floatKeyword(node, schema.KeyExclusiveMinimum)
	}
	switch exclusive := node[schema.KeyExclusiveMaximum].(type) {
	case bool:
		if exclusive && v.Maximum != nil {
			v.ExclusiveMaximum, v.Maximum = v.Maximum, nil
		}
	default:
		v.ExclusiveMaximum = floatKeyword(node, schema.KeyExclusiveMaximum)
	}
	return v
}

func attributesFrom(node schema.Node) Attributes {
	namespace := schema.Map(node, extensionNamespace)
	_, hasConst := node[schema.KeyConst]
	return Attributes{
		Disabled: hasConst ||
			schema.Bool(namespace, "disabled") ||
			schema.Bool(node, extensionNamespace+"-disabled") ||
			schema.Bool(node, "x-disabled") ||
			schema.Bool(node, schema.KeyReadOnly),
		Sensitive: schema.Bool(namespace, "sensitive") ||
			schema.Bool(node, extensionNamespace+"-sensitive") ||
			schema.Bool(node, "x-sensitive") ||
			schema.Bool(node, schema.KeyWriteOnly),
		Password: schema.Bool(namespace, "password") ||
			schema.Bool(node, extensionNamespace+"-password") ||
			schema.Bool(node, "x-password") ||
			schema.String(node, schema.KeyFormat) == "password",
	}
}

func intKeyword(node schema.Node, key string) *int {
	raw, ok := node[key]
	if !ok || raw == nil {
		return nil
	}
	value, err := cast.ToIntE(raw)
	if err != nil {
		return nil
	}
	return &value
}

func floatKeyword(node schema.Node, key string) *float64 {
	raw, ok := node[key]
	if !ok || raw == nil {
		return nil
	}
	if _, isBool := raw.(bool); isBool {
		return nil
	}
	value, err := cast.ToFloat64E(raw)
	if err != nil {
		return nil
	}
	return &value
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
