package validation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cast"

	"github.com/goliatone/go-formflow/pkg/jsonschema"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// SchemaIssue represents a schema problem with optional location metadata.
type SchemaIssue struct {
	Path    string `json:"path,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// SchemaValidationResult captures the outcome of linting a form schema.
// Warnings describe shapes the compiler degrades gracefully and do not make
// the schema invalid.
type SchemaValidationResult struct {
	Valid    bool          `json:"valid"`
	Issues   []SchemaIssue `json:"issues,omitempty"`
	Warnings []SchemaIssue `json:"warnings,omitempty"`
}

// JSONSchemaValidationOptions configures LintSchema.
type JSONSchemaValidationOptions struct {
	Loader          jsonschema.Loader
	ResolverOptions jsonschema.ResolveOptions
	Normalizer      *jsonschema.Normalizer
}

var (
	integerKeywords = []string{
		schema.KeyMinLength, schema.KeyMaxLength, schema.KeyMinItems, schema.KeyMaxItems,
	}
	numberKeywords = []string{
		schema.KeyMinimum, schema.KeyMaximum, schema.KeyMultipleOf,
	}
)

// LintSchema parses, resolves and normalizes a form schema and reports what
// would stop it from compiling faithfully.
func LintSchema(ctx context.Context, src schema.Source, raw []byte, opts JSONSchemaValidationOptions) SchemaValidationResult {
	result := SchemaValidationResult{Valid: true}
	if src == nil {
		src = schema.SourceInline("schema.json")
	}

	doc, err := schema.NewDocument(src, raw)
	if err != nil {
		return invalid(result, issueFromError(err))
	}

	loader := opts.Loader
	if loader == nil {
		loader = failLoader{}
	}
	resolved, err := jsonschema.NewResolver(loader, opts.ResolverOptions).Resolve(ctx, doc)
	if err != nil {
		return invalid(result, issueFromError(err))
	}

	normalizer := opts.Normalizer
	if normalizer == nil {
		normalizer = jsonschema.NewNormalizer()
	}
	normalized := normalizer.NormalizeTree(resolved)
	for _, warning := range normalized.Warnings {
		result.Warnings = append(result.Warnings, SchemaIssue{
			Path:    warning.Path,
			Field:   fieldPathFromPointer(warning.Path),
			Message: warning.Message,
		})
	}

	if len(schema.Map(normalized.Schema, schema.KeyProperties)) == 0 {
		result.Warnings = append(result.Warnings, SchemaIssue{Path: "#", Message: "schema declares no properties"})
	}

	var issues []SchemaIssue
	lintNode(normalized.Schema, "#", &issues)
	if len(issues) > 0 {
		result.Valid = false
		result.Issues = issues
	}
	return result
}

func invalid(result SchemaValidationResult, issue SchemaIssue) SchemaValidationResult {
	result.Valid = false
	result.Issues = []SchemaIssue{issue}
	return result
}

func lintNode(node schema.Node, path string, issues *[]SchemaIssue) {
	if node == nil {
		return
	}
	report := func(message string) {
		*issues = append(*issues, SchemaIssue{Path: path, Field: fieldPathFromPointer(path), Message: message})
	}
	for _, key := range integerKeywords {
		if raw, ok := node[key]; ok {
			if _, err := cast.ToIntE(raw); err != nil || isBool(raw) {
				report(key + " must be an integer")
			}
		}
	}
	for _, key := range numberKeywords {
		if raw, ok := node[key]; ok {
			if _, err := cast.ToFloat64E(raw); err != nil || isBool(raw) {
				report(key + " must be a number")
			}
		}
	}
	if raw, ok := node[schema.KeyPattern]; ok {
		expr, isString := raw.(string)
		if !isString {
			report("pattern must be a string")
		} else if _, err := regexp.Compile(expr); err != nil {
			report("pattern does not compile: " + err.Error())
		}
	}
	if raw, ok := node[schema.KeyRequired]; ok {
		if _, isList := raw.([]any); !isList {
			report("required must be a list of property names")
		}
	}
	for _, message := range lintExtensions(node) {
		report(message)
	}

	props := schema.Map(node, schema.KeyProperties)
	for _, key := range schema.SortedKeys(props) {
		child, ok := props[key].(map[string]any)
		if !ok {
			*issues = append(*issues, SchemaIssue{
				Path:    joinPointer(path, schema.KeyProperties, key),
				Field:   fieldPathFromPointer(joinPointer(path, schema.KeyProperties, key)),
				Message: "property schema must be an object",
			})
			continue
		}
		lintNode(child, joinPointer(path, schema.KeyProperties, key), issues)
	}
	if items := schema.Map(node, schema.KeyItems); items != nil {
		lintNode(items, joinPointer(path, schema.KeyItems), issues)
	}
}

// lintExtensions checks the UI hint extension in both its object and its
// prefixed-key form.
func lintExtensions(node schema.Node) []string {
	var messages []string
	check := func(key string, value any) {
		switch {
		case key == "":
			messages = append(messages, "extension key is empty")
		case !lo.Contains(model.HintKeys(), key):
			messages = append(messages, fmt.Sprintf("unsupported %s key %q (supported: %s)",
				model.ExtensionNamespace, key, strings.Join(model.HintKeys(), ", ")))
		case !isBool(value):
			messages = append(messages, fmt.Sprintf("value for %q must be a boolean (got %T)", key, value))
		}
	}

	for _, key := range schema.SortedKeys(node) {
		value := node[key]
		switch {
		case key == model.ExtensionNamespace:
			nested, ok := value.(map[string]any)
			if !ok {
				messages = append(messages, fmt.Sprintf("%s must be an object, found %T", model.ExtensionNamespace, value))
				continue
			}
			for _, nestedKey := range schema.SortedKeys(nested) {
				check(nestedKey, nested[nestedKey])
			}
		case strings.HasPrefix(key, model.ExtensionNamespace+"-"):
			check(strings.TrimPrefix(key, model.ExtensionNamespace+"-"), value)
		}
	}
	return messages
}

func isBool(value any) bool {
	_, ok := value.(bool)
	return ok
}

func joinPointer(path string, segments ...string) string {
	for _, segment := range segments {
		segment = strings.ReplaceAll(segment, "~", "~0")
		segment = strings.ReplaceAll(segment, "/", "~1")
		path += "/" + segment
	}
	return path
}

type failLoader struct{}

func (failLoader) Load(_ context.Context, _ schema.Source) (schema.Document, error) {
	return schema.Document{}, errors.New("jsonschema validation: loader is not configured")
}

func issueFromError(err error) SchemaIssue {
	if err == nil {
		return SchemaIssue{Message: "unknown error"}
	}
	msg := strings.TrimSpace(err.Error())
	path := extractJSONPointer(msg)
	if path != "" {
		msg = strings.Replace(msg, " at "+path, "", 1)
	}
	msg = strings.TrimPrefix(msg, "jsonschema: ")
	msg = strings.TrimPrefix(msg, "jsonschema resolver: ")
	msg = strings.TrimPrefix(msg, "schema: ")
	msg = strings.TrimSpace(msg)

	return SchemaIssue{
		Path:    path,
		Field:   fieldPathFromPointer(path),
		Message: msg,
	}
}

func extractJSONPointer(message string) string {
	if message == "" {
		return ""
	}
	if idx := strings.LastIndex(message, " at "); idx >= 0 {
		return trimPointer(strings.TrimSpace(message[idx+4:]))
	}
	if idx := strings.LastIndex(message, "#/"); idx >= 0 {
		candidate := strings.TrimSpace(message[idx:])
		if end := strings.IndexAny(candidate, " :"); end >= 0 {
			candidate = candidate[:end]
		}
		return trimPointer(candidate)
	}
	return ""
}

func trimPointer(pointer string) string {
	return strings.TrimSpace(strings.TrimRight(pointer, ".)];,"))
}

// fieldPathFromPointer turns a schema pointer into the dotted field id it
// addresses. Array items map to the template segment.
func fieldPathFromPointer(pointer string) string {
	trimmed := strings.TrimPrefix(strings.TrimSpace(pointer), "#")
	trimmed = strings.TrimPrefix(trimmed, "/")
	if trimmed == "" {
		return ""
	}

	parts := strings.Split(trimmed, "/")
	out := make([]string, 0, len(parts))
	for idx := 0; idx < len(parts); idx++ {
		segment := unescapePointer(parts[idx])
		switch segment {
		case schema.KeyProperties:
			if idx+1 < len(parts) {
				out = append(out, unescapePointer(parts[idx+1]))
				idx++
			}
		case schema.KeyItems:
			out = append(out, model.TemplateSegment)
		case schema.KeyOneOf, schema.KeyAnyOf, schema.KeyAllOf:
			if idx+1 < len(parts) && isNumeric(parts[idx+1]) {
				idx++
			}
		case schema.KeyDefs, schema.KeyDefinitions:
			if idx+1 < len(parts) {
				idx++
			}
		case "":
		default:
			out = append(out, segment)
		}
	}
	return strings.Join(out, ".")
}

func unescapePointer(segment string) string {
	segment = strings.ReplaceAll(segment, "~1", "/")
	return strings.ReplaceAll(segment, "~0", "~")
}

func isNumeric(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
