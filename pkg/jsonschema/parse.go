package jsonschema

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formflow/pkg/schema"
)

// Parse decodes a schema document. Payloads starting with "{" are read as JSON,
// everything else as YAML. The result always uses map[string]any and []any
// containers regardless of the input syntax.
func Parse(raw []byte) (schema.Node, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("jsonschema: document is empty")
	}

	if trimmed[0] == '{' {
		var node map[string]any
		if err := json.Unmarshal(trimmed, &node); err != nil {
			return nil, fmt.Errorf("jsonschema: decode json: %w", err)
		}
		return node, nil
	}

	var decoded any
	if err := yaml.Unmarshal(trimmed, &decoded); err != nil {
		return nil, fmt.Errorf("jsonschema: decode yaml: %w", err)
	}
	node, ok := normalizeYAML(decoded).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("jsonschema: document root must be an object")
	}
	return node, nil
}

// ParseDocument decodes the payload held by doc.
func ParseDocument(doc schema.Document) (schema.Node, error) {
	node, err := Parse(doc.Raw())
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, doc.Location())
	}
	return node, nil
}

func normalizeYAML(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, val := range typed {
			out[key] = normalizeYAML(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(typed))
		for key, val := range typed {
			out[fmt.Sprint(key)] = normalizeYAML(val)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for idx, val := range typed {
			out[idx] = normalizeYAML(val)
		}
		return out
	default:
		return typed
	}
}
