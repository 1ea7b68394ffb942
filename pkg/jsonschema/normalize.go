package jsonschema

import (
	"context"
	"io"
	"log/slog"
	"strconv"

	"github.com/goliatone/go-formflow/pkg/schema"
)

// WarningCode classifies schema shapes the form pipeline cannot express
// faithfully.
type WarningCode string

const (
	// WarningMultipleBranches flags anyOf/oneOf lists with more than one
	// non-null branch. Only the first branch is used.
	WarningMultipleBranches WarningCode = "multiple_branches"
	// WarningUnsupportedCombination flags allOf mixed with anyOf/oneOf on the
	// same node. allOf wins and the union keywords are dropped.
	WarningUnsupportedCombination WarningCode = "unsupported_combination"
)

// Warning describes a non-fatal schema shape problem.
type Warning struct {
	Code    WarningCode
	Keyword string
	Path    string
	Message string
}

// Result is the outcome of normalizing one schema node.
type Result struct {
	// Schema is the flattened node. It never carries allOf/anyOf/oneOf.
	Schema schema.Node
	// Nullable is true when the node's type or any combinator branch admitted
	// null.
	Nullable bool
	// Warnings lists every shape problem encountered, in discovery order.
	Warnings []Warning
}

// Normalizer flattens combinators. The zero value is not usable; construct it
// with NewNormalizer.
type Normalizer struct {
	logger *slog.Logger
}

// NormalizerOption customises a Normalizer.
type NormalizerOption func(*Normalizer)

// WithLogger routes shape warnings to logger.
func WithLogger(logger *slog.Logger) NormalizerOption {
	return func(n *Normalizer) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// NewNormalizer builds a Normalizer. Warnings are discarded unless a logger is
// supplied.
func NewNormalizer(options ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		if opt != nil {
			opt(n)
		}
	}
	return n
}

// Normalize flattens the combinators found on node itself. Branches picked or
// merged along the way are normalized recursively; properties and items are
// left untouched (see NormalizeTree). node is never mutated and a node without
// combinators is returned as is.
func (n *Normalizer) Normalize(node schema.Node) Result {
	result := n.normalizeAt(node, "#")
	n.report(result.Warnings)
	return result
}

// NormalizeTree flattens node and, recursively, every nested properties entry
// and items schema.
func (n *Normalizer) NormalizeTree(node schema.Node) Result {
	var warnings []Warning
	out := n.normalizeTree(node, "#", &warnings)
	n.report(warnings)
	return Result{
		Schema:   out,
		Nullable: schema.IncludesNull(out),
		Warnings: warnings,
	}
}

func (n *Normalizer) normalizeTree(node schema.Node, path string, warnings *[]Warning) schema.Node {
	if node == nil {
		return nil
	}
	result := n.normalizeAt(node, path)
	*warnings = append(*warnings, result.Warnings...)

	out := schema.Clone(result.Schema)
	if props := schema.Map(out, schema.KeyProperties); props != nil {
		normalized := make(map[string]any, len(props))
		for _, key := range schema.SortedKeys(props) {
			child, ok := props[key].(map[string]any)
			if !ok {
				normalized[key] = props[key]
				continue
			}
			normalized[key] = n.normalizeTree(child, joinPointer(path, schema.KeyProperties, key), warnings)
		}
		out[schema.KeyProperties] = normalized
	}
	if items := schema.Map(out, schema.KeyItems); items != nil {
		out[schema.KeyItems] = n.normalizeTree(items, joinPointer(path, schema.KeyItems), warnings)
	}
	return out
}

func (n *Normalizer) normalizeAt(node schema.Node, path string) Result {
	if !schema.HasCombinator(node) {
		return Result{Schema: node, Nullable: schema.IncludesNull(node)}
	}

	root := make(schema.Node, len(node))
	for key, value := range node {
		switch key {
		case schema.KeyAllOf, schema.KeyAnyOf, schema.KeyOneOf:
			continue
		}
		root[key] = value
	}

	_, hasAllOf := node[schema.KeyAllOf]
	_, hasOneOf := node[schema.KeyOneOf]
	_, hasAnyOf := node[schema.KeyAnyOf]

	var (
		warnings []Warning
		base     schema.Node
		nullable = schema.IncludesNull(root)
	)

	switch {
	case hasAllOf:
		if hasOneOf || hasAnyOf {
			warnings = append(warnings, Warning{
				Code:    WarningUnsupportedCombination,
				Keyword: schema.KeyAllOf,
				Path:    path,
				Message: "allOf combined with anyOf/oneOf is not supported; anyOf/oneOf ignored",
			})
		}
		base = make(schema.Node)
		for idx, entry := range schema.List(node, schema.KeyAllOf) {
			branch, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			merged := n.normalizeAt(branch, joinPointer(path, schema.KeyAllOf, strconv.Itoa(idx)))
			warnings = append(warnings, merged.Warnings...)
			nullable = nullable || merged.Nullable
			for key, value := range merged.Schema {
				base[key] = value
			}
		}
	default:
		keyword := schema.KeyAnyOf
		if hasOneOf {
			keyword = schema.KeyOneOf
		}
		selected, branchNullable, branchWarnings := n.selectBranch(schema.List(node, keyword), keyword, path)
		warnings = append(warnings, branchWarnings...)
		nullable = nullable || branchNullable
		base = selected
	}

	out := make(schema.Node, len(base)+len(root))
	for key, value := range base {
		out[key] = value
	}
	for key, value := range root {
		out[key] = value
	}
	if nullable && !schema.IncludesNull(out) {
		out[schema.KeyNullable] = true
	}

	return Result{Schema: out, Nullable: nullable, Warnings: warnings}
}

// selectBranch picks the first non-null branch of a union. Null branches only
// contribute nullability and do not count towards the multiple branch warning.
func (n *Normalizer) selectBranch(branches []any, keyword, path string) (schema.Node, bool, []Warning) {
	var (
		warnings  []Warning
		nullable  bool
		candidate = -1
		first     schema.Node
		nonNull   int
	)
	for idx, entry := range branches {
		branch, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if first == nil {
			first = branch
		}
		if schema.IsNullOnly(branch) {
			nullable = true
			continue
		}
		nonNull++
		if candidate < 0 {
			candidate = idx
		}
	}

	if nonNull > 1 {
		warnings = append(warnings, Warning{
			Code:    WarningMultipleBranches,
			Keyword: keyword,
			Path:    path,
			Message: keyword + " with multiple non-null branches is not supported; using the first branch",
		})
	}

	if candidate < 0 {
		if first == nil {
			return schema.Node{}, nullable, warnings
		}
		return schema.Clone(first), nullable, warnings
	}

	branch := branches[candidate].(map[string]any)
	selected := n.normalizeAt(branch, joinPointer(path, keyword, strconv.Itoa(candidate)))
	warnings = append(warnings, selected.Warnings...)
	return selected.Schema, nullable || selected.Nullable, warnings
}

func (n *Normalizer) report(warnings []Warning) {
	for _, warning := range warnings {
		n.logger.LogAttrs(context.Background(), slog.LevelWarn, "unsupported schema shape",
			slog.String("code", string(warning.Code)),
			slog.String("keyword", warning.Keyword),
			slog.String("path", warning.Path),
			slog.String("detail", warning.Message),
		)
	}
}

func joinPointer(path string, segments ...string) string {
	if path == "" {
		path = "#"
	}
	for _, segment := range segments {
		if segment == "" {
			continue
		}
		path = path + "/" + escapeJSONPointer(segment)
	}
	return path
}

func escapeJSONPointer(value string) string {
	out := make([]rune, 0, len(value))
	for _, r := range value {
		switch r {
		case '~':
			out = append(out, '~', '0')
		case '/':
			out = append(out, '~', '1')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}
