package jsonschema

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-openapi/jsonpointer"

	"github.com/goliatone/go-formflow/pkg/schema"
)

const (
	defaultMaxDocuments = 32
	defaultMaxRefDepth  = 64
)

// ResolveOptions configures $ref resolution.
type ResolveOptions struct {
	// AllowExternalRefs permits refs that point at other documents. External
	// documents are fetched through the resolver's Loader.
	AllowExternalRefs bool
	// MaxDocuments caps the number of external documents loaded per call.
	MaxDocuments int
	// MaxRefDepth caps the depth of nested $ref chains.
	MaxRefDepth int
	// KeepDefinitions keeps $defs/definitions in the resolved output. They are
	// dropped by default because every reference has been inlined.
	KeepDefinitions bool
}

// Resolver inlines $ref references so the normalizer only ever sees plain
// schema nodes.
type Resolver struct {
	loader Loader
	opts   ResolveOptions
}

// NewResolver constructs a resolver. loader may be nil when only local
// references are expected.
func NewResolver(loader Loader, opts ResolveOptions) *Resolver {
	if opts.MaxDocuments <= 0 {
		opts.MaxDocuments = defaultMaxDocuments
	}
	if opts.MaxRefDepth <= 0 {
		opts.MaxRefDepth = defaultMaxRefDepth
	}
	return &Resolver{loader: loader, opts: opts}
}

// Resolve parses doc and inlines every reference it contains.
func (r *Resolver) Resolve(ctx context.Context, doc schema.Document) (schema.Node, error) {
	if r == nil {
		return nil, errors.New("jsonschema resolver: resolver is nil")
	}
	root, err := ParseDocument(doc)
	if err != nil {
		return nil, err
	}
	return r.resolve(ctx, doc.Source(), root, root)
}

// ResolveNode inlines references found in node, looking local pointers up in
// root. root and node may be the same map; neither is mutated.
func (r *Resolver) ResolveNode(ctx context.Context, root, node schema.Node) (schema.Node, error) {
	if r == nil {
		return nil, errors.New("jsonschema resolver: resolver is nil")
	}
	if root == nil {
		root = node
	}
	return r.resolve(ctx, schema.SourceInline("root"), root, node)
}

func (r *Resolver) resolve(ctx context.Context, src schema.Source, root, node schema.Node) (schema.Node, error) {
	if node == nil {
		return nil, errors.New("jsonschema resolver: payload is nil")
	}
	session := &resolveSession{
		resolver: r,
		docs:     make(map[string]*resolvedDocument),
	}
	base := &resolvedDocument{key: documentKey(src), source: src, data: root}
	session.docs[base.key] = base

	resolved, err := session.resolveValue(ctx, base, node, true)
	if err != nil {
		return nil, err
	}
	out, ok := resolved.(map[string]any)
	if !ok {
		return nil, errors.New("jsonschema resolver: resolved root is not an object")
	}
	return out, nil
}

type resolvedDocument struct {
	key    string
	source schema.Source
	data   schema.Node
}

type resolveSession struct {
	resolver *Resolver
	docs     map[string]*resolvedDocument
	stack    []string
}

func (s *resolveSession) resolveValue(ctx context.Context, doc *resolvedDocument, value any, top bool) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch typed := value.(type) {
	case map[string]any:
		if ref := schema.String(typed, schema.KeyRef); ref != "" {
			return s.resolveRef(ctx, doc, ref, typed)
		}
		out := make(map[string]any, len(typed))
		for key, child := range typed {
			switch {
			case key == schema.KeyDefs || key == schema.KeyDefinitions:
				if top && s.resolver.opts.KeepDefinitions {
					out[key] = child
				}
				continue
			case schema.IsVendorExtension(key), key == schema.KeyEnum, key == schema.KeyConst,
				key == schema.KeyDefault, key == schema.KeyOptions, key == schema.KeyRequired:
				out[key] = child
				continue
			}
			resolved, err := s.resolveValue(ctx, doc, child, false)
			if err != nil {
				return nil, err
			}
			out[key] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(typed))
		for idx, entry := range typed {
			resolved, err := s.resolveValue(ctx, doc, entry, false)
			if err != nil {
				return nil, err
			}
			out[idx] = resolved
		}
		return out, nil
	default:
		return value, nil
	}
}

func (s *resolveSession) resolveRef(ctx context.Context, doc *resolvedDocument, ref string, refNode map[string]any) (any, error) {
	target, targetDoc, err := s.lookup(ctx, doc, ref)
	if err != nil {
		return nil, err
	}
	key := targetDoc.key + "#" + fragmentOf(ref)
	if len(s.stack) >= s.resolver.opts.MaxRefDepth {
		return nil, fmt.Errorf("jsonschema resolver: ref depth exceeds %d", s.resolver.opts.MaxRefDepth)
	}
	for _, entry := range s.stack {
		if entry == key {
			return nil, fmt.Errorf("jsonschema resolver: ref cycle detected at %s", ref)
		}
	}

	merged, err := mergeRefTarget(target, refNode)
	if err != nil {
		return nil, err
	}

	s.stack = append(s.stack, key)
	resolved, err := s.resolveValue(ctx, targetDoc, merged, false)
	s.stack = s.stack[:len(s.stack)-1]
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

func (s *resolveSession) lookup(ctx context.Context, doc *resolvedDocument, ref string) (any, *resolvedDocument, error) {
	location, fragment := splitRef(ref)
	target := doc
	if location != "" {
		loaded, err := s.loadExternal(ctx, doc, location)
		if err != nil {
			return nil, nil, err
		}
		target = loaded
	}
	value, err := resolveFragment(target.data, fragment)
	if err != nil {
		return nil, nil, fmt.Errorf("jsonschema resolver: %s: %w", ref, err)
	}
	return value, target, nil
}

func (s *resolveSession) loadExternal(ctx context.Context, doc *resolvedDocument, location string) (*resolvedDocument, error) {
	if !s.resolver.opts.AllowExternalRefs {
		return nil, fmt.Errorf("jsonschema resolver: external refs disabled (%s)", location)
	}
	if s.resolver.loader == nil {
		return nil, errors.New("jsonschema resolver: loader is nil")
	}
	src, err := relativeSource(doc.source, location)
	if err != nil {
		return nil, err
	}
	key := documentKey(src)
	if cached, ok := s.docs[key]; ok {
		return cached, nil
	}
	if len(s.docs) > s.resolver.opts.MaxDocuments {
		return nil, fmt.Errorf("jsonschema resolver: exceeded max documents (%d)", s.resolver.opts.MaxDocuments)
	}
	loaded, err := s.resolver.loader.Load(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("jsonschema resolver: load %s: %w", location, err)
	}
	data, err := ParseDocument(loaded)
	if err != nil {
		return nil, err
	}
	resolved := &resolvedDocument{key: key, source: src, data: data}
	s.docs[key] = resolved
	return resolved, nil
}

func relativeSource(base schema.Source, location string) (schema.Source, error) {
	parsed, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("jsonschema resolver: invalid ref %q", location)
	}
	switch parsed.Scheme {
	case "http", "https":
		return schema.SourceFromURL(parsed.String()), nil
	case "file":
		return schema.SourceFromFile(parsed.Path), nil
	case "":
	default:
		return nil, fmt.Errorf("jsonschema resolver: unsupported ref scheme %q", parsed.Scheme)
	}

	if base == nil {
		return schema.SourceFromFile(location), nil
	}
	switch base.Kind() {
	case schema.SourceKindFile:
		if filepath.IsAbs(location) {
			return schema.SourceFromFile(location), nil
		}
		return schema.SourceFromFile(filepath.Join(filepath.Dir(base.Location()), location)), nil
	case schema.SourceKindFS:
		return schema.SourceFromFS(path.Join(path.Dir(base.Location()), location)), nil
	case schema.SourceKindURL:
		baseURL, err := url.Parse(base.Location())
		if err != nil {
			return nil, err
		}
		return schema.SourceFromURL(baseURL.ResolveReference(parsed).String()), nil
	default:
		return schema.SourceFromFile(location), nil
	}
}

func documentKey(src schema.Source) string {
	if src == nil {
		return "inline:root"
	}
	return string(src.Kind()) + ":" + src.Location()
}

func splitRef(ref string) (string, string) {
	location, fragment, _ := strings.Cut(ref, "#")
	return location, fragment
}

func fragmentOf(ref string) string {
	_, fragment := splitRef(ref)
	return fragment
}

func resolveFragment(root schema.Node, fragment string) (any, error) {
	if fragment == "" {
		return root, nil
	}
	decoded, err := url.PathUnescape(fragment)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(decoded, "/") {
		if found, ok := findAnchor(root, decoded); ok {
			return found, nil
		}
		return nil, fmt.Errorf("anchor %q not found", decoded)
	}
	pointer, err := jsonpointer.New(decoded)
	if err != nil {
		return nil, err
	}
	value, _, err := pointer.Get(map[string]any(root))
	if err != nil {
		return nil, err
	}
	return value, nil
}

func findAnchor(node any, name string) (map[string]any, bool) {
	switch typed := node.(type) {
	case map[string]any:
		if anchor, _ := typed["$anchor"].(string); anchor == name {
			return typed, true
		}
		for _, key := range schema.SortedKeys(typed) {
			if schema.IsVendorExtension(key) {
				continue
			}
			if found, ok := findAnchor(typed[key], name); ok {
				return found, true
			}
		}
	case []any:
		for _, entry := range typed {
			if found, ok := findAnchor(entry, name); ok {
				return found, true
			}
		}
	}
	return nil, false
}

// mergeRefTarget copies the reference target and applies the sibling keys of
// the referencing node on top of it.
func mergeRefTarget(target any, refNode map[string]any) (any, error) {
	targetMap, ok := target.(map[string]any)
	if !ok {
		if len(refNode) > 1 {
			return nil, errors.New("jsonschema resolver: $ref target is not an object")
		}
		return target, nil
	}
	merged := schema.DeepClone(targetMap)
	for key, value := range refNode {
		if key == schema.KeyRef {
			continue
		}
		merged[key] = value
	}
	return merged, nil
}
