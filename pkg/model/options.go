package model

import (
	"log/slog"

	"github.com/goliatone/go-formflow/pkg/jsonschema"
)

// BuilderOption customises the Builder.
type BuilderOption func(*Builder)

// WithNormalizer swaps the combinator normalizer used for every node.
func WithNormalizer(normalizer *jsonschema.Normalizer) BuilderOption {
	return func(b *Builder) {
		if normalizer != nil {
			b.normalizer = normalizer
		}
	}
}

// WithLabeler sets the title fallback used when neither the label source nor
// the schema provide a title. Pass nil to leave such titles empty.
func WithLabeler(labeler func(string) string) BuilderOption {
	return func(b *Builder) {
		b.labeler = labeler
	}
}

// WithLogger routes normalizer warnings to logger.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if logger != nil {
			b.normalizer = jsonschema.NewNormalizer(jsonschema.WithLogger(logger))
		}
	}
}
