package session

import (
	"io"
	"log/slog"

	"github.com/goliatone/go-formflow/pkg/jsonschema"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/widgets"
)

// Option customises a Session.
type Option func(*Session)

// WithLabelSource fetches labels once per form key when the session starts.
func WithLabelSource(source LabelSource) Option {
	return func(s *Session) {
		s.labelSource = source
	}
}

// WithBuilder swaps the field compiler.
func WithBuilder(builder *model.Builder) Option {
	return func(s *Session) {
		if builder != nil {
			s.builder = builder
		}
	}
}

// WithMatcher swaps the component matcher used for client side validation.
func WithMatcher(matcher *widgets.Matcher) Option {
	return func(s *Session) {
		if matcher != nil {
			s.matcher = matcher
		}
	}
}

// WithResolver sets the resolver that inlines $ref in step schemas.
func WithResolver(resolver *jsonschema.Resolver) Option {
	return func(s *Session) {
		if resolver != nil {
			s.resolver = resolver
		}
	}
}

// WithOverrides applies field overrides to every compiled step.
func WithOverrides(overrides model.Overrides) Option {
	return func(s *Session) {
		s.overrides = overrides
	}
}

// WithTransitionHook observes state changes.
func WithTransitionHook(hook TransitionHook) Option {
	return func(s *Session) {
		s.hook = hook
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClientValidation toggles validation before submission. It is on by
// default.
func WithClientValidation(enabled bool) Option {
	return func(s *Session) {
		s.clientValidation = enabled
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
