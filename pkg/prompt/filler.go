package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cast"

	"github.com/goliatone/go-formflow/pkg/itemize"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/rules"
	"github.com/goliatone/go-formflow/pkg/validation"
	"github.com/goliatone/go-formflow/pkg/widgets"
)

// Filler walks a compiled form and asks the driver for every value.
type Filler struct {
	driver  Driver
	matcher *widgets.Matcher
	logger  *slog.Logger
}

// Option configures a Filler.
type Option func(*Filler)

// WithMatcher selects the component matcher. Fields are asked for according
// to their matched component, and answers are checked with the same rules
// the session applies on submit.
func WithMatcher(matcher *widgets.Matcher) Option {
	return func(f *Filler) {
		if matcher != nil {
			f.matcher = matcher
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Filler) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFiller constructs a Filler around driver.
func NewFiller(driver Driver, options ...Option) *Filler {
	f := &Filler{
		driver:  driver,
		matcher: widgets.NewMatcher(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Fill asks for every field of fields and returns the collected values keyed
// like the validation object: nested maps for objects and lists for arrays.
// values seeds the defaults offered to the user. errs holds messages keyed by
// field id that are shown before the matching question.
func (f *Filler) Fill(ctx context.Context, fields model.FieldMap, values map[string]any, errs map[string]string) (map[string]any, error) {
	if f.driver == nil {
		return nil, errors.New("prompt: driver is required")
	}
	out := make(map[string]any, len(fields))
	for _, field := range fields.Fields() {
		value, set, err := f.fill(ctx, field, lookup(values, field.Key()), errs)
		if err != nil {
			return nil, err
		}
		if set {
			out[field.Key()] = value
		}
	}
	return out, nil
}

func (f *Filler) fill(ctx context.Context, field model.Field, current any, errs map[string]string) (any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	match := f.matcher.Match(field)
	f.logger.Debug("prompting field", slog.String("field", field.ID), slog.String("component", string(match.Component)))

	if msg, ok := errs[field.ID]; ok {
		if err := f.driver.Info(ctx, fmt.Sprintf("%s: %s", label(field), msg)); err != nil {
			return nil, false, err
		}
	}

	switch {
	case match.Component == widgets.ComponentLabel || match.Component == widgets.ComponentDivider:
		text := label(field)
		if field.Description != "" {
			text += "\n" + field.Description
		}
		return nil, false, f.driver.Info(ctx, text)
	case match.Component == widgets.ComponentHidden || field.Attributes.Disabled:
		value := fallback(current, field)
		return value, value != nil, nil
	case match.Component == widgets.ComponentObject || (field.Type == model.FieldTypeObject && len(field.Properties) > 0):
		return f.fillObject(ctx, field, current, errs)
	case match.Component == widgets.ComponentMultiSelect:
		return f.fillMultiSelect(ctx, field, current)
	case match.Component == widgets.ComponentArray || field.Type == model.FieldTypeArray:
		return f.fillArray(ctx, field, current, errs)
	}
	return f.fillLeaf(ctx, field, match.Component, current)
}

func (f *Filler) fillObject(ctx context.Context, field model.Field, current any, errs map[string]string) (any, bool, error) {
	field = itemize.Reparent(field)
	existing, _ := current.(map[string]any)
	out := make(map[string]any, len(field.Properties))
	for _, child := range field.Properties.Fields() {
		value, set, err := f.fill(ctx, child, lookup(existing, child.Key()), errs)
		if err != nil {
			return nil, false, err
		}
		if set {
			out[child.Key()] = value
		}
	}
	return out, true, nil
}

func (f *Filler) fillArray(ctx context.Context, field model.Field, current any, errs map[string]string) (any, bool, error) {
	template, ok := itemize.Template(field)
	if !ok {
		value := fallback(current, field)
		return value, value != nil, nil
	}
	existing, _ := current.([]any)
	rule, checked := validation.BuildField(field, f.matcher)

	for {
		var items []any
		for idx := 0; ; idx++ {
			add, err := f.driver.Confirm(ctx, ConfirmConfig{
				Message: addMessage(field, idx),
				Default: idx < len(existing),
			})
			if err != nil {
				return nil, false, err
			}
			if !add {
				break
			}
			var seed any
			if idx < len(existing) {
				seed = existing[idx]
			}
			item, err := itemize.Itemize(idx, template, field.ID)
			if err != nil {
				return nil, false, err
			}
			value, set, err := f.fill(ctx, item, seed, errs)
			if err != nil {
				return nil, false, err
			}
			if !set {
				value = nil
			}
			items = append(items, value)
		}

		var value any = items
		if items == nil {
			if !field.Required {
				return nil, false, nil
			}
			value = []any{}
		}
		if !checked {
			return value, true, nil
		}
		msg := firstIssue(rules.Validate(rule, value))
		if msg == "" {
			return value, true, nil
		}
		if err := f.driver.Info(ctx, fmt.Sprintf("%s: %s", label(field), msg)); err != nil {
			return nil, false, err
		}
		existing = items
	}
}

func (f *Filler) fillMultiSelect(ctx context.Context, field model.Field, current any) (any, bool, error) {
	var options []model.Option
	if field.ArrayItem != nil {
		options = field.ArrayItem.Options
	}
	labels := optionLabels(options)
	selected, _ := current.([]any)
	var defaults []int
	for idx, option := range options {
		for _, value := range selected {
			if rules.Equal(option.Value, value) {
				defaults = append(defaults, idx)
				break
			}
		}
	}

	rule, checked := validation.BuildField(field, f.matcher)
	for {
		indices, err := f.driver.MultiSelect(ctx, SelectConfig{
			Message:  label(field),
			Options:  labels,
			Defaults: defaults,
			Help:     field.Description,
		})
		if err != nil {
			return nil, false, err
		}
		values := make([]any, 0, len(indices))
		for _, idx := range indices {
			if idx >= 0 && idx < len(options) {
				values = append(values, options[idx].Value)
			}
		}
		if !checked {
			return values, true, nil
		}
		msg := firstIssue(rules.Validate(rule, values))
		if msg == "" {
			return values, true, nil
		}
		if err := f.driver.Info(ctx, fmt.Sprintf("%s: %s", label(field), msg)); err != nil {
			return nil, false, err
		}
		defaults = indices
	}
}

func (f *Filler) fillLeaf(ctx context.Context, field model.Field, component widgets.Component, current any) (any, bool, error) {
	rule, checked := validation.BuildField(field, f.matcher)
	seed := fallback(current, field)

	for {
		value, set, err := f.ask(ctx, field, component, seed)
		if err != nil {
			return nil, false, err
		}
		var msg string
		if !set {
			msg = firstIssue(rules.Validate(rule, rules.Undefined))
		} else if checked {
			msg = firstIssue(rules.Validate(rule, value))
		}
		if msg == "" {
			return value, set, nil
		}
		if err := f.driver.Info(ctx, fmt.Sprintf("%s: %s", label(field), msg)); err != nil {
			return nil, false, err
		}
		if set {
			seed = value
		}
	}
}

// ask returns set=false when the user left an optional answer empty.
func (f *Filler) ask(ctx context.Context, field model.Field, component widgets.Component, seed any) (any, bool, error) {
	cfg := InputConfig{Message: label(field), Help: field.Description}
	if seed != nil {
		cfg.Default = cast.ToString(seed)
	}

	switch component {
	case widgets.ComponentCheckbox:
		answer, err := f.driver.Confirm(ctx, ConfirmConfig{
			Message: cfg.Message,
			Help:    cfg.Help,
			Default: cast.ToBool(seed),
		})
		return answer, err == nil, err
	case widgets.ComponentSelect:
		idx := -1
		for i, option := range field.Options {
			if seed != nil && rules.Equal(option.Value, seed) {
				idx = i
				break
			}
		}
		answer, err := f.driver.Select(ctx, SelectConfig{
			Message:      cfg.Message,
			Help:         cfg.Help,
			Options:      optionLabels(field.Options),
			DefaultIndex: idx,
		})
		if err != nil {
			return nil, false, err
		}
		if answer < 0 || answer >= len(field.Options) {
			return nil, false, nil
		}
		return field.Options[answer].Value, true, nil
	}

	var (
		raw string
		err error
	)
	switch component {
	case widgets.ComponentPassword:
		raw, err = f.driver.Password(ctx, cfg)
	case widgets.ComponentTextarea, widgets.ComponentMarkdown:
		raw, err = f.driver.TextArea(ctx, cfg)
	default:
		raw, err = f.driver.Input(ctx, cfg)
	}
	if err != nil {
		return nil, false, err
	}
	if strings.TrimSpace(raw) == "" {
		return nil, false, nil
	}
	return convert(field, raw), true, nil
}

// convert turns a typed answer into the field's type. Answers that do not
// parse are returned as strings so validation reports the type mismatch.
func convert(field model.Field, raw string) any {
	trimmed := strings.TrimSpace(raw)
	switch field.Type {
	case model.FieldTypeInteger:
		if v, err := cast.ToInt64E(trimmed); err == nil {
			return v
		}
	case model.FieldTypeNumber:
		if v, err := cast.ToFloat64E(trimmed); err == nil {
			return v
		}
	case model.FieldTypeBoolean:
		if v, err := cast.ToBoolE(trimmed); err == nil {
			return v
		}
	}
	return raw
}

func firstIssue(err error) string {
	var verr *rules.ValidationError
	if !errors.As(err, &verr) || len(verr.Issues) == 0 {
		return ""
	}
	return verr.Issues[0].Message
}

func fallback(current any, field model.Field) any {
	if current != nil {
		return current
	}
	if field.Default != nil {
		return field.Default
	}
	return field.Const
}

func lookup(values map[string]any, key string) any {
	if values == nil {
		return nil
	}
	return values[key]
}

func label(field model.Field) string {
	if field.Title != "" {
		return field.Title
	}
	return field.ID
}

func addMessage(field model.Field, idx int) string {
	if idx == 0 {
		return fmt.Sprintf("Add %s?", label(field))
	}
	return fmt.Sprintf("Add another %s?", label(field))
}

func optionLabels(options []model.Option) []string {
	out := make([]string, len(options))
	for idx, option := range options {
		out[idx] = option.Label
		if out[idx] == "" {
			out[idx] = cast.ToString(option.Value)
		}
	}
	return out
}
