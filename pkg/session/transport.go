package session

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/spf13/cast"

	"github.com/goliatone/go-formflow/pkg/model"
)

// RootLocation marks a validation error that applies to the whole form.
const RootLocation = "__root__"

// Request is one submission of the ordered step payloads collected so far.
// An empty Steps list asks for the first step.
type Request struct {
	FormKey string           `json:"-"`
	Steps   []map[string]any `json:"steps"`
}

// Meta carries step metadata returned with a form.
type Meta struct {
	HasNext bool `json:"hasNext"`
}

// Location is the path of a backend validation error. Numeric segments are
// decoded as strings.
type Location []string

// UnmarshalJSON accepts mixed string and number segments.
func (l *Location) UnmarshalJSON(data []byte) error {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("session: decode loc: %w", err)
	}
	out := make(Location, 0, len(raw))
	for _, segment := range raw {
		str, err := cast.ToStringE(segment)
		if err != nil {
			return fmt.Errorf("session: decode loc segment %v: %w", segment, err)
		}
		out = append(out, str)
	}
	*l = out
	return nil
}

// ValidationError is one backend rejection.
type ValidationError struct {
	Loc   Location `json:"loc"`
	Msg   string   `json:"msg"`
	Input any      `json:"input,omitempty"`
	Type  string   `json:"type,omitempty"`
	URL   string   `json:"url,omitempty"`
}

// Response is the backend answer to a Request. A Form continues the wizard,
// ValidationErrors reject the last step, anything else completes the form.
type Response struct {
	Form             map[string]any    `json:"form,omitempty"`
	Meta             *Meta             `json:"meta,omitempty"`
	ValidationErrors []ValidationError `json:"validation_errors,omitempty"`
	Success          bool              `json:"success,omitempty"`
}

// Rejected reports whether the response carries validation errors.
func (r Response) Rejected() bool {
	return len(r.ValidationErrors) > 0
}

// Completed reports whether the response ends the form.
func (r Response) Completed() bool {
	if r.Rejected() {
		return false
	}
	return r.Success || r.Form == nil
}

// Transport submits step payloads to the backend.
type Transport interface {
	Submit(ctx context.Context, req Request) (Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req Request) (Response, error)

func (fn TransportFunc) Submit(ctx context.Context, req Request) (Response, error) {
	return fn(ctx, req)
}

// LabelSource supplies display labels and value overrides for a form.
type LabelSource interface {
	Labels(ctx context.Context, formKey string) (model.Labels, error)
}

// LabelSourceFunc adapts a function to LabelSource.
type LabelSourceFunc func(ctx context.Context, formKey string) (model.Labels, error)

func (fn LabelSourceFunc) Labels(ctx context.Context, formKey string) (model.Labels, error) {
	return fn(ctx, formKey)
}
