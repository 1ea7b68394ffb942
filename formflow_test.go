package formflow

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/jsonschema"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/orchestrator"
	"github.com/goliatone/go-formflow/pkg/rules"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/session"
)

const contactSchema = `{
  "type": "object",
  "required": ["name"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "newsletter": {"type": "boolean"}
  }
}`

func TestCompileSource(t *testing.T) {
	files := fstest.MapFS{"contact.json": {Data: []byte(contactSchema)}}
	l := NewLoader(jsonschema.WithFileSystem(files))

	form, err := CompileSource(context.Background(), schema.SourceFromFS("contact.json"), orchestrator.WithLoader(l))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if diff := cmp.Diff([]string{"name", "newsletter"}, form.Fields.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if err := rules.Validate(form.Rule, map[string]any{"name": "Ada"}); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}
}

func TestCompileAndRules(t *testing.T) {
	node, err := jsonschema.Parse([]byte(contactSchema))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	fields := Compile(node, model.Labels{}, nil)
	err = rules.Validate(Rules(fields), map[string]any{"newsletter": "yes"})

	var verr *rules.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	got := verr.ByPath()
	if got["name"] != "Required" || got["newsletter"] == "" {
		t.Fatalf("unexpected issues: %v", got)
	}
}

func TestNewSession(t *testing.T) {
	transport := session.TransportFunc(func(context.Context, session.Request) (session.Response, error) {
		return session.Response{Form: map[string]any{"type": "object"}}, nil
	})
	sess, err := NewSession("contact", transport)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	snap, err := sess.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if snap.State != session.StateReady {
		t.Fatalf("state = %s", snap.State)
	}
}
