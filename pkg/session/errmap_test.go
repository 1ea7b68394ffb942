package session

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	json "github.com/goccy/go-json"

	"github.com/goliatone/go-formflow/pkg/model"
)

func TestResponse_DecodesMixedLocations(t *testing.T) {
	raw := []byte(`{"validation_errors":[{"loc":["body","people",1,"name"],"msg":"bad","input":"x","type":"value_error","url":"https://errors.example/value_error"}]}`)
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []ValidationError{{
		Loc:   Location{"body", "people", "1", "name"},
		Msg:   "bad",
		Input: "x",
		Type:  "value_error",
		URL:   "https://errors.example/value_error",
	}}
	if diff := cmp.Diff(want, resp.ValidationErrors); diff != "" {
		t.Fatalf("decoded errors (-want +got):\n%s", diff)
	}
	if !resp.Rejected() || resp.Completed() {
		t.Fatalf("a rejection is neither complete nor successful")
	}
}

func TestMapValidationErrors(t *testing.T) {
	fields := model.FieldMap{
		"people": {ID: "people", Type: model.FieldTypeArray},
		"email":  {ID: "email", Type: model.FieldTypeString},
	}
	fieldErrors, formErrors := MapValidationErrors(fields, []ValidationError{
		{Loc: Location{"body", "people", "1", "name"}, Msg: "name missing"},
		{Loc: Location{"email"}, Msg: " invalid email ", Input: "nope"},
		{Loc: Location{"__root__"}, Msg: "passwords differ"},
		{Loc: Location{"non_field_errors"}, Msg: "passwords differ"},
		{Loc: nil, Msg: "no location"},
		{Loc: Location{"email"}, Msg: ""},
	})

	wantFields := map[string]FieldError{
		"people": {Message: "name missing"},
		"email":  {Value: "nope", Message: "invalid email"},
	}
	if diff := cmp.Diff(wantFields, fieldErrors); diff != "" {
		t.Fatalf("field errors (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"passwords differ", "no location"}, formErrors); diff != "" {
		t.Fatalf("form errors (-want +got):\n%s", diff)
	}
}

func TestMapValidationErrors_FieldNamedLikeWrapper(t *testing.T) {
	fields := model.FieldMap{
		"body": {ID: "body", Type: model.FieldTypeObject},
		"x":    {ID: "x", Type: model.FieldTypeString},
	}
	fieldErrors, formErrors := MapValidationErrors(fields, []ValidationError{
		{Loc: Location{"body", "x"}, Msg: "body.x is invalid"},
		{Loc: Location{"request", "x"}, Msg: "x is invalid"},
	})

	wantFields := map[string]FieldError{
		"body": {Message: "body.x is invalid"},
		"x":    {Message: "x is invalid"},
	}
	if diff := cmp.Diff(wantFields, fieldErrors); diff != "" {
		t.Fatalf("field errors (-want +got):\n%s", diff)
	}
	if len(formErrors) != 0 {
		t.Fatalf("unexpected form errors %q", formErrors)
	}
}

func TestResponse_Completed(t *testing.T) {
	cases := []struct {
		name string
		resp Response
		want bool
	}{
		{"empty", Response{}, true},
		{"explicit success", Response{Success: true, Form: map[string]any{}}, true},
		{"next form", Response{Form: map[string]any{}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.resp.Completed(); got != tc.want {
				t.Fatalf("want %v got %v", tc.want, got)
			}
		})
	}
}
