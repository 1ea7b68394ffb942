package httptransport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/session"
)

func newBackend(t *testing.T, submit http.HandlerFunc, labels http.HandlerFunc) *Client {
	t.Helper()
	router := chi.NewRouter()
	if submit != nil {
		router.Post("/api/forms/{key}", submit)
	}
	if labels != nil {
		router.Get("/api/forms/{key}/labels", labels)
	}
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	client, err := New(server.URL+"/api", WithHTTPClient(server.Client()), WithHeader("X-Tenant", "acme"))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestSubmit_PostsStepList(t *testing.T) {
	var (
		gotKey    string
		gotTenant string
		gotSteps  []map[string]any
	)
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = chi.URLParam(r, "key")
		gotTenant = r.Header.Get("X-Tenant")
		if err := json.NewDecoder(r.Body).Decode(&gotSteps); err != nil {
			t.Errorf("decode body: %v", err)
		}
		writeJSON(w, http.StatusOK, `{"form":{"properties":{"b":{"type":"string"}}},"meta":{"hasNext":true}}`)
	}, nil)

	resp, err := client.Submit(context.Background(), session.Request{
		FormKey: "signup",
		Steps:   []map[string]any{{"a": 1.0}},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if gotKey != "signup" || gotTenant != "acme" {
		t.Fatalf("unexpected request key=%q tenant=%q", gotKey, gotTenant)
	}
	if diff := cmp.Diff([]map[string]any{{"a": 1.0}}, gotSteps); diff != "" {
		t.Fatalf("steps (-want +got):\n%s", diff)
	}
	if resp.Form == nil || resp.Meta == nil || !resp.Meta.HasNext {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestSubmit_EmptyStepsIsAnArray(t *testing.T) {
	var body string
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.WriteHeader(http.StatusNoContent)
	}, nil)

	resp, err := client.Submit(context.Background(), session.Request{FormKey: "signup"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if body != "[]" {
		t.Fatalf("expected empty array body, got %q", body)
	}
	if !resp.Completed() {
		t.Fatalf("an empty 204 completes the form")
	}
}

func TestSubmit_DecodesRejections(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusNotExtended} {
		client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, status, `{"validation_errors":[{"loc":["__root__"],"msg":"closed","type":"value_error"}]}`)
		}, nil)
		resp, err := client.Submit(context.Background(), session.Request{FormKey: "f"})
		if err != nil {
			t.Fatalf("status %d: %v", status, err)
		}
		if len(resp.ValidationErrors) != 1 || resp.ValidationErrors[0].Msg != "closed" {
			t.Fatalf("status %d: unexpected response %+v", status, resp)
		}
	}
}

func TestSubmit_OtherStatusesAreTransportErrors(t *testing.T) {
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"detail":"boom"}`)
	}, nil)
	_, err := client.Submit(context.Background(), session.Request{FormKey: "f"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestSubmit_MalformedBody(t *testing.T) {
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"form":`)
	}, nil)
	if _, err := client.Submit(context.Background(), session.Request{FormKey: "f"}); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestLabels(t *testing.T) {
	client := newBackend(t, nil, func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "key") != "signup" {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, `{"labels":{"a":"Age","a_info":"In years"},"data":{"a":30}}`)
	})

	labels, err := client.Labels(context.Background(), "signup")
	if err != nil {
		t.Fatalf("labels: %v", err)
	}
	want := model.Labels{
		Labels: map[string]string{"a": "Age", "a_info": "In years"},
		Values: map[string]any{"a": float64(30)},
	}
	if diff := cmp.Diff(want, labels); diff != "" {
		t.Fatalf("labels (-want +got):\n%s", diff)
	}

	missing, err := client.Labels(context.Background(), "other")
	if err != nil || !missing.IsZero() {
		t.Fatalf("404 must yield empty labels, got %+v %v", missing, err)
	}
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://example.com", "::"} {
		if _, err := New(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestClient_DrivesSession(t *testing.T) {
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		var steps []map[string]any
		_ = json.NewDecoder(r.Body).Decode(&steps)
		switch len(steps) {
		case 0:
			writeJSON(w, http.StatusOK, `{"form":{"required":["a"],"properties":{"a":{"type":"integer"}}}}`)
		default:
			writeJSON(w, http.StatusOK, `{"success":true}`)
		}
	}, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"labels":{"a":"Answer"}}`)
	})

	s, err := session.New("quiz", client, session.WithLabelSource(client))
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	snap, err := s.Start(context.Background())
	if err != nil || snap.Fields["a"].Title != "Answer" {
		t.Fatalf("start: %+v %v", snap, err)
	}
	if err := s.SetValue("a", 42); err != nil {
		t.Fatalf("set: %v", err)
	}
	snap, err = s.Submit(context.Background())
	if err != nil || snap.State != session.StateFulfilled {
		t.Fatalf("submit: %v %v", snap.State, err)
	}
}
