package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"

	"github.com/goliatone/go-formflow/pkg/rules"
	"github.com/goliatone/go-formflow/pkg/session"
)

const maxBodyBytes = 1 << 20

// Server answers the form step protocol from a script.
type Server struct {
	forms  map[string]compiledForm
	logger *slog.Logger
}

// NewServer compiles script and returns a server for it.
func NewServer(ctx context.Context, script Script, logger *slog.Logger) (*Server, error) {
	forms, err := script.compile(ctx)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{forms: forms, logger: logger}, nil
}

// Handler returns the HTTP router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	s.RegisterRoutes(r)
	return r
}

// RegisterRoutes mounts the form endpoints on r.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/forms/{formKey}", s.submit)
	r.Get("/forms/{formKey}/labels", s.labels)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	form, ok := s.forms[chi.URLParam(r, "formKey")]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown form")
		return
	}

	var steps []map[string]any
	if err := decodeJSON(w, r, &steps); err != nil {
		writeJSON(w, http.StatusBadRequest, session.Response{
			ValidationErrors: []session.ValidationError{{
				Loc:  session.Location{session.RootLocation},
				Msg:  "Body must be a JSON array of step objects",
				Type: "invalid_body",
			}},
		})
		return
	}
	if len(steps) > len(form.steps) {
		writeError(w, http.StatusBadRequest, "more steps submitted than the form has")
		return
	}

	if n := len(steps); n > 0 {
		values := steps[n-1]
		if values == nil {
			values = map[string]any{}
		}
		if errs := validationErrors(rules.Validate(form.steps[n-1].rule, values), values); len(errs) > 0 {
			s.logger.Debug("step rejected", slog.Int("step", n-1), slog.Int("errors", len(errs)))
			writeJSON(w, http.StatusUnprocessableEntity, session.Response{ValidationErrors: errs})
			return
		}
	}

	next := len(steps)
	if next == len(form.steps) {
		writeJSON(w, http.StatusOK, session.Response{Success: true})
		return
	}
	writeJSON(w, http.StatusOK, session.Response{
		Form: form.steps[next].schema,
		Meta: &session.Meta{HasNext: next+1 < len(form.steps)},
	})
}

func (s *Server) labels(w http.ResponseWriter, r *http.Request) {
	form, ok := s.forms[chi.URLParam(r, "formKey")]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown form")
		return
	}
	writeJSON(w, http.StatusOK, form.labels)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// validationErrors converts rule issues into the wire format, locating each
// issue under "body" like common Python backends do.
func validationErrors(err error, values map[string]any) []session.ValidationError {
	var verr *rules.ValidationError
	if !errors.As(err, &verr) {
		return nil
	}
	out := make([]session.ValidationError, 0, len(verr.Issues))
	for _, issue := range verr.Issues {
		loc := session.Location{session.RootLocation}
		if len(issue.Path) > 0 {
			loc = append(session.Location{"body"}, issue.Path...)
		}
		var input any
		if len(issue.Path) > 0 {
			input = values[issue.Path[0]]
		}
		out = append(out, session.ValidationError{
			Loc:   loc,
			Msg:   issue.Message,
			Type:  strings.ToLower(string(issue.Code)),
			Input: input,
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("encode response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}
