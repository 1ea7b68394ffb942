package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-formflow/pkg/jsonschema"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/validation"
	"github.com/goliatone/go-formflow/pkg/widgets"
)

// Snapshot is a read-only copy of the session's live state.
type Snapshot struct {
	ID          string                `json:"id"`
	FormKey     string                `json:"formKey"`
	State       State                 `json:"state"`
	Step        int                   `json:"step"`
	HasNext     bool                  `json:"hasNext"`
	Schema      schema.Node           `json:"schema,omitempty"`
	Fields      model.FieldMap        `json:"fields,omitempty"`
	Values      map[string]any        `json:"values"`
	FieldErrors map[string]FieldError `json:"fieldErrors,omitempty"`
	FormErrors  []string              `json:"formErrors,omitempty"`
}

type transition struct {
	from, to State
}

// Session drives one multi-step form. All methods are safe for concurrent
// use. Blocking calls release the lock while the transport is busy; a call
// that starts a newer request supersedes any request still in flight.
type Session struct {
	id        string
	formKey   string
	transport Transport

	labelSource      LabelSource
	builder          *model.Builder
	matcher          *widgets.Matcher
	resolver         *jsonschema.Resolver
	overrides        model.Overrides
	hook             TransitionHook
	logger           *slog.Logger
	clientValidation bool

	group singleflight.Group

	mu           sync.Mutex
	state        State
	generation   uint64
	labels       model.Labels
	labelsLoaded bool
	schema       schema.Node
	fields       model.FieldMap
	meta         Meta
	values       map[string]any
	steps        []map[string]any
	history      *History
	fieldErrors  map[string]FieldError
	formErrors   []string
	pending      []transition
}

// New creates a session for formKey. Call Start to load the first step.
func New(formKey string, transport Transport, options ...Option) (*Session, error) {
	if formKey == "" {
		return nil, errors.New("session: form key is required")
	}
	if transport == nil {
		return nil, errors.New("session: transport is required")
	}
	s := &Session{
		id:               uuid.NewString(),
		formKey:          formKey,
		transport:        transport,
		builder:          model.NewBuilder(),
		matcher:          widgets.NewMatcher(),
		resolver:         jsonschema.NewResolver(nil, jsonschema.ResolveOptions{}),
		logger:           discardLogger(),
		clientValidation: true,
		state:            StateAwaitingSchema,
		values:           make(map[string]any),
		history:          NewHistory(),
		fieldErrors:      make(map[string]FieldError),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = s.logger.With(slog.String("session", s.id), slog.String("form", formKey))
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Start loads labels (once per session) and the schema of the first step.
// It may be called again to retry after a failed fetch; a submission still in
// flight is superseded.
func (s *Session) Start(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	s.steps = nil
	s.setState(StateAwaitingSchema)
	gen := s.nextGeneration()
	needLabels := !s.labelsLoaded && s.labelSource != nil
	s.unlockAndNotify()

	if needLabels {
		s.loadLabels(ctx, gen)
	}
	return s.fetch(ctx, gen, nil)
}

func (s *Session) loadLabels(ctx context.Context, gen uint64) {
	labels, err := s.labelSource.Labels(ctx, s.formKey)
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	if err != nil {
		s.logger.Warn("label fetch failed", slog.Any("error", err))
		return
	}
	s.labels = labels
	s.labelsLoaded = true
}

// fetch requests the schema that follows steps and loads it.
func (s *Session) fetch(ctx context.Context, gen uint64, steps []map[string]any) (Snapshot, error) {
	resp, err := s.send(ctx, steps)
	var resolved schema.Node
	if err == nil && resp.Form != nil {
		resolved, err = s.resolve(ctx, resp.Form)
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return s.Snapshot(), ErrSuperseded
	}
	switch {
	case err != nil:
		s.failTransport(err)
	case resp.Form == nil:
		if resp.Rejected() {
			_, formErrors := MapValidationErrors(nil, resp.ValidationErrors)
			s.formErrors = mergeMessages(s.formErrors, formErrors...)
		}
		s.failTransport(errors.New("response carries no form"))
	default:
		s.loadSchema(resolved, resp.Meta, steps)
	}
	s.unlockAndNotify()
	return s.Snapshot(), nil
}

// Submit validates the current values, appends them to the step list and
// sends the list to the backend. A client side validation failure returns
// ErrInvalid with the errors attached to the snapshot. Transport failures are
// reported through Snapshot.FormErrors only.
func (s *Session) Submit(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if s.state != StateReady || s.fields == nil {
		s.mu.Unlock()
		return s.Snapshot(), ErrNotReady
	}
	if s.clientValidation {
		if errs := validation.Validate(s.fields, s.matcher, s.values); len(errs) > 0 {
			s.fieldErrors = make(map[string]FieldError, len(errs))
			for id, message := range errs {
				value, _ := getPath(s.values, id)
				s.fieldErrors[id] = FieldError{Value: value, Message: message}
			}
			s.mu.Unlock()
			return s.Snapshot(), ErrInvalid
		}
	}

	prior := cloneSteps(s.steps)
	payload := cloneValues(s.values)
	steps := append(cloneSteps(s.steps), payload)
	gen := s.nextGeneration()
	s.formErrors = nil
	s.setState(StateSubmitting)
	s.unlockAndNotify()

	resp, err := s.send(ctx, steps)
	var resolved schema.Node
	if err == nil && !resp.Rejected() && !resp.Completed() {
		resolved, err = s.resolve(ctx, resp.Form)
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug("discarding superseded submission")
		return s.Snapshot(), ErrSuperseded
	}
	switch {
	case err != nil:
		s.failTransport(err)
	case resp.Rejected():
		s.fieldErrors, s.formErrors = MapValidationErrors(s.fields, resp.ValidationErrors)
		s.setState(StateReady)
	case resp.Completed():
		s.fulfil()
	default:
		if putErr := s.history.Put(prior, payload); putErr != nil {
			s.logger.Warn("history update failed", slog.Any("error", putErr))
		}
		s.setState(StateAwaitingSchema)
		s.loadSchema(resolved, resp.Meta, steps)
	}
	s.unlockAndNotify()
	return s.Snapshot(), nil
}

// Back returns to the previous step. The values of the current step are kept
// so that submitting the same history again restores them, and the previous
// step's values are restored from the history.
func (s *Session) Back(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return s.Snapshot(), ErrNotReady
	}
	if len(s.steps) == 0 {
		s.mu.Unlock()
		return s.Snapshot(), ErrNoPreviousStep
	}
	if err := s.history.Put(s.steps, s.values); err != nil {
		s.logger.Warn("history update failed", slog.Any("error", err))
	}
	previous := cloneSteps(s.steps[:len(s.steps)-1])
	gen := s.nextGeneration()
	s.setState(StateAwaitingSchema)
	s.unlockAndNotify()

	return s.fetch(ctx, gen, previous)
}

// Reset drops every step, value and history entry and supersedes requests in
// flight. Labels are kept. Call Start to begin again.
func (s *Session) Reset() {
	s.mu.Lock()
	s.nextGeneration()
	s.history.Clear()
	s.steps = nil
	s.values = make(map[string]any)
	s.schema = nil
	s.fields = nil
	s.meta = Meta{}
	s.fieldErrors = make(map[string]FieldError)
	s.formErrors = nil
	s.setState(StateAwaitingSchema)
	s.unlockAndNotify()
}

// SetValue stores value under a dotted field id and clears that field's
// error.
func (s *Session) SetValue(id string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return ErrNotReady
	}
	if err := setPath(s.values, id, value); err != nil {
		return err
	}
	delete(s.fieldErrors, id)
	return nil
}

// Value reads the value stored under a dotted field id.
func (s *Session) Value(id string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return getPath(s.values, id)
}

// Values returns a copy of the current step's values.
func (s *Session) Values() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneValues(s.values)
}

// Validate runs client side validation against the current values, stores
// the result as field errors and returns the messages keyed by field id.
func (s *Session) Validate() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fields == nil {
		return nil
	}
	errs := validation.Validate(s.fields, s.matcher, s.values)
	s.fieldErrors = make(map[string]FieldError, len(errs))
	for id, message := range errs {
		value, _ := getPath(s.values, id)
		s.fieldErrors[id] = FieldError{Value: value, Message: message}
	}
	return errs
}

// HistoryLen returns the number of recorded history entries.
func (s *Session) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Len()
}

// Snapshot copies the live state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:         s.id,
		FormKey:    s.formKey,
		State:      s.state,
		Step:       len(s.steps),
		HasNext:    s.meta.HasNext,
		Schema:     schema.DeepClone(s.schema),
		Fields:     s.fields,
		Values:     cloneValues(s.values),
		FormErrors: append([]string(nil), s.formErrors...),
	}
	if len(s.fieldErrors) > 0 {
		snap.FieldErrors = make(map[string]FieldError, len(s.fieldErrors))
		for id, fieldErr := range s.fieldErrors {
			snap.FieldErrors[id] = fieldErr
		}
	}
	return snap
}

// send deduplicates identical in-flight requests.
func (s *Session) send(ctx context.Context, steps []map[string]any) (Response, error) {
	key, err := HashSteps(steps)
	if err != nil {
		return Response{}, err
	}
	result, err, shared := s.group.Do(s.formKey+":"+key, func() (any, error) {
		return s.transport.Submit(ctx, Request{FormKey: s.formKey, Steps: cloneSteps(steps)})
	})
	if err != nil {
		return Response{}, err
	}
	if shared {
		s.logger.Debug("shared in-flight request", slog.Int("steps", len(steps)))
	}
	resp, ok := result.(Response)
	if !ok {
		return Response{}, fmt.Errorf("session: unexpected transport result %T", result)
	}
	return resp, nil
}

func (s *Session) resolve(ctx context.Context, form map[string]any) (schema.Node, error) {
	raw := schema.Node(form)
	resolved, err := s.resolver.ResolveNode(ctx, raw, raw)
	if err != nil {
		return nil, fmt.Errorf("session: resolve step schema: %w", err)
	}
	return resolved, nil
}

// loadSchema compiles a resolved step schema and makes it the live step.
// Values previously entered after steps are restored. Callers hold the lock.
func (s *Session) loadSchema(resolved schema.Node, meta *Meta, steps []map[string]any) {
	s.schema = resolved
	s.fields = s.builder.Compile(resolved, s.labels, s.overrides, "")
	s.steps = cloneSteps(steps)
	s.meta = Meta{}
	if meta != nil {
		s.meta = *meta
	}
	s.fieldErrors = make(map[string]FieldError)
	s.formErrors = nil

	restored, ok, err := s.history.Lookup(steps)
	switch {
	case err != nil:
		s.logger.Warn("history lookup failed", slog.Any("error", err))
		s.values = make(map[string]any)
	case ok:
		s.logger.Debug("restored step values from history", slog.Int("step", len(steps)))
		s.values = restored
	default:
		s.values = make(map[string]any)
	}
	s.setState(StateReady)
}

// failTransport keeps the last good schema and surfaces a generic error.
// Callers hold the lock.
func (s *Session) failTransport(err error) {
	s.logger.Error("form request failed", slog.Any("error", err))
	s.formErrors = mergeMessages(s.formErrors, ErrMessageGeneric)
	if s.fields != nil {
		s.setState(StateReady)
		return
	}
	s.setState(StateAwaitingSchema)
}

func (s *Session) fulfil() {
	s.history.Clear()
	s.steps = nil
	s.values = make(map[string]any)
	s.fieldErrors = make(map[string]FieldError)
	s.formErrors = nil
	s.setState(StateFulfilled)
	s.logger.Info("form fulfilled")
}

func (s *Session) nextGeneration() uint64 {
	s.generation++
	return s.generation
}

func (s *Session) setState(to State) {
	if s.state == to {
		return
	}
	s.pending = append(s.pending, transition{from: s.state, to: to})
	s.state = to
}

func (s *Session) unlockAndNotify() {
	pending := s.pending
	s.pending = nil
	hook := s.hook
	s.mu.Unlock()
	if hook == nil {
		return
	}
	for _, t := range pending {
		hook(t.from, t.to)
	}
}
