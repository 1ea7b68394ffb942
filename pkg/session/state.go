package session

// State is the lifecycle position of a session.
type State int

const (
	StateAwaitingSchema State = iota
	StateReady
	StateSubmitting
	StateFulfilled
)

func (s State) String() string {
	switch s {
	case StateAwaitingSchema:
		return "awaiting_schema"
	case StateReady:
		return "ready"
	case StateSubmitting:
		return "submitting"
	case StateFulfilled:
		return "fulfilled"
	default:
		return "unknown"
	}
}

// TransitionHook observes state changes. It runs after the session lock is
// released and may call back into the session.
type TransitionHook func(from, to State)
