package session

import "errors"

// ErrMessageGeneric is surfaced as a form error when the transport fails.
const ErrMessageGeneric = "Something went wrong. Please try again."

var (
	// ErrNotReady is returned when an operation needs a loaded step.
	ErrNotReady = errors.New("session: not ready")
	// ErrSuperseded is returned to a caller whose response arrived after a
	// newer request was started. The response is discarded.
	ErrSuperseded = errors.New("session: superseded by a newer request")
	// ErrNoPreviousStep is returned by Back on the first step.
	ErrNoPreviousStep = errors.New("session: no previous step")
	// ErrInvalid is returned by Submit when client side validation fails.
	ErrInvalid = errors.New("session: invalid input")
)
