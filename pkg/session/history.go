package session

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	json "github.com/goccy/go-json"
)

// History maps a hash of an ordered step list to the values of the step that
// followed it. It is not safe for concurrent use; the owning Session
// serialises access.
type History struct {
	entries map[string]map[string]any
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{entries: make(map[string]map[string]any)}
}

// HashSteps digests the JSON encoding of steps. Map keys are encoded in
// sorted order, so equal step lists always hash equally.
func HashSteps(steps []map[string]any) (string, error) {
	if steps == nil {
		steps = []map[string]any{}
	}
	raw, err := json.Marshal(steps)
	if err != nil {
		return "", fmt.Errorf("session: hash steps: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// Put records payload as the values entered after steps.
func (h *History) Put(steps []map[string]any, payload map[string]any) error {
	key, err := HashSteps(steps)
	if err != nil {
		return err
	}
	h.entries[key] = cloneValues(payload)
	return nil
}

// Lookup returns a copy of the values entered after steps.
func (h *History) Lookup(steps []map[string]any) (map[string]any, bool, error) {
	key, err := HashSteps(steps)
	if err != nil {
		return nil, false, err
	}
	payload, ok := h.entries[key]
	if !ok {
		return nil, false, nil
	}
	return cloneValues(payload), true, nil
}

// Len returns the number of recorded entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Clear drops every entry.
func (h *History) Clear() {
	h.entries = make(map[string]map[string]any)
}
