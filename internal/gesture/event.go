package gesture

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies an Event.
type Kind string

const (
	KindGesture    Kind = "gesture"
	KindExpression Kind = "expression"
	KindLifecycle  Kind = "lifecycle"
)

// Lifecycle labels.
const (
	LabelEnded = "ended"
	TextEnded  = "Program ended"
)

// Event is one classification result delivered to sinks.
type Event struct {
	ID    string `json:"id"`
	Kind  Kind   `json:"kind"`
	Label string `json:"label"`
	// Text is the plain-text line for the event stream.
	Text string `json:"text"`
	// Timestamp is the stream time, in seconds, of the frame that produced the event.
	Timestamp float64 `json:"timestamp"`
	// Sums are the window sums that triggered the event.
	Sums Values    `json:"sums,omitempty"`
	At   time.Time `json:"at"`
}

// NewEvent creates an Event with a fresh ID stamped at the given wall time.
func NewEvent(kind Kind, label, text string, ts float64, sums Values, at time.Time) Event {
	return Event{
		ID:        uuid.New().String(),
		Kind:      kind,
		Label:     label,
		Text:      text,
		Timestamp: ts,
		Sums:      sums,
		At:        at,
	}
}

// EndedEvent returns the terminal event emitted once the upstream exits.
func EndedEvent(ts float64, at time.Time) Event {
	return NewEvent(KindLifecycle, LabelEnded, TextEnded, ts, nil, at)
}

// Labels returns every label a classification event can carry, in the order
// the rules rank them.
func Labels() []string {
	return []string{
		LabelYes,
		LabelNo,
		LabelIndianNod,
		string(ExpressionSmiley),
		string(ExpressionSurprised),
	}
}

// IsLabel reports whether label can be produced by classification.
func IsLabel(label string) bool {
	for _, l := range Labels() {
		if l == label {
			return true
		}
	}
	return false
}
