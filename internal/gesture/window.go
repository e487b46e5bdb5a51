// Package gesture provides windowed delta accumulation and rule-based classification
// of head gestures and facial expressions.
package gesture

import "math"

// Signal names one scalar tracked by a Window.
type Signal string

// Pose signals.
const (
	SignalPitch Signal = "pitch"
	SignalYaw   Signal = "yaw"
	SignalRoll  Signal = "roll"
)

// Shape signals.
const (
	SignalSmile   Signal = "smile"
	SignalMouth   Signal = "mouth"
	SignalEyebrow Signal = "eyebrow"
)

// Values maps signals to a value: a measurement for one frame, or an
// accumulated sum for one window.
type Values map[Signal]float64

// Window accumulates the absolute frame-to-frame change of a fixed set of
// signals over a rolling time window.
//
// The first observed frame only primes the window. Every later frame adds
// |current - previous| for each signal. When the elapsed time since the window
// start reaches the window length, Observe returns the sums and starts a new
// window at that frame's timestamp.
type Window struct {
	length  float64
	signals []Signal

	sums   Values
	prev   Values
	start  float64
	primed bool
}

// NewWindow creates a Window of the given length in seconds over signals.
func NewWindow(length float64, signals ...Signal) *Window {
	w := &Window{
		length:  length,
		signals: append([]Signal(nil), signals...),
	}
	w.Reset()
	return w
}

// Observe feeds one frame's values at timestamp ts.
//
// It returns a copy of the accumulated sums and true when this frame closes the
// window, nil and false otherwise. Signals missing from v read as zero.
func (w *Window) Observe(ts float64, v Values) (Values, bool) {
	if !w.primed {
		w.remember(v)
		w.start = ts
		w.primed = true
		return nil, false
	}

	for _, s := range w.signals {
		w.sums[s] += math.Abs(v[s] - w.prev[s])
	}
	w.remember(v)

	if ts-w.start < w.length {
		return nil, false
	}

	closed := w.Sums()
	for _, s := range w.signals {
		w.sums[s] = 0
	}
	w.start = ts
	return closed, true
}

// Sums returns a copy of the sums accumulated in the current window.
func (w *Window) Sums() Values {
	out := make(Values, len(w.signals))
	for _, s := range w.signals {
		out[s] = w.sums[s]
	}
	return out
}

// Start returns the timestamp the current window started at.
func (w *Window) Start() float64 {
	return w.start
}

// Length returns the window length in seconds.
func (w *Window) Length() float64 {
	return w.length
}

// Primed reports whether the window has seen its first frame.
func (w *Window) Primed() bool {
	return w.primed
}

// Reset returns the window to its unprimed state.
func (w *Window) Reset() {
	w.sums = make(Values, len(w.signals))
	w.prev = make(Values, len(w.signals))
	w.start = 0
	w.primed = false
}

func (w *Window) remember(v Values) {
	for _, s := range w.signals {
		w.prev[s] = v[s]
	}
}
