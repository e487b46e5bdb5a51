package gesture

// Expression is a coarse facial expression state.
type Expression string

const (
	ExpressionNeutral   Expression = "neutral"
	ExpressionSmiley    Expression = "smiley"
	ExpressionSurprised Expression = "surprised"
)

// Text returns the message emitted when entering the expression.
func (e Expression) Text() string {
	switch e {
	case ExpressionSmiley:
		return "You look prototypically Smiley!"
	case ExpressionSurprised:
		return "You look prototypically Surprised!"
	default:
		return ""
	}
}

// ExpressionThresholds are the accumulated-delta thresholds for expressions, in
// landmark coordinate units, plus the post-transition cooldown in seconds.
type ExpressionThresholds struct {
	Smile    float64
	Eyebrow  float64
	Mouth    float64
	Cooldown float64
}

// DefaultExpressionThresholds returns the empirically tuned expression thresholds.
func DefaultExpressionThresholds() ExpressionThresholds {
	return ExpressionThresholds{Smile: 20, Eyebrow: 8, Mouth: 20, Cooldown: 2.0}
}

// ExpressionRules returns the expression rules in priority order: smile, then
// surprise (brows and mouth together).
func ExpressionRules(t ExpressionThresholds) Rules {
	return Rules{
		{Label: string(ExpressionSmiley), Match: Above(SignalSmile, t.Smile)},
		{Label: string(ExpressionSurprised), Match: All(
			Above(SignalEyebrow, t.Eyebrow),
			Above(SignalMouth, t.Mouth),
		)},
	}
}

// ExpressionTracker is the hysteresis state machine over shape-window closures.
//
// Entering smiley or surprised emits once and starts a cooldown. Falling back to
// neutral is silent. Re-detecting the current expression does nothing.
type ExpressionTracker struct {
	rules    Rules
	cooldown float64

	current       Expression
	cooldownStart float64
	cooling       bool
}

// NewExpressionTracker creates a tracker in the neutral state.
func NewExpressionTracker(t ExpressionThresholds) *ExpressionTracker {
	return &ExpressionTracker{
		rules:    ExpressionRules(t),
		cooldown: t.Cooldown,
		current:  ExpressionNeutral,
	}
}

// Update classifies the sums of a closed shape window at timestamp ts.
// It returns the new expression and true only when a transition must be announced.
func (x *ExpressionTracker) Update(ts float64, sums Values) (Expression, bool) {
	candidate := ExpressionNeutral
	if label, ok := x.rules.First(sums); ok {
		candidate = Expression(label)
	}

	switch {
	case candidate == x.current:
		return x.current, false
	case candidate == ExpressionNeutral:
		x.current = ExpressionNeutral
		return x.current, false
	default:
		x.current = candidate
		x.cooldownStart = ts
		x.cooling = true
		return x.current, true
	}
}

// CoolingDown reports whether ts falls inside the cooldown after the last announced transition.
func (x *ExpressionTracker) CoolingDown(ts float64) bool {
	return x.cooling && ts-x.cooldownStart < x.cooldown
}

// Current returns the current expression.
func (x *ExpressionTracker) Current() Expression {
	return x.current
}
