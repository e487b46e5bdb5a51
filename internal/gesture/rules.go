package gesture

// Rule pairs a label with the predicate that selects it.
type Rule struct {
	Label string
	Match func(Values) bool
}

// Rules is an ordered rule list. The first matching rule wins, so order is the
// tie-break policy.
type Rules []Rule

// First returns the label of the first rule matching sums.
func (r Rules) First(sums Values) (string, bool) {
	for _, rule := range r {
		if rule.Match(sums) {
			return rule.Label, true
		}
	}
	return "", false
}

// Above returns a predicate that holds when the sum of s is strictly greater than threshold.
func Above(s Signal, threshold float64) func(Values) bool {
	return func(v Values) bool {
		return v[s] > threshold
	}
}

// All returns a predicate that holds when every predicate holds.
func All(preds ...func(Values) bool) func(Values) bool {
	return func(v Values) bool {
		for _, p := range preds {
			if !p(v) {
				return false
			}
		}
		return true
	}
}

// Gesture labels, also the exact text emitted for each gesture.
const (
	LabelYes       = "Yes"
	LabelNo        = "No"
	LabelIndianNod = "Indian Nod"
)

// PoseThresholds are the accumulated-delta thresholds for head gestures, in the
// engine's pose-angle units.
type PoseThresholds struct {
	Pitch float64
	Yaw   float64
	Roll  float64
}

// DefaultPoseThresholds returns the empirically tuned gesture thresholds.
func DefaultPoseThresholds() PoseThresholds {
	return PoseThresholds{Pitch: 0.8, Yaw: 1.0, Roll: 1.0}
}

// PoseRules returns the gesture rules in priority order: nod, shake, lateral nod.
func PoseRules(t PoseThresholds) Rules {
	return Rules{
		{Label: LabelYes, Match: Above(SignalPitch, t.Pitch)},
		{Label: LabelNo, Match: Above(SignalYaw, t.Yaw)},
		{Label: LabelIndianNod, Match: Above(SignalRoll, t.Roll)},
	}
}
