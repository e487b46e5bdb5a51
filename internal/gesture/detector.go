package gesture

import (
	"time"

	"github.com/ayusman/abhinaya/internal/face"
)

// Default window lengths in seconds.
const (
	DefaultPoseWindow         = 0.8
	DefaultPoseOnlyPoseWindow = 0.75
	DefaultShapeWindow        = 0.2
)

// DetectorConfig holds the parameters of a Detector.
type DetectorConfig struct {
	PoseWindow float64
	Pose       PoseThresholds

	// Expressions enables the shape path and its cooldown gate.
	Expressions bool
	ShapeWindow float64
	Expression  ExpressionThresholds

	// Now stamps events with wall time. Defaults to time.Now.
	Now func() time.Time
}

// DefaultDetectorConfig returns the configuration of the expression-capable detector.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		PoseWindow:  DefaultPoseWindow,
		Pose:        DefaultPoseThresholds(),
		Expressions: true,
		ShapeWindow: DefaultShapeWindow,
		Expression:  DefaultExpressionThresholds(),
	}
}

// Stats counts what a Detector did with the frames it was given.
type Stats struct {
	Frames       int `json:"frames"`
	Gated        int `json:"gated"`
	Regressed    int `json:"regressed"`
	PoseWindows  int `json:"pose_windows"`
	ShapeWindows int `json:"shape_windows"`
	Events       int `json:"events"`
}

// Detector runs the gesture and expression paths over one ordered frame stream.
// It is not safe for concurrent use; one loop owns it.
type Detector struct {
	pose     *Window
	gestures Rules

	shape *Window
	expr  *ExpressionTracker

	now   func() time.Time
	last  float64
	seen  bool
	stats Stats
}

// NewDetector creates a Detector with fresh window and expression state.
func NewDetector(cfg DetectorConfig) *Detector {
	d := &Detector{
		pose:     NewWindow(cfg.PoseWindow, SignalPitch, SignalYaw, SignalRoll),
		gestures: PoseRules(cfg.Pose),
		now:      cfg.Now,
	}
	if d.now == nil {
		d.now = time.Now
	}
	if cfg.Expressions {
		d.shape = NewWindow(cfg.ShapeWindow, SignalSmile, SignalMouth, SignalEyebrow)
		d.expr = NewExpressionTracker(cfg.Expression)
	}
	return d
}

// Process feeds one frame and returns the events it produced, in order:
// at most one gesture, then at most one expression.
//
// Frames whose timestamp goes backwards are dropped. While an expression
// cooldown is active every frame is dropped before it reaches either window.
func (d *Detector) Process(f face.Frame) []Event {
	ts := f.Timestamp
	if d.seen && ts < d.last {
		d.stats.Regressed++
		return nil
	}
	if d.expr != nil && d.expr.CoolingDown(ts) {
		d.stats.Gated++
		return nil
	}
	d.seen = true
	d.last = ts
	d.stats.Frames++

	var events []Event

	pose := Values{SignalPitch: f.Pitch, SignalYaw: f.Yaw, SignalRoll: f.Roll}
	if sums, closed := d.pose.Observe(ts, pose); closed {
		d.stats.PoseWindows++
		if label, ok := d.gestures.First(sums); ok {
			events = append(events, NewEvent(KindGesture, label, label, ts, sums, d.now()))
		}
	}

	if d.expr != nil {
		feat := face.Extract(f.Landmarks)
		shape := Values{SignalSmile: feat.Lip, SignalMouth: feat.MouthOpen, SignalEyebrow: feat.Eyebrow}
		if sums, closed := d.shape.Observe(ts, shape); closed {
			d.stats.ShapeWindows++
			if expr, ok := d.expr.Update(ts, sums); ok {
				events = append(events, NewEvent(KindExpression, string(expr), expr.Text(), ts, sums, d.now()))
			}
		}
	}

	d.stats.Events += len(events)
	return events
}

// Expression returns the current expression, or neutral when expressions are disabled.
func (d *Detector) Expression() Expression {
	if d.expr == nil {
		return ExpressionNeutral
	}
	return d.expr.Current()
}

// Expressions reports whether the shape path is enabled.
func (d *Detector) Expressions() bool {
	return d.expr != nil
}

// PoseSums returns the sums accumulated so far in the open pose window.
func (d *Detector) PoseSums() Values {
	return d.pose.Sums()
}

// ShapeSums returns the sums accumulated so far in the open shape window, or nil.
func (d *Detector) ShapeSums() Values {
	if d.shape == nil {
		return nil
	}
	return d.shape.Sums()
}

// LastTimestamp returns the timestamp of the last accepted frame.
func (d *Detector) LastTimestamp() float64 {
	return d.last
}

// Stats returns the frame and window counters.
func (d *Detector) Stats() Stats {
	return d.stats
}
