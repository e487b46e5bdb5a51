package gesture

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ayusman/abhinaya/internal/face"
)

var fixedNow = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

// ignoreVolatile drops the per-event fields that differ between runs.
var ignoreVolatile = cmpopts.IgnoreFields(Event{}, "ID", "Sums")

func frame(ts, pitch, yaw, roll float64, lm *face.Landmarks) face.Frame {
	return face.Frame{Timestamp: ts, Confidence: 0.98, Success: 1, Pitch: pitch, Yaw: yaw, Roll: roll, Landmarks: lm}
}

func poseOnlyConfig() DetectorConfig {
	return DetectorConfig{
		PoseWindow: DefaultPoseOnlyPoseWindow,
		Pose:       DefaultPoseThresholds(),
		Now:        fixedNow,
	}
}

func expressionConfig() DetectorConfig {
	cfg := DefaultDetectorConfig()
	cfg.Now = fixedNow
	return cfg
}

func run(d *Detector, frames []face.Frame) []Event {
	var events []Event
	for _, f := range frames {
		events = append(events, d.Process(f)...)
	}
	return events
}

func TestDetector_NodEmitsYesOnce(t *testing.T) {
	d := NewDetector(poseOnlyConfig())

	events := run(d, []face.Frame{
		frame(0.0, 0.0, 0, 0, nil),
		frame(0.3, 0.3, 0, 0, nil),
		frame(0.6, 0.6, 0, 0, nil),
		frame(0.9, 0.9, 0, 0, nil),
	})

	want := []Event{{
		Kind:      KindGesture,
		Label:     LabelYes,
		Text:      "Yes",
		Timestamp: 0.9,
		At:        fixedNow(),
	}}
	if diff := cmp.Diff(want, events, ignoreVolatile); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	if got := events[0].Sums[SignalPitch]; got < 0.9-epsilon || got > 0.9+epsilon {
		t.Errorf("pitch sum = %f, want 0.9", got)
	}
	if events[0].ID == "" {
		t.Error("expected event ID to be set")
	}
}

func TestDetector_ConstantPoseNeverEmits(t *testing.T) {
	d := NewDetector(poseOnlyConfig())

	var frames []face.Frame
	for i := 0; i < 300; i++ {
		frames = append(frames, frame(float64(i)/30, 0.12, -0.4, 0.05, nil))
	}

	if events := run(d, frames); len(events) != 0 {
		t.Errorf("expected no events for constant pose, got %d", len(events))
	}
	if d.Stats().PoseWindows == 0 {
		t.Error("expected pose windows to close")
	}
}

func TestDetector_AtMostOneGesturePerWindow(t *testing.T) {
	d := NewDetector(poseOnlyConfig())

	// Every frame moves all three angles far past their thresholds.
	var frames []face.Frame
	for i := 0; i < 40; i++ {
		v := float64(i%2) * 3
		frames = append(frames, frame(float64(i)*0.1, v, v, v, nil))
	}

	events := run(d, frames)
	if len(events) != d.Stats().PoseWindows {
		t.Errorf("got %d events for %d window closures", len(events), d.Stats().PoseWindows)
	}
	for _, e := range events {
		if e.Label != LabelYes {
			t.Errorf("label = %q, want %q (pitch has priority)", e.Label, LabelYes)
		}
	}
}

func TestDetector_ShakeAndTilt(t *testing.T) {
	tests := []struct {
		name string
		yaw  float64
		roll float64
		want string
	}{
		{name: "shake", yaw: 0.6, roll: 0, want: LabelNo},
		{name: "tilt", yaw: 0, roll: 0.6, want: LabelIndianNod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(poseOnlyConfig())
			events := run(d, []face.Frame{
				frame(0.0, 0, 0, 0, nil),
				frame(0.4, 0, tt.yaw, tt.roll, nil),
				frame(0.8, 0, 0, 0, nil),
			})
			if len(events) != 1 || events[0].Label != tt.want {
				t.Fatalf("events = %+v, want one %q", events, tt.want)
			}
		})
	}
}

func TestDetector_DropsRegressingTimestamps(t *testing.T) {
	d := NewDetector(poseOnlyConfig())

	d.Process(frame(1.0, 0, 0, 0, nil))
	d.Process(frame(1.2, 0.1, 0, 0, nil))
	before := d.PoseSums()

	if events := d.Process(frame(0.5, 9, 9, 9, nil)); events != nil {
		t.Errorf("expected no events from a regressing frame, got %+v", events)
	}

	if diff := cmp.Diff(before, d.PoseSums()); diff != "" {
		t.Errorf("regressing frame changed sums (-before +after):\n%s", diff)
	}
	if d.Stats().Regressed != 1 {
		t.Errorf("Regressed = %d, want 1", d.Stats().Regressed)
	}
	if d.LastTimestamp() != 1.2 {
		t.Errorf("LastTimestamp() = %v, want 1.2", d.LastTimestamp())
	}
}

func TestDetector_SmileThenCooldown(t *testing.T) {
	d := NewDetector(expressionConfig())

	events := run(d, []face.Frame{
		frame(0.0, 0, 0, 0, face.NeutralLandmarks()),
		frame(0.1, 0, 0, 0, face.SmileLandmarks()),
		frame(0.2, 0, 0, 0, face.SmileLandmarks()),
	})

	want := []Event{{
		Kind:      KindExpression,
		Label:     string(ExpressionSmiley),
		Text:      "You look prototypically Smiley!",
		Timestamp: 0.2,
		At:        fixedNow(),
	}}
	if diff := cmp.Diff(want, events, ignoreVolatile); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
	if d.Expression() != ExpressionSmiley {
		t.Errorf("Expression() = %s, want smiley", d.Expression())
	}

	// Large head motion and a relaxed face inside the cooldown are ignored.
	gated := run(d, []face.Frame{
		frame(0.5, 5, 0, 0, face.NeutralLandmarks()),
		frame(1.0, -5, 0, 0, face.SurprisedLandmarks()),
		frame(1.5, 5, 0, 0, face.NeutralLandmarks()),
		frame(2.0, -5, 0, 0, face.SurprisedLandmarks()),
	})
	if len(gated) != 0 {
		t.Errorf("expected no events during cooldown, got %+v", gated)
	}
	if d.Stats().Gated != 4 {
		t.Errorf("Gated = %d, want 4", d.Stats().Gated)
	}
	for s, v := range d.PoseSums() {
		if v != 0 {
			t.Errorf("pose sum %s = %f during cooldown, want 0", s, v)
		}
	}
	for s, v := range d.ShapeSums() {
		if v != 0 {
			t.Errorf("shape sum %s = %f during cooldown, want 0", s, v)
		}
	}
}

func TestDetector_CooldownFramesLeaveNoTrace(t *testing.T) {
	prefix := []face.Frame{
		frame(0.0, 0, 0, 0, face.NeutralLandmarks()),
		frame(0.1, 0, 0, 0, face.SmileLandmarks()),
		frame(0.2, 0, 0, 0, face.SmileLandmarks()),
	}
	inCooldown := []face.Frame{
		frame(0.7, 4, -4, 4, face.SurprisedLandmarks()),
		frame(1.4, -4, 4, -4, face.NeutralLandmarks()),
	}
	suffix := []face.Frame{
		frame(2.5, 0.1, 0, 0, face.SmileLandmarks()),
		frame(2.6, 0.2, 0, 0, face.SmileLandmarks()),
		frame(2.7, 0.3, 0, 0, face.NeutralLandmarks()),
	}

	withGated := NewDetector(expressionConfig())
	gotEvents := run(withGated, append(append(append([]face.Frame{}, prefix...), inCooldown...), suffix...))

	without := NewDetector(expressionConfig())
	wantEvents := run(without, append(append([]face.Frame{}, prefix...), suffix...))

	if diff := cmp.Diff(wantEvents, gotEvents, cmpopts.IgnoreFields(Event{}, "ID")); diff != "" {
		t.Errorf("events differ (-without +with cooldown frames):\n%s", diff)
	}
	if diff := cmp.Diff(without.PoseSums(), withGated.PoseSums()); diff != "" {
		t.Errorf("pose sums differ (-without +with):\n%s", diff)
	}
	if diff := cmp.Diff(without.ShapeSums(), withGated.ShapeSums()); diff != "" {
		t.Errorf("shape sums differ (-without +with):\n%s", diff)
	}
	if withGated.Expression() != without.Expression() {
		t.Errorf("Expression() = %s, want %s", withGated.Expression(), without.Expression())
	}
}

func TestDetector_SurpriseAnnounced(t *testing.T) {
	d := NewDetector(expressionConfig())

	events := run(d, []face.Frame{
		frame(0.0, 0, 0, 0, face.NeutralLandmarks()),
		frame(0.1, 0, 0, 0, face.SurprisedLandmarks()),
		frame(0.2, 0, 0, 0, face.SurprisedLandmarks()),
	})

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Text != "You look prototypically Surprised!" {
		t.Errorf("Text = %q", events[0].Text)
	}
	if d.Expression() != ExpressionSurprised {
		t.Errorf("Expression() = %s, want surprised", d.Expression())
	}
}

func TestDetector_PoseOnlyHasNoExpressionState(t *testing.T) {
	d := NewDetector(poseOnlyConfig())

	if d.Expressions() {
		t.Error("pose-only detector should not track expressions")
	}
	if d.ShapeSums() != nil {
		t.Error("pose-only detector should have no shape sums")
	}

	// Landmarks are ignored entirely and no cooldown ever applies.
	events := run(d, []face.Frame{
		frame(0.0, 0, 0, 0, face.NeutralLandmarks()),
		frame(0.1, 0, 0, 0, face.SmileLandmarks()),
		frame(0.2, 0, 0, 0, face.SmileLandmarks()),
		frame(0.3, 0, 0, 0, face.NeutralLandmarks()),
	})
	if len(events) != 0 {
		t.Errorf("expected no events, got %+v", events)
	}
	if d.Stats().Gated != 0 {
		t.Errorf("Gated = %d, want 0", d.Stats().Gated)
	}
}
