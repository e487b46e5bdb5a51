package face

import (
	"strconv"
	"strings"
)

// Header returns the CSV header OpenFace writes for -pose -2Dfp.
func Header() string {
	cols := []string{
		"frame", "face_id", "timestamp", "confidence", "success",
		"pose_Tx", "pose_Ty", "pose_Tz", "pose_Rx", "pose_Ry", "pose_Rz",
	}
	for i := 0; i < NumLandmarks; i++ {
		cols = append(cols, "x_"+strconv.Itoa(i))
	}
	for i := 0; i < NumLandmarks; i++ {
		cols = append(cols, "y_"+strconv.Itoa(i))
	}
	return strings.Join(cols, ", ")
}

// FormatRow renders a frame as an OpenFace output row. Missing landmarks are
// written as zeros so the row always has the full column count.
func FormatRow(index int, f Frame) string {
	var lm Landmarks
	if f.Landmarks != nil {
		lm = *f.Landmarks
	}

	vals := []float64{
		float64(index), 0, f.Timestamp, f.Confidence, f.Success,
		0, 0, 0, f.Pitch, f.Yaw, f.Roll,
	}
	for i := 0; i < NumLandmarks; i++ {
		vals = append(vals, lm[i].X)
	}
	for i := 0; i < NumLandmarks; i++ {
		vals = append(vals, lm[i].Y)
	}

	fields := make([]string, len(vals))
	for i, v := range vals {
		fields[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(fields, ", ")
}

// NeutralLandmarks returns a preset landmark set of a relaxed, closed-mouth face
// centred around (320, 240).
//
// Key distances: Lip 60, MouthOpen 4, Eyebrow ~94.87.
func NeutralLandmarks() *Landmarks {
	lm := new(Landmarks)

	// Spread the points not used by any feature over a plausible face area.
	for i := 0; i < NumLandmarks; i++ {
		lm[i] = Point{X: 220 + float64(i%17)*12, Y: 160 + float64(i/17)*40}
	}

	lm[LeftBrowApex] = Point{X: 290, Y: 200}
	lm[RightBrowApex] = Point{X: 350, Y: 200}

	lm[LeftMouthCorner] = Point{X: 290, Y: 300}
	lm[RightMouthCorner] = Point{X: 350, Y: 300}
	lm[UpperLipTop] = Point{X: 320, Y: 290}
	lm[LowerLipBottom] = Point{X: 320, Y: 315}
	lm[UpperLipInner] = Point{X: 320, Y: 298}
	lm[LowerLipInner] = Point{X: 320, Y: 302}

	return lm
}

// SmileLandmarks returns the neutral face with the mouth corners pulled out.
//
// Lip grows from 60 to 85; Eyebrow and MouthOpen are unchanged.
func SmileLandmarks() *Landmarks {
	lm := NeutralLandmarks()
	lm[LeftMouthCorner] = Point{X: 277.5, Y: 300}
	lm[RightMouthCorner] = Point{X: 362.5, Y: 300}
	return lm
}

// SurprisedLandmarks returns the neutral face with raised brows and a dropped jaw.
//
// Eyebrow grows from ~94.87 to ~109.20 and MouthOpen from 4 to 30; Lip is unchanged.
func SurprisedLandmarks() *Landmarks {
	lm := NeutralLandmarks()
	lm[LeftBrowApex] = Point{X: 290, Y: 185}
	lm[RightBrowApex] = Point{X: 350, Y: 185}
	lm[UpperLipInner] = Point{X: 320, Y: 296}
	lm[LowerLipInner] = Point{X: 320, Y: 326}
	return lm
}
