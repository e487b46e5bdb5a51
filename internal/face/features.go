package face

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Features are the scalar geometric measurements derived from one landmark set,
// in landmark coordinate units (pixels).
type Features struct {
	// Lip is the mouth width between the two corners.
	Lip float64 `json:"lip"`
	// Eyebrow is the mean distance from the brow apexes to the mouth centre.
	Eyebrow float64 `json:"eyebrow"`
	// MouthOpen is the gap between the inner lip centres.
	MouthOpen float64 `json:"mouth_open"`
}

// Extract computes Features from a landmark set. It is a pure function.
func Extract(lm *Landmarks) Features {
	if lm == nil {
		return Features{}
	}

	brows := []float64{
		distance(lm[BrowApexes[0]], lm[MouthCentre]),
		distance(lm[BrowApexes[1]], lm[MouthCentre]),
	}

	return Features{
		Lip:       distance(lm[LipCorners[0]], lm[LipCorners[1]]),
		Eyebrow:   stat.Mean(brows, nil),
		MouthOpen: distance(lm[InnerLips[0]], lm[InnerLips[1]]),
	}
}

// distance returns the planar Euclidean distance between two points.
func distance(a, b Point) float64 {
	return floats.Distance([]float64{a.X, a.Y}, []float64{b.X, b.Y}, 2)
}
