// Package face provides the frame model, row decoding and geometric features for
// the face-tracking engine output.
package face

// Facial landmark indices following the 68-point iBUG-300W convention, which is
// the order OpenFace exports x_0..x_67 and y_0..y_67 in. Indices are 0-based.
// See: https://ibug.doc.ic.ac.uk/resources/facial-point-annotations/
const (
	JawStart = 0
	JawEnd   = 16

	LeftBrowOuter  = 17
	LeftBrowApex   = 19
	LeftBrowInner  = 21
	RightBrowInner = 22
	RightBrowApex  = 24
	RightBrowOuter = 26

	NoseBridge = 27
	NoseTip    = 30

	LeftEyeOuter  = 36
	RightEyeOuter = 45

	LeftMouthCorner  = 48
	UpperLipTop      = 51
	RightMouthCorner = 54
	LowerLipBottom   = 57
	UpperLipInner    = 62
	LowerLipInner    = 66

	NumLandmarks = 68
)

// Feature landmark assignments. Thresholds are calibrated against these exact
// indices, so changing any of them changes what a threshold means.
var (
	// LipCorners span the mouth width, which grows when smiling.
	LipCorners = [2]int{LeftMouthCorner, RightMouthCorner}

	// BrowApexes are measured against MouthCentre as a proxy for brow elevation
	// that does not depend on where the head is in the image.
	BrowApexes  = [2]int{LeftBrowApex, RightBrowApex}
	MouthCentre = UpperLipTop

	// InnerLips span the mouth opening.
	InnerLips = [2]int{UpperLipInner, LowerLipInner}
)

// Point is a 2D landmark position in image pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Landmarks holds the 68 facial landmarks of one frame.
type Landmarks [NumLandmarks]Point
