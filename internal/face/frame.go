package face

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrEmptyLine is returned for a blank row. It means "no data yet", not a failure.
	ErrEmptyLine = errors.New("empty line")

	// ErrMalformedRow is returned for rows that are not a full numeric data row,
	// including the CSV header. Callers skip the row and keep reading.
	ErrMalformedRow = errors.New("malformed row")
)

// Frame is one decoded measurement row.
type Frame struct {
	Timestamp  float64 `json:"timestamp"`
	Confidence float64 `json:"confidence"`
	Success    float64 `json:"success"`
	Pitch      float64 `json:"pitch"`
	Yaw        float64 `json:"yaw"`
	Roll       float64 `json:"roll"`

	// Landmarks is nil when the layout does not read landmarks.
	Landmarks *Landmarks `json:"landmarks,omitempty"`
}

// Layout describes the fixed column offsets of the engine's CSV output.
type Layout struct {
	// Timestamp is the column of the timestamp; confidence and success follow it.
	Timestamp int
	// Pose is the column of pitch; yaw and roll follow it.
	Pose int
	// Landmarks is the column of x_0. y_0 is at Landmarks+NumLandmarks.
	// A negative value disables landmark decoding.
	Landmarks int
}

// OpenFaceLayout is the column layout written by OpenFace FeatureExtraction with
// -pose -2Dfp:
//
//	frame, face_id, timestamp, confidence, success,
//	pose_Tx, pose_Ty, pose_Tz, pose_Rx, pose_Ry, pose_Rz,
//	x_0 .. x_67, y_0 .. y_67
func OpenFaceLayout() Layout {
	return Layout{Timestamp: 2, Pose: 8, Landmarks: 11}
}

// PoseOnly returns a copy of the layout that skips landmark decoding.
func (l Layout) PoseOnly() Layout {
	l.Landmarks = -1
	return l
}

// HasLandmarks reports whether the layout decodes landmarks.
func (l Layout) HasLandmarks() bool {
	return l.Landmarks >= 0
}

// MinFields returns the number of fields a row must have to be decoded.
func (l Layout) MinFields() int {
	n := l.Timestamp + 3
	if p := l.Pose + 3; p > n {
		n = p
	}
	if l.HasLandmarks() {
		if lm := l.Landmarks + 2*NumLandmarks; lm > n {
			n = lm
		}
	}
	return n
}

// Decode parses one raw output row into a Frame.
//
// Every field must parse as a number, so the header row is rejected like any
// other malformed row. Fields are comma separated; surrounding spaces are ignored.
func Decode(line string, layout Layout) (Frame, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Frame{}, ErrEmptyLine
	}

	fields := strings.Split(line, ",")
	if len(fields) < layout.MinFields() {
		return Frame{}, fmt.Errorf("%w: %d fields, need %d", ErrMalformedRow, len(fields), layout.MinFields())
	}

	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return Frame{}, fmt.Errorf("%w: field %d: %v", ErrMalformedRow, i, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Frame{}, fmt.Errorf("%w: field %d is not finite", ErrMalformedRow, i)
		}
		values[i] = v
	}

	frame := Frame{
		Timestamp:  values[layout.Timestamp],
		Confidence: values[layout.Timestamp+1],
		Success:    values[layout.Timestamp+2],
		Pitch:      values[layout.Pose],
		Yaw:        values[layout.Pose+1],
		Roll:       values[layout.Pose+2],
	}

	if layout.HasLandmarks() {
		lm := new(Landmarks)
		for i := 0; i < NumLandmarks; i++ {
			lm[i] = Point{
				X: values[layout.Landmarks+i],
				Y: values[layout.Landmarks+NumLandmarks+i],
			}
		}
		frame.Landmarks = lm
	}

	return frame, nil
}
