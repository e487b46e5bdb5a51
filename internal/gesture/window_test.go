package gesture

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const epsilon = 1e-9

func pose(pitch, yaw, roll float64) Values {
	return Values{SignalPitch: pitch, SignalYaw: yaw, SignalRoll: roll}
}

func TestWindow_FirstFramePrimesOnly(t *testing.T) {
	w := NewWindow(0.5, SignalPitch, SignalYaw, SignalRoll)
	require.False(t, w.Primed())

	sums, closed := w.Observe(10, pose(5, 5, 5))
	assert.False(t, closed)
	assert.Nil(t, sums)
	assert.True(t, w.Primed())
	assert.Equal(t, 10.0, w.Start())
	assert.Equal(t, pose(0, 0, 0), w.Sums())
}

func TestWindow_AccumulatesAbsoluteDeltas(t *testing.T) {
	w := NewWindow(10, SignalPitch, SignalYaw, SignalRoll)

	w.Observe(0, pose(0, 0, 0))
	w.Observe(1, pose(1, -2, 0.5))
	w.Observe(2, pose(0, -1, 0.5))

	sums := w.Sums()
	assert.InDelta(t, 2.0, sums[SignalPitch], epsilon)
	assert.InDelta(t, 3.0, sums[SignalYaw], epsilon)
	assert.InDelta(t, 0.5, sums[SignalRoll], epsilon)
}

func TestWindow_ConstantSignalsSumToZero(t *testing.T) {
	w := NewWindow(0.25, SignalPitch, SignalYaw, SignalRoll)

	closures := 0
	for i := 0; i < 40; i++ {
		sums, closed := w.Observe(float64(i)*0.05, pose(0.3, -0.1, 0.7))
		if closed {
			closures++
			for s, v := range sums {
				assert.Equal(t, 0.0, v, "signal %s", s)
			}
		}
	}
	assert.Greater(t, closures, 0)
}

func TestWindow_BoundaryIsInclusive(t *testing.T) {
	w := NewWindow(0.75, SignalPitch)

	w.Observe(0, Values{SignalPitch: 0})
	_, closed := w.Observe(0.5, Values{SignalPitch: 1})
	require.False(t, closed, "0.5s into a 0.75s window must not close it")

	sums, closed := w.Observe(0.75, Values{SignalPitch: 3})
	require.True(t, closed, "a frame exactly at start+length must close the window")
	assert.InDelta(t, 3.0, sums[SignalPitch], epsilon)
	assert.Equal(t, 0.75, w.Start())
	assert.Equal(t, 0.0, w.Sums()[SignalPitch])
}

func TestWindow_ClosingFrameUpdatesPrevious(t *testing.T) {
	w := NewWindow(1, SignalPitch)

	w.Observe(0, Values{SignalPitch: 0})
	_, closed := w.Observe(1, Values{SignalPitch: 2})
	require.True(t, closed)

	// The delta of the next frame is measured against the closing frame's value.
	w.Observe(1.5, Values{SignalPitch: 2.5})
	assert.InDelta(t, 0.5, w.Sums()[SignalPitch], epsilon)
}

func TestWindow_ReturnedSumsAreACopy(t *testing.T) {
	w := NewWindow(1, SignalPitch)

	w.Observe(0, Values{SignalPitch: 0})
	sums, closed := w.Observe(1, Values{SignalPitch: 4})
	require.True(t, closed)

	w.Observe(1.5, Values{SignalPitch: 5})
	assert.InDelta(t, 4.0, sums[SignalPitch], epsilon)
}

func TestWindow_IgnoresUntrackedSignals(t *testing.T) {
	w := NewWindow(1, SignalPitch)

	w.Observe(0, Values{SignalPitch: 0, SignalYaw: 0})
	w.Observe(0.5, Values{SignalPitch: 1, SignalYaw: 100})

	sums := w.Sums()
	assert.Len(t, sums, 1)
	assert.InDelta(t, 1.0, sums[SignalPitch], epsilon)
}

func TestWindow_Reset(t *testing.T) {
	w := NewWindow(1, SignalPitch)
	w.Observe(0, Values{SignalPitch: 0})
	w.Observe(0.5, Values{SignalPitch: 1})

	w.Reset()

	assert.False(t, w.Primed())
	assert.Equal(t, 0.0, w.Sums()[SignalPitch])

	_, closed := w.Observe(7, Values{SignalPitch: 50})
	assert.False(t, closed)
	assert.Equal(t, 7.0, w.Start())
}

func TestWindow_IndependentInstances(t *testing.T) {
	long := NewWindow(0.8, SignalPitch)
	short := NewWindow(0.2, SignalPitch)

	var longClosures, shortClosures int
	for i := 0; i <= 16; i++ {
		ts := float64(i) / 10
		v := Values{SignalPitch: math.Sin(ts)}
		if _, closed := long.Observe(ts, v); closed {
			longClosures++
		}
		if _, closed := short.Observe(ts, v); closed {
			shortClosures++
		}
	}

	assert.Greater(t, shortClosures, longClosures)
}
