package calibration

import (
	"math"
	"testing"

	"micromeasure/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsUncalibrated(t *testing.T) {
	c := New()
	assert.Equal(t, 1.0, c.CurrentScale())
	assert.False(t, c.Calibrated())
	assert.Equal(t, PhaseIdle, c.Phase())
}

func TestReferenceLineCalibration(t *testing.T) {
	c := New()
	c.BeginReferenceLine(geometry.Point2D{X: 0, Y: 0})
	assert.Equal(t, PhaseAwaitingEnd, c.Phase())

	c.UpdateReferenceLine(geometry.Point2D{X: 40, Y: 0})
	assert.Equal(t, 1.0, c.CurrentScale(), "preview must not calibrate")

	scale, err := c.FinishReferenceLine(geometry.Point2D{X: 100, Y: 0}, 2.0)
	require.NoError(t, err)
	assert.Equal(t, 50.0, scale)
	assert.Equal(t, 50.0, c.CurrentScale())
	assert.Equal(t, PhaseIdle, c.Phase())

	st := c.State()
	require.NotNil(t, st.ReferenceStart)
	require.NotNil(t, st.ReferenceEnd)
	assert.Equal(t, geometry.Point2D{X: 100, Y: 0}, *st.ReferenceEnd)
	assert.Equal(t, 2.0, st.RealLength)
	assert.Equal(t, 50.0, st.PixelsPerUnit)
}

func TestDiagonalReference(t *testing.T) {
	c := New()
	c.BeginReferenceLine(geometry.Point2D{X: 10, Y: 10})
	scale, err := c.FinishReferenceLine(geometry.Point2D{X: 13, Y: 14}, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, scale, 1e-12)
}

func TestFinishRejectsInvalidLength(t *testing.T) {
	for _, length := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		c := New()
		require.NoError(t, c.SetScaleFactorManual(7))
		c.BeginReferenceLine(geometry.Point2D{})

		_, err := c.FinishReferenceLine(geometry.Point2D{X: 100}, length)
		assert.ErrorIs(t, err, ErrInvalidLength, "length %v", length)
		assert.Equal(t, 7.0, c.CurrentScale(), "length %v", length)
		assert.Equal(t, PhaseAwaitingEnd, c.Phase(), "line kept for retry")
	}
}

func TestFinishRejectsOutOfRangeScale(t *testing.T) {
	tests := []struct {
		name   string
		end    geometry.Point2D
		length float64
	}{
		{"underflow", geometry.Point2D{X: 1e-300}, math.MaxFloat64},
		{"overflow", geometry.Point2D{X: 100}, 5e-324},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			require.NoError(t, c.SetScaleFactorManual(7))
			c.BeginReferenceLine(geometry.Point2D{})

			scale, err := c.FinishReferenceLine(tt.end, tt.length)
			assert.ErrorIs(t, err, ErrInvalidLength)
			assert.Equal(t, 7.0, scale)
			assert.Equal(t, 7.0, c.CurrentScale())
			assert.Equal(t, PhaseAwaitingEnd, c.Phase())

			scale, err = c.FinishReferenceLine(geometry.Point2D{X: 20}, 4)
			require.NoError(t, err)
			assert.Equal(t, 5.0, scale)
		})
	}
}

func TestRetryAfterInvalidLength(t *testing.T) {
	c := New()
	c.BeginReferenceLine(geometry.Point2D{})
	end := geometry.Point2D{X: 30, Y: 40}

	_, err := c.FinishReferenceLine(end, -2)
	require.ErrorIs(t, err, ErrInvalidLength)

	scale, err := c.FinishReferenceLine(end, 5)
	require.NoError(t, err)
	assert.Equal(t, 10.0, scale)
}

func TestFinishWithoutStart(t *testing.T) {
	c := New()
	_, err := c.FinishReferenceLine(geometry.Point2D{X: 10}, 1)
	assert.ErrorIs(t, err, ErrIncompleteReference)
	assert.Equal(t, 1.0, c.CurrentScale())

	c.BeginReferenceLine(geometry.Point2D{})
	c.CancelReferenceLine()
	_, err = c.FinishReferenceLine(geometry.Point2D{X: 10}, 1)
	assert.ErrorIs(t, err, ErrIncompleteReference)
	assert.Nil(t, c.State().ReferenceStart)
}

func TestFinishTwiceNeedsNewStart(t *testing.T) {
	c := New()
	c.BeginReferenceLine(geometry.Point2D{})
	_, err := c.FinishReferenceLine(geometry.Point2D{X: 10}, 1)
	require.NoError(t, err)

	_, err = c.FinishReferenceLine(geometry.Point2D{X: 20}, 1)
	assert.ErrorIs(t, err, ErrIncompleteReference)
	assert.Equal(t, 10.0, c.CurrentScale())
}

func TestDegenerateReference(t *testing.T) {
	c := New()
	c.BeginReferenceLine(geometry.Point2D{X: 5, Y: 5})
	_, err := c.FinishReferenceLine(geometry.Point2D{X: 5, Y: 5}, 1)
	assert.ErrorIs(t, err, ErrDegenerateReference)
	assert.Equal(t, 1.0, c.CurrentScale())
	assert.Equal(t, PhaseIdle, c.Phase())
}

func TestBeginDiscardsPreviousLine(t *testing.T) {
	c := New()
	c.BeginReferenceLine(geometry.Point2D{X: 0})
	c.UpdateReferenceLine(geometry.Point2D{X: 999})
	c.BeginReferenceLine(geometry.Point2D{X: 50})
	assert.Nil(t, c.State().ReferenceEnd)

	scale, err := c.FinishReferenceLine(geometry.Point2D{X: 100}, 10)
	require.NoError(t, err)
	assert.Equal(t, 5.0, scale)
}

func TestUpdateIgnoredWhenIdle(t *testing.T) {
	c := New()
	c.UpdateReferenceLine(geometry.Point2D{X: 3})
	assert.Nil(t, c.State().ReferenceEnd)
}

func TestManualScale(t *testing.T) {
	c := New()
	require.NoError(t, c.SetScaleFactorManual(12.5))
	assert.Equal(t, 12.5, c.CurrentScale())
	assert.True(t, c.Calibrated())

	other := New()
	require.NoError(t, other.SetScaleFactorManual(DefaultScale))
	assert.True(t, other.Calibrated(), "explicit 1.0 is a calibration")

	for _, v := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		err := c.SetScaleFactorManual(v)
		assert.ErrorIs(t, err, ErrInvalidScale, "value %v", v)
		assert.Equal(t, 12.5, c.CurrentScale(), "value %v", v)
	}
}

func TestManualScaleDuringReferenceLine(t *testing.T) {
	c := New()
	c.BeginReferenceLine(geometry.Point2D{})
	require.NoError(t, c.SetScaleFactorManual(3))
	assert.Equal(t, PhaseAwaitingEnd, c.Phase(), "manual entry leaves the gesture alone")

	scale, err := c.FinishReferenceLine(geometry.Point2D{X: 8}, 2)
	require.NoError(t, err)
	assert.Equal(t, 4.0, scale, "last write wins")

	require.NoError(t, c.SetScaleFactorManual(9))
	assert.Equal(t, 9.0, c.CurrentScale())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "Idle", PhaseIdle.String())
	assert.Equal(t, "AwaitingEnd", PhaseAwaitingEnd.String())
	assert.Equal(t, "Unknown", Phase(42).String())
}
