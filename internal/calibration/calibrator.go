// Package calibration derives and holds the pixels-per-unit scale factor
// used to convert pixel measurements into physical units.
package calibration

import (
	"errors"
	"fmt"
	"math"

	"micromeasure/pkg/geometry"
)

// DefaultScale is the uncalibrated scale: measurements stay in pixels.
const DefaultScale = 1.0

var (
	// ErrInvalidLength is returned when the real length of a reference line is not positive.
	ErrInvalidLength = errors.New("real length must be positive")
	// ErrInvalidScale is returned when a manual scale factor is not positive.
	ErrInvalidScale = errors.New("scale factor must be positive")
	// ErrIncompleteReference is returned when a reference line is finished without a start point.
	ErrIncompleteReference = errors.New("reference line has no start point")
	// ErrDegenerateReference is returned when the reference line has zero pixel length.
	ErrDegenerateReference = errors.New("reference line has zero length")
)

// Phase is the reference-line gesture state.
type Phase int

const (
	PhaseIdle        Phase = iota
	PhaseAwaitingEnd       // start recorded, waiting for the end and a length
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseAwaitingEnd:
		return "AwaitingEnd"
	default:
		return "Unknown"
	}
}

// State is a snapshot of the calibration.
// RealLength is 0 until a reference line has been finalized.
type State struct {
	ReferenceStart *geometry.Point2D `json:"reference_start,omitempty"`
	ReferenceEnd   *geometry.Point2D `json:"reference_end,omitempty"`
	RealLength     float64           `json:"real_length,omitempty"`
	PixelsPerUnit  float64           `json:"pixels_per_unit"`
}

// Calibrator converts a reference line of known real length into a
// pixels-per-unit factor. The zero value is not usable; use New.
type Calibrator struct {
	phase         Phase
	start         *geometry.Point2D
	end           *geometry.Point2D
	realLength    float64
	pixelsPerUnit float64
	calibrated    bool
}

// New returns an uncalibrated Calibrator (scale 1.0).
func New() *Calibrator {
	return &Calibrator{pixelsPerUnit: DefaultScale}
}

// BeginReferenceLine records the start of a new reference line, discarding
// any line in progress.
func (c *Calibrator) BeginReferenceLine(start geometry.Point2D) {
	c.start = &start
	c.end = nil
	c.phase = PhaseAwaitingEnd
}

// UpdateReferenceLine moves the provisional end point while the user drags.
// It never changes the scale.
func (c *Calibrator) UpdateReferenceLine(end geometry.Point2D) {
	if c.phase != PhaseAwaitingEnd {
		return
	}
	c.end = &end
}

// FinishReferenceLine records the end point and derives the scale from the
// pixel length of the line and realLength. On ErrInvalidLength the line is
// kept so the caller can retry with a valid length. A failed attempt never
// changes the current scale.
func (c *Calibrator) FinishReferenceLine(end geometry.Point2D, realLength float64) (float64, error) {
	if c.phase == PhaseAwaitingEnd {
		c.end = &end
	}

	if !positive(realLength) {
		return c.pixelsPerUnit, fmt.Errorf("%w: got %v", ErrInvalidLength, realLength)
	}
	if c.start == nil || c.phase != PhaseAwaitingEnd {
		return c.pixelsPerUnit, ErrIncompleteReference
	}

	distance := c.start.Distance(end)
	if !positive(distance) {
		c.phase = PhaseIdle
		return c.pixelsPerUnit, ErrDegenerateReference
	}

	scale := distance / realLength
	if !positive(scale) {
		return c.pixelsPerUnit, fmt.Errorf("%w: %v px over %v is out of range", ErrInvalidLength, distance, realLength)
	}

	c.realLength = realLength
	c.pixelsPerUnit = scale
	c.calibrated = true
	c.phase = PhaseIdle
	return c.pixelsPerUnit, nil
}

// CancelReferenceLine abandons the line in progress without touching the scale.
func (c *Calibrator) CancelReferenceLine() {
	c.start = nil
	c.end = nil
	c.phase = PhaseIdle
}

// SetScaleFactorManual overwrites the scale with a user-entered value.
// It does not touch the reference line.
func (c *Calibrator) SetScaleFactorManual(value float64) error {
	if !positive(value) {
		return fmt.Errorf("%w: got %v", ErrInvalidScale, value)
	}
	c.pixelsPerUnit = value
	c.calibrated = true
	return nil
}

// CurrentScale returns the pixels-per-unit factor. It is always positive.
func (c *Calibrator) CurrentScale() float64 {
	return c.pixelsPerUnit
}

// Calibrated reports whether a scale has been set, by a reference line or
// manually. An explicit 1.0 counts.
func (c *Calibrator) Calibrated() bool {
	return c.calibrated
}

// Phase returns the reference-line gesture state.
func (c *Calibrator) Phase() Phase {
	return c.phase
}

// State returns a snapshot of the calibration.
func (c *Calibrator) State() State {
	s := State{RealLength: c.realLength, PixelsPerUnit: c.pixelsPerUnit}
	if c.start != nil {
		p := *c.start
		s.ReferenceStart = &p
	}
	if c.end != nil {
		p := *c.end
		s.ReferenceEnd = &p
	}
	return s
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
