// Package session owns one measurement session: the polygon being picked,
// the calibration, and the frame they refer to. It translates pointer
// events from the UI into measurement and calibration operations.
package session

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"micromeasure/internal/calibration"
	"micromeasure/internal/frame"
	"micromeasure/internal/measure"
	"micromeasure/internal/prefs"
	"micromeasure/internal/scalebar"
	"micromeasure/pkg/geometry"
)

var (
	// ErrNotNumeric is returned when scale text is not a number.
	ErrNotNumeric = errors.New("scale must be a number")
	// ErrTooManyPoints is returned when the configured point limit is reached.
	ErrTooManyPoints = errors.New("point limit reached")
	// ErrInvalidPoint is returned for NaN or infinite coordinates.
	ErrInvalidPoint = errors.New("point coordinates must be finite")
	// ErrNoPendingReference is returned when a length is submitted with no
	// reference line waiting for one.
	ErrNoPendingReference = errors.New("no reference line awaiting a length")
	// ErrNoResolution is returned when the frame carries no resolution metadata.
	ErrNoResolution = errors.New("frame has no resolution metadata")
)

// Tool is the active pointer tool.
type Tool int

const (
	ToolNone  Tool = iota
	ToolPoint      // each click adds a polygon vertex
	ToolScale      // press-drag-release draws the reference line
)

func (t Tool) String() string {
	switch t {
	case ToolPoint:
		return "point"
	case ToolScale:
		return "scale"
	default:
		return "none"
	}
}

// EventType identifies session events.
type EventType int

const (
	EventPointAdded       EventType = iota // data: measure.Result
	EventPolygonReset                      // data: nil
	EventReferenceChanged                  // data: calibration.State
	EventScaleChanged                      // data: float64
	EventFrameLoaded                       // data: *frame.Frame
	EventToolChanged                       // data: Tool
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// Labels are the formatted readouts shown next to the image.
type Labels struct {
	Area      string
	Perimeter string
	Scale     string
}

// Session is safe for use from multiple goroutines, although the UI is
// expected to deliver events one at a time.
type Session struct {
	mu sync.RWMutex

	logger     *slog.Logger
	settings   prefs.Settings
	polygon    *measure.Polygon
	calibrator *calibration.Calibrator
	frame      *frame.Frame

	tool    Tool
	pressed bool
	// end of a released reference line that still needs a real length
	pendingEnd *geometry.Point2D

	listeners map[EventType][]EventListener
}

// Option configures a Session.
type Option func(*Session)

// WithMeasurer sets the polygon's pixel measurer.
func WithMeasurer(m measure.Measurer) Option {
	return func(s *Session) { s.polygon.SetMeasurer(m) }
}

// New creates a session with an empty polygon and an uncalibrated scale.
// A nil logger discards output.
func New(logger *slog.Logger, settings prefs.Settings, opts ...Option) *Session {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	settings.Validate()
	rounding, _ := measure.ParseRounding(settings.Rounding)

	s := &Session{
		logger:     logger,
		settings:   settings,
		polygon:    measure.NewPolygon(measure.WithRounding(rounding)),
		calibrator: calibration.New(),
		tool:       ToolPoint,
		listeners:  make(map[EventType][]EventListener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// On registers an event listener for the specified event type.
func (s *Session) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *Session) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// SetTool switches the pointer tool. Leaving the scale tool abandons a
// reference line in progress.
func (s *Session) SetTool(t Tool) {
	s.mu.Lock()
	if s.tool == t {
		s.mu.Unlock()
		return
	}
	if s.tool == ToolScale {
		s.cancelReferenceLocked()
	}
	s.tool = t
	s.pressed = false
	s.mu.Unlock()

	s.logger.Debug("tool changed", "tool", t.String())
	s.Emit(EventToolChanged, t)
}

// Tool returns the active pointer tool.
func (s *Session) Tool() Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tool
}

// PointerDown handles a button press at p (image pixel coordinates).
func (s *Session) PointerDown(p geometry.Point2D) {
	if !p.IsFinite() {
		return
	}

	s.mu.Lock()
	s.pressed = true
	if s.tool != ToolScale {
		s.mu.Unlock()
		return
	}
	s.pendingEnd = nil
	s.calibrator.BeginReferenceLine(p)
	state := s.calibrator.State()
	s.mu.Unlock()

	s.Emit(EventReferenceChanged, state)
}

// PointerMove handles pointer motion. Only a drag with the scale tool has
// an effect: it moves the provisional end of the reference line.
func (s *Session) PointerMove(p geometry.Point2D) {
	if !p.IsFinite() {
		return
	}

	s.mu.Lock()
	if !s.pressed || s.tool != ToolScale {
		s.mu.Unlock()
		return
	}
	s.calibrator.UpdateReferenceLine(p)
	state := s.calibrator.State()
	s.mu.Unlock()

	s.Emit(EventReferenceChanged, state)
}

// PointerUp handles a button release. With the point tool it adds a
// vertex; with the scale tool it fixes the end of the reference line, which
// then waits for SubmitReferenceLength.
func (s *Session) PointerUp(p geometry.Point2D) error {
	s.mu.Lock()
	wasPressed := s.pressed
	s.pressed = false
	tool := s.tool
	s.mu.Unlock()

	if !wasPressed {
		return nil
	}

	switch tool {
	case ToolPoint:
		return s.AddPoint(p)
	case ToolScale:
		if !p.IsFinite() {
			return ErrInvalidPoint
		}
		s.mu.Lock()
		if s.calibrator.Phase() != calibration.PhaseAwaitingEnd {
			s.mu.Unlock()
			return nil
		}
		s.calibrator.UpdateReferenceLine(p)
		end := p
		s.pendingEnd = &end
		state := s.calibrator.State()
		s.mu.Unlock()

		s.Emit(EventReferenceChanged, state)
	}
	return nil
}

// AwaitingLength reports whether a released reference line needs a length.
func (s *Session) AwaitingLength() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingEnd != nil
}

// SubmitReferenceLength finishes the pending reference line with its real
// length in the session unit. After calibration.ErrInvalidLength the line
// stays pending so the user can enter another length.
func (s *Session) SubmitReferenceLength(realLength float64) (float64, error) {
	s.mu.Lock()
	if s.pendingEnd == nil {
		s.mu.Unlock()
		return s.CurrentScale(), ErrNoPendingReference
	}

	scale, err := s.calibrator.FinishReferenceLine(*s.pendingEnd, realLength)
	if !errors.Is(err, calibration.ErrInvalidLength) {
		s.pendingEnd = nil
	}
	state := s.calibrator.State()
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("reference line rejected", "length", realLength, "err", err)
		return scale, err
	}

	s.logger.Info("scale calibrated from reference line",
		"pixels", realLength*scale, "length", realLength, "unit", s.settings.Unit, "scale", scale)
	s.Emit(EventReferenceChanged, state)
	s.Emit(EventScaleChanged, scale)
	return scale, nil
}

// CancelReferenceLine abandons the reference line in progress.
func (s *Session) CancelReferenceLine() {
	s.mu.Lock()
	s.cancelReferenceLocked()
	state := s.calibrator.State()
	s.mu.Unlock()

	s.Emit(EventReferenceChanged, state)
}

func (s *Session) cancelReferenceLocked() {
	s.calibrator.CancelReferenceLine()
	s.pendingEnd = nil
	s.pressed = false
}

// AddPoint appends a vertex to the polygon.
func (s *Session) AddPoint(p geometry.Point2D) error {
	if !p.IsFinite() {
		return fmt.Errorf("%w: %v", ErrInvalidPoint, p)
	}

	s.mu.Lock()
	if limit := s.settings.MaxPoints; limit > 0 && s.polygon.Len() >= limit {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrTooManyPoints, limit)
	}
	s.polygon.AddPoint(p)
	res := s.polygon.Physical(s.calibrator)
	n := s.polygon.Len()
	s.mu.Unlock()

	s.logger.Debug("point added", "x", p.X, "y", p.Y, "points", n)
	s.Emit(EventPointAdded, res)
	return nil
}

// Reset clears the polygon. The calibration is kept.
func (s *Session) Reset() {
	s.mu.Lock()
	s.polygon.Reset()
	s.mu.Unlock()

	s.Emit(EventPolygonReset, nil)
}

// LoadFrame switches to a new frame. The polygon and any reference line
// in progress belong to the old frame and are discarded; the scale stays.
// A nil frame clears the current one.
func (s *Session) LoadFrame(f *frame.Frame) {
	s.mu.Lock()
	s.frame = f
	s.polygon.Reset()
	s.cancelReferenceLocked()
	s.mu.Unlock()

	if f == nil {
		s.logger.Info("frame cleared")
	} else {
		s.logger.Info("frame loaded", "path", f.Path, "width", f.Width(), "height", f.Height())
	}
	s.Emit(EventPolygonReset, nil)
	s.Emit(EventFrameLoaded, f)
}

// Frame returns the current frame, or nil.
func (s *Session) Frame() *frame.Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame
}

// SetScale sets the pixels-per-unit factor directly.
func (s *Session) SetScale(v float64) error {
	s.mu.Lock()
	err := s.calibrator.SetScaleFactorManual(v)
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("manual scale rejected", "value", v, "err", err)
		return err
	}
	s.logger.Info("scale set", "scale", v, "unit", s.settings.Unit)
	s.Emit(EventScaleChanged, v)
	return nil
}

// SetScaleText parses a user-entered scale factor.
func (s *Session) SetScaleText(text string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(text, ",", ".")), 64)
	if err != nil {
		s.logger.Warn("manual scale rejected", "text", text)
		return fmt.Errorf("%w: %q", ErrNotNumeric, text)
	}
	return s.SetScale(v)
}

// CalibrateFromFrame sets the scale from the frame's resolution metadata,
// converted to the session unit.
func (s *Session) CalibrateFromFrame() (float64, error) {
	f := s.Frame()
	if f == nil || f.PixelsPerCM <= 0 {
		return s.CurrentScale(), ErrNoResolution
	}

	unitsPerCM, err := scalebar.Label{Value: 1, Unit: "cm"}.Convert(s.settings.Unit)
	if err != nil {
		return s.CurrentScale(), fmt.Errorf("cannot convert frame resolution: %w", err)
	}

	scale := f.PixelsPerCM / unitsPerCM
	if err := s.SetScale(scale); err != nil {
		return s.CurrentScale(), err
	}
	return scale, nil
}

// LengthFromLabel converts a scale bar label to the session unit, for use
// as the real length of a reference line drawn along the bar.
func (s *Session) LengthFromLabel(l scalebar.Label) (float64, error) {
	return l.Convert(s.settings.Unit)
}

// CurrentScale returns the pixels-per-unit factor.
func (s *Session) CurrentScale() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calibrator.CurrentScale()
}

// Calibrated reports whether a scale has been set for this session.
func (s *Session) Calibrated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calibrator.Calibrated()
}

// Calibration returns a snapshot of the calibration state.
func (s *Session) Calibration() calibration.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calibrator.State()
}

// Points returns the polygon vertices in the order they were picked.
func (s *Session) Points() []geometry.Point2D {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.polygon.Points()
}

// Measurement returns the polygon measured in the calibrated unit.
func (s *Session) Measurement() measure.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polygon.Physical(s.calibrator)
}

// LabelAnchor returns where the UI may place the measurement labels.
func (s *Session) LabelAnchor() geometry.Point2D {
	return geometry.Centroid(s.Points())
}

// Labels formats the current measurement for display. Until a scale is set
// the readouts stay in pixels.
func (s *Session) Labels() Labels {
	res := s.Measurement()
	prec := s.settings.Precision
	if !s.Calibrated() {
		return Labels{
			Area:      fmt.Sprintf("Area: %.*f px²", prec, res.AreaUnits2),
			Perimeter: fmt.Sprintf("Perimeter: %.*f px", prec, res.PerimeterUnits),
			Scale:     "Scale: uncalibrated",
		}
	}

	unit := s.settings.Unit
	return Labels{
		Area:      fmt.Sprintf("Area: %.*f %s²", prec, res.AreaUnits2, unit),
		Perimeter: fmt.Sprintf("Perimeter: %.*f %s", prec, res.PerimeterUnits, unit),
		Scale:     fmt.Sprintf("Scale: %.2f px/%s", res.Scale, unit),
	}
}

// Settings returns the settings the session was created with.
func (s *Session) Settings() prefs.Settings {
	return s.settings
}
