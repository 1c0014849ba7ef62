package geometry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrSyntax is returned when a point or segment string is malformed.
var ErrSyntax = errors.New("invalid point syntax")

// ParsePoint parses "x,y".
func ParsePoint(s string) (Point2D, error) {
	xs, ys, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok {
		return Point2D{}, fmt.Errorf("%w: %q", ErrSyntax, s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return Point2D{}, fmt.Errorf("%w: %q: %v", ErrSyntax, s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return Point2D{}, fmt.Errorf("%w: %q: %v", ErrSyntax, s, err)
	}
	p := Point2D{X: x, Y: y}
	if !p.IsFinite() {
		return Point2D{}, fmt.Errorf("%w: %q: not finite", ErrSyntax, s)
	}
	return p, nil
}

// ParsePoints parses a whitespace or semicolon separated list of "x,y" pairs.
func ParsePoints(s string) ([]Point2D, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ';' || r == ' ' || r == '\t' || r == '\n'
	})
	points := make([]Point2D, 0, len(fields))
	for _, f := range fields {
		p, err := ParsePoint(f)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

// ParseSegment parses "x1,y1:x2,y2".
func ParseSegment(s string) (Point2D, Point2D, error) {
	a, b, ok := strings.Cut(s, ":")
	if !ok {
		return Point2D{}, Point2D{}, fmt.Errorf("%w: segment %q needs start:end", ErrSyntax, s)
	}
	start, err := ParsePoint(a)
	if err != nil {
		return Point2D{}, Point2D{}, err
	}
	end, err := ParsePoint(b)
	if err != nil {
		return Point2D{}, Point2D{}, err
	}
	return start, end, nil
}

// ParseRectInt parses "x,y,w,h".
func ParseRectInt(s string) (RectInt, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return RectInt{}, fmt.Errorf("%w: rect %q needs x,y,w,h", ErrSyntax, s)
	}
	var v [4]int
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return RectInt{}, fmt.Errorf("%w: rect %q: %v", ErrSyntax, s, err)
		}
		v[i] = n
	}
	r := RectInt{X: v[0], Y: v[1], Width: v[2], Height: v[3]}
	if r.Empty() {
		return RectInt{}, fmt.Errorf("%w: rect %q is empty", ErrSyntax, s)
	}
	return r, nil
}
