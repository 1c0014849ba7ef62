// Package scalebar reads the length printed next to a microscope scale bar.
package scalebar

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoLength is returned when the text holds no positive length with a known unit.
var ErrNoLength = errors.New("no scale bar length found")

// Label is a parsed scale bar annotation.
type Label struct {
	Value float64
	Unit  string // canonical unit, e.g. "µm"
}

func (l Label) String() string {
	return strconv.FormatFloat(l.Value, 'f', -1, 64) + " " + l.Unit
}

// unitAliases maps OCR spellings to canonical unit names. OCR often reads
// the micro sign as "u" or the Greek letter mu.
var unitAliases = map[string]string{
	"nm":  "nm",
	"µm":  "µm",
	"μm":  "µm",
	"um":  "µm",
	"mm":  "mm",
	"cm":  "cm",
	"m":   "m",
	"in":  "in",
	"mil": "mil",
}

// toMicrons gives each canonical unit's length in micrometres.
var toMicrons = map[string]float64{
	"nm":  0.001,
	"µm":  1,
	"mm":  1000,
	"cm":  10000,
	"m":   1e6,
	"in":  25400,
	"mil": 25.4,
}

var labelPattern = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(nm|µm|μm|um|mm|cm|mil|in|m)\b`)

// Parse finds the first "<number> <unit>" pair in text.
func Parse(text string) (Label, error) {
	m := labelPattern.FindStringSubmatch(text)
	if m == nil {
		return Label{}, fmt.Errorf("%w in %q", ErrNoLength, text)
	}

	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil || v <= 0 {
		return Label{}, fmt.Errorf("%w in %q", ErrNoLength, text)
	}

	unit, ok := unitAliases[strings.ToLower(m[2])]
	if !ok {
		return Label{}, fmt.Errorf("%w: unknown unit %q", ErrNoLength, m[2])
	}
	return Label{Value: v, Unit: unit}, nil
}

// Convert expresses the label's length in another unit.
func (l Label) Convert(unit string) (float64, error) {
	from, ok := unitAliases[strings.ToLower(l.Unit)]
	if !ok {
		return 0, fmt.Errorf("unknown unit %q", l.Unit)
	}
	to, ok := unitAliases[strings.ToLower(unit)]
	if !ok {
		return 0, fmt.Errorf("unknown unit %q", unit)
	}
	return l.Value * toMicrons[from] / toMicrons[to], nil
}
