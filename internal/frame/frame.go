// Package frame loads captured microscope frames and prepares regions of them.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"micromeasure/pkg/geometry"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// ErrEmptyRegion is returned when a crop region lies outside the frame.
var ErrEmptyRegion = errors.New("region outside frame")

// Frame is a captured image in pixel space.
type Frame struct {
	Path   string      // source file, empty for in-memory frames
	Image  image.Image // decoded pixels
	Format string      // decoder name, e.g. "png"

	// PixelsPerCM comes from TIFF resolution metadata; 0 when unknown.
	PixelsPerCM float64
}

// FromImage wraps an in-memory frame, e.g. one grabbed from a video stream.
func FromImage(img image.Image) *Frame {
	return &Frame{Image: img}
}

// Load decodes an image file.
func Load(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	f := &Frame{Path: path, Image: img, Format: format}

	if format == "tiff" {
		if _, err := file.Seek(0, io.SeekStart); err == nil {
			if ppcm, err := tiffPixelsPerCM(file); err == nil {
				f.PixelsPerCM = ppcm
			}
		}
	}

	return f, nil
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int {
	if f == nil || f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dx()
}

// Height returns the frame height in pixels.
func (f *Frame) Height() int {
	if f == nil || f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dy()
}

// Size returns the frame dimensions.
func (f *Frame) Size() geometry.Size {
	return geometry.Size{Width: float64(f.Width()), Height: float64(f.Height())}
}

// Contains reports whether p lies inside the frame.
func (f *Frame) Contains(p geometry.Point2D) bool {
	r := geometry.Rect{Width: float64(f.Width()), Height: float64(f.Height())}
	return r.Contains(p)
}

// Crop copies a region of the frame, clamped to the frame bounds.
func (f *Frame) Crop(region geometry.RectInt) (*image.RGBA, error) {
	if f == nil || f.Image == nil {
		return nil, ErrEmptyRegion
	}
	b := f.Image.Bounds()
	r := image.Rect(region.X, region.Y, region.X+region.Width, region.Y+region.Height).
		Add(b.Min).Intersect(b)
	if r.Empty() {
		return nil, fmt.Errorf("%w: %+v", ErrEmptyRegion, region)
	}

	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), f.Image, r.Min, draw.Src)
	return dst, nil
}

// Upscale enlarges img so its smaller side is at least minDim pixels.
// Images that are already large enough are returned unchanged.
func Upscale(img image.Image, minDim int) image.Image {
	b := img.Bounds()
	small := min(b.Dx(), b.Dy())
	if small <= 0 || small >= minDim {
		return img
	}

	scale := float64(minDim) / float64(small)
	w := int(float64(b.Dx())*scale + 0.5)
	h := int(float64(b.Dy())*scale + 0.5)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// SupportedFormats returns the list of supported image formats.
func SupportedFormats() []string {
	return []string{".tiff", ".tif", ".png", ".jpg", ".jpeg", ".bmp"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}

const (
	tagXResolution    = 282
	tagYResolution    = 283
	tagResolutionUnit = 296

	typeShort    = 3
	typeRational = 5

	resUnitInch       = 2
	resUnitCentimeter = 3
)

// tiffPixelsPerCM reads the resolution tags of the first IFD.
func tiffPixelsPerCM(r io.ReadSeeker) (float64, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, err
	}

	var order binary.ByteOrder
	switch string(header[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return 0, fmt.Errorf("not a valid TIFF file")
	}

	if _, err := r.Seek(int64(order.Uint32(header[4:8])), io.SeekStart); err != nil {
		return 0, err
	}

	var numEntries uint16
	if err := binary.Read(r, order, &numEntries); err != nil {
		return 0, err
	}

	entries := make([]byte, 12*int(numEntries))
	if _, err := io.ReadFull(r, entries); err != nil {
		return 0, err
	}

	var xRes, yRes float64
	unit := uint16(resUnitInch)
	for i := 0; i < int(numEntries); i++ {
		entry := entries[i*12 : (i+1)*12]
		tag := order.Uint16(entry[0:2])
		fieldType := order.Uint16(entry[2:4])

		switch {
		case tag == tagXResolution && fieldType == typeRational:
			xRes = readRational(r, int64(order.Uint32(entry[8:12])), order)
		case tag == tagYResolution && fieldType == typeRational:
			yRes = readRational(r, int64(order.Uint32(entry[8:12])), order)
		case tag == tagResolutionUnit && fieldType == typeShort:
			unit = order.Uint16(entry[8:10])
		}
	}

	res := xRes
	if res == 0 {
		res = yRes
	}
	if res == 0 {
		return 0, fmt.Errorf("no resolution tags found")
	}

	switch unit {
	case resUnitInch:
		return res / 2.54, nil
	case resUnitCentimeter:
		return res, nil
	default:
		return 0, fmt.Errorf("resolution has no absolute unit")
	}
}

func readRational(r io.ReadSeeker, offset int64, order binary.ByteOrder) float64 {
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return 0
	}
	var v [2]uint32
	if err := binary.Read(r, order, &v); err != nil || v[1] == 0 {
		return 0
	}
	return float64(v[0]) / float64(v[1])
}
