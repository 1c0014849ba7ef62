// Package ocr reads scale bar labels from microscope frames with Tesseract.
package ocr

import (
	"fmt"
	"strings"

	"micromeasure/internal/frame"
	"micromeasure/internal/scalebar"
	"micromeasure/pkg/geometry"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// LabelChars restricts recognition to what appears on scale bar labels.
const LabelChars = "0123456789.,µμumncil "

// minLabelHeight is the smallest side a region is upscaled to before OCR.
const minLabelHeight = 150

// Engine provides OCR functionality using Tesseract.
type Engine struct {
	client *gosseract.Client
}

// NewEngine creates a new OCR engine.
func NewEngine() (*Engine, error) {
	client := gosseract.NewClient()

	if err := client.SetLanguage("eng"); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}

	// Labels are numbers and unit abbreviations, not dictionary words
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")

	return &Engine{client: client}, nil
}

// Close releases OCR resources.
func (e *Engine) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// RecognizeRegion returns the text found in a region of the frame.
func (e *Engine) RecognizeRegion(f *frame.Frame, region geometry.RectInt) (string, error) {
	crop, err := f.Crop(region)
	if err != nil {
		return "", err
	}

	// ImageToMatRGB yields a BGR-ordered 8UC3 Mat
	mat, err := gocv.ImageToMatRGB(frame.Upscale(crop, minLabelHeight))
	if err != nil {
		return "", fmt.Errorf("failed to convert region: %w", err)
	}
	defer mat.Close()

	processed := preprocessForOCR(mat)
	defer processed.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, processed)
	if err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	// PSM 7 = treat the image as a single text line
	if err := e.client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		return "", fmt.Errorf("failed to set PSM: %w", err)
	}
	if err := e.client.SetWhitelist(LabelChars); err != nil {
		return "", fmt.Errorf("failed to set whitelist: %w", err)
	}
	if err := e.client.SetImageFromBytes(buf.GetBytes()); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}

	return strings.Join(strings.Fields(text), " "), nil
}

// ReadScaleBar recognizes and parses the scale bar label in region.
func (e *Engine) ReadScaleBar(f *frame.Frame, region geometry.RectInt) (scalebar.Label, error) {
	text, err := e.RecognizeRegion(f, region)
	if err != nil {
		return scalebar.Label{}, err
	}
	return scalebar.Parse(text)
}

// preprocessForOCR converts to a dark-on-light binary image.
func preprocessForOCR(src gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)

	binary := gocv.NewMat()
	gocv.Threshold(gray, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)
	gray.Close()

	// Scale bar labels are often white on a dark specimen; Tesseract
	// expects dark text on a light background
	whiteRatio := float64(gocv.CountNonZero(binary)) / float64(binary.Rows()*binary.Cols())
	if whiteRatio < 0.5 {
		gocv.BitwiseNot(binary, &binary)
	}

	result := gocv.NewMat()
	gocv.CvtColor(binary, &result, gocv.ColorGrayToBGR)
	binary.Close()
	return result
}
