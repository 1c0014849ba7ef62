// Command polymeasure feeds points and a reference line through a
// measurement session and prints the calibrated area and perimeter.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"micromeasure/internal/contour"
	"micromeasure/internal/frame"
	"micromeasure/internal/ocr"
	"micromeasure/internal/prefs"
	"micromeasure/internal/scalebar"
	"micromeasure/internal/session"
	"micromeasure/internal/version"
	"micromeasure/pkg/geometry"
)

func main() {
	points := flag.String("points", "", `Polygon vertices in pixels, e.g. "0,0 4,0 0,3"`)
	ref := flag.String("ref", "", `Reference line in pixels, e.g. "0,0:100,0"`)
	length := flag.Float64("length", 0, "Real length of the reference line")
	scale := flag.Float64("scale", 0, "Pixels per unit, overrides the reference line")
	unit := flag.String("unit", "", "Physical unit for labels (default from preferences)")
	precision := flag.Int("precision", -1, "Decimals in labels (default from preferences)")
	subpixel := flag.Bool("subpixel", false, "Measure at full precision instead of integer pixels")
	backend := flag.String("backend", "", "Measurement backend: shoelace or opencv")
	imagePath := flag.String("image", "", "Captured frame to measure on")
	fromMetadata := flag.Bool("from-metadata", false, "Calibrate from the frame's TIFF resolution")
	scaleBar := flag.String("scalebar", "", "Region x,y,w,h holding the scale bar label to OCR")
	prefsPath := flag.String("prefs", "", "Preferences file (default ~/.config/micromeasure/preferences.json)")
	savePrefs := flag.Bool("save-prefs", false, "Store unit, precision, rounding and backend as the new defaults")
	verbose := flag.Bool("v", false, "Verbose logging")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("polymeasure %s\n", version.String())
		return
	}

	if *points == "" {
		fmt.Println(`Usage: polymeasure -points "x,y x,y x,y" [-ref x1,y1:x2,y2 -length L | -scale S] [-image frame.tif]`)
		os.Exit(1)
	}

	p := prefs.Load()
	if *prefsPath != "" {
		p = prefs.LoadFrom(*prefsPath)
	}
	settings := p.Settings()
	if *unit != "" {
		settings.Unit = *unit
	}
	if *precision >= 0 {
		settings.Precision = *precision
	}
	if *subpixel {
		settings.Rounding = "subpixel"
	}
	if *backend != "" {
		settings.Backend = *backend
	}
	settings.Validate()

	if *savePrefs {
		p.SetSettings(settings)
		if err := p.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to save preferences: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Preferences saved to %s\n", p.Path())
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := session.NewLogger(os.Stderr, level)

	var opts []session.Option
	if settings.Backend == prefs.BackendOpenCV {
		opts = append(opts, session.WithMeasurer(contour.Measurer{}))
	}
	sess := session.New(logger, settings, opts...)

	if *imagePath != "" {
		if !frame.IsSupportedFormat(*imagePath) {
			fmt.Fprintf(os.Stderr, "Unsupported image format: %s\n", *imagePath)
			os.Exit(1)
		}
		f, err := frame.Load(*imagePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load frame: %v\n", err)
			os.Exit(1)
		}
		sess.LoadFrame(f)
		fmt.Printf("Frame: %s (%dx%d)\n", f.Path, f.Width(), f.Height())

		if *fromMetadata {
			s, err := sess.CalibrateFromFrame()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to calibrate from metadata: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Scale from metadata: %.4f px/%s\n", s, settings.Unit)
		}

		if *scaleBar != "" && *length == 0 {
			l, err := readScaleBar(f, *scaleBar)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to read scale bar: %v\n", err)
				os.Exit(1)
			}
			*length, err = sess.LengthFromLabel(l)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to convert scale bar: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Scale bar: %s = %g %s\n", l, *length, settings.Unit)
		}
	}

	if *ref != "" {
		start, end, err := geometry.ParseSegment(*ref)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Bad reference line: %v\n", err)
			os.Exit(1)
		}
		sess.SetTool(session.ToolScale)
		sess.PointerDown(start)
		if err := sess.PointerUp(end); err != nil {
			fmt.Fprintf(os.Stderr, "Bad reference line: %v\n", err)
			os.Exit(1)
		}
		if _, err := sess.SubmitReferenceLength(*length); err != nil {
			fmt.Fprintf(os.Stderr, "Calibration failed: %v\n", err)
			os.Exit(1)
		}
	}

	if *scale != 0 {
		if err := sess.SetScale(*scale); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid scale: %v\n", err)
			os.Exit(1)
		}
	}

	verts, err := geometry.ParsePoints(*points)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Bad points: %v\n", err)
		os.Exit(1)
	}
	sess.SetTool(session.ToolPoint)
	for _, v := range verts {
		if f := sess.Frame(); f != nil && !f.Contains(v) {
			fmt.Fprintf(os.Stderr, "Warning: point (%g, %g) lies outside the frame\n", v.X, v.Y)
		}
		if err := sess.AddPoint(v); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to add point: %v\n", err)
			os.Exit(1)
		}
	}

	res := sess.Measurement()
	labels := sess.Labels()
	fmt.Printf("Points: %d (%s rounding, %s backend)\n", len(verts), settings.Rounding, settings.Backend)
	bb := geometry.BoundingBox(verts)
	fmt.Printf("Extent: %.0fx%.0f px at (%.0f, %.0f)\n", bb.Width, bb.Height, bb.X, bb.Y)
	fmt.Printf("Pixel area: %.2f px², pixel perimeter: %.2f px\n", res.PixelArea, res.PixelPerimeter)
	fmt.Println(labels.Scale)
	fmt.Println(labels.Area)
	fmt.Println(labels.Perimeter)
}

func readScaleBar(f *frame.Frame, region string) (scalebar.Label, error) {
	r, err := geometry.ParseRectInt(region)
	if err != nil {
		return scalebar.Label{}, err
	}

	engine, err := ocr.NewEngine()
	if err != nil {
		return scalebar.Label{}, err
	}
	defer engine.Close()

	return engine.ReadScaleBar(f, r)
}
