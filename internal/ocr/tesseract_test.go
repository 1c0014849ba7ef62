package ocr

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func labelImage(bg, fg color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 60, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 60; x++ {
			c := bg
			if x >= 10 && x < 30 && y >= 5 && y < 15 {
				c = fg
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestPreprocessProducesDarkOnLight(t *testing.T) {
	white := color.RGBA{R: 240, G: 240, B: 240, A: 255}
	black := color.RGBA{R: 10, G: 10, B: 10, A: 255}

	for name, img := range map[string]*image.RGBA{
		"dark on light": labelImage(white, black),
		"light on dark": labelImage(black, white),
	} {
		t.Run(name, func(t *testing.T) {
			mat, err := gocv.ImageToMatRGB(img)
			require.NoError(t, err)
			defer mat.Close()

			out := preprocessForOCR(mat)
			defer out.Close()

			assert.Equal(t, uint8(255), out.GetUCharAt(0, 0), "background")
			assert.Equal(t, uint8(0), out.GetUCharAt(10, 20*3), "text")
		})
	}
}
