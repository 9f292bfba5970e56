// Package dither reduces a continuous-color image to the panel palette
// using Floyd–Steinberg error diffusion.
package dither

import (
	"epdpaint/internal/palette"
	"epdpaint/internal/source"
)

// Image is the continuous-color input capability: one unquantized RGB
// sample per coordinate.
type Image interface {
	RGBAt(x, y int) palette.RGB
}

// Floyd–Steinberg weights, all over a denominator of 16. The full
// error is redistributed: 7+1+3+5 = 16.
const (
	weightRight     = 7.0 / 16.0
	weightDownRight = 1.0 / 16.0
	weightDownLeft  = 3.0 / 16.0
	weightDown      = 5.0 / 16.0
)

// Dither quantizes a w×h image to palette colors in raster order
// (left-to-right, top-to-bottom), diffusing each pixel's quantization
// error into its unvisited neighbors. Diffusion targets that fall
// outside the image are skipped, never wrapped or clamped. Working
// values are kept unclamped throughout, so accumulated error may move
// samples outside [0,255] between steps; that is intentional.
//
// The result is a pure function of the input: identical images produce
// identical frame buffers.
func Dither(img Image, w, h int) *source.FrameBuffer {
	work := make([]palette.RGB, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			work[y*w+x] = img.RGBAt(x, y)
		}
	}

	out := source.NewFrameBuffer(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			old := work[y*w+x]
			c := palette.Closest(old)
			out.Set(x, y, c)

			err := old.Sub(c.RGB())
			if x+1 < w {
				work[y*w+x+1] = work[y*w+x+1].Add(err.Scale(weightRight))
			}
			if x+1 < w && y+1 < h {
				work[(y+1)*w+x+1] = work[(y+1)*w+x+1].Add(err.Scale(weightDownRight))
			}
			if x > 0 && y+1 < h {
				work[(y+1)*w+x-1] = work[(y+1)*w+x-1].Add(err.Scale(weightDownLeft))
			}
			if y+1 < h {
				work[(y+1)*w+x] = work[(y+1)*w+x].Add(err.Scale(weightDown))
			}
		}
	}
	return out
}
