// Package source provides pixel sources: anything that can answer
// "what palette color goes at (x, y)". The draw path queries a Source
// over the full panel resolution; implementations range from a constant
// fill to a fully materialized frame buffer.
package source

import (
	"math/rand/v2"

	"epdpaint/internal/palette"
)

// Source yields one palette color per panel coordinate. Implementations
// must be safe to query repeatedly for the same coordinate; the draw
// path walks the panel in row-major order exactly once but tests and
// overlays may probe arbitrarily.
type Source interface {
	At(x, y int) palette.Color
}

// Solid fills every pixel with a single color.
type Solid palette.Color

func (s Solid) At(x, y int) palette.Color {
	return palette.Color(s)
}

// Stripes renders diagonal bands cycling through the whole palette,
// ten pixels wide per color column and two rows per step. Useful as a
// hardware test pattern.
type Stripes struct{}

func (Stripes) At(x, y int) palette.Color {
	all := palette.All()
	return all[((x/10)+(y/2))%len(all)]
}

// Random yields a uniformly random palette color on every query.
type Random struct{}

func (Random) At(x, y int) palette.Color {
	all := palette.All()
	return all[rand.IntN(len(all))]
}

// Overlay paints a solid rectangle over an inner source. The inner
// source is borrowed, not owned; the caller keeps it alive for as long
// as the overlay is in use.
type Overlay struct {
	Color      palette.Color
	X, Y, W, H int
	Under      Source
}

func (o Overlay) At(x, y int) palette.Color {
	if x >= o.X && y >= o.Y && x < o.X+o.W && y < o.Y+o.H {
		return o.Color
	}
	return o.Under.At(x, y)
}

// FrameBuffer is a materialized w×h grid of palette colors, row-major.
// It owns its pixel data outright.
type FrameBuffer struct {
	w, h int
	pix  []palette.Color
}

// NewFrameBuffer allocates a buffer of the given dimensions with every
// pixel set to Clean.
func NewFrameBuffer(w, h int) *FrameBuffer {
	pix := make([]palette.Color, w*h)
	for i := range pix {
		pix[i] = palette.Clean
	}
	return &FrameBuffer{w: w, h: h, pix: pix}
}

func (f *FrameBuffer) Width() int  { return f.w }
func (f *FrameBuffer) Height() int { return f.h }

func (f *FrameBuffer) At(x, y int) palette.Color {
	return f.pix[y*f.w+x]
}

// Set writes one pixel. Coordinates outside the buffer are a
// programming error and panic via the slice bounds check.
func (f *FrameBuffer) Set(x, y int, c palette.Color) {
	f.pix[y*f.w+x] = c
}
