// Package imageio decodes input bitmaps and adapts them for the
// dithering pipeline. BMP and PNG are supported; any decoded image must
// match the panel resolution exactly before it touches the hardware
// path.
package imageio

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	// Decoders for the two supported input formats.
	_ "image/png"

	_ "golang.org/x/image/bmp"

	"epdpaint/internal/palette"
)

// ErrDimensionMismatch reports an input image whose size differs from
// the panel resolution. It is checked before any hardware interaction.
var ErrDimensionMismatch = errors.New("imageio: image does not match panel resolution")

// Decode reads one image from r and verifies it is exactly w×h pixels.
func Decode(r io.Reader, w, h int) (image.Image, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("imageio: decode: %w", err)
	}
	b := img.Bounds()
	if b.Dx() != w || b.Dy() != h {
		return nil, fmt.Errorf("%w: got %dx%d (%s), want %dx%d",
			ErrDimensionMismatch, b.Dx(), b.Dy(), format, w, h)
	}
	return img, nil
}

// Load decodes the image file at path and verifies its dimensions.
func Load(path string, w, h int) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("imageio: open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f, w, h)
}

// Sampler adapts a decoded image to the dithering engine's
// continuous-color capability, translating bounds so that (0,0) is the
// image's top-left pixel.
type Sampler struct {
	img image.Image
}

// NewSampler wraps img. The image is borrowed, not copied.
func NewSampler(img image.Image) Sampler {
	return Sampler{img: img}
}

// RGBAt returns the 8-bit-per-channel sample at (x, y) as floats.
func (s Sampler) RGBAt(x, y int) palette.RGB {
	b := s.img.Bounds()
	r, g, bl, _ := s.img.At(b.Min.X+x, b.Min.Y+y).RGBA()
	// RGBA returns 16-bit premultiplied channels; scale back to 8-bit.
	return palette.RGB{
		R: float64(r >> 8),
		G: float64(g >> 8),
		B: float64(bl >> 8),
	}
}
