package imageio_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epdpaint/internal/imageio"
	"epdpaint/internal/palette"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeRejectsWrongDimensions(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 300, 448))
	_, err := imageio.Decode(bytes.NewReader(encodePNG(t, img)), 600, 448)
	require.Error(t, err)
	assert.ErrorIs(t, err, imageio.ErrDimensionMismatch)
}

func TestDecodeAcceptsExactDimensions(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 600, 448))
	got, err := imageio.Decode(bytes.NewReader(encodePNG(t, img)), 600, 448)
	require.NoError(t, err)
	assert.Equal(t, 600, got.Bounds().Dx())
	assert.Equal(t, 448, got.Bounds().Dy())
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := imageio.Decode(bytes.NewReader([]byte("not an image")), 600, 448)
	require.Error(t, err)
	assert.NotErrorIs(t, err, imageio.ErrDimensionMismatch)
}

func TestLoad(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 4))
	path := filepath.Join(t.TempDir(), "in.png")
	require.NoError(t, os.WriteFile(path, encodePNG(t, img), 0o644))

	got, err := imageio.Load(path, 8, 4)
	require.NoError(t, err)
	assert.Equal(t, 8, got.Bounds().Dx())

	_, err = imageio.Load(filepath.Join(t.TempDir(), "missing.png"), 8, 4)
	require.Error(t, err)
}

func TestSampler(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 170, B: 0, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	s := imageio.NewSampler(img)
	assert.Equal(t, palette.RGB{R: 255, G: 170, B: 0}, s.RGBAt(0, 0))
	assert.Equal(t, palette.RGB{R: 10, G: 20, B: 30}, s.RGBAt(1, 0))
}

func TestSamplerTranslatesBounds(t *testing.T) {
	// Sub-images keep non-zero minimum bounds; the sampler must still
	// treat (0,0) as the visible top-left.
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.SetNRGBA(2, 2, color.NRGBA{R: 255, A: 255})
	sub := img.SubImage(image.Rect(2, 2, 4, 4))

	s := imageio.NewSampler(sub)
	assert.Equal(t, palette.RGB{R: 255, G: 0, B: 0}, s.RGBAt(0, 0))
}
