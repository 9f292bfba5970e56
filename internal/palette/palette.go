// Package palette defines the seven renderable colors of the ACeP
// 5.65" panel plus the "clean" pseudo-color, and maps arbitrary RGB
// samples onto them.
package palette

// Color is a palette entry. The numeric value is the 4-bit hardware
// color code used verbatim in the pixel-data command, so these values
// must never be reordered.
type Color uint8

const (
	Black  Color = 0x00
	White  Color = 0x01
	Green  Color = 0x02
	Blue   Color = 0x03
	Red    Color = 0x04
	Yellow Color = 0x05
	Orange Color = 0x06
	// Clean is not a real pigment; the panel uses it to scrub a pixel
	// back to its blank state. Its reference RGB is a mid gray so that
	// quantization can still land on it.
	Clean Color = 0x07
)

// scanOrder is the order Closest compares candidates in. Clean goes
// first so that, on an exact distance tie, a washed-out sample degrades
// to blank rather than to a pigment.
var scanOrder = [8]Color{Clean, Black, White, Green, Blue, Red, Yellow, Orange}

// reference holds each color's RGB used for distance matching,
// indexed by hardware code.
var reference = [8]RGB{
	Black:  {0, 0, 0},
	White:  {255, 255, 255},
	Green:  {0, 255, 0},
	Blue:   {0, 0, 255},
	Red:    {255, 0, 0},
	Yellow: {255, 255, 0},
	Orange: {255, 170, 0},
	Clean:  {180, 180, 180},
}

var names = [8]string{"black", "white", "green", "blue", "red", "yellow", "orange", "clean"}

// All returns every palette entry in scan order.
func All() []Color {
	return scanOrder[:]
}

// Code returns the 4-bit hardware color code.
func (c Color) Code() byte {
	return byte(c)
}

// RGB returns the reference RGB value used for color matching.
func (c Color) RGB() RGB {
	return reference[c]
}

func (c Color) String() string {
	if int(c) < len(names) {
		return names[c]
	}
	return "invalid"
}

// RGB is one color sample with float64 channels. Channels are not
// clamped to [0,255]: diffused quantization error legitimately pushes
// intermediate values outside the displayable range.
type RGB struct {
	R, G, B float64
}

// RGB8 builds a sample from 8-bit channel values.
func RGB8(r, g, b uint8) RGB {
	return RGB{float64(r), float64(g), float64(b)}
}

// Add returns the component-wise sum a+b.
func (a RGB) Add(b RGB) RGB {
	return RGB{a.R + b.R, a.G + b.G, a.B + b.B}
}

// Sub returns the component-wise difference a-b.
func (a RGB) Sub(b RGB) RGB {
	return RGB{a.R - b.R, a.G - b.G, a.B - b.B}
}

// Scale returns the sample with every channel multiplied by k.
func (a RGB) Scale(k float64) RGB {
	return RGB{a.R * k, a.G * k, a.B * k}
}

// Closest returns the palette entry with the smallest squared Euclidean
// distance to s. Ties resolve to the earliest entry in scan order, so
// the result is deterministic for any input.
func Closest(s RGB) Color {
	best := scanOrder[0]
	bestDist := dist2(s, reference[best])
	for _, c := range scanOrder[1:] {
		if d := dist2(s, reference[c]); d < bestDist {
			best = c
			bestDist = d
		}
	}
	return best
}

func dist2(a, b RGB) float64 {
	dr := a.R - b.R
	dg := a.G - b.G
	db := a.B - b.B
	return dr*dr + dg*dg + db*db
}
