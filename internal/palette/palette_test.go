package palette_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"epdpaint/internal/palette"
)

func TestClosestExactReferences(t *testing.T) {
	// Feeding a color's own reference value back in must return that
	// color, for all eight entries including Clean.
	for _, c := range palette.All() {
		assert.Equal(t, c, palette.Closest(c.RGB()), "reference value of %s", c)
	}
}

func TestClosestObviousSamples(t *testing.T) {
	tests := []struct {
		name string
		in   palette.RGB
		want palette.Color
	}{
		{"near black", palette.RGB8(10, 12, 8), palette.Black},
		{"near white", palette.RGB8(250, 248, 252), palette.White},
		{"mid gray goes clean", palette.RGB8(170, 175, 180), palette.Clean},
		{"saturated red", palette.RGB8(230, 20, 30), palette.Red},
		{"orange not yellow", palette.RGB8(250, 160, 10), palette.Orange},
		{"out of range high", palette.RGB{300, 300, 300}, palette.White},
		{"out of range low", palette.RGB{-40, -10, -25}, palette.Black},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, palette.Closest(tt.in))
		})
	}
}

func TestClosestDeterministic(t *testing.T) {
	in := palette.RGB8(97, 181, 42)
	first := palette.Closest(in)
	for i := 0; i < 100; i++ {
		if got := palette.Closest(in); got != first {
			t.Fatalf("run %d: got %s, want %s", i, got, first)
		}
	}
}

func TestClosestTotal(t *testing.T) {
	// Sweep a coarse grid over (and past) the 8-bit cube; every sample
	// must land on one of the defined entries.
	valid := make(map[palette.Color]bool)
	for _, c := range palette.All() {
		valid[c] = true
	}
	for r := -64.0; r <= 320; r += 32 {
		for g := -64.0; g <= 320; g += 32 {
			for b := -64.0; b <= 320; b += 32 {
				c := palette.Closest(palette.RGB{R: r, G: g, B: b})
				if !valid[c] {
					t.Fatalf("Closest(%v,%v,%v) = %#x, not a defined color", r, g, b, c)
				}
			}
		}
	}
}

func TestRGBArithmetic(t *testing.T) {
	a := palette.RGB{10, 20, 30}
	b := palette.RGB{1, 2, 3}
	assert.Equal(t, palette.RGB{11, 22, 33}, a.Add(b))
	assert.Equal(t, palette.RGB{9, 18, 27}, a.Sub(b))
	assert.Equal(t, palette.RGB{5, 10, 15}, a.Scale(0.5))
}

func TestHardwareCodes(t *testing.T) {
	// Codes are hardware-defined and must stay stable.
	want := map[palette.Color]byte{
		palette.Black:  0x00,
		palette.White:  0x01,
		palette.Green:  0x02,
		palette.Blue:   0x03,
		palette.Red:    0x04,
		palette.Yellow: 0x05,
		palette.Orange: 0x06,
		palette.Clean:  0x07,
	}
	for c, code := range want {
		assert.Equal(t, code, c.Code(), "%s", c)
	}
}
