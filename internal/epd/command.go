package epd

import (
	"context"
	"fmt"

	"epdpaint/internal/palette"
	"epdpaint/internal/source"
)

// waitMode selects the busy-line handshake that follows a command.
type waitMode uint8

const (
	waitNone waitMode = iota
	waitHigh          // block until the panel reports ready/working
	waitLow           // block until the panel reports idle
)

// Command is one panel operation: an opcode byte, its data payload, and
// the handshake to perform after transmission. Values are built by the
// constructor functions below; every kind goes through the same Send.
type Command struct {
	op   byte
	data []byte
	wait waitMode
}

// Send encodes and transmits the command: one byte in command framing,
// then the payload in data framing, then the busy-line wait if any.
// A transport failure aborts immediately.
func (c Command) Send(ctx context.Context, t Transport) error {
	if err := t.SendCommand(c.op); err != nil {
		return fmt.Errorf("epd: command 0x%02X: %w", c.op, err)
	}
	if len(c.data) > 0 {
		if err := t.SendData(c.data); err != nil {
			return fmt.Errorf("epd: command 0x%02X payload: %w", c.op, err)
		}
	}
	switch c.wait {
	case waitHigh:
		if err := t.WaitBusyHigh(ctx); err != nil {
			return fmt.Errorf("epd: command 0x%02X busy wait: %w", c.op, err)
		}
	case waitLow:
		if err := t.WaitBusyLow(ctx); err != nil {
			return fmt.Errorf("epd: command 0x%02X busy wait: %w", c.op, err)
		}
	}
	return nil
}

// PanelFlags are the four toggleable bits of the panel-setting
// register. The hardware treats all of them as active-high enables;
// the reset flag is "no reset requested" when set.
type PanelFlags struct {
	ScanDown  bool // line scan order
	ShiftLeft bool // data shift direction
	Booster   bool // DC-DC converter on
	NoReset   bool // skip soft reset
}

// DefaultPanelFlags is what initialization uses: everything enabled.
func DefaultPanelFlags() PanelFlags {
	return PanelFlags{ScanDown: true, ShiftLeft: true, Booster: true, NoReset: true}
}

func bit(f bool, n uint) byte {
	if f {
		return 1 << n
	}
	return 0
}

// PanelSetting builds the 0x00 register write: three fixed high bits,
// the four flags in bits 3..0, and a fixed trailing byte.
func PanelSetting(f PanelFlags) Command {
	d := byte(0b1110_0000) |
		bit(f.ScanDown, 3) |
		bit(f.ShiftLeft, 2) |
		bit(f.Booster, 1) |
		bit(f.NoReset, 0)
	return Command{op: 0x00, data: []byte{d, 0x08}}
}

// PowerSetting configures the internal power rails.
func PowerSetting() Command {
	return Command{op: 0x01, data: []byte{0x37, 0x00, 0x23, 0x23}}
}

// PowerOffSequence sets the power-off sequencing register.
func PowerOffSequence() Command {
	return Command{op: 0x03, data: []byte{0x00}}
}

// BoosterSoftStart configures the booster start-up ramp.
func BoosterSoftStart() Command {
	return Command{op: 0x06, data: []byte{0xC7, 0xC7, 0x1D}}
}

// PLLControl selects the frame clock.
func PLLControl() Command {
	return Command{op: 0x30, data: []byte{0x3C}}
}

// TempSensor selects the internal temperature sensor.
func TempSensor() Command {
	return Command{op: 0x41, data: []byte{0x00}}
}

// VCOMDataInterval sets the VCOM/data-interval register; the border
// output color occupies the top three bits.
func VCOMDataInterval(border palette.Color) Command {
	d := border.Code()<<5 | 1<<4 | 0b0111
	return Command{op: 0x50, data: []byte{d}}
}

// Unknown6022 is an undocumented vendor register write. The value is
// reproduced bit-for-bit from the vendor init sequence; do not touch.
func Unknown6022() Command {
	return Command{op: 0x60, data: []byte{0x22}}
}

// SetResolution writes the panel's native resolution as two big-endian
// 16-bit values.
func SetResolution() Command {
	return Command{op: 0x61, data: []byte{
		byte(Width >> 8), byte(Width & 0xFF), byte(Height >> 8), byte(Height & 0xFF),
	}}
}

// UnknownE3AA is the second undocumented vendor register write,
// likewise preserved verbatim.
func UnknownE3AA() Command {
	return Command{op: 0xE3, data: []byte{0xAA}}
}

// PowerOn powers the panel rails up, then waits for the busy line to
// report ready.
func PowerOn() Command {
	return Command{op: 0x04, wait: waitHigh}
}

// DisplayRefresh triggers a redraw cycle and waits for it to finish.
func DisplayRefresh() Command {
	return Command{op: 0x12, wait: waitHigh}
}

// PowerOff powers the rails down and waits for the panel to go idle.
func PowerOff() Command {
	return Command{op: 0x02, wait: waitLow}
}

// PixelData packs a full frame from src into the 0x10 data-transfer
// command: one byte per two horizontal pixels, the even pixel's 4-bit
// color code in the high nibble, row-major over the native resolution.
// The whole payload travels in a single data write.
func PixelData(src source.Source) Command {
	data := make([]byte, 0, Width/2*Height)
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x += 2 {
			even := src.At(x, y).Code()
			odd := src.At(x+1, y).Code()
			data = append(data, even<<4|odd)
		}
	}
	return Command{op: 0x10, data: data}
}
