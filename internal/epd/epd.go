// Package epd drives the ACeP 5.65" 7-color e-paper panel over a
// byte-oriented command/data bus. It encodes the panel's register
// protocol as Command values, composes them into the fixed
// initialization and draw sequences, and talks to the hardware through
// the Transport interface. The physical SPI/GPIO transport lives in
// spi.go; everything else in this package is transport-agnostic and
// testable against a fake.
package epd

import (
	"context"
	"time"

	"epdpaint/internal/palette"
	"epdpaint/internal/source"
)

// Native panel resolution in pixels.
const (
	Width  = 600
	Height = 448
)

// Transport is the minimal contract the protocol engine needs from the
// physical layer. SendCommand transmits one byte in command framing;
// SendData transmits a byte sequence in data framing. The busy waits
// block until the panel's busy line reaches the requested level,
// polling; they return early with an error if ctx is cancelled or the
// transport's busy timeout elapses.
type Transport interface {
	SendCommand(b byte) error
	SendData(data []byte) error
	WaitBusyHigh(ctx context.Context) error
	WaitBusyLow(ctx context.Context) error
}

// Panel wraps a Transport with the high-level operation sequences.
// It is not safe for concurrent use; the panel is a strictly serial
// device and the caller owns the single handle.
type Panel struct {
	tr Transport
}

// New returns a Panel speaking through tr. The transport must already
// have performed its hardware reset before Initialize is called.
func New(tr Transport) *Panel {
	return &Panel{tr: tr}
}

// initSettle is the pause before the init sequence's second VCOM write.
const initSettle = 100 * time.Millisecond

// drawSettle is the pause after a completed draw cycle.
const drawSettle = 200 * time.Millisecond

// Initialize runs the panel's register setup sequence. It must run to
// completion once after a hardware reset, before any draw. Any
// transport error aborts the sequence immediately; the panel is then
// in an undefined state and the caller should reset and retry from
// scratch.
func (p *Panel) Initialize(ctx context.Context) error {
	seq := []Command{
		PanelSetting(DefaultPanelFlags()),
		PowerSetting(),
		PowerOffSequence(),
		BoosterSoftStart(),
		PLLControl(),
		TempSensor(),
		VCOMDataInterval(palette.Black),
		Unknown6022(),
		SetResolution(),
		UnknownE3AA(),
	}
	for _, c := range seq {
		if err := c.Send(ctx, p.tr); err != nil {
			return err
		}
	}
	time.Sleep(initSettle)
	return VCOMDataInterval(palette.Black).Send(ctx, p.tr)
}

// Draw transmits a full frame from src and runs the refresh cycle:
// resolution, pixel data, power on, display refresh, power off, then a
// settling delay. The frame is sent in one continuous transfer, pixel
// (0,0) through (Width-1,Height-1) row-major, so no partial frame is
// ever left rendered: the panel either refreshes completely or the
// sequence aborts on a transport error before the refresh trigger.
func (p *Panel) Draw(ctx context.Context, src source.Source) error {
	seq := []Command{
		SetResolution(),
		PixelData(src),
		PowerOn(),
		DisplayRefresh(),
		PowerOff(),
	}
	for _, c := range seq {
		if err := c.Send(ctx, p.tr); err != nil {
			return err
		}
	}
	time.Sleep(drawSettle)
	return nil
}

// Clear scrubs the panel with the clean pseudo-color.
func (p *Panel) Clear(ctx context.Context) error {
	return p.Draw(ctx, source.Solid(palette.Clean))
}
