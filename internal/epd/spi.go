package epd

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Default BCM pin numbers for the vendor HAT wiring. MOSI/SCLK/CS are
// handled by /dev/spidev and listed for documentation only.
const (
	bcmDIN   = 10 // spi0 mosi
	bcmCLK   = 11 // spi0 sclk
	bcmCS    = 8  // spi0 ce0
	bcmDC    = 25 // data (high) / command (low)
	bcmBusy  = 24
	bcmReset = 17
)

// SPIOpts tunes the SPI transport. The zero value of any field falls
// back to the defaults below.
type SPIOpts struct {
	// Speed is the bus clock. Default 5MHz.
	Speed physic.Frequency
	// PollInterval is the busy-line sampling period. Default 10ms.
	PollInterval time.Duration
	// BusyTimeout bounds each busy wait. Zero means wait forever,
	// matching the panel's original unbounded handshake.
	BusyTimeout time.Duration
}

const (
	defaultSpeed        = 5 * physic.MegaHertz
	defaultPollInterval = 10 * time.Millisecond
)

// SPI implements Transport over a periph.io SPI connection plus the
// DC, BUSY and RESET GPIO lines. It also owns the hardware reset
// sequence, which the caller runs once before Panel.Initialize.
type SPI struct {
	c    conn.Conn
	dc   gpio.PinOut
	busy gpio.PinIn
	rst  gpio.PinOut

	// port is set when Open owned the port creation; Close releases it.
	port spi.PortCloser

	poll    time.Duration
	timeout time.Duration

	// maxTx caps a single Tx transfer; large frames are split.
	maxTx int
}

// NewSPI wires a transport from an already-open SPI port and GPIO
// pins. opts may be nil for defaults.
func NewSPI(p spi.Port, dc gpio.PinOut, busy gpio.PinIn, rst gpio.PinOut, opts *SPIOpts) (*SPI, error) {
	if opts == nil {
		opts = &SPIOpts{}
	}
	speed := opts.Speed
	if speed == 0 {
		speed = defaultSpeed
	}
	poll := opts.PollInterval
	if poll == 0 {
		poll = defaultPollInterval
	}

	c, err := p.Connect(speed, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("epd: spi connect: %w", err)
	}

	maxTx := 4096
	if l, ok := c.(conn.Limits); ok {
		if m := l.MaxTxSize(); m > 0 && m < maxTx {
			maxTx = m
		}
	}

	return &SPI{
		c:       c,
		dc:      dc,
		busy:    busy,
		rst:     rst,
		poll:    poll,
		timeout: opts.BusyTimeout,
		maxTx:   maxTx,
	}, nil
}

// Open initializes periph.io, opens the named SPI port (empty for the
// platform default, typically /dev/spidev0.0) and resolves the given
// BCM pins. Pass dc/busy/rst as 0 to use the HAT defaults.
func Open(port string, dc, busy, rst int, opts *SPIOpts) (*SPI, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("epd: periph host init: %w", err)
	}

	p, err := spireg.Open(port)
	if err != nil {
		return nil, fmt.Errorf("epd: open spi port %q: %w", port, err)
	}

	if dc == 0 {
		dc = bcmDC
	}
	if busy == 0 {
		busy = bcmBusy
	}
	if rst == 0 {
		rst = bcmReset
	}

	dcPin := gpioreg.ByName(fmt.Sprintf("GPIO%d", dc))
	if dcPin == nil {
		_ = p.Close()
		return nil, fmt.Errorf("epd: gpio GPIO%d not found", dc)
	}
	if err := dcPin.Out(gpio.Low); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("epd: gpio GPIO%d out: %w", dc, err)
	}

	busyPin := gpioreg.ByName(fmt.Sprintf("GPIO%d", busy))
	if busyPin == nil {
		_ = p.Close()
		return nil, fmt.Errorf("epd: gpio GPIO%d not found", busy)
	}
	if err := busyPin.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("epd: gpio GPIO%d in: %w", busy, err)
	}

	rstPin := gpioreg.ByName(fmt.Sprintf("GPIO%d", rst))
	if rstPin == nil {
		_ = p.Close()
		return nil, fmt.Errorf("epd: gpio GPIO%d not found", rst)
	}
	if err := rstPin.Out(gpio.High); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("epd: gpio GPIO%d out: %w", rst, err)
	}

	s, err := NewSPI(p, dcPin, busyPin, rstPin, opts)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	s.port = p
	return s, nil
}

// Reset runs the panel's hardware reset: reset held high 600ms, pulled
// low 2ms, then high again with a 200ms settle.
func (s *SPI) Reset() error {
	if err := s.rst.Out(gpio.High); err != nil {
		return fmt.Errorf("epd: reset high: %w", err)
	}
	time.Sleep(600 * time.Millisecond)
	if err := s.rst.Out(gpio.Low); err != nil {
		return fmt.Errorf("epd: reset low: %w", err)
	}
	time.Sleep(2 * time.Millisecond)
	if err := s.rst.Out(gpio.High); err != nil {
		return fmt.Errorf("epd: reset high: %w", err)
	}
	time.Sleep(200 * time.Millisecond)
	return nil
}

// SendCommand transmits one byte with the DC line low (command
// framing).
func (s *SPI) SendCommand(b byte) error {
	if err := s.dc.Out(gpio.Low); err != nil {
		return fmt.Errorf("epd: dc low: %w", err)
	}
	if err := s.c.Tx([]byte{b}, nil); err != nil {
		return fmt.Errorf("epd: spi write: %w", err)
	}
	return nil
}

// SendData transmits data with the DC line high (data framing),
// splitting transfers that exceed the bus's per-transaction limit.
func (s *SPI) SendData(data []byte) error {
	if err := s.dc.Out(gpio.High); err != nil {
		return fmt.Errorf("epd: dc high: %w", err)
	}
	for len(data) > 0 {
		n := len(data)
		if n > s.maxTx {
			n = s.maxTx
		}
		if err := s.c.Tx(data[:n], nil); err != nil {
			return fmt.Errorf("epd: spi write: %w", err)
		}
		data = data[n:]
	}
	return nil
}

// WaitBusyHigh blocks until the busy line reads high.
func (s *SPI) WaitBusyHigh(ctx context.Context) error {
	return s.waitBusy(ctx, gpio.High)
}

// WaitBusyLow blocks until the busy line reads low.
func (s *SPI) WaitBusyLow(ctx context.Context) error {
	return s.waitBusy(ctx, gpio.Low)
}

func (s *SPI) waitBusy(ctx context.Context, want gpio.Level) error {
	var deadline time.Time
	if s.timeout > 0 {
		deadline = time.Now().Add(s.timeout)
	}
	for {
		if s.busy.Read() == want {
			return nil
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return fmt.Errorf("epd: busy line did not reach %s within %v", want, s.timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.poll):
		}
	}
}

// Close releases the underlying SPI port if this transport opened it.
func (s *SPI) Close() error {
	if s.port != nil {
		return s.port.Close()
	}
	return nil
}
