package epd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epdpaint/internal/palette"
	"epdpaint/internal/source"
)

// recorder captures everything the protocol engine pushes through a
// Transport, and can inject a failure at a chosen send.
type recorder struct {
	cmds  []byte   // command bytes in order
	data  [][]byte // payload per data write, in order
	waits []string // "high"/"low" in order

	failOnCmd  byte  // command byte whose send fails
	failOnData bool  // fail the next data write instead
	err        error // error to inject
}

func (r *recorder) SendCommand(b byte) error {
	if r.err != nil && b == r.failOnCmd && !r.failOnData {
		return r.err
	}
	r.cmds = append(r.cmds, b)
	return nil
}

func (r *recorder) SendData(data []byte) error {
	if r.err != nil && r.failOnData {
		return r.err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	r.data = append(r.data, cp)
	return nil
}

func (r *recorder) WaitBusyHigh(ctx context.Context) error {
	r.waits = append(r.waits, "high")
	return nil
}

func (r *recorder) WaitBusyLow(ctx context.Context) error {
	r.waits = append(r.waits, "low")
	return nil
}

func sendOne(t *testing.T, c Command) *recorder {
	t.Helper()
	r := &recorder{}
	require.NoError(t, c.Send(context.Background(), r))
	return r
}

func TestPanelSettingEncoding(t *testing.T) {
	r := sendOne(t, PanelSetting(DefaultPanelFlags()))
	assert.Equal(t, []byte{0x00}, r.cmds)
	assert.Equal(t, [][]byte{{0xEF, 0x08}}, r.data)

	// Flags off leaves only the fixed high bits.
	r = sendOne(t, PanelSetting(PanelFlags{}))
	assert.Equal(t, [][]byte{{0xE0, 0x08}}, r.data)

	// Each flag maps to its own bit.
	r = sendOne(t, PanelSetting(PanelFlags{ScanDown: true}))
	assert.Equal(t, byte(0xE8), r.data[0][0])
	r = sendOne(t, PanelSetting(PanelFlags{ShiftLeft: true}))
	assert.Equal(t, byte(0xE4), r.data[0][0])
	r = sendOne(t, PanelSetting(PanelFlags{Booster: true}))
	assert.Equal(t, byte(0xE2), r.data[0][0])
	r = sendOne(t, PanelSetting(PanelFlags{NoReset: true}))
	assert.Equal(t, byte(0xE1), r.data[0][0])
}

func TestFixedPayloadEncodings(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		op   byte
		data []byte
	}{
		{"power setting", PowerSetting(), 0x01, []byte{0x37, 0x00, 0x23, 0x23}},
		{"power off sequence", PowerOffSequence(), 0x03, []byte{0x00}},
		{"booster soft start", BoosterSoftStart(), 0x06, []byte{0xC7, 0xC7, 0x1D}},
		{"pll control", PLLControl(), 0x30, []byte{0x3C}},
		{"temp sensor", TempSensor(), 0x41, []byte{0x00}},
		{"vendor 0x60", Unknown6022(), 0x60, []byte{0x22}},
		{"resolution", SetResolution(), 0x61, []byte{0x02, 0x58, 0x01, 0xC0}},
		{"vendor 0xE3", UnknownE3AA(), 0xE3, []byte{0xAA}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := sendOne(t, tt.cmd)
			assert.Equal(t, []byte{tt.op}, r.cmds)
			assert.Equal(t, [][]byte{tt.data}, r.data)
			assert.Empty(t, r.waits)
		})
	}
}

func TestVCOMDataIntervalEncoding(t *testing.T) {
	r := sendOne(t, VCOMDataInterval(palette.Black))
	assert.Equal(t, []byte{0x50}, r.cmds)
	assert.Equal(t, [][]byte{{0x17}}, r.data)

	// The border color occupies the top three bits.
	r = sendOne(t, VCOMDataInterval(palette.White))
	assert.Equal(t, byte(0x37), r.data[0][0])
	r = sendOne(t, VCOMDataInterval(palette.Clean))
	assert.Equal(t, byte(0xF7), r.data[0][0])
}

func TestHandshakeCommands(t *testing.T) {
	r := sendOne(t, PowerOn())
	assert.Equal(t, []byte{0x04}, r.cmds)
	assert.Empty(t, r.data)
	assert.Equal(t, []string{"high"}, r.waits)

	r = sendOne(t, DisplayRefresh())
	assert.Equal(t, []byte{0x12}, r.cmds)
	assert.Equal(t, []string{"high"}, r.waits)

	r = sendOne(t, PowerOff())
	assert.Equal(t, []byte{0x02}, r.cmds)
	assert.Equal(t, []string{"low"}, r.waits)
}

func TestPixelDataPacking(t *testing.T) {
	// Red (0x4) then Green (0x2) in the first two columns must pack to
	// 0x42: even pixel in the high nibble.
	src := source.Overlay{
		Color: palette.Red, X: 0, Y: 0, W: 1, H: 1,
		Under: source.Overlay{
			Color: palette.Green, X: 1, Y: 0, W: 1, H: 1,
			Under: source.Solid(palette.Clean),
		},
	}
	r := sendOne(t, PixelData(src))
	assert.Equal(t, []byte{0x10}, r.cmds)
	require.Len(t, r.data, 1)
	payload := r.data[0]
	require.Len(t, payload, Width/2*Height)
	assert.Equal(t, byte(0x42), payload[0])
	assert.Equal(t, byte(0x77), payload[1])
	assert.Equal(t, byte(0x77), payload[len(payload)-1])
}

func TestInitializeSequence(t *testing.T) {
	r := &recorder{}
	require.NoError(t, New(r).Initialize(context.Background()))

	assert.Equal(t, []byte{0x00, 0x01, 0x03, 0x06, 0x30, 0x41, 0x50, 0x60, 0x61, 0xE3, 0x50}, r.cmds)
	assert.Empty(t, r.waits)

	// Both VCOM writes carry the black border.
	assert.Equal(t, []byte{0x17}, r.data[6])
	assert.Equal(t, []byte{0x17}, r.data[len(r.data)-1])
}

func TestDrawSequenceWithCleanFill(t *testing.T) {
	r := &recorder{}
	require.NoError(t, New(r).Clear(context.Background()))

	assert.Equal(t, []byte{0x61, 0x10, 0x04, 0x12, 0x02}, r.cmds)
	assert.Equal(t, []string{"high", "high", "low"}, r.waits)

	// Exactly one pixel-data transfer covering the whole panel, every
	// byte the clean code in both nibbles.
	require.Len(t, r.data, 2) // resolution payload + frame payload
	frame := r.data[1]
	require.Len(t, frame, Width/2*Height)
	for i, b := range frame {
		if b != 0x77 {
			t.Fatalf("frame byte %d = %#02x, want 0x77", i, b)
		}
	}
}

func TestTransportErrorAbortsSequence(t *testing.T) {
	boom := errors.New("bus gone")

	// Failure on the refresh command: the power-off command must never
	// be issued.
	r := &recorder{failOnCmd: 0x12, err: boom}
	err := New(r).Draw(context.Background(), source.Solid(palette.Clean))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotContains(t, r.cmds, byte(0x02))

	// Failure on a data write aborts initialization at the first
	// payload-carrying command.
	r = &recorder{failOnData: true, err: boom}
	err = New(r).Initialize(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []byte{0x00}, r.cmds)
}

// stuckBusy wraps a recorder so busy waits fail, as a bounded poll
// would on an unresponsive panel.
type stuckBusy struct {
	*recorder
	err error
}

func (s stuckBusy) WaitBusyHigh(ctx context.Context) error { return s.err }

func TestBusyTimeoutAbortsSequence(t *testing.T) {
	stuck := stuckBusy{recorder: &recorder{}, err: errors.New("busy wait timed out")}
	err := New(stuck).Draw(context.Background(), source.Solid(palette.Black))
	require.Error(t, err)
	assert.ErrorIs(t, err, stuck.err)
	// Power-on was sent, but nothing after its failed handshake.
	assert.Equal(t, []byte{0x61, 0x10, 0x04}, stuck.cmds)
}
