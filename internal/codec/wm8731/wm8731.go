// Package wm8731 configures a Wolfson WM8731 audio codec over a two-wire
// control bus.
//
// Every register write is a 16-bit word sent most significant byte first:
// the top seven bits carry the register address and the low nine bits the
// value.
package wm8731

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Address is the codec's bus address with the CSB pin pulled low.
const Address uint16 = 0x1A

// Register addresses.
const (
	RegLeftLineIn    uint8 = 0x0
	RegRightLineIn   uint8 = 0x1
	RegAnalogPath    uint8 = 0x4
	RegDigitalPath   uint8 = 0x5
	RegPowerDown     uint8 = 0x6
	RegInterfaceFmt  uint8 = 0x7
	RegSamplingCtrl  uint8 = 0x8
	RegActiveCtrl    uint8 = 0x9
	RegReset         uint8 = 0xF
	maxRegisterValue       = 0x1FF
)

// Interface format bits.
const (
	fmtMaster     = 1 << 6
	fmtWordLenMsk = 0b1100
	fmtDSPMode    = 0b11
)

// Sampling control bits.
const (
	srUSBMode  = 1 << 0
	srRateShft = 2
)

// Analog path bits.
const (
	apMicBoost = 1 << 0
	apInputMic = 1 << 2
	apDACSel   = 1 << 4
)

// Line-in bits.
const (
	lineInVolMask = 0b11111
	lineIn0dB     = 0b10111
)

const activeBit = 1 << 0

// ErrInvalidConfig is returned for unknown sample-rate or input selections.
var ErrInvalidConfig = errors.New("invalid codec configuration")

// Bus is the subset of a two-wire controller the codec needs.
type Bus interface {
	Tx(addr uint16, w, r []byte) error
}

// SampleRate selects an ADC/DAC rate pair in USB (12 MHz) clock mode.
type SampleRate string

const (
	ADC48DAC48 SampleRate = "adc48_dac48"
	ADC8DAC8   SampleRate = "adc8_dac8"
)

// Input selects the ADC source.
type Input string

const (
	InputLine Input = "line"
	InputMic  Input = "mic"
)

// Config controls the power-up sequence.
type Config struct {
	Address    uint16
	SampleRate SampleRate
	Input      Input
	MicBoost   bool
}

// DefaultConfig matches the 8 kHz line-in setup.
func DefaultConfig() Config {
	return Config{
		Address:    Address,
		SampleRate: ADC8DAC8,
		Input:      InputLine,
	}
}

// Codec drives one WM8731.
type Codec struct {
	bus  Bus
	addr uint16
	log  *slog.Logger
}

// New returns a codec on bus at addr. A zero addr selects Address.
func New(bus Bus, addr uint16, logger *slog.Logger) *Codec {
	if addr == 0 {
		addr = Address
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Codec{bus: bus, addr: addr, log: logger}
}

// Word encodes a register write as the two bytes sent on the bus.
func Word(reg uint8, val uint16) [2]byte {
	return [2]byte{
		byte((reg&0x7F)<<1) | byte((val&0x100)>>8),
		byte(val & 0xFF),
	}
}

// WriteReg writes a nine-bit value to reg.
func (c *Codec) WriteReg(reg uint8, val uint16) error {
	if val > maxRegisterValue {
		return fmt.Errorf("%w: value %#x for register %#x exceeds nine bits", ErrInvalidConfig, val, reg)
	}
	w := Word(reg, val)
	if err := c.bus.Tx(c.addr, w[:], nil); err != nil {
		return fmt.Errorf("write register %#x: %w", reg, err)
	}
	c.log.Debug("wm8731 write", slog.Int("reg", int(reg)), slog.Int("val", int(val)))
	return nil
}

// Step is one register write in the power-up sequence.
type Step struct {
	Name  string
	Reg   uint8
	Value uint16
}

// Sequence returns the register writes Configure performs, in order.
func Sequence(cfg Config) ([]Step, error) {
	var sampling uint16
	switch SampleRate(strings.ToLower(string(cfg.SampleRate))) {
	case ADC48DAC48:
		sampling = srUSBMode
	case ADC8DAC8, "":
		sampling = 3<<srRateShft | srUSBMode
	default:
		return nil, fmt.Errorf("%w: sample rate %q", ErrInvalidConfig, cfg.SampleRate)
	}

	analog := uint16(apDACSel)
	switch Input(strings.ToLower(string(cfg.Input))) {
	case InputLine, "":
	case InputMic:
		analog |= apInputMic
		if cfg.MicBoost {
			analog |= apMicBoost
		}
	default:
		return nil, fmt.Errorf("%w: input %q", ErrInvalidConfig, cfg.Input)
	}

	// 16-bit words, DSP mode, codec is clock master.
	iface := uint16(fmtMaster|fmtDSPMode) &^ fmtWordLenMsk
	lineIn := uint16(lineIn0dB & lineInVolMask)

	return []Step{
		{"reset", RegReset, 0},
		{"power up", RegPowerDown, 0},
		{"interface format", RegInterfaceFmt, iface},
		{"sampling control", RegSamplingCtrl, sampling},
		{"analog path", RegAnalogPath, analog},
		{"left line in", RegLeftLineIn, lineIn},
		{"right line in", RegRightLineIn, lineIn},
		{"digital path", RegDigitalPath, 0},
		{"activate", RegActiveCtrl, activeBit},
	}, nil
}

// Configure resets the codec and runs the power-up sequence for cfg.
func (c *Codec) Configure(cfg Config) error {
	steps, err := Sequence(cfg)
	if err != nil {
		return err
	}
	for _, s := range steps {
		if err := c.WriteReg(s.Reg, s.Value); err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}
	}
	c.log.Info("wm8731 configured",
		slog.String("sample_rate", string(cfg.SampleRate)),
		slog.String("input", string(cfg.Input)),
		slog.Bool("mic_boost", cfg.MicBoost),
	)
	return nil
}

// RecordingBus captures writes instead of sending them, for dry runs.
type RecordingBus struct {
	Writes [][]byte
	Addrs  []uint16
}

// Tx records w.
func (b *RecordingBus) Tx(addr uint16, w, _ []byte) error {
	b.Addrs = append(b.Addrs, addr)
	b.Writes = append(b.Writes, append([]byte(nil), w...))
	return nil
}
