package driver

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// DeviceConfig selects the host audio format. RX devices always capture
// 32-bit stereo so buffers carry the same frame layout as an I2S microphone.
type DeviceConfig struct {
	Config
	SampleRate    uint32
	Channels      uint32
	BitsPerSample uint16
	Logger        *slog.Logger
}

// Device is a stream backed by the host's default audio device.
type Device struct {
	*pool
	transfer *deviceTransfer

	mctx *malgo.AllocatedContext
	dev  *malgo.Device
	log  *slog.Logger
}

// NewDevice opens the default capture (RX) or playback (TX) device.
func NewDevice(cfg DeviceConfig) (*Device, error) {
	p, err := newPool(cfg.Config)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}

	t := &deviceTransfer{pool: p}

	var dc malgo.DeviceConfig
	if cfg.Mode == RX {
		dc = malgo.DefaultDeviceConfig(malgo.Capture)
		dc.Capture.Format = malgo.FormatS32
		dc.Capture.Channels = 2
	} else {
		dc = malgo.DefaultDeviceConfig(malgo.Playback)
		dc.Playback.Format = malgo.FormatS16
		if cfg.BitsPerSample == 32 {
			dc.Playback.Format = malgo.FormatS32
		}
		dc.Playback.Channels = cfg.Channels
	}
	dc.SampleRate = cfg.SampleRate
	dc.Alsa.NoMMap = 1

	dev, err := malgo.InitDevice(mctx.Context, dc, malgo.DeviceCallbacks{
		Data: t.onData,
	})
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return nil, fmt.Errorf("init audio device: %w", err)
	}

	return &Device{pool: p, transfer: t, mctx: mctx, dev: dev, log: logger}, nil
}

// ListDevices returns the names of the host devices usable for mode.
func ListDevices(mode Mode) ([]string, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	defer func() {
		_ = mctx.Uninit()
		mctx.Free()
	}()

	kind := malgo.Capture
	if mode == TX {
		kind = malgo.Playback
	}
	infos, err := mctx.Devices(kind)
	if err != nil {
		return nil, fmt.Errorf("enumerate %s devices: %w", mode, err)
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names, nil
}

// Start starts the device.
func (d *Device) Start() error {
	if d.isClosed() {
		return ErrClosed
	}
	if d.dev.IsStarted() {
		return nil
	}
	if err := d.dev.Start(); err != nil {
		return fmt.Errorf("start audio device: %w", err)
	}
	return nil
}

// Close stops the device and releases the audio context.
func (d *Device) Close() error {
	if !d.markClosed() {
		return nil
	}
	d.dev.Uninit()
	err := d.mctx.Uninit()
	d.mctx.Free()
	if n := d.transfer.dropped.Load(); n > 0 {
		d.log.Warn("audio device dropped frames", slog.Uint64("bytes", n))
	}
	if err != nil {
		return fmt.Errorf("release audio context: %w", err)
	}
	return nil
}

// deviceTransfer moves bytes between the device callback and the pool.
// Only the callback goroutine touches cur and pos.
type deviceTransfer struct {
	*pool
	cur     []byte
	pos     int
	dropped atomic.Uint64
}

func (t *deviceTransfer) onData(out, in []byte, _ uint32) {
	if t.mode == RX {
		t.fill(in)
		return
	}
	t.drain(out)
}

// fill copies captured bytes into free buffers and publishes full ones.
// Bytes that find no free buffer are dropped.
func (t *deviceTransfer) fill(in []byte) {
	for len(in) > 0 {
		if t.cur == nil {
			select {
			case t.cur = <-t.free:
				t.pos = 0
			default:
				t.dropped.Add(uint64(len(in)))
				return
			}
		}
		n := copy(t.cur[t.pos:], in)
		t.pos += n
		in = in[n:]
		if t.pos == len(t.cur) {
			t.ready <- t.cur
			t.cur = nil
		}
	}
}

// drain copies queued buffers to the device and pads underruns with silence.
func (t *deviceTransfer) drain(out []byte) {
	for len(out) > 0 {
		if t.cur == nil {
			select {
			case t.cur = <-t.ready:
				t.pos = 0
			default:
				clear(out)
				return
			}
		}
		n := copy(out, t.cur[t.pos:])
		t.pos += n
		out = out[n:]
		if t.pos == len(t.cur) {
			t.free <- t.cur[:cap(t.cur)]
			t.cur = nil
		}
	}
}
