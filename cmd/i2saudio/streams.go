package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/example/go-i2s-audio/internal/codec/wm8731"
	"github.com/example/go-i2s-audio/internal/config"
	"github.com/example/go-i2s-audio/internal/driver"
	"github.com/example/go-i2s-audio/internal/storage"
	"github.com/example/go-i2s-audio/internal/tone"
	"github.com/example/go-i2s-audio/internal/wav"
)

// Test tone used by the sim capture backend when no input is configured.
const (
	simToneHz        = 440
	simToneAmplitude = 0.5
)

func mountVolume(cfg config.Config) (*storage.Volume, error) {
	vol, err := storage.Mount(cfg.Storage.Backend, cfg.Storage.Root)
	if err != nil {
		return nil, err
	}
	slog.Debug("volume mounted",
		slog.String("backend", vol.Backend()),
		slog.String("root", vol.Root()),
	)
	return vol, nil
}

// openCapture returns the RX stream for the configured driver. The sim
// backend replays driver.input from the volume, or a test tone.
func openCapture(cfg config.Config, vol *storage.Volume) (driver.Stream, io.Closer, error) {
	dcfg := driver.Config{
		Mode:        driver.RX,
		Buffers:     cfg.Driver.Buffers,
		BufferBytes: cfg.Record.BufferBytes,
	}

	if cfg.Driver.Backend == config.DriverMalgo {
		dev, err := driver.NewDevice(driver.DeviceConfig{
			Config:     dcfg,
			SampleRate: uint32(cfg.Audio.SampleRate),
			Logger:     slog.Default(),
		})
		if err != nil {
			return nil, nil, err
		}
		return dev, nil, nil
	}

	if cfg.Driver.Input == "" {
		gen := tone.NewGenerator(simToneHz, cfg.Audio.SampleRate, simToneAmplitude)
		s, err := driver.NewRX(&tone.Reader{Gen: gen}, dcfg)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	}

	f, err := vol.Open(cfg.Driver.Input)
	if err != nil {
		return nil, nil, fmt.Errorf("open capture input: %w", err)
	}
	s, err := driver.NewRX(f, dcfg)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return s, f, nil
}

// openPlayback returns the TX stream for the configured driver in the format
// of h. The sim backend discards what it plays.
func openPlayback(cfg config.Config, h wav.Header) (driver.Stream, error) {
	dcfg := driver.Config{
		Mode:        driver.TX,
		Buffers:     cfg.Driver.Buffers,
		BufferBytes: cfg.Playback.BufferBytes,
	}

	if cfg.Driver.Backend == config.DriverMalgo {
		dev, err := driver.NewDevice(driver.DeviceConfig{
			Config:        dcfg,
			SampleRate:    h.SampleRate,
			Channels:      uint32(h.NumChannels),
			BitsPerSample: h.BitsPerSample,
			Logger:        slog.Default(),
		})
		if err != nil {
			return nil, err
		}
		return dev, nil
	}

	s, err := driver.NewTX(io.Discard, dcfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// configureCodec runs the WM8731 power-up sequence when codec.enabled is
// set. Host builds have no two-wire bus, so the writes are recorded and
// logged.
func configureCodec(cfg config.Config) error {
	if !cfg.Codec.Enabled {
		return nil
	}
	ccfg, err := cfg.Codec.Wm8731()
	if err != nil {
		return err
	}
	bus := &wm8731.RecordingBus{}
	if err := wm8731.New(bus, ccfg.Address, slog.Default()).Configure(ccfg); err != nil {
		return fmt.Errorf("configure codec: %w", err)
	}
	slog.Info("codec configured (dry run)", slog.Int("writes", len(bus.Writes)))
	return nil
}
