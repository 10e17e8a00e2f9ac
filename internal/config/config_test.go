package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"github.com/example/go-i2s-audio/internal/codec/wm8731"
	"github.com/example/go-i2s-audio/internal/pcm"
)

// fakeBinder wraps a pflag.FlagSet to satisfy the flagBinder interface.
type fakeBinder struct {
	fs *pflag.FlagSet
}

func (f *fakeBinder) Flags() *pflag.FlagSet { return f.fs }

// newFlagBinder creates a FlagSet with all config flags registered at their defaults.
func newFlagBinder(defaults Config) *fakeBinder {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)

	return &fakeBinder{fs: fs}
}

// --- DefaultConfig ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("Audio.SampleRate = %d; want 16000", cfg.Audio.SampleRate)
	}

	if cfg.Audio.Bits != 16 {
		t.Errorf("Audio.Bits = %d; want 16", cfg.Audio.Bits)
	}

	if cfg.Audio.Channel != "left" {
		t.Errorf("Audio.Channel = %q; want %q", cfg.Audio.Channel, "left")
	}

	if cfg.Record.Seconds != 10 {
		t.Errorf("Record.Seconds = %d; want 10", cfg.Record.Seconds)
	}

	if cfg.Record.BufferBytes != 1024 {
		t.Errorf("Record.BufferBytes = %d; want 1024", cfg.Record.BufferBytes)
	}

	if cfg.Playback.BufferBytes != 4096 {
		t.Errorf("Playback.BufferBytes = %d; want 4096", cfg.Playback.BufferBytes)
	}

	if cfg.Driver.Backend != DriverSim {
		t.Errorf("Driver.Backend = %q; want %q", cfg.Driver.Backend, DriverSim)
	}

	if cfg.Driver.Buffers != 5 {
		t.Errorf("Driver.Buffers = %d; want 5", cfg.Driver.Buffers)
	}

	if cfg.Storage.Root != "." {
		t.Errorf("Storage.Root = %q; want %q", cfg.Storage.Root, ".")
	}

	if cfg.Codec.Address != 0x1A {
		t.Errorf("Codec.Address = %#x; want 0x1a", cfg.Codec.Address)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "info")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

// --- NormalizeDriver ---

func TestNormalizeDriver(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"sim lowercase", "sim", "sim", false},
		{"malgo lowercase", "malgo", "malgo", false},
		{"malgo mixed case", "MalGo", "malgo", false},
		{"device alias", "device", "malgo", false},
		{"host alias with spaces", "  host  ", "malgo", false},
		{"empty defaults to sim", "", "sim", false},
		{"whitespace defaults to sim", "   ", "sim", false},
		{"invalid value", "alsa", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDriver(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NormalizeDriver(%q) = %q, nil; want error", tt.input, got)
				}

				return
			}

			if err != nil {
				t.Errorf("NormalizeDriver(%q) unexpected error: %v", tt.input, err)
				return
			}

			if got != tt.want {
				t.Errorf("NormalizeDriver(%q) = %q; want %q", tt.input, got, tt.want)
			}
		})
	}
}

// --- ParseLogLevel ---

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLogLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLogLevel(%q) err = %v; wantErr %v", tt.input, err, tt.wantErr)
			}

			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v; want %v", tt.input, got, tt.want)
			}
		})
	}
}

// --- RegisterFlags ---

func TestRegisterFlags(t *testing.T) {
	defaults := DefaultConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)

	checks := []struct {
		flag string
		want string
	}{
		{"sample-rate", "16000"},
		{"bits", "16"},
		{"channel", "left"},
		{"driver", "sim"},
		{"storage", "os"},
		{"codec-address", "26"},
		{"log-level", "info"},
	}

	for _, c := range checks {
		f := fs.Lookup(c.flag)
		if f == nil {
			t.Errorf("flag %q not registered", c.flag)
			continue
		}

		if f.DefValue != c.want {
			t.Errorf("flag %q default = %q; want %q", c.flag, f.DefValue, c.want)
		}
	}

	// Every registered flag maps to a config key and vice versa.
	fs.VisitAll(func(f *pflag.Flag) {
		if _, ok := flagKeys[f.Name]; !ok {
			t.Errorf("flag %q has no config key", f.Name)
		}
	})

	for name := range flagKeys {
		if fs.Lookup(name) == nil {
			t.Errorf("config key for %q has no flag", name)
		}
	}
}

// --- Load ---

func TestLoad_Defaults(t *testing.T) {
	defaults := DefaultConfig()
	binder := newFlagBinder(defaults)

	cfg, err := Load(LoadOptions{
		Cmd:      binder,
		Defaults: defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg != defaults {
		t.Errorf("Load() = %+v; want defaults %+v", cfg, defaults)
	}
}

func TestLoad_FlagOverride(t *testing.T) {
	defaults := DefaultConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)

	err := fs.Parse([]string{
		"--channel=stereo",
		"--bits=32",
		"--loop",
		"--codec-address=0x1b",
		"--log-level=debug",
	})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	cfg, err := Load(LoadOptions{
		Cmd:      &fakeBinder{fs: fs},
		Defaults: defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Audio.Channel != "stereo" {
		t.Errorf("Audio.Channel = %q; want %q", cfg.Audio.Channel, "stereo")
	}

	if cfg.Audio.Bits != 32 {
		t.Errorf("Audio.Bits = %d; want 32", cfg.Audio.Bits)
	}

	if !cfg.Playback.Loop {
		t.Error("Playback.Loop = false; want true")
	}

	if cfg.Codec.Address != 0x1B {
		t.Errorf("Codec.Address = %#x; want 0x1b", cfg.Codec.Address)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "debug")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("I2SAUDIO_LOG_LEVEL", "warn")
	t.Setenv("I2SAUDIO_AUDIO_SAMPLE_RATE", "48000")
	t.Setenv("I2SAUDIO_STORAGE_ROOT", "/sd")

	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{
		Defaults: defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "warn")
	}

	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("Audio.SampleRate = %d; want 48000", cfg.Audio.SampleRate)
	}

	if cfg.Storage.Root != "/sd" {
		t.Errorf("Storage.Root = %q; want %q", cfg.Storage.Root, "/sd")
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "i2saudio.yaml")

	content := `
log_level: error
audio:
  sample_rate: 8000
  channel: right
record:
  seconds: 3
  file: takes/first.wav
codec:
  enabled: true
  input: mic
`

	err := os.WriteFile(cfgFile, []byte(content), 0o644)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	defaults := DefaultConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)

	// An explicit flag wins over the file; unset flags do not.
	if err := fs.Parse([]string{"--seconds=7"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cfg, err := Load(LoadOptions{
		Cmd:        &fakeBinder{fs: fs},
		ConfigFile: cfgFile,
		Defaults:   defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "error")
	}

	if cfg.Audio.SampleRate != 8000 {
		t.Errorf("Audio.SampleRate = %d; want 8000", cfg.Audio.SampleRate)
	}

	if cfg.Audio.Channel != "right" {
		t.Errorf("Audio.Channel = %q; want %q", cfg.Audio.Channel, "right")
	}

	if cfg.Record.Seconds != 7 {
		t.Errorf("Record.Seconds = %d; want 7", cfg.Record.Seconds)
	}

	if cfg.Record.File != "takes/first.wav" {
		t.Errorf("Record.File = %q; want %q", cfg.Record.File, "takes/first.wav")
	}

	if !cfg.Codec.Enabled || cfg.Codec.Input != "mic" {
		t.Errorf("Codec = %+v; want enabled mic input", cfg.Codec)
	}

	if cfg.Audio.Bits != defaults.Audio.Bits {
		t.Errorf("Audio.Bits = %d; want default %d", cfg.Audio.Bits, defaults.Audio.Bits)
	}
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "bad.yaml")
	// Write invalid YAML
	err := os.WriteFile(cfgFile, []byte(":\t:bad yaml:::"), 0o644)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err = Load(LoadOptions{
		ConfigFile: cfgFile,
		Defaults:   DefaultConfig(),
	})
	if err == nil {
		t.Error("Load() = nil; want error for invalid config file")
	}
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	_, err := Load(LoadOptions{
		ConfigFile: "/nonexistent/path/i2saudio.yaml",
		Defaults:   DefaultConfig(),
	})
	if err == nil {
		t.Error("Load() = nil; want error for missing explicit config file")
	}
}

// --- Validate ---

func TestValidate_NormalizesBackends(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Driver.Backend = " Device "
	cfg.Storage.Backend = "MEMORY"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	if cfg.Driver.Backend != DriverMalgo {
		t.Errorf("Driver.Backend = %q; want %q", cfg.Driver.Backend, DriverMalgo)
	}

	if cfg.Storage.Backend != "mem" {
		t.Errorf("Storage.Backend = %q; want %q", cfg.Storage.Backend, "mem")
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		target error
	}{
		{"bits", func(c *Config) { c.Audio.Bits = 24 }, pcm.ErrUnsupportedWidth},
		{"channel", func(c *Config) { c.Audio.Channel = "center" }, pcm.ErrUnsupportedChannel},
		{"sample rate", func(c *Config) { c.Audio.SampleRate = 0 }, nil},
		{"seconds", func(c *Config) { c.Record.Seconds = -1 }, nil},
		{"driver", func(c *Config) { c.Driver.Backend = "alsa" }, nil},
		{"storage", func(c *Config) { c.Storage.Backend = "s3" }, nil},
		{"codec rate", func(c *Config) { c.Codec.SampleRate = "adc44_dac44" }, wm8731.ErrInvalidConfig},
		{"codec address", func(c *Config) { c.Codec.Address = 0x200 }, nil},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil; want error")
			}

			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("Validate() = %v; want %v", err, tt.target)
			}
		})
	}
}

func TestAudioConfig_Format(t *testing.T) {
	ch, w := AudioConfig{Bits: 32, Channel: "stereo"}.Format()
	if ch != pcm.LeftRight || w != pcm.Width32 {
		t.Errorf("Format() = %v, %v; want stereo, 32", ch, w)
	}
}

func TestCodecConfig_Wm8731(t *testing.T) {
	cfg, err := CodecConfig{Address: 0x1B, SampleRate: "ADC48_DAC48", Input: "mic", MicBoost: true}.Wm8731()
	if err != nil {
		t.Fatal(err)
	}

	want := wm8731.Config{Address: 0x1B, SampleRate: wm8731.ADC48DAC48, Input: wm8731.InputMic, MicBoost: true}
	if cfg != want {
		t.Errorf("Wm8731() = %+v; want %+v", cfg, want)
	}
}
