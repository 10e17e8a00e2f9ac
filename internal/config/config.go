package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/example/go-i2s-audio/internal/codec/wm8731"
	"github.com/example/go-i2s-audio/internal/pcm"
	"github.com/example/go-i2s-audio/internal/storage"
)

type Config struct {
	Audio    AudioConfig    `mapstructure:"audio"`
	Record   RecordConfig   `mapstructure:"record"`
	Playback PlaybackConfig `mapstructure:"playback"`
	Driver   DriverConfig   `mapstructure:"driver"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Codec    CodecConfig    `mapstructure:"codec"`
	LogLevel string         `mapstructure:"log_level"`
}

type AudioConfig struct {
	SampleRate int    `mapstructure:"sample_rate"`
	Bits       int    `mapstructure:"bits"`
	Channel    string `mapstructure:"channel"`
}

type RecordConfig struct {
	Seconds     int    `mapstructure:"seconds"`
	File        string `mapstructure:"file"`
	BufferBytes int    `mapstructure:"buffer_bytes"`
}

type PlaybackConfig struct {
	File        string `mapstructure:"file"`
	BufferBytes int    `mapstructure:"buffer_bytes"`
	Loop        bool   `mapstructure:"loop"`
}

type DriverConfig struct {
	Backend string `mapstructure:"backend"`
	Buffers int    `mapstructure:"buffers"`
	// Input is a raw 32-bit stereo capture replayed by the sim backend.
	// Empty generates a test tone.
	Input string `mapstructure:"input"`
}

type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Root    string `mapstructure:"root"`
}

type CodecConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Address    int    `mapstructure:"address"`
	SampleRate string `mapstructure:"sample_rate"`
	Input      string `mapstructure:"input"`
	MicBoost   bool   `mapstructure:"mic_boost"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Audio: AudioConfig{
			SampleRate: 16000,
			Bits:       16,
			Channel:    "left",
		},
		Record: RecordConfig{
			Seconds:     10,
			File:        "",
			BufferBytes: 1024,
		},
		Playback: PlaybackConfig{
			File:        "",
			BufferBytes: 4096,
			Loop:        false,
		},
		Driver: DriverConfig{
			Backend: DriverSim,
			Buffers: 5,
			Input:   "",
		},
		Storage: StorageConfig{
			Backend: storage.BackendOS,
			Root:    ".",
		},
		Codec: CodecConfig{
			Enabled:    false,
			Address:    int(wm8731.Address),
			SampleRate: "adc8_dac8",
			Input:      "line",
			MicBoost:   false,
		},
		LogLevel: "info",
	}
}

// flagKeys maps each registered flag to the config key it overrides.
var flagKeys = map[string]string{
	"sample-rate":         "audio.sample_rate",
	"bits":                "audio.bits",
	"channel":             "audio.channel",
	"seconds":             "record.seconds",
	"record-file":         "record.file",
	"record-buffer-bytes": "record.buffer_bytes",
	"play-file":           "playback.file",
	"play-buffer-bytes":   "playback.buffer_bytes",
	"loop":                "playback.loop",
	"driver":              "driver.backend",
	"buffers":             "driver.buffers",
	"input":               "driver.input",
	"storage":             "storage.backend",
	"root":                "storage.root",
	"codec":               "codec.enabled",
	"codec-address":       "codec.address",
	"codec-sample-rate":   "codec.sample_rate",
	"codec-input":         "codec.input",
	"mic-boost":           "codec.mic_boost",
	"log-level":           "log_level",
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.Int("sample-rate", defaults.Audio.SampleRate, "Sample rate in Hz")
	fs.Int("bits", defaults.Audio.Bits, "WAV sample width (16|32)")
	fs.String("channel", defaults.Audio.Channel, "Recorded channel (left|right|stereo)")
	fs.Int("seconds", defaults.Record.Seconds, "Recording length in seconds")
	fs.String("record-file", defaults.Record.File, "Recording file (default mic_<channel>_<bits>bits.wav)")
	fs.Int("record-buffer-bytes", defaults.Record.BufferBytes, "Capture DMA buffer size in bytes")
	fs.String("play-file", defaults.Playback.File, "WAV file to play")
	fs.Int("play-buffer-bytes", defaults.Playback.BufferBytes, "Playback DMA buffer size in bytes")
	fs.Bool("loop", defaults.Playback.Loop, "Loop playback until interrupted")
	fs.String("driver", defaults.Driver.Backend, "Audio driver backend (sim|malgo)")
	fs.Int("buffers", defaults.Driver.Buffers, "Number of DMA buffers")
	fs.String("input", defaults.Driver.Input, "Raw 32-bit stereo capture for the sim driver (default: test tone)")
	fs.String("storage", defaults.Storage.Backend, "Storage backend (os|mem)")
	fs.String("root", defaults.Storage.Root, "Storage mount point")
	fs.Bool("codec", defaults.Codec.Enabled, "Configure a WM8731 codec before streaming")
	fs.Int("codec-address", defaults.Codec.Address, "WM8731 I2C address")
	fs.String("codec-sample-rate", defaults.Codec.SampleRate, "WM8731 sampling mode (adc8_dac8|adc48_dac48)")
	fs.String("codec-input", defaults.Codec.Input, "WM8731 analog input (line|mic)")
	fs.Bool("mic-boost", defaults.Codec.MicBoost, "Enable WM8731 microphone boost")
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, err
		}
	}

	v.SetEnvPrefix("I2SAUDIO")
	replacer := strings.NewReplacer("-", "_", ".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("i2saudio")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

// bindFlags binds every known flag present in fs to its config key, so a
// flag only overrides the config file when it was set.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("audio.sample_rate", c.Audio.SampleRate)
	v.SetDefault("audio.bits", c.Audio.Bits)
	v.SetDefault("audio.channel", c.Audio.Channel)
	v.SetDefault("record.seconds", c.Record.Seconds)
	v.SetDefault("record.file", c.Record.File)
	v.SetDefault("record.buffer_bytes", c.Record.BufferBytes)
	v.SetDefault("playback.file", c.Playback.File)
	v.SetDefault("playback.buffer_bytes", c.Playback.BufferBytes)
	v.SetDefault("playback.loop", c.Playback.Loop)
	v.SetDefault("driver.backend", c.Driver.Backend)
	v.SetDefault("driver.buffers", c.Driver.Buffers)
	v.SetDefault("driver.input", c.Driver.Input)
	v.SetDefault("storage.backend", c.Storage.Backend)
	v.SetDefault("storage.root", c.Storage.Root)
	v.SetDefault("codec.enabled", c.Codec.Enabled)
	v.SetDefault("codec.address", c.Codec.Address)
	v.SetDefault("codec.sample_rate", c.Codec.SampleRate)
	v.SetDefault("codec.input", c.Codec.Input)
	v.SetDefault("codec.mic_boost", c.Codec.MicBoost)
	v.SetDefault("log_level", c.LogLevel)
}

// Validate normalizes the enum-like fields in place and checks the audio
// format.
func (c *Config) Validate() error {
	var errs []error

	if c.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate))
	}
	if _, err := pcm.ParseWidth(c.Audio.Bits); err != nil {
		errs = append(errs, fmt.Errorf("audio.bits: %w", err))
	}
	if _, err := pcm.ParseChannel(c.Audio.Channel); err != nil {
		errs = append(errs, fmt.Errorf("audio.channel: %w", err))
	}
	if c.Record.Seconds < 0 {
		errs = append(errs, fmt.Errorf("record.seconds must not be negative, got %d", c.Record.Seconds))
	}

	var err error
	if c.Driver.Backend, err = NormalizeDriver(c.Driver.Backend); err != nil {
		errs = append(errs, err)
	}
	if c.Storage.Backend, err = storage.NormalizeBackend(c.Storage.Backend); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Codec.Wm8731(); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Format returns the parsed recording channel and width. It assumes
// Validate succeeded.
func (a AudioConfig) Format() (pcm.Channel, pcm.Width) {
	ch, _ := pcm.ParseChannel(a.Channel)
	w, _ := pcm.ParseWidth(a.Bits)
	return ch, w
}

// Wm8731 converts the codec section to a codec configuration.
func (c CodecConfig) Wm8731() (wm8731.Config, error) {
	if c.Address <= 0 || c.Address > 0x7F {
		return wm8731.Config{}, fmt.Errorf("invalid codec address %#x (expected a 7-bit address)", c.Address)
	}

	cfg := wm8731.Config{
		Address:    uint16(c.Address),
		SampleRate: wm8731.SampleRate(strings.ToLower(strings.TrimSpace(c.SampleRate))),
		Input:      wm8731.Input(strings.ToLower(strings.TrimSpace(c.Input))),
		MicBoost:   c.MicBoost,
	}
	if _, err := wm8731.Sequence(cfg); err != nil {
		return wm8731.Config{}, err
	}

	return cfg, nil
}

// ParseLogLevel converts a case-insensitive level string to slog.Level.
// An empty string returns slog.LevelInfo. Unknown strings return an error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}
