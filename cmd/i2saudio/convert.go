package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/example/go-i2s-audio/internal/driver"
	"github.com/example/go-i2s-audio/internal/pcm"
	"github.com/example/go-i2s-audio/internal/stream"
)

func newConvertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <capture.raw> [out.wav]",
		Short: "Convert a raw 32-bit stereo I2S capture into a WAV file",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			vol, err := mountVolume(cfg)
			if err != nil {
				return err
			}
			defer vol.Unmount() //nolint:errcheck

			ch, w := cfg.Audio.Format()
			out := stream.DefaultRecordFile(ch, w)
			if len(args) == 2 {
				out = args[1]
			}

			info, err := vol.Stat(args[0])
			if err != nil {
				return err
			}
			frames := info.Size() / pcm.FrameBytes
			rate := int64(cfg.Audio.SampleRate)
			seconds := (frames + rate - 1) / rate

			in, err := vol.Open(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			rx, err := driver.NewRX(in, driver.Config{
				Buffers:     cfg.Driver.Buffers,
				BufferBytes: cfg.Record.BufferBytes,
			})
			if err != nil {
				return err
			}

			rec := &stream.Recorder{
				Stream:     rx,
				Files:      vol,
				Path:       out,
				SampleRate: cfg.Audio.SampleRate,
				Seconds:    int(seconds),
				Channel:    ch,
				Width:      w,
				Logger:     slog.Default().With(slog.String("cmd", "convert")),
			}

			res, err := rec.Run(cmd.Context())
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d samples, %d bytes\n",
				out, res.Header.NumSamples, res.Written)
			return nil
		},
	}
}
