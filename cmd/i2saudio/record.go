package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/example/go-i2s-audio/internal/stream"
)

func newRecordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "record",
		Short: "Record the microphone into a WAV file",
		Long: "Record captures record.seconds of 32-bit stereo I2S frames, keeps the configured\n" +
			"channel at the configured width and writes a WAV file to the storage volume.\n" +
			"Ctrl-C stops early; the header is patched to the samples actually written.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			vol, err := mountVolume(cfg)
			if err != nil {
				return err
			}
			defer vol.Unmount() //nolint:errcheck

			if err := configureCodec(cfg); err != nil {
				return err
			}

			ch, w := cfg.Audio.Format()
			path := cfg.Record.File
			if path == "" {
				path = stream.DefaultRecordFile(ch, w)
			}

			rx, input, err := openCapture(cfg, vol)
			if err != nil {
				return err
			}
			if input != nil {
				defer input.Close()
			}

			rec := &stream.Recorder{
				Stream:     rx,
				Files:      vol,
				Path:       path,
				SampleRate: cfg.Audio.SampleRate,
				Seconds:    cfg.Record.Seconds,
				Channel:    ch,
				Width:      w,
				Logger:     slog.Default().With(slog.String("cmd", "record")),
			}

			res, err := rec.Run(cmd.Context())
			if err != nil {
				return err
			}

			status := "complete"
			switch {
			case res.Interrupted:
				status = "interrupted"
			case res.SourceEnded:
				status = "input ended"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d bytes, %v (%s)\n",
				path, res.Written, res.Header.Duration(), status)
			return nil
		},
	}
}
