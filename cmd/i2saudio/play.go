package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/example/go-i2s-audio/internal/storage"
	"github.com/example/go-i2s-audio/internal/stream"
	"github.com/example/go-i2s-audio/internal/wav"
)

func newPlayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "play [file]",
		Short: "Play a WAV file from the storage volume",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			path := cfg.Playback.File
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return errors.New("no file to play: pass one or set --play-file")
			}

			vol, err := mountVolume(cfg)
			if err != nil {
				return err
			}
			defer vol.Unmount() //nolint:errcheck

			if err := configureCodec(cfg); err != nil {
				return err
			}

			h, err := peekHeader(vol, path)
			if err != nil {
				return err
			}

			tx, err := openPlayback(cfg, h)
			if err != nil {
				return err
			}

			p := &stream.Player{
				Stream: tx,
				Files:  vol,
				Path:   path,
				Loop:   cfg.Playback.Loop,
				Logger: slog.Default().With(slog.String("cmd", "play")),
			}

			res, err := p.Run(cmd.Context())
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "played %s: %d bytes, %d loops\n", path, res.Bytes, res.Loops)
			return nil
		},
	}
}

// peekHeader reads the header of path so the output device can be opened in
// the file's format.
func peekHeader(vol *storage.Volume, path string) (wav.Header, error) {
	f, err := vol.Open(path)
	if err != nil {
		return wav.Header{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h, err := wav.ReadHeader(f)
	if err != nil {
		return wav.Header{}, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}
