package main

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/example/go-i2s-audio/internal/wav"
)

func newHeaderCmd() *cobra.Command {
	var (
		samples int64
		dump    bool
	)

	cmd := &cobra.Command{
		Use:   "header",
		Short: "Print the WAV header for the configured format",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			ch, w := cfg.Audio.Format()
			n := samples
			if n < 0 {
				n = int64(cfg.Record.Seconds) * int64(cfg.Audio.SampleRate)
			}
			if n > int64(^uint32(0)) {
				return fmt.Errorf("sample count %d does not fit a WAV header", n)
			}

			h := wav.Header{
				SampleRate:    uint32(cfg.Audio.SampleRate),
				BitsPerSample: uint16(w),
				NumChannels:   uint16(ch.Count()),
				NumSamples:    uint32(n),
			}
			b := h.Bytes()

			out := cmd.OutOrStdout()
			printHeader(out, h)
			if dump {
				_, _ = fmt.Fprint(out, hex.Dump(b[:]))
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&samples, "samples", -1, "Samples per channel (default: seconds × sample rate)")
	cmd.Flags().BoolVar(&dump, "hex", false, "Also print a hex dump of the 44 header bytes")

	return cmd
}

func printHeader(w io.Writer, h wav.Header) {
	_, _ = fmt.Fprintf(w, "sample rate:     %d Hz\n", h.SampleRate)
	_, _ = fmt.Fprintf(w, "bits per sample: %d\n", h.BitsPerSample)
	_, _ = fmt.Fprintf(w, "channels:        %d\n", h.NumChannels)
	_, _ = fmt.Fprintf(w, "samples:         %d\n", h.NumSamples)
	_, _ = fmt.Fprintf(w, "byte rate:       %d\n", h.ByteRate())
	_, _ = fmt.Fprintf(w, "block align:     %d\n", h.BlockAlign())
	_, _ = fmt.Fprintf(w, "data size:       %d\n", h.DataSize())
	_, _ = fmt.Fprintf(w, "riff size:       %d\n", h.DataSize()+36)
	_, _ = fmt.Fprintf(w, "duration:        %v\n", h.Duration())
}
