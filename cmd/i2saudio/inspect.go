package main

import (
	"bytes"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/example/go-i2s-audio/internal/wav"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>...",
		Short: "Validate WAV files on the storage volume and summarize them",
		Args:  cobra.MinimumNArgs(1),
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

			out := cmd.OutOrStdout()
			for _, path := range args {
				data, err := vol.ReadFile(path)
				if err != nil {
					return err
				}

				h, samples, err := wav.Decode(bytes.NewReader(data))
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}

				_, _ = fmt.Fprintf(out, "%s\n", path)
				printHeader(out, h)
				if extra := len(data) - wav.DataOffset - int(h.DataSize()); extra != 0 {
					_, _ = fmt.Fprintf(out, "trailing bytes:  %d\n", extra)
				}
				_, _ = fmt.Fprintf(out, "peak:            %.2f dBFS\n", peakDBFS(samples))
			}
			return nil
		},
	}
}

// peakDBFS returns the peak level of samples in [-1, 1], or -Inf for silence.
func peakDBFS(samples []float32) float64 {
	var peak float64
	for _, s := range samples {
		peak = max(peak, math.Abs(float64(s)))
	}
	if peak == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(peak)
}
