package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/go-i2s-audio/internal/tone"
	"github.com/example/go-i2s-audio/internal/wav"
)

func newToneCmd() *cobra.Command {
	var (
		freq      float64
		amplitude float64
	)

	cmd := &cobra.Command{
		Use:   "tone [out.wav]",
		Short: "Write a sine test tone in the configured format",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			if freq <= 0 {
				return fmt.Errorf("--freq must be positive")
			}

			ch, w := cfg.Audio.Format()
			out := fmt.Sprintf("tone_%gHz_%dbits.wav", freq, w)
			if len(args) == 1 {
				out = args[0]
			}

			frames := cfg.Record.Seconds * cfg.Audio.SampleRate
			h := wav.Header{
				SampleRate:    uint32(cfg.Audio.SampleRate),
				BitsPerSample: uint16(w),
				NumChannels:   uint16(ch.Count()),
				NumSamples:    uint32(frames),
			}

			mono := tone.NewGenerator(freq, cfg.Audio.SampleRate, amplitude).Samples(frames)
			samples := mono
			if ch.Count() == 2 {
				samples = make([]float32, 0, 2*frames)
				for _, s := range mono {
					samples = append(samples, s, s)
				}
			}

			data, err := wav.EncodeFloat32(samples, h)
			if err != nil {
				return err
			}

			vol, err := mountVolume(cfg)
			if err != nil {
				return err
			}
			defer vol.Unmount() //nolint:errcheck

			if err := vol.WriteFile(out, data); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %g Hz, %v\n", out, freq, h.Duration())
			return nil
		},
	}

	cmd.Flags().Float64Var(&freq, "freq", 440, "Tone frequency in Hz")
	cmd.Flags().Float64Var(&amplitude, "amplitude", 0.5, "Peak amplitude in (0, 1]")

	return cmd
}
