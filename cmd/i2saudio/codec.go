package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/example/go-i2s-audio/internal/codec/wm8731"
)

func newCodecCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "codec",
		Short: "Print the WM8731 register writes for the configured codec settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			ccfg, err := cfg.Codec.Wm8731()
			if err != nil {
				return err
			}

			steps, err := wm8731.Sequence(ccfg)
			if err != nil {
				return err
			}

			bus := &wm8731.RecordingBus{}
			if err := wm8731.New(bus, ccfg.Address, slog.Default()).Configure(ccfg); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "wm8731 at %#02x: %s, %s input\n", ccfg.Address, ccfg.SampleRate, ccfg.Input)
			for i, s := range steps {
				_, _ = fmt.Fprintf(out, "%-16s reg %#02x = %#03x  bytes % x\n", s.Name, s.Reg, s.Value, bus.Writes[i])
			}
			return nil
		},
	}
}
