package main

import (
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/spf13/cobra"

	"github.com/example/go-i2s-audio/internal/bench"
)

func newBenchCmd() *cobra.Command {
	var (
		runs         int
		format       string
		rtfThreshold float64
		cpuprofile   string
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark sample conversion throughput and realtime factor",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if runs < 1 {
				return fmt.Errorf("--runs must be at least 1")
			}
			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be 'table' or 'json'")
			}
			if cfg.Record.Seconds < 1 {
				return fmt.Errorf("--seconds must be at least 1 for bench")
			}

			if cpuprofile != "" {
				f, err := os.Create(cpuprofile)
				if err != nil {
					return fmt.Errorf("create cpu profile: %w", err)
				}
				defer f.Close()
				if err := pprof.StartCPUProfile(f); err != nil {
					return fmt.Errorf("start cpu profile: %w", err)
				}
				defer pprof.StopCPUProfile()
			}

			ch, w := cfg.Audio.Format()
			results, err := bench.Run(bench.Options{
				Seconds:     cfg.Record.Seconds,
				SampleRate:  cfg.Audio.SampleRate,
				Channel:     ch,
				Width:       w,
				BufferBytes: cfg.Record.BufferBytes,
				Runs:        runs,
			})
			if err != nil {
				return err
			}

			stats := bench.ComputeStats(bench.Durations(results))

			switch format {
			case "json":
				bench.FormatJSON(results, stats, cmd.OutOrStdout())
			default:
				bench.FormatTable(results, stats, cmd.OutOrStdout())
			}

			return bench.CheckRTFThreshold(bench.MeanRTF(results), rtfThreshold)
		},
	}

	cmd.Flags().IntVar(&runs, "runs", 5, "Number of conversion runs")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")
	cmd.Flags().Float64Var(&rtfThreshold, "rtf-threshold", 0, "Exit non-zero if mean RTF exceeds this value (0 = disabled)")
	cmd.Flags().StringVar(&cpuprofile, "cpuprofile", "", "Write a CPU profile of the runs to this file")

	return cmd
}
