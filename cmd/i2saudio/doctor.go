package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/go-i2s-audio/internal/config"
	"github.com/example/go-i2s-audio/internal/doctor"
	"github.com/example/go-i2s-audio/internal/driver"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor [file.wav]...",
		Short: "Run storage, WAV file and audio device checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			errOut := cmd.ErrOrStderr()
			_, _ = fmt.Fprintf(out, "driver: %s\n", cfg.Driver.Backend)

			vol, err := mountVolume(cfg)
			if err != nil {
				_, _ = fmt.Fprintf(out, "%s storage: %v\n", doctor.FailMark, err)
				return errors.New("doctor checks failed")
			}
			defer vol.Unmount() //nolint:errcheck

			files := append([]string(nil), args...)
			if cfg.Playback.File != "" {
				files = append(files, cfg.Playback.File)
			}

			dcfg := doctor.Config{
				StorageName:     vol.Backend() + ":" + vol.Root(),
				StorageWritable: vol.Writable,
				ReadFile:        vol.ReadFile,
				WAVFiles:        files,
				CaptureDevices:  func() ([]string, error) { return driver.ListDevices(driver.RX) },
				PlaybackDevices: func() ([]string, error) { return driver.ListDevices(driver.TX) },
				SkipDevices:     cfg.Driver.Backend != config.DriverMalgo,
			}

			result := doctor.Run(dcfg, out)

			if cfg.Codec.Enabled {
				if err := configureCodec(cfg); err != nil {
					result.AddFailure(fmt.Sprintf("codec: %v", err))
					_, _ = fmt.Fprintf(out, "%s codec: %v\n", doctor.FailMark, err)
				} else {
					_, _ = fmt.Fprintf(out, "%s codec: wm8731 sequence ok\n", doctor.PassMark)
				}
			}

			if result.Failed() {
				for _, f := range result.Failures() {
					_, _ = fmt.Fprintf(errOut, "FAIL: %s\n", f)
				}

				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(out, "doctor checks passed")

			return nil
		},
	}

	return cmd
}
