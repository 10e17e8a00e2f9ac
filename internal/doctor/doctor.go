// Package doctor provides environment preflight checks for i2saudio.
package doctor

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/example/go-i2s-audio/internal/wav"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// DevicesFunc lists the host audio devices for one direction.
type DevicesFunc func() ([]string, error)

// Config holds injectable dependencies for each doctor check.
type Config struct {
	// StorageName describes the mounted volume, e.g. "os:/media/sd".
	StorageName string
	// StorageWritable probes the volume with a create/remove round trip.
	StorageWritable func() error
	// ReadFile reads a file from the mounted volume.
	ReadFile func(name string) ([]byte, error)
	// WAVFiles are volume paths that must hold canonical WAV files.
	WAVFiles []string
	// CaptureDevices and PlaybackDevices enumerate host devices.
	CaptureDevices  DevicesFunc
	PlaybackDevices DevicesFunc
	// SkipDevices skips device checks (sim driver).
	SkipDevices bool
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	// ---- storage ----------------------------------------------------------
	if cfg.StorageWritable != nil {
		if err := cfg.StorageWritable(); err != nil {
			res.fail(fmt.Sprintf("storage %s: %v", cfg.StorageName, err))
			fmt.Fprintf(w, "%s storage %s: not writable (%v)\n", FailMark, cfg.StorageName, err)
		} else {
			fmt.Fprintf(w, "%s storage: %s writable\n", PassMark, cfg.StorageName)
		}
	}

	// ---- WAV files --------------------------------------------------------
	for _, path := range cfg.WAVFiles {
		if cfg.ReadFile == nil {
			break
		}
		data, err := cfg.ReadFile(path)
		if err != nil {
			res.fail(fmt.Sprintf("wav file %q: %v", path, err))
			fmt.Fprintf(w, "%s wav file %s: not found\n", FailMark, path)
			continue
		}
		h, err := checkWAV(data)
		if err != nil {
			res.fail(fmt.Sprintf("wav file %q: %v", path, err))
			fmt.Fprintf(w, "%s wav file %s: %v\n", FailMark, path, err)
			continue
		}
		fmt.Fprintf(w, "%s wav file: %s (%s)\n", PassMark, path, describe(h))
	}

	// ---- audio devices ----------------------------------------------------
	if cfg.SkipDevices {
		fmt.Fprintf(w, "%s audio devices: skipped\n", PassMark)
		return res
	}
	checkDevices(&res, w, "capture", cfg.CaptureDevices)
	checkDevices(&res, w, "playback", cfg.PlaybackDevices)

	return res
}

func checkDevices(res *Result, w io.Writer, kind string, list DevicesFunc) {
	if list == nil {
		return
	}
	names, err := list()
	switch {
	case err != nil:
		res.fail(fmt.Sprintf("%s device: %v", kind, err))
		fmt.Fprintf(w, "%s %s device: unavailable (%v)\n", FailMark, kind, err)
	case len(names) == 0:
		res.fail(fmt.Sprintf("%s device: none found", kind))
		fmt.Fprintf(w, "%s %s device: none found\n", FailMark, kind)
	default:
		fmt.Fprintf(w, "%s %s device: %s\n", PassMark, kind, strings.Join(names, ", "))
	}
}

// checkWAV requires a canonical header whose data size matches the payload
// and a payload the independent decoder agrees with.
func checkWAV(data []byte) (wav.Header, error) {
	h, err := wav.ParseHeader(data)
	if err != nil {
		return h, err
	}
	if got, want := len(data)-wav.DataOffset, int(h.DataSize()); got != want {
		return h, fmt.Errorf("payload is %d bytes, header announces %d", got, want)
	}
	if h.DataSize() == 0 {
		return h, nil
	}
	if _, _, err := wav.Decode(bytes.NewReader(data)); err != nil {
		return h, err
	}
	return h, nil
}

func describe(h wav.Header) string {
	return fmt.Sprintf("%d Hz, %d-bit, %d ch, %v", h.SampleRate, h.BitsPerSample, h.NumChannels, h.Duration())
}
