// Package bench provides benchmarking primitives for the i2saudio bench command.
package bench

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/example/go-i2s-audio/internal/pcm"
	"github.com/example/go-i2s-audio/internal/tone"
	"github.com/example/go-i2s-audio/internal/wav"
)

// RunResult is the timing of one conversion pass over the capture.
type RunResult struct {
	Index         int
	Cold          bool
	Duration      time.Duration
	AudioDuration time.Duration
	// CaptureBytes is the size of the raw 32-bit stereo input consumed.
	CaptureBytes int
	RTF          float64
}

// Throughput returns the raw capture converted per second, in MiB/s.
func (r RunResult) Throughput() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.CaptureBytes) / (1 << 20) / r.Duration.Seconds()
}

type Stats struct {
	Min    time.Duration
	Median time.Duration
	Mean   time.Duration
	Max    time.Duration
}

// ComputeStats summarizes per-run durations. An empty slice yields zero
// stats.
func ComputeStats(durations []time.Duration) Stats {
	if len(durations) == 0 {
		return Stats{}
	}
	sorted := slices.Clone(durations)
	slices.Sort(sorted)

	var total time.Duration
	for _, d := range sorted {
		total += d
	}
	mid := len(sorted) / 2
	median := sorted[mid]
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	}
	return Stats{
		Min:    sorted[0],
		Median: median,
		Mean:   total / time.Duration(len(sorted)),
		Max:    sorted[len(sorted)-1],
	}
}

// CalcRTF is the real-time factor: processing time over audio time. Zero
// audio yields 0.
func CalcRTF(procDur, audioDur time.Duration) float64 {
	if audioDur <= 0 {
		return 0
	}
	return procDur.Seconds() / audioDur.Seconds()
}

// WAVDuration returns the playback duration of a canonical WAV file from its
// header.
func WAVDuration(data []byte) (time.Duration, error) {
	h, err := wav.ParseHeader(data)
	if err != nil {
		return 0, err
	}
	return h.Duration(), nil
}

// Options describes the workload of one bench invocation.
type Options struct {
	Seconds     int
	SampleRate  int
	Channel     pcm.Channel
	Width       pcm.Width
	BufferBytes int
	Runs        int
}

// Capture returns seconds of 32-bit stereo microphone frames carrying a
// 440 Hz tone.
func Capture(seconds, sampleRate int) []byte {
	buf := make([]byte, seconds*sampleRate*pcm.FrameBytes)
	r := &tone.Reader{Gen: tone.NewGenerator(440, sampleRate, 0.5)}
	_, _ = r.Read(buf)
	return buf
}

// EncodeCapture converts capture buffer by buffer, the way the record loop
// does, and returns the complete WAV file.
func EncodeCapture(capture []byte, sampleRate int, ch pcm.Channel, w pcm.Width, bufferBytes int) ([]byte, error) {
	if bufferBytes < pcm.FrameBytes || bufferBytes%pcm.FrameBytes != 0 {
		return nil, fmt.Errorf("buffer size must be a positive multiple of %d, got %d", pcm.FrameBytes, bufferBytes)
	}
	frames := len(capture) / pcm.FrameBytes
	capture = capture[:frames*pcm.FrameBytes]

	h := wav.Header{
		SampleRate:    uint32(sampleRate),
		BitsPerSample: uint16(w),
		NumChannels:   uint16(ch.Count()),
		NumSamples:    uint32(frames),
	}
	out := make([]byte, wav.DataOffset, wav.DataOffset+int(h.DataSize()))
	hdr := h.Bytes()
	copy(out, hdr[:])

	chunk := make([]byte, pcm.OutputSize(bufferBytes, ch, w))
	for off := 0; off < len(capture); off += bufferBytes {
		src := capture[off:min(off+bufferBytes, len(capture))]
		n, err := pcm.Convert(chunk, src, ch, w)
		if err != nil {
			return nil, err
		}
		out = append(out, chunk[:n]...)
	}
	return out, nil
}

// Run converts the same capture opts.Runs times. The first run is marked
// cold.
func Run(opts Options) ([]RunResult, error) {
	if opts.Runs < 1 {
		return nil, fmt.Errorf("runs must be >= 1, got %d", opts.Runs)
	}
	capture := Capture(opts.Seconds, opts.SampleRate)

	runs := make([]RunResult, 0, opts.Runs)
	for i := range opts.Runs {
		start := time.Now()
		data, err := EncodeCapture(capture, opts.SampleRate, opts.Channel, opts.Width, opts.BufferBytes)
		elapsed := time.Since(start)
		if err != nil {
			return runs, fmt.Errorf("run %d: %w", i+1, err)
		}
		audioDur, err := WAVDuration(data)
		if err != nil {
			return runs, fmt.Errorf("run %d: %w", i+1, err)
		}
		runs = append(runs, RunResult{
			Index:         i,
			Cold:          i == 0,
			Duration:      elapsed,
			AudioDuration: audioDur,
			CaptureBytes:  len(capture),
			RTF:           CalcRTF(elapsed, audioDur),
		})
	}
	return runs, nil
}

// Durations extracts the per-run processing times.
func Durations(runs []RunResult) []time.Duration {
	out := make([]time.Duration, len(runs))
	for i, r := range runs {
		out[i] = r.Duration
	}
	return out
}

// MeanRTF averages the real-time factor over runs.
func MeanRTF(runs []RunResult) float64 {
	if len(runs) == 0 {
		return 0
	}
	var sum float64
	for _, r := range runs {
		sum += r.RTF
	}
	return sum / float64(len(runs))
}

// CheckRTFThreshold fails when meanRTF is above threshold. A threshold of 0
// disables the check.
func CheckRTFThreshold(meanRTF, threshold float64) error {
	if threshold > 0 && meanRTF > threshold {
		return fmt.Errorf("mean RTF %.5f above threshold %.5f", meanRTF, threshold)
	}
	return nil
}

// FormatTable writes one row per run followed by the summary rows.
func FormatTable(runs []RunResult, stats Stats, w io.Writer) {
	sb := &strings.Builder{}
	rule := strings.Repeat("=", 52)

	fmt.Fprintf(sb, "%4s %5s %11s %11s %8s %9s\n", "run", "cold", "convert ms", "audio ms", "MiB/s", "rtf")
	sb.WriteString(rule + "\n")
	for _, r := range runs {
		mark := "-"
		if r.Cold {
			mark = "cold"
		}
		fmt.Fprintf(sb, "%4d %5s %11.3f %11.1f %8.1f %9.5f\n",
			r.Index+1, mark, ms(r.Duration), ms(r.AudioDuration), r.Throughput(), r.RTF)
	}
	sb.WriteString(rule + "\n")
	for _, row := range []struct {
		name string
		d    time.Duration
	}{{"min", stats.Min}, {"median", stats.Median}, {"mean", stats.Mean}, {"max", stats.Max}} {
		fmt.Fprintf(sb, "%10s %11.3f\n", row.name, ms(row.d))
	}
	fmt.Fprintf(sb, "%10s %33.5f\n", "mean rtf", MeanRTF(runs))

	_, _ = io.WriteString(w, sb.String())
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

type report struct {
	Runs    []reportRun `json:"runs"`
	Summary summary     `json:"summary"`
}

type reportRun struct {
	Run          int     `json:"run"`
	Cold         bool    `json:"cold"`
	ConvertMS    float64 `json:"convert_ms"`
	AudioMS      float64 `json:"audio_ms"`
	CaptureBytes int     `json:"capture_bytes"`
	MiBPerSec    float64 `json:"mib_per_s"`
	RTF          float64 `json:"rtf"`
}

type summary struct {
	MinMS    float64 `json:"min_ms"`
	MedianMS float64 `json:"median_ms"`
	MeanMS   float64 `json:"mean_ms"`
	MaxMS    float64 `json:"max_ms"`
	MeanRTF  float64 `json:"mean_rtf"`
}

// FormatJSON writes the runs and summary as an indented JSON document.
func FormatJSON(runs []RunResult, stats Stats, w io.Writer) {
	rep := report{
		Runs: make([]reportRun, 0, len(runs)),
		Summary: summary{
			MinMS:    ms(stats.Min),
			MedianMS: ms(stats.Median),
			MeanMS:   ms(stats.Mean),
			MaxMS:    ms(stats.Max),
			MeanRTF:  MeanRTF(runs),
		},
	}
	for _, r := range runs {
		rep.Runs = append(rep.Runs, reportRun{
			Run:          r.Index + 1,
			Cold:         r.Cold,
			ConvertMS:    ms(r.Duration),
			AudioMS:      ms(r.AudioDuration),
			CaptureBytes: r.CaptureBytes,
			MiBPerSec:    r.Throughput(),
			RTF:          r.RTF,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(rep)
}
