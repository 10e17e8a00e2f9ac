package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/example/go-i2s-audio/internal/driver"
	"github.com/example/go-i2s-audio/internal/pcm"
	"github.com/example/go-i2s-audio/internal/wav"
)

// Recorder captures microphone frames into a WAV file.
type Recorder struct {
	Stream     driver.Stream
	Files      Creator
	Path       string
	SampleRate int
	Seconds    int
	Channel    pcm.Channel
	Width      pcm.Width

	Logger       *slog.Logger
	PollInterval time.Duration
}

// RecordResult summarizes a finished recording.
type RecordResult struct {
	Header      wav.Header
	Planned     uint32
	Written     uint32
	Buffers     int
	Interrupted bool
	SourceEnded bool
}

// Run records until the planned duration is captured, the driver source is
// exhausted, or ctx is cancelled. In every case the header is rewritten to
// announce exactly the bytes written, and the file and stream are closed.
// Cancellation is not an error; it sets Interrupted.
func (r *Recorder) Run(ctx context.Context) (res RecordResult, err error) {
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}
	poll := r.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	planned, err := PlannedBytes(r.Seconds, r.SampleRate, r.Width, r.Channel)
	if err != nil {
		return res, err
	}
	res.Planned = planned

	h := wav.Header{
		SampleRate:    uint32(r.SampleRate),
		BitsPerSample: uint16(r.Width),
		NumChannels:   uint16(r.Channel.Count()),
		NumSamples:    uint32(r.Seconds) * uint32(r.SampleRate),
	}

	defer func() {
		if cerr := r.Stream.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close stream: %w", cerr))
		}
	}()

	f, err := r.Files.Create(r.Path)
	if err != nil {
		return res, fmt.Errorf("create %s: %w", r.Path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close %s: %w", r.Path, cerr))
		}
	}()

	if _, err := wav.WriteHeader(f, h); err != nil {
		return res, fmt.Errorf("write header: %w", err)
	}

	log.Info("recording started",
		slog.String("file", r.Path),
		slog.Int("sample_rate", r.SampleRate),
		slog.String("channel", r.Channel.String()),
		slog.Int("bits", int(r.Width)),
		slog.Int("planned_bytes", int(planned)),
	)

	loopErr := r.loop(ctx, f, planned, poll, &res)

	final, ferr := wav.Finalize(f, h, res.Written)
	if ferr == nil {
		ferr = f.Sync()
	}
	res.Header = final
	if err := errors.Join(loopErr, ferr); err != nil {
		return res, err
	}

	log.Info("recording finished",
		slog.String("file", r.Path),
		slog.Int("bytes", int(res.Written)),
		slog.Int("buffers", res.Buffers),
		slog.Duration("duration", final.Duration()),
		slog.Bool("interrupted", res.Interrupted),
	)

	return res, nil
}

func (r *Recorder) loop(ctx context.Context, f io.Writer, planned uint32, poll time.Duration, res *RecordResult) error {
	if err := r.Stream.Start(); err != nil {
		return fmt.Errorf("start stream: %w", err)
	}

	var out []byte
	for res.Written < planned {
		if ctx.Err() != nil {
			res.Interrupted = true
			return nil
		}

		buf := r.Stream.GetBuffer()
		if buf == nil {
			if serr := r.Stream.Err(); serr != nil {
				if errors.Is(serr, io.EOF) {
					res.SourceEnded = true
					return nil
				}
				return fmt.Errorf("capture: %w", serr)
			}
			wait(ctx, poll)
			continue
		}

		if need := pcm.OutputSize(len(buf), r.Channel, r.Width); cap(out) < need {
			out = make([]byte, need)
		}
		n, err := pcm.Convert(out[:cap(out)], buf, r.Channel, r.Width)
		if err != nil {
			_, _ = r.Stream.PutBuffer(buf)
			return fmt.Errorf("convert: %w", err)
		}

		n = min(n, int(planned-res.Written))
		written, err := f.Write(out[:n])
		res.Written += uint32(written)
		if _, perr := r.Stream.PutBuffer(buf); perr != nil && err == nil {
			err = perr
		}
		if err != nil {
			return fmt.Errorf("write samples: %w", err)
		}
		res.Buffers++
	}

	return nil
}
