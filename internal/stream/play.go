package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/example/go-i2s-audio/internal/driver"
	"github.com/example/go-i2s-audio/internal/wav"
)

// Drainer is implemented by streams that can wait for queued output to be
// played before Close.
type Drainer interface {
	Drain(ctx context.Context) error
}

// Player streams the samples of a WAV file into a TX driver stream.
type Player struct {
	Stream driver.Stream
	Files  Opener
	Path   string
	// Loop rewinds to the first sample at end of data instead of stopping.
	Loop bool

	Logger       *slog.Logger
	PollInterval time.Duration
}

// PlayResult summarizes a playback run.
type PlayResult struct {
	Header      wav.Header
	Bytes       int64
	Loops       int
	Interrupted bool
}

// Run plays the file until its data is exhausted (or forever with Loop)
// or ctx is cancelled. The stream is started after the first buffer is
// queued. Cancellation is not an error; it sets Interrupted.
func (p *Player) Run(ctx context.Context) (res PlayResult, err error) {
	log := p.Logger
	if log == nil {
		log = slog.Default()
	}
	poll := p.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	defer func() {
		if cerr := p.Stream.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close stream: %w", cerr))
		}
	}()

	f, err := p.Files.Open(p.Path)
	if err != nil {
		return res, fmt.Errorf("open %s: %w", p.Path, err)
	}
	defer f.Close()

	h, err := wav.ReadHeader(f)
	if err != nil {
		return res, fmt.Errorf("%s: %w", p.Path, err)
	}
	res.Header = h
	if p.Loop && h.DataSize() == 0 {
		return res, fmt.Errorf("%s: %w", p.Path, ErrEmptyFile)
	}

	log.Info("playback started",
		slog.String("file", p.Path),
		slog.Int("sample_rate", int(h.SampleRate)),
		slog.Int("channels", int(h.NumChannels)),
		slog.Int("bits", int(h.BitsPerSample)),
		slog.Bool("loop", p.Loop),
	)

	started, err := p.loop(ctx, f, h, poll, &res)
	if err != nil {
		return res, err
	}

	if d, ok := p.Stream.(Drainer); ok && started && !res.Interrupted {
		if err := d.Drain(ctx); err != nil && ctx.Err() == nil {
			return res, fmt.Errorf("drain: %w", err)
		}
	}

	log.Info("playback finished",
		slog.String("file", p.Path),
		slog.Int64("bytes", res.Bytes),
		slog.Int("loops", res.Loops),
		slog.Bool("interrupted", res.Interrupted),
	)

	return res, nil
}

func (p *Player) loop(ctx context.Context, f io.ReadSeeker, h wav.Header, poll time.Duration, res *PlayResult) (started bool, err error) {
	align := int(h.BlockAlign())
	remaining := int64(h.DataSize())
	var pass int64

	for {
		if ctx.Err() != nil {
			res.Interrupted = true
			return started, nil
		}

		buf := p.Stream.GetBuffer()
		if buf == nil {
			if serr := p.Stream.Err(); serr != nil {
				return started, fmt.Errorf("playback: %w", serr)
			}
			wait(ctx, poll)
			continue
		}

		want := min(int64(len(buf)), remaining)
		want -= want % int64(align)
		n, rerr := io.ReadFull(f, buf[:want])
		n -= n % align
		remaining -= int64(n)
		pass += int64(n)
		if _, err := p.Stream.PutBuffer(buf[:n]); err != nil {
			return started, fmt.Errorf("submit buffer: %w", err)
		}
		res.Bytes += int64(n)

		if !started && n > 0 {
			if err := p.Stream.Start(); err != nil {
				return started, fmt.Errorf("start stream: %w", err)
			}
			started = true
		}

		if rerr != nil && !errors.Is(rerr, io.ErrUnexpectedEOF) && !errors.Is(rerr, io.EOF) {
			return started, fmt.Errorf("read samples: %w", rerr)
		}

		// End of data: the announced size was played or the file is short.
		if remaining > 0 && rerr == nil {
			continue
		}
		if !p.Loop {
			return started, nil
		}
		if pass == 0 {
			return started, ErrEmptyFile
		}
		if _, err := f.Seek(wav.DataOffset, io.SeekStart); err != nil {
			return started, fmt.Errorf("rewind: %w", err)
		}
		remaining = int64(h.DataSize())
		pass = 0
		res.Loops++
	}
}
