package wav

import (
	"errors"
	"fmt"
	"io"

	"github.com/cwbudde/wav"
)

// ErrFormatMismatch is returned when the third-party decoder disagrees with
// the canonical header.
var ErrFormatMismatch = errors.New("WAV format mismatch")

// Decode parses the canonical header of r and decodes the payload through
// an independent RIFF decoder. Samples are returned interleaved in [-1, 1].
func Decode(r io.ReadSeeker) (Header, []float32, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return Header{}, nil, fmt.Errorf("seek to start: %w", err)
	}
	h, err := ReadHeader(r)
	if err != nil {
		return Header{}, nil, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return Header{}, nil, fmt.Errorf("seek to start: %w", err)
	}

	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return Header{}, nil, errors.New("invalid WAV file")
	}

	if dec.SampleRate != h.SampleRate {
		return Header{}, nil, fmt.Errorf("%w: sample rate %d, header says %d", ErrFormatMismatch, dec.SampleRate, h.SampleRate)
	}
	if dec.NumChans != h.NumChannels {
		return Header{}, nil, fmt.Errorf("%w: channels %d, header says %d", ErrFormatMismatch, dec.NumChans, h.NumChannels)
	}
	if dec.BitDepth != h.BitsPerSample {
		return Header{}, nil, fmt.Errorf("%w: bit depth %d, header says %d", ErrFormatMismatch, dec.BitDepth, h.BitsPerSample)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Header{}, nil, fmt.Errorf("reading PCM data: %w", err)
	}

	return h, buf.Data, nil
}
