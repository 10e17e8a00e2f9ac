package wav

import (
	"bytes"
	"fmt"
	"io"

	"github.com/cwbudde/wav"
	goaudio "github.com/go-audio/audio"
)

// EncodeFloat32 encodes interleaved samples in [-1, 1] as a PCM WAV file
// with the rate, width and channel count of h. h.NumSamples is ignored.
func EncodeFloat32(samples []float32, h Header) ([]byte, error) {
	if h.NumChannels == 0 || len(samples)%int(h.NumChannels) != 0 {
		return nil, fmt.Errorf("%d samples do not fill %d-channel frames", len(samples), h.NumChannels)
	}

	var buf bytes.Buffer

	// wav.NewEncoder requires an io.WriteSeeker; bytes.Buffer is not one.
	sw := &seekBuffer{buf: &buf}

	enc := wav.NewEncoder(sw, int(h.SampleRate), int(h.BitsPerSample), int(h.NumChannels), formatPCM)

	pcmBuf := &goaudio.Float32Buffer{
		Data:           samples,
		Format:         &goaudio.Format{SampleRate: int(h.SampleRate), NumChannels: int(h.NumChannels)},
		SourceBitDepth: int(h.BitsPerSample),
	}

	if err := enc.Write(pcmBuf); err != nil {
		return nil, fmt.Errorf("writing PCM: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("closing encoder: %w", err)
	}

	return buf.Bytes(), nil
}

// seekBuffer wraps a bytes.Buffer to satisfy io.WriteSeeker.
type seekBuffer struct {
	buf *bytes.Buffer
	pos int
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	if s.pos == s.buf.Len() {
		n, err := s.buf.Write(p)
		s.pos += n
		return n, err
	}
	if s.pos > s.buf.Len() {
		s.buf.Write(make([]byte, s.pos-s.buf.Len()))
		return s.Write(p)
	}

	// Overwrite in place, then append whatever does not fit.
	data := s.buf.Bytes()
	n := copy(data[s.pos:], p)
	if n < len(p) {
		s.buf.Write(p[n:])
	}
	s.pos += len(p)
	return len(p), nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var newPos int
	switch whence {
	case io.SeekStart:
		newPos = int(offset)
	case io.SeekCurrent:
		newPos = s.pos + int(offset)
	case io.SeekEnd:
		newPos = s.buf.Len() + int(offset)
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if newPos < 0 {
		return 0, fmt.Errorf("seek before start")
	}
	s.pos = newPos
	return int64(newPos), nil
}
