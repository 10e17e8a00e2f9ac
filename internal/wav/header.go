// Package wav builds and parses the canonical 44-byte PCM WAV header used by
// the recording and playback loops.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

// DataOffset is the byte offset of the first sample in every file whose
// header was produced by BuildHeader.
const DataOffset = 44

const (
	fmtChunkSize = 16
	formatPCM    = 1
)

// ErrMalformedHeader is returned when a header does not match the canonical
// PCM layout.
var ErrMalformedHeader = errors.New("malformed WAV header")

// Header describes a canonical PCM WAV file.
type Header struct {
	SampleRate    uint32
	BitsPerSample uint16
	NumChannels   uint16
	NumSamples    uint32
}

// BlockAlign is the size of one frame in bytes.
func (h Header) BlockAlign() uint16 {
	return h.NumChannels * h.BitsPerSample / 8
}

// ByteRate is the number of payload bytes per second of audio.
func (h Header) ByteRate() uint32 {
	return h.SampleRate * uint32(h.NumChannels) * uint32(h.BitsPerSample) / 8
}

// DataSize is the payload size announced by the header.
func (h Header) DataSize() uint32 {
	return h.NumSamples * uint32(h.NumChannels) * uint32(h.BitsPerSample) / 8
}

// Duration returns the playback duration of the announced payload.
func (h Header) Duration() time.Duration {
	if h.SampleRate == 0 {
		return 0
	}
	return time.Duration(int64(h.NumSamples) * int64(time.Second) / int64(h.SampleRate))
}

// Bytes encodes h as a 44-byte header.
func (h Header) Bytes() [DataOffset]byte {
	return BuildHeader(h.SampleRate, h.BitsPerSample, h.NumChannels, h.NumSamples)
}

// BuildHeader encodes a 44-byte PCM header. Inputs are not validated:
// bitsPerSample must be 16 or 32 and numChannels 1 or 2.
func BuildHeader(sampleRate uint32, bitsPerSample, numChannels uint16, numSamples uint32) [DataOffset]byte {
	h := Header{
		SampleRate:    sampleRate,
		BitsPerSample: bitsPerSample,
		NumChannels:   numChannels,
		NumSamples:    numSamples,
	}
	dataSize := h.DataSize()

	var hdr [DataOffset]byte
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], dataSize+36)
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], fmtChunkSize)
	binary.LittleEndian.PutUint16(hdr[20:22], formatPCM)
	binary.LittleEndian.PutUint16(hdr[22:24], numChannels)
	binary.LittleEndian.PutUint32(hdr[24:28], sampleRate)
	binary.LittleEndian.PutUint32(hdr[28:32], h.ByteRate())
	binary.LittleEndian.PutUint16(hdr[32:34], h.BlockAlign())
	binary.LittleEndian.PutUint16(hdr[34:36], bitsPerSample)
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], dataSize)

	return hdr
}

// ParseHeader decodes a header produced by BuildHeader. Anything else,
// including valid WAV files with extra chunks, is rejected with
// ErrMalformedHeader.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < DataOffset {
		return Header{}, fmt.Errorf("%w: %d bytes, want %d", ErrMalformedHeader, len(b), DataOffset)
	}

	for _, m := range []struct {
		off  int
		want string
	}{
		{0, "RIFF"},
		{8, "WAVE"},
		{12, "fmt "},
		{36, "data"},
	} {
		if got := string(b[m.off : m.off+4]); got != m.want {
			return Header{}, fmt.Errorf("%w: marker at %d is %q, want %q", ErrMalformedHeader, m.off, got, m.want)
		}
	}

	if size := binary.LittleEndian.Uint32(b[16:20]); size != fmtChunkSize {
		return Header{}, fmt.Errorf("%w: fmt chunk size %d", ErrMalformedHeader, size)
	}
	if format := binary.LittleEndian.Uint16(b[20:22]); format != formatPCM {
		return Header{}, fmt.Errorf("%w: audio format %d is not PCM", ErrMalformedHeader, format)
	}

	h := Header{
		NumChannels:   binary.LittleEndian.Uint16(b[22:24]),
		SampleRate:    binary.LittleEndian.Uint32(b[24:28]),
		BitsPerSample: binary.LittleEndian.Uint16(b[34:36]),
	}
	if h.NumChannels != 1 && h.NumChannels != 2 {
		return Header{}, fmt.Errorf("%w: %d channels", ErrMalformedHeader, h.NumChannels)
	}
	if h.BitsPerSample != 16 && h.BitsPerSample != 32 {
		return Header{}, fmt.Errorf("%w: %d bits per sample", ErrMalformedHeader, h.BitsPerSample)
	}
	if got := binary.LittleEndian.Uint32(b[28:32]); got != h.ByteRate() {
		return Header{}, fmt.Errorf("%w: byte rate %d, want %d", ErrMalformedHeader, got, h.ByteRate())
	}
	if got := binary.LittleEndian.Uint16(b[32:34]); got != h.BlockAlign() {
		return Header{}, fmt.Errorf("%w: block align %d, want %d", ErrMalformedHeader, got, h.BlockAlign())
	}

	riffSize := binary.LittleEndian.Uint32(b[4:8])
	dataSize := binary.LittleEndian.Uint32(b[40:44])
	if riffSize != dataSize+36 {
		return Header{}, fmt.Errorf("%w: RIFF size %d does not match data size %d", ErrMalformedHeader, riffSize, dataSize)
	}
	if dataSize%uint32(h.BlockAlign()) != 0 {
		return Header{}, fmt.Errorf("%w: data size %d is not a multiple of block align %d",
			ErrMalformedHeader, dataSize, h.BlockAlign())
	}
	h.NumSamples = dataSize / uint32(h.BlockAlign())

	return h, nil
}

// ReadHeader reads and parses the first DataOffset bytes of r.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [DataOffset]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Header{}, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
		}
		return Header{}, fmt.Errorf("reading header: %w", err)
	}
	return ParseHeader(buf[:])
}

// WriteHeader writes the encoded header to w.
func WriteHeader(w io.Writer, h Header) (int, error) {
	hdr := h.Bytes()
	return w.Write(hdr[:])
}

// Finalize rewrites the header at the start of ws so that it announces
// exactly dataBytes of payload, rounded down to whole frames, and leaves the
// write position at the end of the payload.
func Finalize(ws io.WriteSeeker, h Header, dataBytes uint32) (Header, error) {
	align := uint32(h.BlockAlign())
	if align == 0 {
		return Header{}, fmt.Errorf("%w: zero block align", ErrMalformedHeader)
	}
	h.NumSamples = dataBytes / align

	if _, err := ws.Seek(0, io.SeekStart); err != nil {
		return Header{}, fmt.Errorf("seek to header: %w", err)
	}
	if _, err := WriteHeader(ws, h); err != nil {
		return Header{}, fmt.Errorf("rewrite header: %w", err)
	}
	if _, err := ws.Seek(int64(DataOffset)+int64(dataBytes), io.SeekStart); err != nil {
		return Header{}, fmt.Errorf("seek to end of data: %w", err)
	}

	return h, nil
}
