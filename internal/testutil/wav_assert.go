package testutil

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/example/go-i2s-audio/internal/wav"
)

// AssertValidWAV checks that data is a canonical PCM WAV file whose format
// matches want and whose payload is exactly the announced data size.
// want.NumSamples is only compared when non-zero.
func AssertValidWAV(tb testing.TB, data []byte, want wav.Header) wav.Header {
	tb.Helper()

	if len(data) < wav.DataOffset {
		tb.Fatalf("WAV data too short: %d bytes", len(data))
	}

	got, err := wav.ParseHeader(data)
	if err != nil {
		tb.Fatalf("WAV: %v", err)
	}

	if got.SampleRate != want.SampleRate {
		tb.Fatalf("WAV: expected sample rate %d, got %d", want.SampleRate, got.SampleRate)
	}

	if got.NumChannels != want.NumChannels {
		tb.Fatalf("WAV: expected %d channels, got %d", want.NumChannels, got.NumChannels)
	}

	if got.BitsPerSample != want.BitsPerSample {
		tb.Fatalf("WAV: expected %d-bit depth, got %d", want.BitsPerSample, got.BitsPerSample)
	}

	if want.NumSamples != 0 && got.NumSamples != want.NumSamples {
		tb.Fatalf("WAV: expected %d samples, got %d", want.NumSamples, got.NumSamples)
	}

	// Cross-check the header against the chunk list.
	dataSize, err := findDataChunkSize(data)
	if err != nil {
		tb.Fatalf("WAV: %v", err)
	}

	if dataSize != got.DataSize() {
		tb.Fatalf("WAV: data chunk size %d disagrees with header %d", dataSize, got.DataSize())
	}

	if len(data) != wav.DataOffset+int(dataSize) {
		tb.Fatalf("WAV: file is %d bytes, header announces %d", len(data), wav.DataOffset+int(dataSize))
	}

	return got
}

// AssertWAVDurationApprox asserts that the WAV audio duration falls within
// [lo, hi].
func AssertWAVDurationApprox(tb testing.TB, data []byte, lo, hi time.Duration) {
	tb.Helper()

	h, err := wav.ParseHeader(data)
	if err != nil {
		tb.Fatalf("WAV duration check: %v", err)
	}

	if d := h.Duration(); d < lo || d > hi {
		tb.Fatalf("WAV duration %v out of expected range [%v, %v]", d, lo, hi)
	}
}

// findDataChunkSize walks the WAV chunk list to locate the "data" sub-chunk
// and returns its size in bytes.
func findDataChunkSize(data []byte) (uint32, error) {
	// Start after the 12-byte RIFF/WAVE header.
	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])

		size := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		if id == "data" {
			return size, nil
		}

		offset += 8 + int(size)
		// Pad to even boundary.
		if size%2 != 0 {
			offset++
		}
	}

	return 0, errors.New("data chunk not found in WAV")
}
