package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"
)

func TestBuildHeader_Size(t *testing.T) {
	for _, rate := range []uint32{8000, 16000, 44100} {
		for _, bits := range []uint16{16, 32} {
			for _, ch := range []uint16{1, 2} {
				for _, n := range []uint32{0, 1, 16000, 1 << 20} {
					hdr := BuildHeader(rate, bits, ch, n)
					if len(hdr) != 44 {
						t.Fatalf("header length %d; want 44", len(hdr))
					}

					riffSize := binary.LittleEndian.Uint32(hdr[4:8])
					dataSize := binary.LittleEndian.Uint32(hdr[40:44])
					if dataSize+36 != riffSize {
						t.Errorf("rate=%d bits=%d ch=%d n=%d: dataSize+36=%d, riffSize=%d",
							rate, bits, ch, n, dataSize+36, riffSize)
					}
				}
			}
		}
	}
}

func TestBuildHeader_Markers(t *testing.T) {
	hdr := BuildHeader(16000, 16, 1, 10)

	if string(hdr[0:4]) != "RIFF" {
		t.Errorf("RIFF marker = %q; want RIFF", hdr[0:4])
	}

	if string(hdr[8:12]) != "WAVE" {
		t.Errorf("WAVE marker = %q; want WAVE", hdr[8:12])
	}

	if string(hdr[12:16]) != "fmt " {
		t.Errorf("fmt marker = %q; want 'fmt '", hdr[12:16])
	}

	if string(hdr[36:40]) != "data" {
		t.Errorf("data marker = %q; want data", hdr[36:40])
	}
}

func TestBuildHeader_Fields(t *testing.T) {
	hdr := BuildHeader(16000, 16, 1, 16000)

	checks := []struct {
		name string
		got  uint32
		want uint32
	}{
		{"riff size", binary.LittleEndian.Uint32(hdr[4:8]), 32036},
		{"fmt size", binary.LittleEndian.Uint32(hdr[16:20]), 16},
		{"audio format", uint32(binary.LittleEndian.Uint16(hdr[20:22])), 1},
		{"channels", uint32(binary.LittleEndian.Uint16(hdr[22:24])), 1},
		{"sample rate", binary.LittleEndian.Uint32(hdr[24:28]), 16000},
		{"byte rate", binary.LittleEndian.Uint32(hdr[28:32]), 32000},
		{"block align", uint32(binary.LittleEndian.Uint16(hdr[32:34])), 2},
		{"bits per sample", uint32(binary.LittleEndian.Uint16(hdr[34:36])), 16},
		{"data size", binary.LittleEndian.Uint32(hdr[40:44]), 32000},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %d; want %d", c.name, c.got, c.want)
		}
	}
}

func TestBuildHeader_StereoWide(t *testing.T) {
	hdr := BuildHeader(8000, 32, 2, 100)

	if got := binary.LittleEndian.Uint32(hdr[28:32]); got != 64000 {
		t.Errorf("byte rate = %d; want 64000", got)
	}
	if got := binary.LittleEndian.Uint16(hdr[32:34]); got != 8 {
		t.Errorf("block align = %d; want 8", got)
	}
	if got := binary.LittleEndian.Uint32(hdr[40:44]); got != 800 {
		t.Errorf("data size = %d; want 800", got)
	}
}

func TestParseHeader_RoundTrip(t *testing.T) {
	for _, want := range []Header{
		{SampleRate: 16000, BitsPerSample: 16, NumChannels: 1, NumSamples: 16000},
		{SampleRate: 8000, BitsPerSample: 32, NumChannels: 2, NumSamples: 3},
		{SampleRate: 48000, BitsPerSample: 16, NumChannels: 2, NumSamples: 0},
		{SampleRate: 22050, BitsPerSample: 32, NumChannels: 1, NumSamples: 123456},
	} {
		hdr := BuildHeader(want.SampleRate, want.BitsPerSample, want.NumChannels, want.NumSamples)

		got, err := ParseHeader(hdr[:])
		if err != nil {
			t.Fatalf("ParseHeader(%+v) error: %v", want, err)
		}

		if got != want {
			t.Errorf("round trip = %+v; want %+v", got, want)
		}
	}
}

func TestParseHeader_Rejects(t *testing.T) {
	valid := BuildHeader(16000, 16, 2, 10)

	mutate := func(f func(b []byte)) []byte {
		b := append([]byte(nil), valid[:]...)
		f(b)
		return b
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"short", valid[:43]},
		{"empty", nil},
		{"bad RIFF", mutate(func(b []byte) { copy(b[0:4], "RIFX") })},
		{"bad WAVE", mutate(func(b []byte) { copy(b[8:12], "AVI ") })},
		{"bad fmt", mutate(func(b []byte) { copy(b[12:16], "LIST") })},
		{"bad data", mutate(func(b []byte) { copy(b[36:40], "fact") })},
		{"extensible fmt size", mutate(func(b []byte) { binary.LittleEndian.PutUint32(b[16:20], 40) })},
		{"float format", mutate(func(b []byte) { binary.LittleEndian.PutUint16(b[20:22], 3) })},
		{"three channels", mutate(func(b []byte) { binary.LittleEndian.PutUint16(b[22:24], 3) })},
		{"24-bit", mutate(func(b []byte) { binary.LittleEndian.PutUint16(b[34:36], 24) })},
		{"byte rate", mutate(func(b []byte) { binary.LittleEndian.PutUint32(b[28:32], 1) })},
		{"block align", mutate(func(b []byte) { binary.LittleEndian.PutUint16(b[32:34], 3) })},
		{"riff size", mutate(func(b []byte) { binary.LittleEndian.PutUint32(b[4:8], 0xFFFFFFFF) })},
		{"partial frame", mutate(func(b []byte) {
			binary.LittleEndian.PutUint32(b[40:44], 41)
			binary.LittleEndian.PutUint32(b[4:8], 41+36)
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHeader(tt.data)
			if err == nil {
				t.Fatal("expected error")
			}

			if !errors.Is(err, ErrMalformedHeader) {
				t.Errorf("expected ErrMalformedHeader, got %v", err)
			}
		})
	}
}

func TestReadHeader(t *testing.T) {
	t.Run("reads header and stops at data offset", func(t *testing.T) {
		hdr := BuildHeader(16000, 16, 1, 2)
		r := bytes.NewReader(append(hdr[:], 1, 2, 3, 4))

		h, err := ReadHeader(r)
		if err != nil {
			t.Fatalf("ReadHeader error: %v", err)
		}

		if h.NumSamples != 2 {
			t.Errorf("NumSamples = %d; want 2", h.NumSamples)
		}

		if r.Len() != 4 {
			t.Errorf("remaining = %d; want 4", r.Len())
		}
	})

	t.Run("truncated input is malformed", func(t *testing.T) {
		_, err := ReadHeader(bytes.NewReader([]byte("RIFF")))
		if !errors.Is(err, ErrMalformedHeader) {
			t.Errorf("expected ErrMalformedHeader, got %v", err)
		}
	})
}

func TestHeader_Derived(t *testing.T) {
	h := Header{SampleRate: 16000, BitsPerSample: 16, NumChannels: 2, NumSamples: 8000}

	if h.BlockAlign() != 4 {
		t.Errorf("BlockAlign = %d; want 4", h.BlockAlign())
	}

	if h.ByteRate() != 64000 {
		t.Errorf("ByteRate = %d; want 64000", h.ByteRate())
	}

	if h.DataSize() != 32000 {
		t.Errorf("DataSize = %d; want 32000", h.DataSize())
	}

	if h.Duration() != 500*time.Millisecond {
		t.Errorf("Duration = %v; want 500ms", h.Duration())
	}

	if (Header{}).Duration() != 0 {
		t.Error("zero header duration should be 0")
	}
}

func TestFinalize(t *testing.T) {
	planned := Header{SampleRate: 16000, BitsPerSample: 16, NumChannels: 1, NumSamples: 16000}

	var buf bytes.Buffer
	sw := &seekBuffer{buf: &buf}

	if _, err := WriteHeader(sw, planned); err != nil {
		t.Fatal(err)
	}

	payload := make([]byte, 100)
	if _, err := sw.Write(payload); err != nil {
		t.Fatal(err)
	}

	got, err := Finalize(sw, planned, uint32(len(payload)))
	if err != nil {
		t.Fatalf("Finalize error: %v", err)
	}

	if got.NumSamples != 50 {
		t.Errorf("NumSamples = %d; want 50", got.NumSamples)
	}

	if buf.Len() != DataOffset+len(payload) {
		t.Fatalf("file length = %d; want %d", buf.Len(), DataOffset+len(payload))
	}

	parsed, err := ParseHeader(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseHeader after Finalize: %v", err)
	}

	if parsed != got {
		t.Errorf("parsed = %+v; want %+v", parsed, got)
	}

	pos, err := sw.Seek(0, io.SeekCurrent)
	if err != nil {
		t.Fatal(err)
	}

	if pos != int64(buf.Len()) {
		t.Errorf("position = %d; want end of file %d", pos, buf.Len())
	}
}

func TestFinalize_ZeroBlockAlign(t *testing.T) {
	var buf bytes.Buffer

	_, err := Finalize(&seekBuffer{buf: &buf}, Header{}, 10)
	if !errors.Is(err, ErrMalformedHeader) {
		t.Errorf("expected ErrMalformedHeader, got %v", err)
	}
}
