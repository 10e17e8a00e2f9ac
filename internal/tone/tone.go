// Package tone generates test tones from a quarter-wave sine lookup table.
package tone

import (
	"encoding/binary"
	"math"
)

// SamplesPerQuadrant is the table resolution; one period is four quadrants.
const SamplesPerQuadrant = 120

// Period is the number of samples in one full sine period at step 1.
const Period = 4 * SamplesPerQuadrant

var quarter = func() [SamplesPerQuadrant + 1]int16 {
	var t [SamplesPerQuadrant + 1]int16
	for i := range t {
		t[i] = int16(math.Round(math.MaxInt16 * math.Sin(float64(i)*math.Pi/(2*SamplesPerQuadrant))))
	}
	return t
}()

// Value returns the signed 16-bit sine sample at table index i.
func Value(i int) int16 {
	p := i % Period
	if p < 0 {
		p += Period
	}

	var idx int
	switch {
	case p < SamplesPerQuadrant:
		idx = p
	case p < 2*SamplesPerQuadrant:
		idx = 2*SamplesPerQuadrant - p
	case p < 3*SamplesPerQuadrant:
		idx = p - 2*SamplesPerQuadrant
	default:
		idx = Period - p
	}

	if p > 2*SamplesPerQuadrant {
		return -quarter[idx]
	}
	return quarter[idx]
}

// Step returns the table increment that yields freqHz at sampleRate.
// The result is at least 1.
func Step(freqHz float64, sampleRate int) int {
	if sampleRate <= 0 {
		return 1
	}
	s := int(math.Round(freqHz * Period / float64(sampleRate)))
	if s < 1 {
		return 1
	}
	return s
}

// Generator walks the table with a fixed step and amplitude.
type Generator struct {
	Step      int
	Amplitude float64
	idx       int
}

// NewGenerator returns a generator for freqHz at sampleRate with amplitude
// in (0, 1].
func NewGenerator(freqHz float64, sampleRate int, amplitude float64) *Generator {
	if amplitude <= 0 || amplitude > 1 {
		amplitude = 1
	}
	return &Generator{Step: Step(freqHz, sampleRate), Amplitude: amplitude}
}

// Next returns the next 16-bit sample.
func (g *Generator) Next() int16 {
	v := int16(math.Round(float64(Value(g.idx)) * g.Amplitude))
	g.idx = (g.idx + g.Step) % Period
	return v
}

// Samples returns n samples scaled to [-1, 1].
func (g *Generator) Samples(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(g.Next()) / math.MaxInt16
	}
	return out
}

// Reader produces an endless stream of interleaved 32-bit little-endian
// stereo frames carrying the tone in the high 16 bits of both channels, the
// layout an I2S microphone delivers.
type Reader struct {
	Gen *Generator
}

// Read fills p with whole frames. Trailing bytes that do not fit a frame are
// left untouched.
func (r *Reader) Read(p []byte) (int, error) {
	n := len(p) / 8 * 8
	for off := 0; off < n; off += 8 {
		v := uint32(uint16(r.Gen.Next())) << 16
		binary.LittleEndian.PutUint32(p[off:], v)
		binary.LittleEndian.PutUint32(p[off+4:], v)
	}
	return n, nil
}
