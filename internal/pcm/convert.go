// Package pcm narrows interleaved 32-bit stereo microphone frames to a
// selected channel and sample width.
package pcm

import (
	"errors"
	"fmt"
	"strings"
)

// FrameBytes is the size of one input frame: two little-endian 32-bit samples.
const FrameBytes = 8

const inputSampleBytes = 4

var (
	ErrInvalidInputLength = errors.New("input length is not a whole number of stereo frames")
	ErrUnsupportedWidth   = errors.New("unsupported sample width")
	ErrUnsupportedChannel = errors.New("unsupported channel selector")
	ErrBufferTooSmall     = errors.New("output buffer too small")
)

// Channel selects which samples of a stereo frame are kept.
type Channel uint8

const (
	Left Channel = iota
	Right
	LeftRight
)

// Count is the number of output channels the selector produces.
func (c Channel) Count() int {
	switch c {
	case Left, Right:
		return 1
	case LeftRight:
		return 2
	}
	return 0
}

func (c Channel) String() string {
	switch c {
	case Left:
		return "left"
	case Right:
		return "right"
	case LeftRight:
		return "stereo"
	}
	return fmt.Sprintf("Channel(%d)", uint8(c))
}

// ParseChannel accepts left, right and stereo (or left-right).
func ParseChannel(s string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "l":
		return Left, nil
	case "right", "r":
		return Right, nil
	case "stereo", "left-right", "left_right", "lr":
		return LeftRight, nil
	}
	return 0, fmt.Errorf("%w: %q (expected left|right|stereo)", ErrUnsupportedChannel, s)
}

// Width is the output sample width in bits.
type Width uint8

const (
	Width16 Width = 16
	Width32 Width = 32
)

// Bytes is the size of one output sample, or 0 for an unsupported width.
func (w Width) Bytes() int {
	switch w {
	case Width16:
		return 2
	case Width32:
		return 4
	}
	return 0
}

// ParseWidth maps a bit count to a Width.
func ParseWidth(bits int) (Width, error) {
	switch bits {
	case 16:
		return Width16, nil
	case 32:
		return Width32, nil
	}
	return 0, fmt.Errorf("%w: %d bits", ErrUnsupportedWidth, bits)
}

// OutputSize returns the number of bytes Convert produces for n input bytes.
// n is assumed to be a whole number of frames.
func OutputSize(n int, ch Channel, w Width) int {
	return n / FrameBytes * ch.Count() * w.Bytes()
}

// Convert writes the selected channel(s) of every frame in src to dst,
// narrowed to w, and returns the number of bytes written. Narrowing to 16
// bits keeps the high half of each little-endian sample. On error nothing is
// written to dst.
func Convert(dst, src []byte, ch Channel, w Width) (int, error) {
	if len(src)%FrameBytes != 0 {
		return 0, fmt.Errorf("%w: %d bytes", ErrInvalidInputLength, len(src))
	}
	size := w.Bytes()
	if size == 0 {
		return 0, fmt.Errorf("%w: %d bits", ErrUnsupportedWidth, w)
	}
	if ch.Count() == 0 {
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedChannel, ch)
	}
	need := OutputSize(len(src), ch, w)
	if len(dst) < need {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrBufferTooSmall, need, len(dst))
	}

	// Sample indices [lo, hi) within a frame.
	lo, hi := 0, 1
	switch ch {
	case Right:
		lo, hi = 1, 2
	case LeftRight:
		hi = 2
	}
	skip := inputSampleBytes - size

	out := 0
	for f := 0; f < len(src); f += FrameBytes {
		for c := lo; c < hi; c++ {
			off := f + c*inputSampleBytes + skip
			out += copy(dst[out:out+size], src[off:off+size])
		}
	}

	return out, nil
}
