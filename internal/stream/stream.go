// Package stream runs the record and playback loops that move audio between
// a driver stream and WAV files on a mounted volume.
package stream

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/example/go-i2s-audio/internal/pcm"
	"github.com/example/go-i2s-audio/internal/storage"
)

// DefaultPollInterval is how long a loop waits when the driver has no
// buffer ready.
const DefaultPollInterval = time.Millisecond

// MicSampleBits is the width of every sample delivered by the capture driver.
const MicSampleBits = 32

var (
	// ErrTooLong is returned when a planned recording does not fit a WAV file.
	ErrTooLong = errors.New("recording too long for a WAV file")
	// ErrEmptyFile is returned when a looping playback file has no samples.
	ErrEmptyFile = errors.New("WAV file has no samples")
)

// Creator creates files for writing.
type Creator interface {
	Create(name string) (storage.File, error)
}

// Opener opens files for reading.
type Opener interface {
	Open(name string) (storage.File, error)
}

// PlannedBytes is the payload size of a recording of the given length.
func PlannedBytes(seconds, sampleRate int, w pcm.Width, ch pcm.Channel) (uint32, error) {
	if seconds < 0 || sampleRate <= 0 {
		return 0, fmt.Errorf("invalid duration %ds at %d Hz", seconds, sampleRate)
	}
	if w.Bytes() == 0 {
		return 0, fmt.Errorf("%w: %d bits", pcm.ErrUnsupportedWidth, w)
	}
	if ch.Count() == 0 {
		return 0, fmt.Errorf("%w: %v", pcm.ErrUnsupportedChannel, ch)
	}
	n := uint64(seconds) * uint64(sampleRate) * uint64(w.Bytes()) * uint64(ch.Count())
	if n > math.MaxUint32-36 {
		return 0, fmt.Errorf("%w: %d bytes", ErrTooLong, n)
	}
	return uint32(n), nil
}

// DefaultRecordFile names a recording after its channel and width, e.g.
// mic_left_16bits.wav.
func DefaultRecordFile(ch pcm.Channel, w pcm.Width) string {
	return fmt.Sprintf("mic_%s_%dbits.wav", ch, w)
}

// wait sleeps for d or until ctx is done, whichever comes first.
func wait(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
