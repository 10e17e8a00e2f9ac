// Package driver provides double-buffered audio streams with the
// acquire/submit contract of an I2S DMA peripheral: the caller polls for a
// buffer without blocking, processes it and hands it back.
package driver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Mode is the transfer direction of a stream.
type Mode uint8

const (
	RX Mode = iota // capture: buffers arrive filled
	TX             // playback: buffers are filled by the caller
)

func (m Mode) String() string {
	if m == TX {
		return "tx"
	}
	return "rx"
}

var (
	// ErrClosed is returned by operations on a closed stream.
	ErrClosed = errors.New("stream closed")
	// ErrForeignBuffer is returned when PutBuffer receives a buffer the
	// stream did not hand out.
	ErrForeignBuffer = errors.New("buffer does not belong to this stream")
)

// Stream is the driver contract consumed by the record and playback loops.
type Stream interface {
	// Start begins transfers. Buffers may be exchanged before Start.
	Start() error
	// GetBuffer returns the next buffer or nil when none is ready.
	// RX buffers hold captured bytes; TX buffers are empty and full length.
	GetBuffer() []byte
	// PutBuffer returns a buffer obtained from GetBuffer. For TX streams
	// buf[:len(buf)] is queued for output and len(buf) is returned.
	PutBuffer(buf []byte) (int, error)
	// Err reports why the stream can no longer move data, or nil.
	Err() error
	// Close stops transfers and releases the stream.
	Close() error
}

// Config sizes the buffer pool.
type Config struct {
	Mode        Mode
	Buffers     int
	BufferBytes int
}

func (c Config) validate() error {
	if c.Buffers < 1 {
		return fmt.Errorf("buffers must be at least 1, got %d", c.Buffers)
	}
	if c.BufferBytes < 8 || c.BufferBytes%8 != 0 {
		return fmt.Errorf("buffer size must be a positive multiple of 8, got %d", c.BufferBytes)
	}
	return nil
}

// pool circulates a fixed set of buffers between the caller and the
// transfer side. free holds buffers owned by the producer side of the
// current direction, ready holds buffers waiting for the consumer side.
type pool struct {
	mode  Mode
	size  int
	free  chan []byte
	ready chan []byte

	mu     sync.Mutex
	err    error
	closed bool
}

func newPool(cfg Config) (*pool, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	p := &pool{
		mode:  cfg.Mode,
		size:  cfg.BufferBytes,
		free:  make(chan []byte, cfg.Buffers),
		ready: make(chan []byte, cfg.Buffers),
	}
	for range cfg.Buffers {
		p.free <- make([]byte, cfg.BufferBytes)
	}
	return p, nil
}

// GetBuffer implements the caller side of the exchange.
func (p *pool) GetBuffer() []byte {
	if p.isClosed() {
		return nil
	}
	src := p.ready
	if p.mode == TX {
		src = p.free
	}
	select {
	case b := <-src:
		return b
	default:
		return nil
	}
}

// PutBuffer implements the caller side of the exchange.
func (p *pool) PutBuffer(buf []byte) (int, error) {
	if p.isClosed() {
		return 0, ErrClosed
	}
	if cap(buf) != p.size {
		return 0, ErrForeignBuffer
	}
	if p.mode == RX {
		p.free <- buf[:cap(buf)]
		return 0, nil
	}
	p.ready <- buf
	return len(buf), nil
}

// Drain waits until every queued TX buffer has been consumed by the
// transfer side. The stream must have been started.
func (p *pool) Drain(ctx context.Context) error {
	if p.mode == RX {
		return nil
	}
	t := time.NewTicker(time.Millisecond)
	defer t.Stop()
	for len(p.free) < cap(p.free) {
		if err := p.Err(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

func (p *pool) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *pool) setErr(err error) {
	p.mu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.mu.Unlock()
}

func (p *pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *pool) markClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.closed = true
	return true
}
