package driver

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// Sim is a software stream that moves buffers between the pool and an
// io.Reader (RX) or io.Writer (TX) on a background goroutine.
type Sim struct {
	*pool

	src io.Reader
	dst io.Writer

	startOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewRX returns a capture stream fed by src. Each buffer is filled with
// io.ReadFull; a short final read delivers the whole frames it got and then
// Err reports io.EOF.
func NewRX(src io.Reader, cfg Config) (*Sim, error) {
	cfg.Mode = RX
	p, err := newPool(cfg)
	if err != nil {
		return nil, err
	}
	return &Sim{pool: p, src: src, done: make(chan struct{})}, nil
}

// NewTX returns a playback stream that drains submitted buffers into dst.
func NewTX(dst io.Writer, cfg Config) (*Sim, error) {
	cfg.Mode = TX
	p, err := newPool(cfg)
	if err != nil {
		return nil, err
	}
	return &Sim{pool: p, dst: dst, done: make(chan struct{})}, nil
}

// Start launches the transfer goroutine. Calling it again is a no-op.
func (s *Sim) Start() error {
	if s.isClosed() {
		return ErrClosed
	}
	s.startOnce.Do(func() {
		s.wg.Add(1)
		if s.mode == RX {
			go s.capture()
		} else {
			go s.playback()
		}
	})
	return nil
}

func (s *Sim) capture() {
	defer s.wg.Done()
	for {
		var buf []byte
		select {
		case <-s.done:
			return
		case buf = <-s.free:
		}

		n, err := io.ReadFull(s.src, buf)
		n = n / 8 * 8
		if n > 0 {
			s.ready <- buf[:n]
		} else {
			s.free <- buf
		}
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				err = io.EOF
			}
			s.setErr(err)
			return
		}
	}
}

func (s *Sim) playback() {
	defer s.wg.Done()
	for {
		select {
		case buf := <-s.ready:
			if !s.write(buf) {
				return
			}
		case <-s.done:
			// Flush what was queued before Close.
			for {
				select {
				case buf := <-s.ready:
					if !s.write(buf) {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (s *Sim) write(buf []byte) bool {
	_, err := s.dst.Write(buf)
	s.free <- buf[:cap(buf)]
	if err != nil {
		s.setErr(fmt.Errorf("tx write: %w", err))
		return false
	}
	return true
}

// Close stops the transfer goroutine and waits for it to exit. Queued TX
// buffers are written out first.
func (s *Sim) Close() error {
	if !s.markClosed() {
		return nil
	}
	close(s.done)
	s.wg.Wait()
	return nil
}
