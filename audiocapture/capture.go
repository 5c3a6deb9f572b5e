// Package audiocapture provides audio sample sources and audio device mode control.
package audiocapture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
)

// ErrRunning is returned when trying to start capture while already capturing.
var ErrRunning = errors.New("already capturing audio")

// Handler receives mono float32 samples in the range [-1, 1].
type Handler func(samples []float32)

// Capturer is a source of audio samples.
type Capturer interface {
	// Start begins delivering samples to h on a capture goroutine.
	Start(h Handler) error
	// Stop ends capture. It is safe to call when not capturing.
	Stop() error
	// SampleRate returns samples per second.
	SampleRate() int
}

// ReaderCapturer reads little-endian float32 mono PCM from an io.Reader,
// for example `sox -d -t f32 -r 16000 -c 1 -`.
type ReaderCapturer struct {
	r          io.Reader
	sampleRate int
	chunk      int // samples per handler call

	mu        sync.Mutex
	capturing bool
	stop      chan struct{}
	done      chan struct{}
}

// NewReaderCapturer creates a capturer over r. sampleRate defaults to 16000.
func NewReaderCapturer(r io.Reader, sampleRate int) *ReaderCapturer {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &ReaderCapturer{
		r:          r,
		sampleRate: sampleRate,
		chunk:      sampleRate / 10, // 100ms
	}
}

func (c *ReaderCapturer) SampleRate() int { return c.sampleRate }

// Start begins reading. h must not be nil.
func (c *ReaderCapturer) Start(h Handler) error {
	if h == nil {
		return fmt.Errorf("nil audio handler")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capturing {
		return ErrRunning
	}
	c.capturing = true
	c.stop = make(chan struct{})
	c.done = make(chan struct{})

	go c.read(h, c.stop, c.done)
	return nil
}

func (c *ReaderCapturer) read(h Handler, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	buf := make([]byte, c.chunk*4)
	for {
		n, err := io.ReadAtLeast(c.r, buf, 4)
		if n >= 4 {
			select {
			case <-stop:
				return
			default:
			}
			h(decodeFloat32LE(buf[:n-n%4]))
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				slog.Error("read audio", "error", err)
			}
			return
		}
	}
}

// Stop ends capture. Reading from a blocking source may only notice the stop
// after its next chunk arrives; Stop does not wait for that.
func (c *ReaderCapturer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.capturing {
		return nil
	}
	c.capturing = false
	close(c.stop)
	return nil
}

// Done is closed when the reader goroutine of the current capture exits.
func (c *ReaderCapturer) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func decodeFloat32LE(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
