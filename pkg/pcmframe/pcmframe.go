// Package pcmframe windows a monotonically appended stream of float32
// PCM samples into fixed-size, overlapping analysis frames.
//
// The Framer is the spec's PCM Framer component (spec.md §4.1): a
// bounded FIFO that turns an arbitrarily-chunked append sequence into
// a byte-identical sequence of frames, regardless of how the caller
// split the input across Append calls. That determinism is the
// load-bearing property — see [Framer.Append]'s doc comment.
package pcmframe

import (
	"errors"
	"fmt"
	"sync"
)

// ErrBufferOverflow is returned when an Append would grow the pending
// buffer past its configured capacity. The append is rejected
// atomically: no partial write, no silent drop.
var ErrBufferOverflow = errors.New("pcmframe: buffer overflow")

// Config controls frame geometry. All fields are immutable once a
// Framer is constructed, matching the spec's "frame geometry never
// changes after creation" invariant.
type Config struct {
	// FrameSize is the number of samples per analysis frame.
	FrameSize int
	// HopSize is the stride in samples between frame starts. Must be
	// in (0, FrameSize].
	HopSize int
	// Capacity bounds the pending (unframed) sample buffer. Append
	// fails with ErrBufferOverflow rather than silently growing past
	// this, or dropping samples.
	Capacity int
}

func (c Config) validate() error {
	if c.FrameSize <= 0 {
		return fmt.Errorf("pcmframe: frame size must be positive, got %d", c.FrameSize)
	}
	if c.HopSize <= 0 || c.HopSize > c.FrameSize {
		return fmt.Errorf("pcmframe: hop size must be in (0, frameSize], got %d", c.HopSize)
	}
	if c.Capacity < c.FrameSize {
		return fmt.Errorf("pcmframe: capacity must be >= frame size, got %d < %d", c.Capacity, c.FrameSize)
	}
	return nil
}

// Framer is a bounded FIFO of float32 samples that emits fixed-size
// overlapping frames as samples accumulate.
type Framer struct {
	cfg Config

	mu         sync.Mutex
	buf        []float32
	framesSeen int64 // total frames ever emitted, for timestamping
}

// New creates a Framer with the given geometry. Panics if cfg is
// invalid — geometry is fixed at session-creation time and validated
// before any Framer is built, so an invalid Config here is a
// programmer error, not a runtime condition.
func New(cfg Config) *Framer {
	if err := cfg.validate(); err != nil {
		panic(err)
	}
	return &Framer{cfg: cfg}
}

// Append adds samples to the pending buffer and returns every newly
// completed frame.
//
// Determinism: for any sample sequence S and any way of splitting S
// into a series of Append calls, the concatenation of all returned
// frames is identical to calling Append once with all of S. This
// holds because framing only ever depends on the pending buffer
// contents, never on the size of an individual Append call — frames
// are only retained by a byte copy and a position counter, neither of
// which observes call boundaries.
func (f *Framer) Append(samples []float32) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.buf)+len(samples) > f.cfg.Capacity {
		return nil, fmt.Errorf("pcmframe: append %d samples to %d pending exceeds capacity %d: %w",
			len(samples), len(f.buf), f.cfg.Capacity, ErrBufferOverflow)
	}
	f.buf = append(f.buf, samples...)

	n := f.numReadyFrames()
	if n == 0 {
		return nil, nil
	}

	frames := make([][]float32, n)
	for i := 0; i < n; i++ {
		start := i * f.cfg.HopSize
		frame := make([]float32, f.cfg.FrameSize)
		copy(frame, f.buf[start:start+f.cfg.FrameSize])
		frames[i] = frame
	}
	f.framesSeen += int64(n)

	consumed := n * f.cfg.HopSize
	f.buf = f.buf[consumed:]
	return frames, nil
}

// Finalize flushes any trailing partial frame, zero-padded to
// FrameSize, and returns it (or nil if there is no pending data).
// The framer is left empty afterward.
func (f *Framer) Finalize() []float32 {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.buf) == 0 {
		return nil
	}
	frame := make([]float32, f.cfg.FrameSize)
	copy(frame, f.buf)
	f.framesSeen++
	f.buf = nil
	return frame
}

// Pending returns the number of samples currently buffered and not
// yet formed into a frame.
func (f *Framer) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.buf)
}

// FramesEmitted returns the total number of frames produced so far
// (including any returned by Finalize).
func (f *Framer) FramesEmitted() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.framesSeen
}

// numReadyFrames returns how many complete frames the pending buffer
// can currently produce. Caller must hold f.mu.
func (f *Framer) numReadyFrames() int {
	avail := len(f.buf)
	if avail < f.cfg.FrameSize {
		return 0
	}
	return (avail-f.cfg.FrameSize)/f.cfg.HopSize + 1
}
