// Package dsptables caches the geometry-derived tables that every
// analyzer needs but none of them should pay to recompute per frame:
// the Hann window, the mel filterbank matrix, and the shared FFT plan.
//
// Tables are keyed by [Geometry] and built once per distinct geometry,
// then shared (read-only) by every session and analyzer that uses that
// geometry. This is the one process-wide mutable-but-immutable-content
// singleton spec.md §9 allows outside the session registry.
package dsptables

import (
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// Geometry identifies the frame parameters that determine the shape of
// every shared table. Two sessions with identical Geometry share one
// Tables instance.
type Geometry struct {
	SampleRate int
	FrameSize  int
	FFTSize    int
	NumMels    int
	LowFreqHz  float64
	HighFreqHz float64
}

// Tables holds the geometry-derived, read-only DSP tables.
type Tables struct {
	Geometry Geometry

	// Window holds frameSize Hann coefficients.
	Window []float64

	// MelBank holds NumMels rows of length FFTSize/2+1.
	MelBank [][]float64

	// fft is the shared real-FFT plan for FFTSize. gonum's fourier.FFT
	// is safe for concurrent use across goroutines as long as callers
	// don't share its internal scratch slices; Coefficients/Sequence
	// allocate their own output unless given a destination, so we only
	// ever pass nil destinations and let each call allocate.
	fft *fourier.FFT
}

// FFT returns the shared FFT plan for this geometry.
func (t *Tables) FFT() *fourier.FFT { return t.fft }

var (
	mu    sync.Mutex
	cache = map[Geometry]*Tables{}
)

// Get returns the Tables for g, building and caching them on first use.
func Get(g Geometry) *Tables {
	mu.Lock()
	defer mu.Unlock()

	if t, ok := cache[g]; ok {
		return t
	}

	ones := make([]float64, g.FrameSize)
	for i := range ones {
		ones[i] = 1
	}

	t := &Tables{
		Geometry: g,
		Window:   window.Hann(ones),
		MelBank:  melFilterBank(g.NumMels, g.FFTSize, g.SampleRate, g.LowFreqHz, g.HighFreqHz),
		fft:      fourier.NewFFT(g.FFTSize),
	}
	cache[g] = t
	return t
}

// Reset clears the cache. Exposed for tests that want to exercise
// cold-start construction.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	cache = map[Geometry]*Tables{}
}
