// Package mfcc computes Mel-Frequency Cepstral Coefficient vectors
// from windowed PCM frames.
//
// Pipeline per frame: Hann window → real FFT → power spectrum → mel
// filterbank → log (with a floor to avoid -Inf) → DCT-II → keep the
// first NCepstra coefficients, optionally dropping or replacing c0,
// optionally appending delta/delta-delta coefficients.
//
// The whole pipeline is bit-deterministic: every reduction is a
// sequential loop over a fixed-size slice, nothing is computed on
// multiple goroutines, and there is no randomized initialization.
package mfcc

import (
	"fmt"
	"math"

	"github.com/wildmatch/callecho/pkg/dsptables"
	"github.com/wildmatch/callecho/pkg/spectrum"
)

// Config controls MFCC extraction. Mirrors spec.md §3's frame
// geometry plus the cepstral-specific knobs of §4.2.
type Config struct {
	SampleRate int // Hz
	FrameSize  int // samples per frame
	HopSize    int // samples between frame starts (informational here; framing itself lives in pkg/pcmframe)
	FFTSize    int // power of two, >= FrameSize
	NumMels    int // mel filterbank bands
	NCepstra   int // cepstral coefficients kept per frame
	LowFreqHz  float64
	HighFreqHz float64

	// DropC0 removes the zeroth cepstral coefficient (overall log
	// energy) instead of keeping it.
	DropC0 bool
	// ReplaceC0WithLogEnergy overwrites c0 with the frame's raw log
	// energy rather than the DCT-derived value. Ignored if DropC0.
	ReplaceC0WithLogEnergy bool

	// EnableDeltas appends delta and delta-delta coefficients,
	// computed from a symmetric ±2 frame window with reflect padding.
	EnableDeltas bool
}

// DefaultConfig returns spec.md §3's stated defaults.
func DefaultConfig(sampleRate int) Config {
	return Config{
		SampleRate: sampleRate,
		FrameSize:  1024,
		HopSize:    256,
		FFTSize:    1024,
		NumMels:    26,
		NCepstra:   13,
		LowFreqHz:  0,
		HighFreqHz: float64(sampleRate) / 2,
	}
}

// Dimension returns the fixed per-frame vector dimension this config
// produces, accounting for DropC0 and EnableDeltas.
func (c Config) Dimension() int {
	n := c.NCepstra
	if c.DropC0 {
		n--
	}
	if c.EnableDeltas {
		n *= 3
	}
	return n
}

func (c Config) validate() error {
	if c.FrameSize <= 0 || c.FFTSize < c.FrameSize {
		return fmt.Errorf("mfcc: fftSize (%d) must be >= frameSize (%d)", c.FFTSize, c.FrameSize)
	}
	if c.FFTSize&(c.FFTSize-1) != 0 {
		return fmt.Errorf("mfcc: fftSize must be a power of two, got %d", c.FFTSize)
	}
	if c.NumMels <= 0 || c.NCepstra <= 0 || c.NCepstra > c.NumMels {
		return fmt.Errorf("mfcc: invalid numMels=%d nCepstra=%d", c.NumMels, c.NCepstra)
	}
	return nil
}

// logFloor guards math.Log against -Inf on a zero (or near-zero)
// input, per spec.md §7's INTERNAL trapping requirement.
const logFloor = 1e-10

// Extractor computes MFCC vectors for frames of a fixed geometry.
type Extractor struct {
	cfg    Config
	tables *dsptables.Tables
}

// New creates an Extractor. Panics on an invalid Config — geometry is
// fixed at session creation and validated there.
func New(cfg Config) *Extractor {
	if err := cfg.validate(); err != nil {
		panic(err)
	}
	g := dsptables.Geometry{
		SampleRate: cfg.SampleRate,
		FrameSize:  cfg.FrameSize,
		FFTSize:    cfg.FFTSize,
		NumMels:    cfg.NumMels,
		LowFreqHz:  cfg.LowFreqHz,
		HighFreqHz: cfg.HighFreqHz,
	}
	return &Extractor{cfg: cfg, tables: dsptables.Get(g)}
}

// Tables exposes the shared geometry tables, so callers can compute a
// [spectrum.Frame] once and hand it to every analyzer including this
// one.
func (e *Extractor) Tables() *dsptables.Tables { return e.tables }

// Process computes a single cepstral vector (without deltas) from a
// frame's shared spectrum (see package spectrum).
func (e *Extractor) Process(fr *spectrum.Frame) ([]float64, error) {
	if len(fr.Power) != e.cfg.FFTSize/2+1 {
		return nil, fmt.Errorf("mfcc: spectrum has %d bins, want %d", len(fr.Power), e.cfg.FFTSize/2+1)
	}

	melBank := e.tables.MelBank
	logMel := make([]float64, e.cfg.NumMels)
	for m, filter := range melBank {
		var sum float64
		for k, w := range filter {
			if w == 0 {
				continue
			}
			sum += w * fr.Power[k]
		}
		if sum < logFloor {
			sum = logFloor
		}
		logMel[m] = math.Log(sum)
	}

	cep := dctII(logMel, e.cfg.NCepstra)

	if e.cfg.ReplaceC0WithLogEnergy && !e.cfg.DropC0 && len(cep) > 0 {
		cep[0] = fr.LogEnergy
	}
	if e.cfg.DropC0 && len(cep) > 0 {
		cep = cep[1:]
	}
	return cep, nil
}

// dctII computes the first nOut coefficients of the DCT-II of in.
func dctII(in []float64, nOut int) []float64 {
	n := len(in)
	out := make([]float64, nOut)
	for k := 0; k < nOut; k++ {
		var sum float64
		for i, x := range in {
			sum += x * math.Cos(math.Pi/float64(n)*(float64(i)+0.5)*float64(k))
		}
		out[k] = sum
	}
	return out
}
