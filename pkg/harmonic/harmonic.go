// Package harmonic extracts coarse spectral-shape descriptors — a
// harmonic-to-noise ratio from peak picking, spectral centroid, and
// spectral rolloff — from the shared per-frame power spectrum.
//
// Grounded on the peak-picking and frame-analysis shapes of
// rayboyd-audio-engine's FFTProcessor and linuxmatters-jivefire's
// FrameAnalysis, adapted to operate on spectrum.Frame instead of
// owning their own FFT call.
package harmonic

import (
	"math"

	"github.com/wildmatch/callecho/pkg/spectrum"
)

// Config controls rolloff and peak-picking thresholds.
type Config struct {
	SampleRate    int
	RolloffEnergy float64 // fraction of total spectral energy the rolloff bin must reach, default 0.85
	MinPeakRatio  float64 // a bin must exceed this fraction of the spectrum max to be a candidate harmonic peak
}

// DefaultConfig returns typical descriptor thresholds.
func DefaultConfig(sampleRate int) Config {
	return Config{SampleRate: sampleRate, RolloffEnergy: 0.85, MinPeakRatio: 0.1}
}

// Contribution is the per-frame harmonic/spectral-shape estimate.
type Contribution struct {
	HarmonicToNoiseDb float64
	CentroidHz        float64
	RolloffHz         float64
}

// Analyzer computes harmonic descriptors. It carries no cross-frame
// state.
type Analyzer struct {
	cfg      Config
	fftSize  int
}

// New creates an Analyzer for the given FFT size.
func New(cfg Config, fftSize int) *Analyzer {
	return &Analyzer{cfg: cfg, fftSize: fftSize}
}

// Process computes descriptors from the frame's shared power
// spectrum.
func (a *Analyzer) Process(fr *spectrum.Frame) Contribution {
	power := fr.Power
	n := len(power)
	if n == 0 {
		return Contribution{}
	}

	var total, weighted float64
	maxPower := 0.0
	for k, p := range power {
		hz := binToHz(k, a.fftSize, a.cfg.SampleRate)
		total += p
		weighted += p * hz
		if p > maxPower {
			maxPower = p
		}
	}

	centroid := 0.0
	if total > 0 {
		centroid = weighted / total
	}

	rolloff := 0.0
	if total > 0 {
		threshold := total * a.cfg.RolloffEnergy
		var cum float64
		for k, p := range power {
			cum += p
			if cum >= threshold {
				rolloff = binToHz(k, a.fftSize, a.cfg.SampleRate)
				break
			}
		}
	}

	// Harmonic-to-noise: sum energy at local peaks above MinPeakRatio
	// of the max bin versus the remainder, expressed in dB.
	var peakEnergy, noiseEnergy float64
	peakThreshold := maxPower * a.cfg.MinPeakRatio
	for k, p := range power {
		if isLocalPeak(power, k) && p >= peakThreshold {
			peakEnergy += p
		} else {
			noiseEnergy += p
		}
	}
	hnr := 0.0
	if noiseEnergy > 1e-12 {
		hnr = 10 * math.Log10((peakEnergy+1e-12)/noiseEnergy)
	}

	return Contribution{HarmonicToNoiseDb: hnr, CentroidHz: centroid, RolloffHz: rolloff}
}

// Reset exists to satisfy the shared analyzer shape; Analyzer carries
// no cross-frame state.
func (a *Analyzer) Reset() {}

func isLocalPeak(power []float64, k int) bool {
	if k > 0 && power[k] <= power[k-1] {
		return false
	}
	if k < len(power)-1 && power[k] <= power[k+1] {
		return false
	}
	return true
}

func binToHz(k, fftSize, sampleRate int) float64 {
	return float64(k) * float64(sampleRate) / float64(fftSize)
}
