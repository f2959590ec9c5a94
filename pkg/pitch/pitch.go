// Package pitch estimates the fundamental frequency of a frame by
// normalized time-domain autocorrelation over a configurable Hz
// range, picking the strongest lag. The lag-range-search shape
// mirrors CWBudde's algo-piano pitch detector; unlike that detector's
// whole-signal FFT-based autocorrelation, this runs directly in the
// time domain per frame, since the narrow per-frame lag range makes
// the O(lags·n) cost the same either way without needing an
// FFT plan sized to avoid circular-wrap contamination (see
// DESIGN.md).
package pitch

import "math"

// Config bounds the autocorrelation search and voicing decision.
type Config struct {
	SampleRate     int
	MinHz, MaxHz   float64
	VoicedConfMin  float64 // minimum normalized autocorrelation peak to call a frame voiced
}

// DefaultConfig returns a typical human-voice search range.
func DefaultConfig(sampleRate int) Config {
	return Config{SampleRate: sampleRate, MinHz: 70, MaxHz: 400, VoicedConfMin: 0.35}
}

// Contribution is the per-frame pitch estimate.
type Contribution struct {
	F0Hz       float64
	Confidence float64
	Voiced     bool
}

// Tracker estimates pitch frame by frame. It is stateless across
// frames (spec.md §4.4 doesn't ask for inter-frame smoothing), so
// Reset is a no-op kept only to satisfy the shared analyzer shape.
type Tracker struct {
	cfg     Config
	minLag  int
	maxLag  int
}

// New creates a Tracker for windowed, zero-padded time-domain frames
// of the given length (the frame's true sample count before padding,
// so lag search stays within the part of the buffer that carries
// signal).
func New(cfg Config, frameSize int) *Tracker {
	maxLag := frameSize - 1
	minLag := int(float64(cfg.SampleRate) / cfg.MaxHz)
	lagForMin := int(float64(cfg.SampleRate) / cfg.MinHz)
	if lagForMin < maxLag {
		maxLag = lagForMin
	}
	if minLag < 1 {
		minLag = 1
	}
	return &Tracker{cfg: cfg, minLag: minLag, maxLag: maxLag}
}

// Process finds the autocorrelation-peak lag over [minLag, maxLag] in
// the frame's windowed time-domain samples and converts it to Hz.
func (t *Tracker) Process(windowed []float64) Contribution {
	if t.maxLag <= t.minLag || len(windowed) <= t.maxLag {
		return Contribution{}
	}

	var energy float64
	for _, s := range windowed {
		energy += s * s
	}
	if energy < 1e-12 {
		return Contribution{}
	}

	bestLag := -1
	var bestCorr float64
	for lag := t.minLag; lag <= t.maxLag; lag++ {
		var corr float64
		for i := 0; i+lag < len(windowed); i++ {
			corr += windowed[i] * windowed[i+lag]
		}
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}
	if bestLag <= 0 {
		return Contribution{}
	}

	confidence := bestCorr / energy
	voiced := confidence >= t.cfg.VoicedConfMin
	f0 := float64(t.cfg.SampleRate) / float64(bestLag)

	return Contribution{F0Hz: f0, Confidence: math.Min(confidence, 1), Voiced: voiced}
}

// Reset exists to satisfy the shared analyzer shape; Tracker carries
// no cross-frame state.
func (t *Tracker) Reset() {}
