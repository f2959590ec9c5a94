// Package cadence estimates tempo (BPM) from an onset-strength
// envelope built up frame by frame: half-wave-rectified spectral flux
// feeds a growing envelope, and a windowed autocorrelation over the
// envelope surfaces a BPM once a peak clears a prominence threshold.
//
// Adapted from the RMS-energy/flux/autocorrelation pipeline of
// jota2rz-vdj-video-sync's bpm.detectBPM, restructured to run
// incrementally over frames already produced by the shared spectrum
// pipeline instead of windowing a whole PCM buffer up front.
package cadence

import "math"

// Config controls the onset envelope window and BPM search range.
type Config struct {
	// HopMs is the per-frame hop in milliseconds, used to convert
	// lags (in frames) to BPM.
	HopMs float64
	// MinBPM, MaxBPM bound the candidate tempo search.
	MinBPM, MaxBPM float64
	// EnvelopeFrames is how many recent onset-strength samples feed
	// the autocorrelation (a sliding analysis window).
	EnvelopeFrames int
	// ProminenceRatio is how far the best autocorrelation lag must
	// exceed the mean correlation across all candidate lags to be
	// accepted, rather than reported as "no clear tempo".
	ProminenceRatio float64
}

// DefaultConfig returns typical music/speech-cadence tempo bounds.
func DefaultConfig(hopMs float64) Config {
	return Config{HopMs: hopMs, MinBPM: 60, MaxBPM: 200, EnvelopeFrames: 256, ProminenceRatio: 1.5}
}

// Contribution is the per-frame cadence estimate. BPM is zero and
// Confident is false until enough envelope history has accumulated.
type Contribution struct {
	OnsetStrength float64
	BPM           float64
	Confident     bool
}

// Analyzer accumulates an onset-strength envelope and periodically
// estimates tempo from it.
type Analyzer struct {
	cfg Config

	prevEnergy float64
	hasPrev    bool
	envelope   []float64 // ring buffer of the last EnvelopeFrames onset strengths
}

// New creates an Analyzer.
func New(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Process computes the onset strength for one frame's power spectrum
// (half-wave-rectified change in total spectral energy) and, once
// enough envelope history exists, a tempo estimate.
func (a *Analyzer) Process(power []float64) Contribution {
	var energy float64
	for _, p := range power {
		energy += p
	}
	energy = math.Sqrt(energy)

	var onset float64
	if a.hasPrev {
		diff := energy - a.prevEnergy
		if diff > 0 {
			onset = diff
		}
	}
	a.prevEnergy = energy
	a.hasPrev = true

	a.envelope = append(a.envelope, onset)
	if len(a.envelope) > a.cfg.EnvelopeFrames {
		a.envelope = a.envelope[len(a.envelope)-a.cfg.EnvelopeFrames:]
	}

	bpm, confident := a.estimateBPM()
	return Contribution{OnsetStrength: onset, BPM: bpm, Confident: confident}
}

func (a *Analyzer) estimateBPM() (float64, bool) {
	n := len(a.envelope)
	if n < a.cfg.EnvelopeFrames/2 {
		return 0, false
	}

	wps := 1000.0 / a.cfg.HopMs
	minLag := int(wps * 60.0 / a.cfg.MaxBPM)
	maxLag := int(wps * 60.0 / a.cfg.MinBPM)
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= n/2 {
		maxLag = n/2 - 1
	}
	if minLag >= maxLag {
		return 0, false
	}

	bestLag := minLag
	bestCorr := -1.0
	var corrSum float64
	count := 0
	for lag := minLag; lag <= maxLag; lag++ {
		var corr float64
		for i := 0; i+lag < n; i++ {
			corr += a.envelope[i] * a.envelope[i+lag]
		}
		corrSum += corr
		count++
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}
	if count == 0 || bestLag == 0 {
		return 0, false
	}

	meanCorr := corrSum / float64(count)
	if meanCorr <= 0 || bestCorr < meanCorr*a.cfg.ProminenceRatio {
		return 0, false
	}

	bpm := 60.0 * wps / float64(bestLag)
	return bpm, true
}

// Reset clears envelope history, ready for a new sequence.
func (a *Analyzer) Reset() {
	a.hasPrev = false
	a.prevEnergy = 0
	a.envelope = nil
}
