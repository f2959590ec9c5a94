// Package vad classifies frames as voiced or unvoiced from the power
// spectrum the MFCC pipeline already computed, and groups adjacent
// voiced frames into hysteresis-stabilized segments.
//
// There is no pack library specializing in energy/flatness VAD
// thresholding over an already-computed spectrum, so this package is
// plain math.Log/math.Exp arithmetic (spec.md §4.3); the segment
// grouping below borrows the circular-buffer bookkeeping shape of
// haivivi-giztoy's pkg/voiceprint.Detector.
package vad

import (
	"math"

	"github.com/wildmatch/callecho/pkg/spectrum"
)

// Config controls VAD thresholding. Mirrors spec.md §4.3 and §6's
// vadEnergyDb / vadHangoverMs configuration knobs.
type Config struct {
	// EnergyFloorDb is how many dB a frame's energy must exceed the
	// running noise floor to be considered a candidate voiced frame.
	EnergyFloorDb float64
	// FlatnessMax is the maximum spectral flatness (0..1, 1 = pure
	// noise) a frame may have and still be considered voiced.
	FlatnessMax float64
	// HangoverMs is the minimum contiguous voiced duration required
	// before a run of voiced frames is reported as a segment.
	HangoverMs float64
	// NoiseAdaptRate is the exponential-smoothing rate (0,1] at which
	// the running noise floor tracks unvoiced-frame energy.
	NoiseAdaptRate float64
}

// DefaultConfig returns spec.md §4.3's stated defaults.
func DefaultConfig() Config {
	return Config{
		EnergyFloorDb:  6.0,
		FlatnessMax:    0.65,
		HangoverMs:     60.0,
		NoiseAdaptRate: 0.05,
	}
}

// Segment describes one contiguous run of voiced frames, expressed as
// a half-open frame index range [Start, End).
type Segment struct {
	Start, End int
}

// Detector tracks a running noise floor and groups voiced frames into
// hysteresis-stabilized segments as frames arrive.
type Detector struct {
	cfg Config

	hopMs          float64
	noiseFloorDb   float64
	noiseInit      bool
	frameIdx       int
	runStart       int
	inRun          bool
	candidateVoice []bool // never populated; run state lives in inRun/runStart
	segments       []Segment
}

// New creates a Detector. hopMs is the frame hop in milliseconds, used
// to convert HangoverMs into a frame count.
func New(cfg Config, hopMs float64) *Detector {
	return &Detector{cfg: cfg, hopMs: hopMs}
}

// Contribution is what the VAD analyzer contributes per processed
// frame: its own voiced/unvoiced verdict and the running noise floor
// at the time of the decision.
type Contribution struct {
	Voiced       bool
	EnergyDb     float64
	NoiseFloorDb float64
	Flatness     float64
}

// Process classifies one frame from its shared spectrum and updates
// internal segment bookkeeping. Call Reset between unrelated sessions;
// geometry (bin count) may change only via Reset.
func (d *Detector) Process(fr *spectrum.Frame) Contribution {
	energyDb := powerToDb(sumEnergy(fr.Power))
	flatness := spectralFlatness(fr.Power)

	if !d.noiseInit {
		d.noiseFloorDb = energyDb
		d.noiseInit = true
	}

	voiced := energyDb-d.noiseFloorDb >= d.cfg.EnergyFloorDb && flatness <= d.cfg.FlatnessMax

	if !voiced {
		d.noiseFloorDb += d.cfg.NoiseAdaptRate * (energyDb - d.noiseFloorDb)
	}

	d.advanceRun(voiced)
	d.frameIdx++

	return Contribution{Voiced: voiced, EnergyDb: energyDb, NoiseFloorDb: d.noiseFloorDb, Flatness: flatness}
}

// advanceRun applies the minimum-duration hysteresis: a run of voiced
// frames only becomes a reported Segment once it is long enough, and
// is closed out (appended to Segments) the frame after it ends.
func (d *Detector) advanceRun(voiced bool) {
	minFrames := int(math.Ceil(d.cfg.HangoverMs / d.hopMs))
	if minFrames < 1 {
		minFrames = 1
	}

	switch {
	case voiced && !d.inRun:
		d.inRun = true
		d.runStart = d.frameIdx
	case !voiced && d.inRun:
		d.inRun = false
		if d.frameIdx-d.runStart >= minFrames {
			d.segments = append(d.segments, Segment{Start: d.runStart, End: d.frameIdx})
		}
	}
}

// Segments returns the voiced segments closed out so far. A run still
// in progress is not included until Finalize is called.
func (d *Detector) Segments() []Segment {
	out := make([]Segment, len(d.segments))
	copy(out, d.segments)
	return out
}

// Finalize closes any in-progress voiced run against the current
// frame count and returns the complete segment list.
func (d *Detector) Finalize() []Segment {
	if d.inRun {
		minFrames := int(math.Ceil(d.cfg.HangoverMs / d.hopMs))
		if minFrames < 1 {
			minFrames = 1
		}
		if d.frameIdx-d.runStart >= minFrames {
			d.segments = append(d.segments, Segment{Start: d.runStart, End: d.frameIdx})
		}
		d.inRun = false
	}
	return d.Segments()
}

// Reset clears all state, ready for a new sequence.
func (d *Detector) Reset() {
	d.noiseInit = false
	d.frameIdx = 0
	d.runStart = 0
	d.inRun = false
	d.segments = nil
}

func sumEnergy(power []float64) float64 {
	var sum float64
	for _, p := range power {
		sum += p
	}
	return sum
}

const dbFloor = 1e-10

func powerToDb(p float64) float64 {
	if p < dbFloor {
		p = dbFloor
	}
	return 10 * math.Log10(p)
}

// spectralFlatness is the ratio of the geometric mean to the
// arithmetic mean of the power spectrum: near 1 for noise-like
// spectra, near 0 for tonal ones.
func spectralFlatness(power []float64) float64 {
	if len(power) == 0 {
		return 1
	}
	var logSum, sum float64
	n := 0
	for _, p := range power {
		if p < dbFloor {
			p = dbFloor
		}
		logSum += math.Log(p)
		sum += p
		n++
	}
	if n == 0 || sum == 0 {
		return 1
	}
	geoMean := math.Exp(logSum / float64(n))
	arithMean := sum / float64(n)
	return geoMean / arithMean
}
