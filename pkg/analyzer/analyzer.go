// Package analyzer wires the shared spectrum computation to every
// per-frame analyzer (MFCC, VAD, pitch, harmonic, cadence) behind one
// Pipeline, matching the {configure(geometry), processFrame(frame) →
// contribution, reset()} shape spec.md §9 calls for across components.
package analyzer

import (
	"fmt"

	"github.com/wildmatch/callecho/pkg/cadence"
	"github.com/wildmatch/callecho/pkg/dsptables"
	"github.com/wildmatch/callecho/pkg/harmonic"
	"github.com/wildmatch/callecho/pkg/mfcc"
	"github.com/wildmatch/callecho/pkg/pitch"
	"github.com/wildmatch/callecho/pkg/spectrum"
	"github.com/wildmatch/callecho/pkg/vad"
)

// Geometry is the frame geometry every analyzer in a Pipeline shares.
type Geometry struct {
	SampleRate int
	FrameSize  int
	HopSize    int
	FFTSize    int
	NumMels    int
	LowFreqHz  float64
	HighFreqHz float64
}

func (g Geometry) validate() error {
	if g.SampleRate <= 0 {
		return fmt.Errorf("analyzer: sampleRate must be positive, got %d", g.SampleRate)
	}
	if g.FrameSize <= 0 || g.HopSize <= 0 || g.HopSize > g.FrameSize {
		return fmt.Errorf("analyzer: invalid frameSize=%d hopSize=%d", g.FrameSize, g.HopSize)
	}
	return nil
}

// Config bundles the per-analyzer tuning knobs alongside the shared
// Geometry. MFCC carries its own richer Config (dimension / delta
// behavior); the others take their defaults when left zero-valued.
type Config struct {
	Geometry Geometry
	MFCC     mfcc.Config
	VAD      vad.Config
	Pitch    pitch.Config
	Harmonic harmonic.Config
	Cadence  cadence.Config
}

// FrameResult is everything the Pipeline produces for a single frame.
// MFCCVector is always present (the blender's primary signal);
// VAD/Pitch/Harmonic/Cadence are diagnostic and readiness inputs only
// (spec.md §4.4 — not part of the primary similarity score).
type FrameResult struct {
	MFCCVector []float64
	VAD        vad.Contribution
	Pitch      pitch.Contribution
	Harmonic   harmonic.Contribution
	Cadence    cadence.Contribution
}

// Pipeline computes one FrameResult per frame, running the shared FFT
// exactly once per frame regardless of how many analyzers consume it.
type Pipeline struct {
	cfg    Config
	tables *dsptables.Tables

	mfccExtractor *mfcc.Extractor
	mfccDeltas    *mfcc.DeltaComputer
	vadDetector   *vad.Detector
	pitchTracker  *pitch.Tracker
	harmonicAna   *harmonic.Analyzer
	cadenceAna    *cadence.Analyzer
}

// New builds a Pipeline for a fixed geometry. Panics on invalid
// geometry — geometry is fixed at session creation and validated
// there.
func New(cfg Config) *Pipeline {
	if err := cfg.Geometry.validate(); err != nil {
		panic(err)
	}
	g := cfg.Geometry
	if cfg.VAD == (vad.Config{}) {
		cfg.VAD = vad.DefaultConfig()
	}
	if cfg.Pitch == (pitch.Config{}) {
		cfg.Pitch = pitch.DefaultConfig(g.SampleRate)
	}
	if cfg.Harmonic == (harmonic.Config{}) {
		cfg.Harmonic = harmonic.DefaultConfig(g.SampleRate)
	}
	if cfg.Cadence == (cadence.Config{}) {
		cfg.Cadence = cadence.DefaultConfig(hopMs(g))
	}
	tables := dsptables.Get(dsptables.Geometry{
		SampleRate: g.SampleRate,
		FrameSize:  g.FrameSize,
		FFTSize:    g.FFTSize,
		NumMels:    g.NumMels,
		LowFreqHz:  g.LowFreqHz,
		HighFreqHz: g.HighFreqHz,
	})

	p := &Pipeline{
		cfg:          cfg,
		tables:       tables,
		mfccExtractor: mfcc.New(cfg.MFCC),
		vadDetector:  vad.New(cfg.VAD, hopMs(g)),
		pitchTracker: pitch.New(cfg.Pitch, g.FrameSize),
		harmonicAna:  harmonic.New(cfg.Harmonic, g.FFTSize),
		cadenceAna:   cadence.New(cfg.Cadence),
	}
	if cfg.MFCC.EnableDeltas {
		p.mfccDeltas = mfcc.NewDeltaComputer()
	}
	return p
}

func hopMs(g Geometry) float64 {
	return 1000 * float64(g.HopSize) / float64(g.SampleRate)
}

// Process runs every analyzer over one frame of exactly Geometry.FrameSize
// samples. When deltas are enabled, MFCCVector is nil until enough
// lookahead frames have arrived — callers should skip that frame
// rather than push a nil vector into the feature store.
func (p *Pipeline) Process(frame []float32) (FrameResult, error) {
	if len(frame) != p.cfg.Geometry.FrameSize {
		return FrameResult{}, fmt.Errorf("analyzer: frame has %d samples, want %d", len(frame), p.cfg.Geometry.FrameSize)
	}

	fr, err := spectrum.Compute(p.tables, frame)
	if err != nil {
		return FrameResult{}, err
	}

	cep, err := p.mfccExtractor.Process(fr)
	if err != nil {
		return FrameResult{}, err
	}

	var vector []float64
	if p.mfccDeltas != nil {
		if ready := p.mfccDeltas.Feed(cep); len(ready) > 0 {
			vector = ready[0]
		}
	} else {
		vector = cep
	}

	return FrameResult{
		MFCCVector: vector,
		VAD:        p.vadDetector.Process(fr),
		Pitch:      p.pitchTracker.Process(fr.Windowed),
		Harmonic:   p.harmonicAna.Process(fr),
		Cadence:    p.cadenceAna.Process(fr.Power),
	}, nil
}

// Finalize flushes any delayed delta frames, returning one FrameResult
// per flushed vector (VAD/Pitch/Harmonic/Cadence fields are zero —
// those analyzers have no equivalent flush semantics).
func (p *Pipeline) Finalize() []FrameResult {
	if p.mfccDeltas == nil {
		return nil
	}
	flushed := p.mfccDeltas.Finalize()
	out := make([]FrameResult, len(flushed))
	for i, v := range flushed {
		out[i] = FrameResult{MFCCVector: v}
	}
	return out
}

// VADSegments returns the voiced segments detected so far.
func (p *Pipeline) VADSegments() []vad.Segment { return p.vadDetector.Segments() }

// FinalizeVAD closes any in-progress voiced run and returns all
// segments.
func (p *Pipeline) FinalizeVAD() []vad.Segment { return p.vadDetector.Finalize() }

// Reset clears all per-sequence analyzer state, ready to process a
// new, unrelated sequence under the same geometry.
func (p *Pipeline) Reset() {
	p.vadDetector.Reset()
	p.pitchTracker.Reset()
	p.harmonicAna.Reset()
	p.cadenceAna.Reset()
	if p.cfg.MFCC.EnableDeltas {
		p.mfccDeltas = mfcc.NewDeltaComputer()
	}
}

// Dimension returns the MFCC vector dimension this pipeline produces.
func (p *Pipeline) Dimension() int { return p.cfg.MFCC.Dimension() }
