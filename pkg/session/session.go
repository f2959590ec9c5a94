// Package session implements one call-matching session (spec.md
// §4.10): a PCM framer, the shared analyzer pipeline, a feature
// store, the similarity blender, and the readiness controller, all
// guarded by one mutex so a session is a strict single-threaded
// critical section (spec.md §5).
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wildmatch/callecho/pkg/analyzer"
	"github.com/wildmatch/callecho/pkg/blender"
	"github.com/wildmatch/callecho/pkg/featurestore"
	"github.com/wildmatch/callecho/pkg/pcmframe"
	"github.com/wildmatch/callecho/pkg/readiness"
	"github.com/wildmatch/callecho/pkg/vad"
	"github.com/wildmatch/callecho/pkg/wire"
)

// ErrNotStarted is returned by Append/Finalize when called before
// Start (spec.md §4.10's PRECONDITION failure mode).
var ErrNotStarted = errors.New("session: append before start")

// ErrDestroyed is returned by any call on a session after Destroy.
var ErrDestroyed = errors.New("session: use after destroy")

// Status is the session's lifecycle phase (distinct from readiness,
// which tracks result quality rather than lifecycle).
type Status int

const (
	StatusCreated Status = iota
	StatusRecording
	StatusDestroyed
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusRecording:
		return "recording"
	case StatusDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Geometry is the frame geometry fixed at session creation.
type Geometry = analyzer.Geometry

// Config bundles everything needed to construct a Session.
type Config struct {
	Geometry       Geometry
	Analyzer       analyzer.Config
	Blender        blender.Config
	Readiness      readiness.Config
	BufferCapacity int // pcmframe.Config.Capacity; default is 30s at SampleRate if zero
}

// Session is one call-matching session. All exported methods acquire
// the session's own mutex; the registry only ever holds its lock long
// enough to look one up (spec.md §4.11).
type Session struct {
	id  string
	cfg Config

	mu        sync.Mutex
	status    Status
	framer    *pcmframe.Framer
	pipeline  *analyzer.Pipeline
	store     *featurestore.Store
	readyCtrl *readiness.Controller

	lastResult     wire.SimilarityResult
	lastActivity   time.Time
	framesObserved int64
}

// New creates a Session with the given master feature sequence, which
// is fixed for the session's lifetime: either a precomputed sequence
// (mode (b) provisioning) or one the caller extracted from master PCM
// (mode (a), see pkg/engine). masterFeatures may be empty; no master
// vectors can be added afterwards, and such a session's results carry
// no similarity components.
func New(cfg Config, masterFeatures [][]float64) (*Session, error) {
	capacity := cfg.BufferCapacity
	if capacity == 0 {
		capacity = cfg.Geometry.SampleRate * 30
	}

	pipeline := analyzer.New(cfg.Analyzer)
	dim := pipeline.Dimension()

	store, err := featurestore.New(dim, masterFeatures)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	framer := pcmframe.New(pcmframe.Config{
		FrameSize: cfg.Geometry.FrameSize,
		HopSize:   cfg.Geometry.HopSize,
		Capacity:  capacity,
	})

	s := &Session{
		id:           uuid.NewString(),
		cfg:          cfg,
		status:       StatusCreated,
		framer:       framer,
		pipeline:     pipeline,
		store:        store,
		readyCtrl:    readiness.New(cfg.Readiness),
		lastActivity: time.Now(),
	}
	s.lastResult = wire.SimilarityResult{
		Readiness:      wire.ReadinessNotReady,
		FramesRequired: cfg.Readiness.MinFrames,
	}
	return s, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Start transitions created → recording. Idempotent.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusDestroyed {
		return ErrDestroyed
	}
	if s.status == StatusCreated {
		s.status = StatusRecording
	}
	return nil
}

// Append runs the framer and every per-frame analyzer over newSamples,
// pushes resulting MFCC vectors into the user feature sequence, and
// returns the freshly recomputed SimilarityResult. Framing and analysis
// cost O(newFrames · FFT), but the blend (banded DTW plus the
// subsequence search) is recomputed over the whole user and master
// sequences on every call, so per-call work grows with the total user
// sequence length, not only with newFrames.
func (s *Session) Append(newSamples []float32) (wire.SimilarityResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusDestroyed {
		return wire.SimilarityResult{}, ErrDestroyed
	}
	if s.status != StatusRecording {
		return wire.SimilarityResult{}, ErrNotStarted
	}

	frames, err := s.framer.Append(newSamples)
	if err != nil {
		return wire.SimilarityResult{}, fmt.Errorf("session: %w", err)
	}

	if err := s.pushFrames(frames); err != nil {
		return wire.SimilarityResult{}, err
	}

	s.lastActivity = time.Now()
	s.recompute(s.lastActivity)
	return s.lastResult, nil
}

// pushFrames runs every frame through the pipeline and pushes the
// resulting vectors into the user feature sequence. INTERNAL
// arithmetic errors from a single frame are trapped here: the frame
// is skipped and the session continues (spec.md §7).
func (s *Session) pushFrames(frames [][]float32) error {
	for _, frame := range frames {
		result, err := s.pipeline.Process(frame)
		if err != nil {
			// Trapped INTERNAL error: skip this frame's MFCC
			// contribution, the session continues.
			continue
		}
		if result.MFCCVector == nil {
			continue // delayed due to delta lookahead
		}
		if err := s.store.Push(result.MFCCVector); err != nil {
			return fmt.Errorf("session: %w", err)
		}
		s.framesObserved++
	}
	return nil
}

// GetResult returns the last computed SimilarityResult, O(1).
func (s *Session) GetResult() (wire.SimilarityResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusDestroyed {
		return wire.SimilarityResult{}, ErrDestroyed
	}
	return s.lastResult, nil
}

// Finalize flushes any trailing partial frame and delayed delta
// frames, runs a last blend pass, and returns the final result.
func (s *Session) Finalize() (wire.SimilarityResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusDestroyed {
		return wire.SimilarityResult{}, ErrDestroyed
	}
	if s.status != StatusRecording {
		return wire.SimilarityResult{}, ErrNotStarted
	}

	if trailing := s.framer.Finalize(); trailing != nil {
		if err := s.pushFrames([][]float32{trailing}); err != nil {
			return wire.SimilarityResult{}, err
		}
	}
	if flushed := s.pipeline.Finalize(); len(flushed) > 0 {
		for _, fr := range flushed {
			if fr.MFCCVector == nil {
				continue
			}
			if err := s.store.Push(fr.MFCCVector); err != nil {
				return wire.SimilarityResult{}, fmt.Errorf("session: %w", err)
			}
			s.framesObserved++
		}
	}

	s.recompute(time.Now())
	return s.lastResult, nil
}

// Destroy releases the session's resources. Subsequent calls return
// ErrDestroyed.
func (s *Session) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusDestroyed
	s.framer = nil
	s.pipeline = nil
	s.store = nil
}

// LastActivity returns the time of the last successful Append (the
// creation time until the first one), used by the registry janitor for
// TTL eviction.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// VADSegments returns the voiced segments detected in the user
// sequence so far, used to trim leading/trailing silence in
// diagnostics.
func (s *Session) VADSegments() []vad.Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pipeline == nil {
		return nil
	}
	return s.pipeline.VADSegments()
}

// recompute re-runs the blender and readiness controller against the
// current feature store state. Caller must hold s.mu.
func (s *Session) recompute(now time.Time) {
	userLen := s.store.UserLen()
	variance := s.store.UserVariance()

	blendResult := blender.Blend(s.cfg.Blender, s.store.User(), s.store.Master(), variance)

	nowMs := now.UnixMilli()
	state := s.readyCtrl.Observe(userLen, variance, blendResult.Confidence, nowMs)
	state = s.readyCtrl.CheckStall(nowMs)

	// isReliable requires both READY (spec.md §4.9: WARMING always
	// reports isReliable = false) and the blender's own agreement
	// signal (spec.md §4.8: e.g. subsequence-only blends are never
	// reliable).
	isReliable := blendResult.IsReliable && state == readiness.Ready

	s.lastResult = wire.SimilarityResult{
		Overall: blendResult.Overall,
		Components: wire.Components{
			DTW:          blendResult.Components.DTW,
			OffsetCosine: blendResult.Components.OffsetCosine,
			MeanCosine:   blendResult.Components.MeanCosine,
			Subsequence:  blendResult.Components.Subsequence,
		},
		Confidence:     blendResult.Confidence,
		IsReliable:     isReliable,
		Readiness:      readyStateToWire(state),
		FramesObserved: userLen,
		FramesRequired: s.cfg.Readiness.ReliableFrames,
	}
}

func readyStateToWire(s readiness.State) wire.Readiness {
	switch s {
	case readiness.NotReady:
		return wire.ReadinessNotReady
	case readiness.Warming:
		return wire.ReadinessWarming
	case readiness.Ready:
		return wire.ReadinessReady
	case readiness.Stalled:
		return wire.ReadinessStalled
	default:
		return wire.ReadinessNotReady
	}
}
