// Package engine is the public façade over session creation,
// streaming, and teardown (spec.md §6's Session API), translating
// internal package errors into the six error kinds of spec.md §7.
//
// Grounded on the constructor and accessor shape of
// haivivi-giztoy's pkg/cortex.Cortex (functional-option New, owned
// sub-resource with a Close/teardown method).
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wildmatch/callecho/pkg/analyzer"
	"github.com/wildmatch/callecho/pkg/blender"
	"github.com/wildmatch/callecho/pkg/dtw"
	"github.com/wildmatch/callecho/pkg/mfcc"
	"github.com/wildmatch/callecho/pkg/pcmframe"
	"github.com/wildmatch/callecho/pkg/readiness"
	"github.com/wildmatch/callecho/pkg/registry"
	"github.com/wildmatch/callecho/pkg/session"
	"github.com/wildmatch/callecho/pkg/subsequence"
	"github.com/wildmatch/callecho/pkg/vad"
	"github.com/wildmatch/callecho/pkg/wire"
)

// Error kinds from spec.md §7. The core never panics across this
// boundary; every failure is one of these, wrapped with context.
var (
	ErrBadConfig    = errors.New("engine: bad config")
	ErrNotFound     = errors.New("engine: not found")
	ErrPrecondition = errors.New("engine: precondition failed")
	ErrCapacity     = errors.New("engine: capacity")
	ErrBackpressure = errors.New("engine: backpressure")
	ErrInternal     = errors.New("engine: internal")
)

// Config is the process-wide, session-creation-recognized
// configuration surface (spec.md §6).
type Config struct {
	SampleRate   int
	FrameSize    int
	HopSize      int
	FFTSize      int
	NumMels      int
	NCepstra     int
	EnableDeltas bool

	VADEnergyDb   float64
	VADHangoverMs float64

	DTWBandRatio          float64
	SubsequenceGamma      float64
	CoverageUpliftMax     float64
	CosineRejectThreshold float64

	KMinFrames      int
	KReliableFrames int
	KStallTimeoutMs int64

	MaxSessions       int
	SessionTTLSeconds int
}

// Defaults returns spec.md §3/§6's stated configuration defaults.
func Defaults() Config {
	return Config{
		SampleRate:   44100,
		FrameSize:    1024,
		HopSize:      256,
		FFTSize:      1024,
		NumMels:      26,
		NCepstra:     13,
		EnableDeltas: false,

		VADEnergyDb:   6.0,
		VADHangoverMs: 60.0,

		DTWBandRatio:          0.1,
		SubsequenceGamma:      0.75,
		CoverageUpliftMax:     1.15,
		CosineRejectThreshold: 0.3,

		KMinFrames:      25,
		KReliableFrames: 75,
		KStallTimeoutMs: 1500,

		MaxSessions:       512,
		SessionTTLSeconds: 300,
	}
}

func (c Config) validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sampleRate must be positive, got %d", ErrBadConfig, c.SampleRate)
	}
	if c.FrameSize <= 0 || c.HopSize <= 0 || c.HopSize > c.FrameSize {
		return fmt.Errorf("%w: invalid frameSize=%d hopSize=%d", ErrBadConfig, c.FrameSize, c.HopSize)
	}
	if c.FFTSize < c.FrameSize || c.FFTSize&(c.FFTSize-1) != 0 {
		return fmt.Errorf("%w: fftSize must be a power of two >= frameSize, got %d", ErrBadConfig, c.FFTSize)
	}
	return nil
}

// Engine owns the session registry and the configuration every new
// session is built from.
type Engine struct {
	cfg Config
	log *slog.Logger
	reg *registry.Registry
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithLogger overrides the default slog.Logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// New creates an Engine. Returns ErrBadConfig if cfg is invalid.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	e := &Engine{cfg: cfg, log: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	e.reg = registry.New(registry.Config{
		MaxSessions:     cfg.MaxSessions,
		SessionTTL:      secondsToDuration(cfg.SessionTTLSeconds),
		JanitorInterval: secondsToDuration(10),
	}, e.log)
	return e, nil
}

// Close stops the engine's background janitor. Sessions are not
// individually destroyed; callers should Destroy what they own first.
func (e *Engine) Close() { e.reg.Close() }

// Create builds a new session from bundle and registers it. On
// success the session is in the "created" state (spec.md §4.10) and
// must be Started before Append.
func (e *Engine) Create(bundle wire.MasterBundle, sampleRate int) (*session.Session, error) {
	if sampleRate != 0 && sampleRate != e.cfg.SampleRate {
		return nil, fmt.Errorf("%w: session sampleRate %d does not match engine sampleRate %d", ErrBadConfig, sampleRate, e.cfg.SampleRate)
	}

	geom := analyzer.Geometry{
		SampleRate: e.cfg.SampleRate,
		FrameSize:  e.cfg.FrameSize,
		HopSize:    e.cfg.HopSize,
		FFTSize:    e.cfg.FFTSize,
		NumMels:    e.cfg.NumMels,
	}
	geom.HighFreqHz = float64(e.cfg.SampleRate) / 2

	masterFeatures, err := e.resolveMasterFeatures(bundle, geom)
	if err != nil {
		return nil, err
	}

	sessCfg := e.sessionConfig(geom)
	s, err := session.New(sessCfg, masterFeatures)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadConfig, err)
	}

	if err := e.reg.Add(s); err != nil {
		if errors.Is(err, registry.ErrCapacity) {
			return nil, fmt.Errorf("%w", ErrCapacity)
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return s, nil
}

// resolveMasterFeatures implements the two MasterBundle provisioning
// modes from spec.md §6: mode (a) raw PCM extracted now, mode (b) a
// precomputed feature sequence that must match the session geometry.
func (e *Engine) resolveMasterFeatures(bundle wire.MasterBundle, geom analyzer.Geometry) ([][]float64, error) {
	if len(bundle.Features) > 0 {
		if bundle.Geometry.SampleRate != geom.SampleRate ||
			bundle.Geometry.FrameSize != geom.FrameSize ||
			bundle.Geometry.HopSize != geom.HopSize ||
			bundle.Geometry.FFTSize != geom.FFTSize ||
			bundle.Geometry.NumMels != geom.NumMels {
			return nil, fmt.Errorf("%w: master bundle geometry does not match session geometry", ErrBadConfig)
		}
		return bundle.Features, nil
	}

	if len(bundle.PCM) == 0 {
		return nil, nil
	}

	pipeline := analyzer.New(e.analyzerConfig(geom))
	framer := pcmframe.New(pcmframe.Config{
		FrameSize: geom.FrameSize,
		HopSize:   geom.HopSize,
		Capacity:  len(bundle.PCM) + geom.FrameSize,
	})

	frames, err := framer.Append(bundle.PCM)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadConfig, err)
	}
	if trailing := framer.Finalize(); trailing != nil {
		frames = append(frames, trailing)
	}

	var features [][]float64
	for _, frame := range frames {
		result, err := pipeline.Process(frame)
		if err != nil {
			continue
		}
		if result.MFCCVector != nil {
			features = append(features, result.MFCCVector)
		}
	}
	features = append(features, extractVectors(pipeline.Finalize())...)
	return features, nil
}

func extractVectors(results []analyzer.FrameResult) [][]float64 {
	out := make([][]float64, 0, len(results))
	for _, r := range results {
		if r.MFCCVector != nil {
			out = append(out, r.MFCCVector)
		}
	}
	return out
}

func (e *Engine) analyzerConfig(geom analyzer.Geometry) analyzer.Config {
	mfccCfg := mfcc.DefaultConfig(geom.SampleRate)
	mfccCfg.FrameSize = geom.FrameSize
	mfccCfg.HopSize = geom.HopSize
	mfccCfg.FFTSize = geom.FFTSize
	mfccCfg.NumMels = geom.NumMels
	mfccCfg.NCepstra = e.cfg.NCepstra
	mfccCfg.HighFreqHz = geom.HighFreqHz
	mfccCfg.EnableDeltas = e.cfg.EnableDeltas

	vadCfg := vad.DefaultConfig()
	vadCfg.EnergyFloorDb = e.cfg.VADEnergyDb
	vadCfg.HangoverMs = e.cfg.VADHangoverMs

	return analyzer.Config{
		Geometry: geom,
		MFCC:     mfccCfg,
		VAD:      vadCfg,
	}
}

func (e *Engine) blenderConfig() blender.Config {
	cfg := blender.DefaultConfig()
	cfg.CosineRejectThreshold = e.cfg.CosineRejectThreshold
	cfg.DTW.BandRatio = e.cfg.DTWBandRatio
	cfg.DTW.Metric = dtw.EuclideanZScore
	cfg.Subsequence.Gamma = e.cfg.SubsequenceGamma
	cfg.Subsequence.CoverageUpliftMax = e.cfg.CoverageUpliftMax
	cfg.Subsequence.DTW = subsequence.Config_DTW{BandRatio: e.cfg.DTWBandRatio, Metric: dtw.EuclideanZScore}
	return cfg
}

func (e *Engine) sessionConfig(geom analyzer.Geometry) session.Config {
	return session.Config{
		Geometry: geom,
		Analyzer: e.analyzerConfig(geom),
		Blender:  e.blenderConfig(),
		Readiness: readiness.Config{
			MinFrames:          e.cfg.KMinFrames,
			ReliableFrames:     e.cfg.KReliableFrames,
			ReadyConfidence:    0.6,
			SilenceVarianceMin: 1e-6,
			StallTimeoutMs:     e.cfg.KStallTimeoutMs,
		},
	}
}

// Start transitions a session created → recording.
func (e *Engine) Start(sessionID string) error {
	s, err := e.lookup(sessionID)
	if err != nil {
		return err
	}
	return s.Start()
}

// Append streams PCM samples into a session and returns the freshly
// computed result.
func (e *Engine) Append(sessionID string, samples []float32) (wire.SimilarityResult, error) {
	s, err := e.lookup(sessionID)
	if err != nil {
		return wire.SimilarityResult{}, err
	}
	result, err := s.Append(samples)
	if err != nil {
		return wire.SimilarityResult{}, translateSessionErr(err)
	}
	return result, nil
}

// Get returns the latest snapshot for a session.
func (e *Engine) Get(sessionID string) (wire.SimilarityResult, error) {
	s, err := e.lookup(sessionID)
	if err != nil {
		return wire.SimilarityResult{}, err
	}
	result, err := s.GetResult()
	if err != nil {
		return wire.SimilarityResult{}, translateSessionErr(err)
	}
	return result, nil
}

// Finalize flushes trailing data and returns the final result.
func (e *Engine) Finalize(sessionID string) (wire.SimilarityResult, error) {
	s, err := e.lookup(sessionID)
	if err != nil {
		return wire.SimilarityResult{}, err
	}
	result, err := s.Finalize()
	if err != nil {
		return wire.SimilarityResult{}, translateSessionErr(err)
	}
	return result, nil
}

// Destroy releases a session's resources.
func (e *Engine) Destroy(sessionID string) error {
	if err := e.reg.Destroy(sessionID); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
		}
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return nil
}

func (e *Engine) lookup(sessionID string) (*session.Session, error) {
	s, err := e.reg.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return s, nil
}

func translateSessionErr(err error) error {
	switch {
	case errors.Is(err, session.ErrNotStarted):
		return fmt.Errorf("%w: %v", ErrPrecondition, err)
	case errors.Is(err, session.ErrDestroyed):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, pcmframe.ErrBufferOverflow):
		return fmt.Errorf("%w: %v", ErrBackpressure, err)
	default:
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
}

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
