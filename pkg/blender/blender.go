// Package blender combines the DTW, offset-cosine, mean-cosine, and
// subsequence components into one overall similarity score with an
// aggregate confidence (spec.md §4.8).
//
// The weighted-renormalization-over-present-components shape and the
// raw-cosine reject clamp are this package's own; the component
// values it blends are produced by pkg/dtw and pkg/subsequence.
package blender

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/wildmatch/callecho/pkg/dtw"
	"github.com/wildmatch/callecho/pkg/subsequence"
)

// Weights controls the per-component blend weights. Must sum to a
// positive number; components absent from a given blend are excluded
// and the remaining weights renormalized.
type Weights struct {
	DTW          float64
	OffsetCosine float64
	MeanCosine   float64
	Subsequence  float64
}

// DefaultWeights returns spec.md §4.8's stated defaults.
func DefaultWeights() Weights {
	return Weights{DTW: 0.40, OffsetCosine: 0.25, MeanCosine: 0.15, Subsequence: 0.20}
}

// Config controls blending thresholds.
type Config struct {
	Weights Weights
	// CosineRejectThreshold: any component derived from a raw cosine
	// below this is clamped to 0.
	CosineRejectThreshold float64
	// MinFrames: components from sequences shorter than this produce
	// no value.
	MinFrames int
	DTW       dtw.Config
	Subsequence subsequence.Config
}

// DefaultConfig returns spec.md §4.8's stated defaults.
func DefaultConfig() Config {
	return Config{
		Weights:               DefaultWeights(),
		CosineRejectThreshold: 0.3,
		MinFrames:             25,
		DTW:                   dtw.DefaultConfig(),
		Subsequence:           subsequence.DefaultConfig(),
	}
}

// Components holds each similarity component, nil when absent.
type Components struct {
	DTW          *float64
	OffsetCosine *float64
	MeanCosine   *float64
	Subsequence  *float64
}

// Result is the blended outcome.
type Result struct {
	Overall      *float64
	Components   Components
	Confidence   float64
	IsReliable   bool
}

// Blend computes the similarity between user and master sequences.
func Blend(cfg Config, user, master [][]float64, userVariance float64) Result {
	if len(user) < cfg.MinFrames || len(master) < 2 {
		return Result{Components: Components{}, Confidence: 0, IsReliable: false}
	}

	var comps Components
	var present []float64
	var weights []float64
	var rawCosines []float64

	dtwRes, dtwErr := dtw.CompareWithPath(cfg.DTW, user, master)
	if dtwErr == nil {
		v := dtwRes.Similarity
		comps.DTW = &v
		present = append(present, v)
		weights = append(weights, cfg.Weights.DTW)
	}

	if dtwErr == nil && len(dtwRes.Path) > 0 {
		offCos, rawOffCos := offsetCosine(user, master, dtwRes.Path)
		if rawOffCos < cfg.CosineRejectThreshold {
			offCos = 0
		}
		comps.OffsetCosine = &offCos
		present = append(present, offCos)
		weights = append(weights, cfg.Weights.OffsetCosine)
		rawCosines = append(rawCosines, rawOffCos)
	}

	meanCos, rawMeanCos := meanCosine(user, master)
	if rawMeanCos < cfg.CosineRejectThreshold {
		meanCos = 0
	}
	comps.MeanCosine = &meanCos
	present = append(present, meanCos)
	weights = append(weights, cfg.Weights.MeanCosine)
	rawCosines = append(rawCosines, rawMeanCos)

	if subRes, ok := subsequence.Search(cfg.Subsequence, user, master); ok {
		v := subRes.Similarity
		comps.Subsequence = &v
		present = append(present, v)
		weights = append(weights, cfg.Weights.Subsequence)
	}

	if len(present) == 0 {
		return Result{Components: comps, Confidence: 0, IsReliable: false}
	}

	weightSum := floats.Sum(weights)
	var overall float64
	if weightSum > 0 {
		for i, v := range present {
			overall += v * weights[i] / weightSum
		}
	} else {
		overall = stat.Mean(present, nil)
	}
	overallPtr := &overall

	onlySubsequence := comps.Subsequence != nil && comps.DTW == nil && comps.OffsetCosine == nil && comps.MeanCosine == nil
	confidence := computeConfidence(len(user), userVariance, len(present), rawCosines)
	isReliable := !onlySubsequence && confidence >= 0

	return Result{Overall: overallPtr, Components: comps, Confidence: confidence, IsReliable: isReliable}
}

// offsetCosine computes cosine similarity between user and master
// after subtracting each sequence's mean vector, averaged frame-wise
// along the DTW alignment path.
func offsetCosine(user, master [][]float64, path []dtw.Pair) (value, rawCosine float64) {
	uMean := meanVector(user)
	mMean := meanVector(master)

	var sum float64
	for _, p := range path {
		u := subtract(user[p.User], uMean)
		m := subtract(master[p.Master], mMean)
		sum += cosine(u, m)
	}
	raw := sum / float64(len(path))
	return clamp01(raw), raw
}

// meanCosine computes cosine similarity between the two sequences'
// mean MFCC vectors.
func meanCosine(user, master [][]float64) (value, rawCosine float64) {
	u := meanVector(user)
	m := meanVector(master)
	raw := cosine(u, m)
	return clamp01(raw), raw
}

func meanVector(seq [][]float64) []float64 {
	if len(seq) == 0 {
		return nil
	}
	dim := len(seq[0])
	mean := make([]float64, dim)
	for _, v := range seq {
		for d := 0; d < dim; d++ {
			mean[d] += v[d]
		}
	}
	n := float64(len(seq))
	for d := range mean {
		mean[d] /= n
	}
	return mean
}

func subtract(v, mean []float64) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		out[i] = v[i] - mean[i]
	}
	return out
}

func cosine(x, y []float64) float64 {
	dot := floats.Dot(x, y)
	nx := floats.Norm(x, 2)
	ny := floats.Norm(y, 2)
	if nx < 1e-12 || ny < 1e-12 {
		return 0
	}
	return dot / (nx * ny)
}

// computeConfidence is a monotonically non-decreasing function of
// frame count, sequence variance, present-component count, and
// inter-component agreement (spec.md §4.8).
//
// varianceTerm gates the whole score rather than just contributing a
// share of it: a near-silent user sequence carries no discriminative
// content, and no amount of frame count, component count, or
// component agreement should be able to push confidence up on its
// own in that case (spec.md §8 scenario S5 — 3s of zero samples must
// score confidence < 0.2 regardless of how "present" the clamped
// components look).
func computeConfidence(frameCount int, variance float64, presentCount int, rawCosines []float64) float64 {
	frameTerm := clamp01(float64(frameCount) / 150.0)
	varianceTerm := clamp01(variance / 0.5)
	countTerm := clamp01(float64(presentCount) / 4.0)

	agreementTerm := 1.0
	if len(rawCosines) >= 2 {
		_, spread := stat.MeanStdDev(rawCosines, nil)
		agreementTerm = clamp01(1 - spread)
	}

	shape := 0.45*frameTerm + 0.3*countTerm + 0.25*agreementTerm
	return clamp01(varianceTerm * shape)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
