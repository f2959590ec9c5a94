package blender

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sequence(n, dim int, seedBase float64) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		v := make([]float64, dim)
		for d := range v {
			v[d] = seedBase + float64(i) + float64(d)*0.1
		}
		out[i] = v
	}
	return out
}

func TestBlendBelowMinFramesIsEmpty(t *testing.T) {
	cfg := DefaultConfig()
	res := Blend(cfg, sequence(5, 4, 0), sequence(30, 4, 0), 0.1)
	require.Nil(t, res.Overall)
	require.False(t, res.IsReliable)
	require.Equal(t, 0.0, res.Confidence)
}

func TestBlendIdenticalSequencesHighOverall(t *testing.T) {
	cfg := DefaultConfig()
	master := sequence(40, 6, 0)
	res := Blend(cfg, master, master, 0.3)

	require.NotNil(t, res.Overall)
	require.Greater(t, *res.Overall, 0.9)
	require.NotNil(t, res.Components.DTW)
	require.NotNil(t, res.Components.MeanCosine)
}

func TestBlendRejectsLowCosineComponents(t *testing.T) {
	cfg := DefaultConfig()
	// user has the opposite sign pattern from master, so raw cosine is
	// strongly negative/low and should be clamped to zero.
	master := sequence(40, 4, 10)
	user := make([][]float64, len(master))
	for i, v := range master {
		neg := make([]float64, len(v))
		for d := range v {
			neg[d] = -v[d]
		}
		user[i] = neg
	}

	res := Blend(cfg, user, master, 0.3)
	require.NotNil(t, res.Components.MeanCosine)
	require.Equal(t, 0.0, *res.Components.MeanCosine)
}

func TestComputeConfidenceNearZeroVarianceIsLow(t *testing.T) {
	// Mirrors spec.md §8 S5: even with a large frame count, every
	// component "present", and clamped components in perfect
	// agreement, near-zero variance (silence) must keep confidence
	// well under 0.2.
	c := computeConfidence(300, 1e-8, 4, []float64{0, 0})
	require.Less(t, c, 0.2)
}

func TestBlendSilentUserIsLowConfidence(t *testing.T) {
	cfg := DefaultConfig()
	master := sequence(60, 6, 5)
	silentUser := sequence(60, 6, 0) // constant frames (zero inter-frame variance)
	for i := range silentUser {
		for d := range silentUser[i] {
			silentUser[i][d] = 0
		}
	}

	res := Blend(cfg, silentUser, master, 0)
	require.Less(t, res.Confidence, 0.2)
}

func TestComputeConfidenceMonotonicInFrameCount(t *testing.T) {
	low := computeConfidence(10, 0.3, 4, []float64{0.9, 0.9})
	high := computeConfidence(200, 0.3, 4, []float64{0.9, 0.9})
	require.Greater(t, high, low)
}

func TestComputeConfidenceRewardsAgreement(t *testing.T) {
	agree := computeConfidence(100, 0.3, 4, []float64{0.9, 0.9, 0.9})
	disagree := computeConfidence(100, 0.3, 4, []float64{0.9, -0.9, 0.1})
	require.Greater(t, agree, disagree)
}

func TestMeanCosineParallelVectorsIsOne(t *testing.T) {
	a := [][]float64{{1, 2, 3}, {1, 2, 3}}
	b := [][]float64{{2, 4, 6}, {2, 4, 6}}
	v, raw := meanCosine(a, b)
	require.InDelta(t, 1, v, 1e-9)
	require.InDelta(t, 1, raw, 1e-9)
}
