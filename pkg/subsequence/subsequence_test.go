package subsequence

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func ramp(n int, offset float64) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = []float64{float64(i) + offset}
	}
	return out
}

func TestSearchFindsEmbeddedMatch(t *testing.T) {
	master := ramp(20, 0)
	// user is silence, then the master sequence, then more silence.
	user := append(append(ramp(10, -1000), master...), ramp(10, 1000)...)

	cfg := DefaultConfig()
	res, ok := Search(cfg, user, master)
	require.True(t, ok)
	require.InDelta(t, 10, res.Start, 2)
	require.Greater(t, res.Similarity, 0.5)
}

func TestSearchTooShortSequenceFails(t *testing.T) {
	_, ok := Search(DefaultConfig(), ramp(1, 0), ramp(10, 0))
	require.False(t, ok)

	_, ok = Search(DefaultConfig(), ramp(10, 0), ramp(1, 0))
	require.False(t, ok)
}

func TestSearchIdenticalSequenceIsNearPerfect(t *testing.T) {
	master := ramp(16, 0)
	res, ok := Search(DefaultConfig(), master, master)
	require.True(t, ok)
	require.InDelta(t, 1, res.Similarity, 0.05)
	require.Equal(t, 0, res.Start)
}

func TestCandidateLengthsRespectsBounds(t *testing.T) {
	cfg := DefaultConfig()
	lengths := candidateLengths(cfg, 100, 200)
	require.NotEmpty(t, lengths)
	for _, l := range lengths {
		require.GreaterOrEqual(t, l, int(cfg.LengthRatioMin*100))
		require.LessOrEqual(t, l, int(cfg.LengthRatioMax*100))
		require.LessOrEqual(t, l, 200)
	}
}

func TestCandidateLengthsClampedByUserLength(t *testing.T) {
	cfg := DefaultConfig()
	// userLen (50) is well under LengthRatioMin·n (0.7·100 = 70): the
	// user recording only covers a fraction of the master. Candidate
	// lengths must clamp down to what's actually available rather
	// than bailing out to no candidates at all (spec.md §8 S3).
	lengths := candidateLengths(cfg, 100, 50)
	require.NotEmpty(t, lengths)
	for _, l := range lengths {
		require.LessOrEqual(t, l, 50)
		require.GreaterOrEqual(t, l, 2)
	}
}
