package engine

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wildmatch/callecho/pkg/wire"
)

// chirp generates a linear frequency sweep, giving each frame
// distinct spectral content (unlike a pure tone, whose MFCC sequence
// is nearly constant and would otherwise look like near-silence to
// the variance-gated confidence computation).
func chirp(freqStart, freqEnd float64, sampleRate, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		t := float64(i) / float64(sampleRate)
		freq := freqStart + (freqEnd-freqStart)*float64(i)/float64(n)
		out[i] = float32(math.Sin(2 * math.Pi * freq * t))
	}
	return out
}

// TestScenarioS1SelfSimilarity covers spec.md §8 S1, scaled from 3s to
// 1s for test speed. DTW's minimum cost and both cosine measures'
// maximum are achieved exactly by two identical sequences aligned on
// the diagonal, and subsequence search always tries the full-length
// window, so every component is pinned at (within floating error of)
// 1 regardless of the specific signal content.
func TestScenarioS1SelfSimilarity(t *testing.T) {
	e, err := New(smallConfig())
	require.NoError(t, err)
	defer e.Close()

	pcm := chirp(300, 1200, 16000, 16000)
	s, err := e.Create(wire.MasterBundle{PCM: pcm}, 16000)
	require.NoError(t, err)
	require.NoError(t, e.Start(s.ID()))

	const chunks = 10
	chunkLen := len(pcm) / chunks
	for i := 0; i < chunks; i++ {
		start := i * chunkLen
		end := start + chunkLen
		if i == chunks-1 {
			end = len(pcm)
		}
		_, err := e.Append(s.ID(), pcm[start:end])
		require.NoError(t, err)
	}

	res, err := e.Finalize(s.ID())
	require.NoError(t, err)

	require.NotNil(t, res.Components.DTW)
	require.NotNil(t, res.Components.OffsetCosine)
	require.NotNil(t, res.Components.MeanCosine)
	require.NotNil(t, res.Components.Subsequence)
	require.InDelta(t, 1.0, *res.Components.DTW, 1e-4)
	require.InDelta(t, 1.0, *res.Components.MeanCosine, 1e-4)
	require.InDelta(t, 1.0, *res.Components.OffsetCosine, 1e-4)
	require.InDelta(t, 1.0, *res.Components.Subsequence, 1e-4)
	require.NotNil(t, res.Overall)
	require.InDelta(t, 1.0, *res.Overall, 1e-4)
}

// TestScenarioS2CrossTypeLowerSimilarityThanSelf covers spec.md §8 S2.
// Self-similarity's overall is mathematically pinned near 1 (see S1
// above), so any measurably different call must score below it.
func TestScenarioS2CrossTypeLowerSimilarityThanSelf(t *testing.T) {
	e, err := New(smallConfig())
	require.NoError(t, err)
	defer e.Close()

	master := chirp(300, 1200, 16000, 16000)
	user := chirp(3000, 6000, 16000, 16000) // a different "call": a non-overlapping band

	s, err := e.Create(wire.MasterBundle{PCM: master}, 16000)
	require.NoError(t, err)
	require.NoError(t, e.Start(s.ID()))
	_, err = e.Append(s.ID(), user)
	require.NoError(t, err)

	res, err := e.Finalize(s.ID())
	require.NoError(t, err)

	require.NotNil(t, res.Overall)
	require.Less(t, *res.Overall, 0.999)
}

// TestScenarioS3PartialCoverageSubsequencePresent covers spec.md §8
// S3's core regression: a user recording covering only the central
// portion of a longer master must report a present subsequence
// component instead of absent, now that candidateLengths clamps down
// to what's available instead of bailing to no candidates.
func TestScenarioS3PartialCoverageSubsequencePresent(t *testing.T) {
	e, err := New(smallConfig())
	require.NoError(t, err)
	defer e.Close()

	master := chirp(300, 1200, 16000, 40000) // 2.5s master
	central := master[16000:32000]           // the central 1s

	s, err := e.Create(wire.MasterBundle{PCM: master}, 16000)
	require.NoError(t, err)
	require.NoError(t, e.Start(s.ID()))
	_, err = e.Append(s.ID(), central)
	require.NoError(t, err)

	res, err := e.Finalize(s.ID())
	require.NoError(t, err)
	require.NotNil(t, res.Components.Subsequence)
}

// TestScenarioS4ChunkInvarianceProducesIdenticalResult covers spec.md
// §8 S4: pkg/pcmframe carries framing state purely in its own buffer,
// never re-derived from chunk boundaries, so the final result must be
// identical regardless of how the same PCM is chunked.
func TestScenarioS4ChunkInvarianceProducesIdenticalResult(t *testing.T) {
	pcm := chirp(300, 1200, 16000, 80000)

	run := func(chunkSize int) wire.SimilarityResult {
		e, err := New(smallConfig())
		require.NoError(t, err)
		defer e.Close()

		s, err := e.Create(wire.MasterBundle{PCM: pcm}, 16000)
		require.NoError(t, err)
		require.NoError(t, e.Start(s.ID()))

		for start := 0; start < len(pcm); start += chunkSize {
			end := start + chunkSize
			if end > len(pcm) {
				end = len(pcm)
			}
			_, err := e.Append(s.ID(), pcm[start:end])
			require.NoError(t, err)
		}

		res, err := e.Finalize(s.ID())
		require.NoError(t, err)
		return res
	}

	small := run(4096)
	large := run(32768)

	require.Equal(t, small.Overall, large.Overall)
	require.Equal(t, small.Components, large.Components)
	require.Equal(t, small.FramesObserved, large.FramesObserved)
	require.InDelta(t, small.Confidence, large.Confidence, 1e-9)
}

// TestScenarioS5SilenceStaysUnready covers spec.md §8 S5: 3s of zero
// samples must never reach "ready" and must report low confidence.
// readiness.Controller treats variance below SilenceVarianceMin as no
// signal and withholds progression entirely (spec.md §4.9), and
// computeConfidence's variance gate (see pkg/blender) collapses
// confidence toward zero independent of frame count or component
// agreement.
func TestScenarioS5SilenceStaysUnready(t *testing.T) {
	e, err := New(smallConfig())
	require.NoError(t, err)
	defer e.Close()

	master := chirp(300, 1200, 16000, 16000)
	s, err := e.Create(wire.MasterBundle{PCM: master}, 16000)
	require.NoError(t, err)
	require.NoError(t, e.Start(s.ID()))

	silence := make([]float32, 48000) // 3s of zero samples
	res, err := e.Append(s.ID(), silence)
	require.NoError(t, err)
	require.NotEqual(t, wire.ReadinessReady, res.Readiness)
	require.Less(t, res.Confidence, 0.2)

	res, err = e.Finalize(s.ID())
	require.NoError(t, err)
	require.NotEqual(t, wire.ReadinessReady, res.Readiness)
	require.Less(t, res.Confidence, 0.2)
}

// TestScenarioS6ConcurrentSessionsMatchSequentialBaseline covers
// spec.md §8 S6: each session owns its own mutex (spec.md §4.11) and
// touches no other session's state, so running many concurrently must
// reproduce exactly what each would produce run alone.
func TestScenarioS6ConcurrentSessionsMatchSequentialBaseline(t *testing.T) {
	cfg := smallConfig()
	cfg.MaxSessions = 20

	const n = 16
	masters := make([][]float32, n)
	users := make([][]float32, n)
	for i := 0; i < n; i++ {
		base := 200 + float64(i)*80
		masters[i] = chirp(base, base+400, 16000, 8000)
		users[i] = chirp(base, base+400, 16000, 8000)
	}

	runOne := func(e *Engine, master, user []float32) wire.SimilarityResult {
		s, err := e.Create(wire.MasterBundle{PCM: master}, 16000)
		require.NoError(t, err)
		require.NoError(t, e.Start(s.ID()))
		_, err = e.Append(s.ID(), user)
		require.NoError(t, err)
		res, err := e.Finalize(s.ID())
		require.NoError(t, err)
		return res
	}

	baseline := make([]wire.SimilarityResult, n)
	for i := 0; i < n; i++ {
		e, err := New(cfg)
		require.NoError(t, err)
		baseline[i] = runOne(e, masters[i], users[i])
		e.Close()
	}

	e, err := New(cfg)
	require.NoError(t, err)
	defer e.Close()

	concurrent := make([]wire.SimilarityResult, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			concurrent[i] = runOne(e, masters[i], users[i])
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.Equal(t, baseline[i].Overall, concurrent[i].Overall, "session %d", i)
		require.Equal(t, baseline[i].Components, concurrent[i].Components, "session %d", i)
	}
}
