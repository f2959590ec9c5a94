package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wildmatch/callecho/pkg/wire"
)

func smallConfig() Config {
	cfg := Defaults()
	cfg.SampleRate = 16000
	cfg.FrameSize = 400
	cfg.HopSize = 160
	cfg.FFTSize = 512
	cfg.KMinFrames = 3
	cfg.KReliableFrames = 6
	cfg.MaxSessions = 2
	cfg.SessionTTLSeconds = 60
	return cfg
}

func sine(freqHz float64, sampleRate, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(math.Sin(2 * math.Pi * freqHz * float64(i) / float64(sampleRate)))
	}
	return out
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := Defaults()
	cfg.SampleRate = 0
	_, err := New(cfg)
	require.ErrorIs(t, err, ErrBadConfig)
}

func TestCreateWithPCMBundleExtractsMasterFeatures(t *testing.T) {
	e, err := New(smallConfig())
	require.NoError(t, err)
	defer e.Close()

	pcm := sine(220, 16000, 8000)
	bundle := wire.MasterBundle{PCM: pcm}

	s, err := e.Create(bundle, 16000)
	require.NoError(t, err)
	require.NoError(t, e.Start(s.ID()))

	res, err := e.Append(s.ID(), sine(220, 16000, 8000))
	require.NoError(t, err)
	require.Greater(t, res.FramesObserved, 0)
}

func TestCreateWithFeatureBundleValidatesGeometry(t *testing.T) {
	e, err := New(smallConfig())
	require.NoError(t, err)
	defer e.Close()

	bundle := wire.MasterBundle{
		Geometry: wire.FrameGeometry{SampleRate: 8000, FrameSize: 400, HopSize: 160, FFTSize: 512, NumMels: 26},
		Features: [][]float64{{1, 2, 3}},
	}

	_, err = e.Create(bundle, 16000)
	require.ErrorIs(t, err, ErrBadConfig)
}

func TestCreateWithMatchingFeatureBundleSucceeds(t *testing.T) {
	e, err := New(smallConfig())
	require.NoError(t, err)
	defer e.Close()

	master := make([][]float64, 10)
	for i := range master {
		master[i] = make([]float64, 13)
		master[i][0] = float64(i)
	}
	bundle := wire.MasterBundle{
		Geometry: wire.FrameGeometry{SampleRate: 16000, FrameSize: 400, HopSize: 160, FFTSize: 512, NumMels: 26},
		Features: master,
	}

	s, err := e.Create(bundle, 16000)
	require.NoError(t, err)
	require.NotEmpty(t, s.ID())
}

func TestCreateRejectsSampleRateMismatch(t *testing.T) {
	e, err := New(smallConfig())
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Create(wire.MasterBundle{}, 44100)
	require.ErrorIs(t, err, ErrBadConfig)
}

func TestAppendBeforeStartReturnsPrecondition(t *testing.T) {
	e, err := New(smallConfig())
	require.NoError(t, err)
	defer e.Close()

	s, err := e.Create(wire.MasterBundle{}, 0)
	require.NoError(t, err)

	_, err = e.Append(s.ID(), sine(220, 16000, 800))
	require.ErrorIs(t, err, ErrPrecondition)
}

func TestLookupUnknownSessionReturnsNotFound(t *testing.T) {
	e, err := New(smallConfig())
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Get("does-not-exist")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDestroyThenLookupReturnsNotFound(t *testing.T) {
	e, err := New(smallConfig())
	require.NoError(t, err)
	defer e.Close()

	s, err := e.Create(wire.MasterBundle{}, 0)
	require.NoError(t, err)
	require.NoError(t, e.Destroy(s.ID()))

	_, err = e.Get(s.ID())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateRejectsOverCapacity(t *testing.T) {
	e, err := New(smallConfig())
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Create(wire.MasterBundle{}, 0)
	require.NoError(t, err)
	_, err = e.Create(wire.MasterBundle{}, 0)
	require.NoError(t, err)

	_, err = e.Create(wire.MasterBundle{}, 0)
	require.ErrorIs(t, err, ErrCapacity)
}

func TestFinalizeAfterDestroyReturnsNotFoundViaLookup(t *testing.T) {
	e, err := New(smallConfig())
	require.NoError(t, err)
	defer e.Close()

	s, err := e.Create(wire.MasterBundle{}, 0)
	require.NoError(t, err)
	require.NoError(t, e.Destroy(s.ID()))

	_, err = e.Finalize(s.ID())
	require.ErrorIs(t, err, ErrNotFound)
}
