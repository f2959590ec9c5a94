package analyzer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func testConfig(enableDeltas bool) Config {
	geom := Geometry{SampleRate: 16000, FrameSize: 400, HopSize: 160, FFTSize: 512, NumMels: 26, HighFreqHz: 8000}
	cfg := Config{Geometry: geom}
	cfg.MFCC.SampleRate = geom.SampleRate
	cfg.MFCC.FrameSize = geom.FrameSize
	cfg.MFCC.HopSize = geom.HopSize
	cfg.MFCC.FFTSize = geom.FFTSize
	cfg.MFCC.NumMels = geom.NumMels
	cfg.MFCC.NCepstra = 13
	cfg.MFCC.HighFreqHz = geom.HighFreqHz
	cfg.MFCC.EnableDeltas = enableDeltas
	return cfg
}

func sineFrame(freqHz float64, sampleRate, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(math.Sin(2 * math.Pi * freqHz * float64(i) / float64(sampleRate)))
	}
	return out
}

func TestPipelineProcessReturnsVectorWithoutDeltas(t *testing.T) {
	p := New(testConfig(false))
	frame := sineFrame(440, 16000, 400)

	res, err := p.Process(frame)
	require.NoError(t, err)
	require.Len(t, res.MFCCVector, 13)
}

func TestPipelineProcessDelaysVectorWithDeltas(t *testing.T) {
	p := New(testConfig(true))
	frame := sineFrame(440, 16000, 400)

	var firstVector []float64
	for i := 0; i < 5; i++ {
		res, err := p.Process(frame)
		require.NoError(t, err)
		if res.MFCCVector != nil {
			firstVector = res.MFCCVector
			break
		}
	}
	require.NotNil(t, firstVector)
	require.Len(t, firstVector, 39) // 13 raw + 13 delta + 13 delta-delta
}

func TestPipelineRejectsWrongFrameSize(t *testing.T) {
	p := New(testConfig(false))
	_, err := p.Process(make([]float32, 10))
	require.Error(t, err)
}

func TestPipelineFinalizeFlushesDeltaTail(t *testing.T) {
	p := New(testConfig(true))
	frame := sineFrame(440, 16000, 400)
	for i := 0; i < 3; i++ {
		_, err := p.Process(frame)
		require.NoError(t, err)
	}
	flushed := p.Finalize()
	require.NotEmpty(t, flushed)
	for _, fr := range flushed {
		require.Len(t, fr.MFCCVector, 39)
	}
}

func TestPipelineDimension(t *testing.T) {
	p := New(testConfig(false))
	require.Equal(t, 13, p.Dimension())
}

func TestPipelineVADSegmentsAccumulate(t *testing.T) {
	p := New(testConfig(false))
	frame := sineFrame(440, 16000, 400)
	for i := 0; i < 10; i++ {
		_, err := p.Process(frame)
		require.NoError(t, err)
	}
	segs := p.FinalizeVAD()
	require.NotNil(t, segs)
}
