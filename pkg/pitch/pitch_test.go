package pitch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func sine(freqHz float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freqHz * float64(i) / float64(sampleRate))
	}
	return out
}

func TestProcessFindsFundamental(t *testing.T) {
	sampleRate := 16000
	tr := New(DefaultConfig(sampleRate), 800)

	frame := sine(150, sampleRate, 800)
	c := tr.Process(frame)

	require.True(t, c.Voiced)
	require.InDelta(t, 150, c.F0Hz, 10)
}

func TestProcessSilenceIsUnvoiced(t *testing.T) {
	sampleRate := 16000
	tr := New(DefaultConfig(sampleRate), 800)
	c := tr.Process(make([]float64, 800))
	require.False(t, c.Voiced)
	require.Equal(t, 0.0, c.F0Hz)
}

func TestProcessShortFrameReturnsZeroValue(t *testing.T) {
	tr := New(DefaultConfig(16000), 8)
	c := tr.Process(make([]float64, 4))
	require.Equal(t, Contribution{}, c)
}
