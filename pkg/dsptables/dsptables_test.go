package dsptables

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testGeometry() Geometry {
	return Geometry{SampleRate: 16000, FrameSize: 400, FFTSize: 512, NumMels: 26, LowFreqHz: 0, HighFreqHz: 8000}
}

func TestGetCachesByGeometry(t *testing.T) {
	Reset()
	g := testGeometry()

	t1 := Get(g)
	t2 := Get(g)
	require.Same(t, t1, t2, "identical geometry must share one Tables instance")

	other := g
	other.NumMels = 40
	t3 := Get(other)
	require.NotSame(t, t1, t3)
}

func TestTablesShape(t *testing.T) {
	Reset()
	g := testGeometry()
	tbl := Get(g)

	require.Len(t, tbl.Window, g.FrameSize)
	require.Len(t, tbl.MelBank, g.NumMels)
	for _, row := range tbl.MelBank {
		require.Len(t, row, g.FFTSize/2+1)
	}
	require.NotNil(t, tbl.FFT())
}

func TestMelFilterBankWeightsNonNegative(t *testing.T) {
	Reset()
	tbl := Get(testGeometry())
	for _, row := range tbl.MelBank {
		var sum float64
		for _, w := range row {
			require.GreaterOrEqual(t, w, 0.0)
			sum += w
		}
		require.Greater(t, sum, 0.0, "every mel filter should have nonzero support in band")
	}
}
