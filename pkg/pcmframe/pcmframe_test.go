package pcmframe

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func sequence(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i)
	}
	return out
}

func TestFramerBasicFraming(t *testing.T) {
	f := New(Config{FrameSize: 4, HopSize: 2, Capacity: 64})
	frames, err := f.Append(sequence(10))
	require.NoError(t, err)

	// samples 0..9, frameSize 4, hop 2: starts at 0,2,4,6 -> 4 frames, 2 pending (8,9)
	require.Len(t, frames, 4)
	require.Equal(t, []float32{0, 1, 2, 3}, frames[0])
	require.Equal(t, []float32{2, 3, 4, 5}, frames[1])
	require.Equal(t, []float32{4, 5, 6, 7}, frames[2])
	require.Equal(t, []float32{6, 7, 8, 9}, frames[3])
	require.Equal(t, 2, f.Pending())
}

func TestFramerChunkInvariance(t *testing.T) {
	full := sequence(37)

	whole := New(Config{FrameSize: 8, HopSize: 3, Capacity: 128})
	framesWhole, err := whole.Append(full)
	require.NoError(t, err)
	if trailing := whole.Finalize(); trailing != nil {
		framesWhole = append(framesWhole, trailing)
	}

	chunked := New(Config{FrameSize: 8, HopSize: 3, Capacity: 128})
	var framesChunked [][]float32
	for _, size := range []int{1, 5, 2, 11, 3, 15} {
		if size > len(full) {
			size = len(full)
		}
		chunk := full[:size]
		full = full[size:]
		got, err := chunked.Append(chunk)
		require.NoError(t, err)
		framesChunked = append(framesChunked, got...)
	}
	got, err := chunked.Append(full)
	require.NoError(t, err)
	framesChunked = append(framesChunked, got...)
	if trailing := chunked.Finalize(); trailing != nil {
		framesChunked = append(framesChunked, trailing)
	}

	require.Equal(t, framesWhole, framesChunked)
}

func TestFramerOverflow(t *testing.T) {
	f := New(Config{FrameSize: 4, HopSize: 4, Capacity: 8})
	_, err := f.Append(sequence(9))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrBufferOverflow))
}

func TestFramerFinalizeZeroPads(t *testing.T) {
	f := New(Config{FrameSize: 6, HopSize: 6, Capacity: 64})
	_, err := f.Append(sequence(4))
	require.NoError(t, err)

	trailing := f.Finalize()
	require.Equal(t, []float32{0, 1, 2, 3, 0, 0}, trailing)
	require.Equal(t, 0, f.Pending())
	require.Nil(t, f.Finalize())
}

func TestFramerInvalidConfigPanics(t *testing.T) {
	require.Panics(t, func() {
		New(Config{FrameSize: 4, HopSize: 5, Capacity: 64})
	})
}
