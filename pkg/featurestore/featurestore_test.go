package featurestore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRejectsMismatchedMasterDimension(t *testing.T) {
	_, err := New(3, [][]float64{{1, 2, 3}, {1, 2}})
	require.Error(t, err)
}

func TestNewCopiesMaster(t *testing.T) {
	master := [][]float64{{1, 2, 3}}
	s, err := New(3, master)
	require.NoError(t, err)

	master[0][0] = 999
	require.Equal(t, 1.0, s.Master()[0][0], "store's master copy must be unaffected by caller mutation")
}

func TestPushAndUserSnapshot(t *testing.T) {
	s, err := New(2, nil)
	require.NoError(t, err)

	require.NoError(t, s.Push([]float64{1, 2}))
	require.NoError(t, s.Push([]float64{3, 4}))
	require.Equal(t, 2, s.UserLen())

	snap := s.User()
	require.Equal(t, [][]float64{{1, 2}, {3, 4}}, snap)

	require.NoError(t, s.Push([]float64{5, 6}))
	require.Equal(t, 2, len(snap), "earlier snapshot must not observe later pushes")
}

func TestPushRejectsDimensionMismatch(t *testing.T) {
	s, err := New(3, nil)
	require.NoError(t, err)
	require.Error(t, s.Push([]float64{1, 2}))
}

func TestUserVarianceZeroForFewerThanTwoFrames(t *testing.T) {
	s, err := New(2, nil)
	require.NoError(t, err)
	require.Equal(t, 0.0, s.UserVariance())

	require.NoError(t, s.Push([]float64{1, 1}))
	require.Equal(t, 0.0, s.UserVariance())
}

func TestUserVariancePositiveForVaryingFrames(t *testing.T) {
	s, err := New(1, nil)
	require.NoError(t, err)
	require.NoError(t, s.Push([]float64{0}))
	require.NoError(t, s.Push([]float64{10}))
	require.Greater(t, s.UserVariance(), 0.0)
}
