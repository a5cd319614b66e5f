package dataset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSeriesRejectsBadShapes(t *testing.T) {
	_, err := NewSeries(-1, 2, 2)
	require.Error(t, err)
	_, err = NewSeries(1, 0, 2)
	require.Error(t, err)
	_, err = NewSeries(1, 2, 0)
	require.Error(t, err)
}

func TestFromValuesChecksLength(t *testing.T) {
	_, err := FromValues(1, 2, 2, []float64{1, 2, 3})
	require.Error(t, err)
	s, err := FromValues(1, 2, 2, []float64{1, 2, 3, 4})
	require.NoError(t, err)
	require.Equal(t, 4.0, s.At(0, 1, 1))
}

func TestSetAtRoundTrip(t *testing.T) {
	s, err := NewSeries(2, 3, 2)
	require.NoError(t, err)
	s.Set(1, 2, 1, 7.5)
	require.Equal(t, 7.5, s.At(1, 2, 1))
	require.Equal(t, 7.5, s.Values[len(s.Values)-1])
}

func TestCloneIsIndependent(t *testing.T) {
	s, err := FromValues(1, 1, 2, []float64{1, math.NaN()})
	require.NoError(t, err)
	c := s.Clone()
	c.Set(0, 0, 0, 9)
	require.Equal(t, 1.0, s.At(0, 0, 0))
	require.Equal(t, 1, s.MissingCount())
}

func TestSampleSliceSharesBacking(t *testing.T) {
	s, err := FromValues(3, 1, 1, []float64{1, 2, 3})
	require.NoError(t, err)
	view, err := s.SampleSlice(1, 3)
	require.NoError(t, err)
	require.Equal(t, 2, view.Samples)
	view.Set(0, 0, 0, 9)
	require.Equal(t, 9.0, s.At(1, 0, 0))

	_, err = s.SampleSlice(2, 2)
	require.Error(t, err)
	_, err = s.SampleSlice(0, 4)
	require.Error(t, err)
}

func TestSplitSeriesPartitions(t *testing.T) {
	s, err := NewSeries(10, 2, 1)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		s.Set(i, 0, 0, float64(i))
	}

	train, val, err := SplitSeries(s, 0.2, 1)
	require.NoError(t, err)
	require.Equal(t, 8, train.Samples)
	require.Equal(t, 2, val.Samples)

	// every sample lands in exactly one partition
	seen := map[float64]int{}
	for i := 0; i < train.Samples; i++ {
		seen[train.At(i, 0, 0)]++
	}
	for i := 0; i < val.Samples; i++ {
		seen[val.At(i, 0, 0)]++
	}
	require.Len(t, seen, 10)
	for _, n := range seen {
		require.Equal(t, 1, n)
	}

	// deterministic for a fixed seed
	train2, val2, err := SplitSeries(s, 0.2, 1)
	require.NoError(t, err)
	require.Equal(t, train.Values, train2.Values)
	require.Equal(t, val.Values, val2.Values)
}

func TestSplitSeriesEdgeCases(t *testing.T) {
	s, err := NewSeries(4, 1, 1)
	require.NoError(t, err)

	train, val, err := SplitSeries(s, 0, 1)
	require.NoError(t, err)
	require.Nil(t, val)
	require.Equal(t, 4, train.Samples)

	_, _, err = SplitSeries(s, 0.99, 1)
	require.Error(t, err)
	_, _, err = SplitSeries(s, -0.1, 1)
	require.Error(t, err)
	_, _, err = SplitSeries(nil, 0.5, 1)
	require.Error(t, err)
}
