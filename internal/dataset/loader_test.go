package dataset

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func countingSeries(t *testing.T, samples int) *Series {
	t.Helper()
	s, err := NewSeries(samples, 1, 1)
	require.NoError(t, err)
	for i := 0; i < samples; i++ {
		s.Set(i, 0, 0, float64(i))
	}
	return s
}

func drain(t *testing.T, l Loader) [][]float64 {
	t.Helper()
	require.NoError(t, l.Reset())
	var out [][]float64
	for {
		b, err := l.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		batch := make([]float64, b.Data.Samples)
		for i := range batch {
			batch[i] = b.Data.At(i, 0, 0)
		}
		out = append(out, batch)
	}
}

func TestSliceLoaderBatchSizes(t *testing.T) {
	l, err := NewSliceLoader(countingSeries(t, 10), 4)
	require.NoError(t, err)
	require.Equal(t, 10, l.Len())

	batches := drain(t, l)
	require.Len(t, batches, 3)
	require.Len(t, batches[0], 4)
	require.Len(t, batches[1], 4)
	require.Len(t, batches[2], 2)
	// in-order without shuffle
	require.Equal(t, []float64{0, 1, 2, 3}, batches[0])

	// a fresh pass yields the same data
	require.Equal(t, batches, drain(t, l))
}

func TestSliceLoaderShuffleIsSeeded(t *testing.T) {
	a, err := NewSliceLoader(countingSeries(t, 16), 4, WithShuffle(9))
	require.NoError(t, err)
	b, err := NewSliceLoader(countingSeries(t, 16), 4, WithShuffle(9))
	require.NoError(t, err)

	first := drain(t, a)
	require.Equal(t, first, drain(t, b))

	// consecutive passes reshuffle
	require.NotEqual(t, first, drain(t, a))
}

func TestSliceLoaderValidation(t *testing.T) {
	_, err := NewSliceLoader(nil, 4)
	require.Error(t, err)
	_, err = NewSliceLoader(countingSeries(t, 4), 0)
	require.Error(t, err)
}

func TestCollectConcatenatesOnePass(t *testing.T) {
	l, err := NewSliceLoader(countingSeries(t, 7), 3)
	require.NoError(t, err)

	s, err := Collect(l)
	require.NoError(t, err)
	require.Equal(t, 7, s.Samples)
	for i := 0; i < 7; i++ {
		require.Equal(t, float64(i), s.At(i, 0, 0))
	}
}
