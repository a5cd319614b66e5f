package imputation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"seriesfill/internal/dataset"
)

func nan() float64 { return math.NaN() }

// one sample, four steps, two features; feature 0 starts missing, feature 1
// has a mid-series gap.
func locfFixture(t *testing.T) *dataset.Series {
	t.Helper()
	s, err := dataset.FromValues(1, 4, 2, []float64{
		nan(), 1.0,
		nan(), nan(),
		3.0, 5.0,
		nan(), nan(),
	})
	require.NoError(t, err)
	return s
}

func TestLOCFCarriesForward(t *testing.T) {
	out, err := NewLOCF(FirstStepZero).Impute(locfFixture(t))
	require.NoError(t, err)

	// trailing gaps always take the last observation
	require.Equal(t, 3.0, out.At(0, 3, 0))
	require.Equal(t, 5.0, out.At(0, 3, 1))
	// feature 1's mid-series gap carries step 0 forward
	require.Equal(t, 1.0, out.At(0, 1, 1))
	require.Zero(t, out.MissingCount())
}

func TestLOCFFirstStepZero(t *testing.T) {
	out, err := NewLOCF(FirstStepZero).Impute(locfFixture(t))
	require.NoError(t, err)
	require.Equal(t, 0.0, out.At(0, 0, 0))
	require.Equal(t, 0.0, out.At(0, 1, 0))
}

func TestLOCFFirstStepBackward(t *testing.T) {
	out, err := NewLOCF(FirstStepBackward).Impute(locfFixture(t))
	require.NoError(t, err)
	// leading gap takes the first observation at step 2
	require.Equal(t, 3.0, out.At(0, 0, 0))
	require.Equal(t, 3.0, out.At(0, 1, 0))
	require.Zero(t, out.MissingCount())
}

func TestLOCFFirstStepMean(t *testing.T) {
	out, err := NewLOCF(FirstStepMean).Impute(locfFixture(t))
	require.NoError(t, err)
	// feature 0 has a single observed value, 3.0
	require.Equal(t, 3.0, out.At(0, 0, 0))
	require.Zero(t, out.MissingCount())
}

func TestLOCFFirstStepNaNLeavesLeadingGaps(t *testing.T) {
	out, err := NewLOCF(FirstStepNaN).Impute(locfFixture(t))
	require.NoError(t, err)
	require.True(t, math.IsNaN(out.At(0, 0, 0)))
	require.True(t, math.IsNaN(out.At(0, 1, 0)))
	// everything after the first observation is still filled
	require.Equal(t, 3.0, out.At(0, 3, 0))
	require.Equal(t, 2, out.MissingCount())
}

func TestLOCFFullyMissingFeature(t *testing.T) {
	s, err := dataset.FromValues(1, 2, 1, []float64{nan(), nan()})
	require.NoError(t, err)

	out, err := NewLOCF(FirstStepZero).Impute(s)
	require.NoError(t, err)
	require.Equal(t, 0.0, out.At(0, 0, 0))
	require.Equal(t, 0.0, out.At(0, 1, 0))

	out, err = NewLOCF(FirstStepNaN).Impute(s)
	require.NoError(t, err)
	require.Equal(t, 2, out.MissingCount())
}

func TestLOCFDoesNotMutateInput(t *testing.T) {
	in := locfFixture(t)
	missing := in.MissingCount()
	_, err := NewLOCF(FirstStepZero).Impute(in)
	require.NoError(t, err)
	require.Equal(t, missing, in.MissingCount())
}

func TestLOCFFitIsNoOp(t *testing.T) {
	imp := NewLOCF(FirstStepZero)
	require.NoError(t, imp.Fit(nil, nil))
}

func TestParseFirstStep(t *testing.T) {
	for in, want := range map[string]FirstStep{
		"zero": FirstStepZero, "": FirstStepZero,
		"backward": FirstStepBackward,
		"Mean":     FirstStepMean,
		"nan":      FirstStepNaN,
	} {
		got, err := ParseFirstStep(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseFirstStep("forward")
	require.Error(t, err)
}
