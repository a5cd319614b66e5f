package metrics

import (
	"errors"
	"math"

	"seriesfill/internal/dataset"
)

// ErrShapeMismatch is returned when metric inputs disagree on dimensions.
var ErrShapeMismatch = errors.New("metrics: series shapes differ")

// MaskedMAE returns the mean absolute error between imputed and truth over
// the entries where mask is nonzero. Typically the mask indicates entries
// that were artificially held out.
func MaskedMAE(imputed, truth, mask *dataset.Series) (float64, error) {
	return masked(imputed, truth, mask, math.Abs)
}

// MaskedMSE returns the mean squared error over masked entries.
func MaskedMSE(imputed, truth, mask *dataset.Series) (float64, error) {
	return masked(imputed, truth, mask, func(d float64) float64 { return d * d })
}

func masked(imputed, truth, mask *dataset.Series, penalty func(float64) float64) (float64, error) {
	if imputed == nil || !imputed.SameShape(truth) || !imputed.SameShape(mask) {
		return 0, ErrShapeMismatch
	}
	var sum float64
	var n float64
	for i, m := range mask.Values {
		if m == 0 || math.IsNaN(m) {
			continue
		}
		sum += penalty(imputed.Values[i]-truth.Values[i]) * m
		n += m
	}
	if n == 0 {
		return 0, nil
	}
	return sum / n, nil
}
