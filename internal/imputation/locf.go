package imputation

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"seriesfill/internal/dataset"
)

// FirstStep selects how LOCF fills entries that precede the first observation
// of a feature.
type FirstStep int

const (
	// FirstStepZero fills leading gaps with zero.
	FirstStepZero FirstStep = iota
	// FirstStepBackward fills leading gaps with the next observation.
	FirstStepBackward
	// FirstStepMean fills leading gaps with the sample's observed feature mean.
	FirstStepMean
	// FirstStepNaN leaves leading gaps missing.
	FirstStepNaN
)

// ParseFirstStep maps a config string to a FirstStep strategy.
func ParseFirstStep(s string) (FirstStep, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "zero":
		return FirstStepZero, nil
	case "backward":
		return FirstStepBackward, nil
	case "mean":
		return FirstStepMean, nil
	case "nan":
		return FirstStepNaN, nil
	default:
		return FirstStepZero, fmt.Errorf("imputation: unknown first-step strategy %q", s)
	}
}

// LOCF imputes by carrying the last observation forward along the time axis,
// independently per sample and feature. It needs no training.
type LOCF struct {
	firstStep FirstStep
}

// NewLOCF constructs a LOCF imputer with the given first-step strategy.
func NewLOCF(firstStep FirstStep) *LOCF {
	return &LOCF{firstStep: firstStep}
}

// Fit is a no-op; LOCF has nothing to learn.
func (l *LOCF) Fit(train, val *dataset.Series) error { return nil }

// Impute fills missing entries by forward fill, then resolves leading gaps
// per the configured strategy. With FirstStepNaN, features that start missing
// keep their NaNs.
func (l *LOCF) Impute(x *dataset.Series) (*dataset.Series, error) {
	if x == nil {
		return nil, errors.New("imputation: nil series")
	}
	out := x.Clone()
	for i := 0; i < out.Samples; i++ {
		for f := 0; f < out.Features; f++ {
			l.fillFeature(out, i, f)
		}
	}
	return out, nil
}

func (l *LOCF) fillFeature(s *dataset.Series, sample, feature int) {
	last := math.NaN()
	firstObserved := -1
	var sum float64
	var n int
	for t := 0; t < s.Steps; t++ {
		v := s.At(sample, t, feature)
		if !math.IsNaN(v) {
			if firstObserved == -1 {
				firstObserved = t
			}
			last = v
			sum += v
			n++
			continue
		}
		if !math.IsNaN(last) {
			s.Set(sample, t, feature, last)
		}
	}
	if firstObserved <= 0 && n > 0 {
		return // no leading gap
	}

	var fill float64
	switch {
	case l.firstStep == FirstStepNaN:
		return
	case l.firstStep == FirstStepBackward && firstObserved > 0:
		fill = s.At(sample, firstObserved, feature)
	case l.firstStep == FirstStepMean && n > 0:
		fill = sum / float64(n)
	default:
		fill = 0 // zero strategy, or nothing observed at all
	}
	end := firstObserved
	if end < 0 {
		end = s.Steps
	}
	for t := 0; t < end; t++ {
		s.Set(sample, t, feature, fill)
	}
}
