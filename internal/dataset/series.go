package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// Series holds time-series data shaped samples x steps x features in a flat
// row-major backing slice. Missing entries are NaN.
type Series struct {
	Samples  int
	Steps    int
	Features int
	Values   []float64
}

// NewSeries allocates a zero-filled series with the given shape.
func NewSeries(samples, steps, features int) (*Series, error) {
	if samples < 0 || steps <= 0 || features <= 0 {
		return nil, fmt.Errorf("dataset: invalid shape %dx%dx%d", samples, steps, features)
	}
	return &Series{
		Samples:  samples,
		Steps:    steps,
		Features: features,
		Values:   make([]float64, samples*steps*features),
	}, nil
}

// FromValues wraps an existing flat slice as a series.
func FromValues(samples, steps, features int, values []float64) (*Series, error) {
	s, err := NewSeries(samples, steps, features)
	if err != nil {
		return nil, err
	}
	if len(values) != samples*steps*features {
		return nil, fmt.Errorf("dataset: got %d values, shape needs %d", len(values), samples*steps*features)
	}
	s.Values = values
	return s, nil
}

func (s *Series) idx(sample, step, feature int) int {
	return (sample*s.Steps+step)*s.Features + feature
}

// At returns the value at (sample, step, feature).
func (s *Series) At(sample, step, feature int) float64 {
	return s.Values[s.idx(sample, step, feature)]
}

// Set writes the value at (sample, step, feature).
func (s *Series) Set(sample, step, feature int, v float64) {
	s.Values[s.idx(sample, step, feature)] = v
}

// Clone returns a deep copy.
func (s *Series) Clone() *Series {
	values := make([]float64, len(s.Values))
	copy(values, s.Values)
	return &Series{Samples: s.Samples, Steps: s.Steps, Features: s.Features, Values: values}
}

// SameShape reports whether o has identical dimensions.
func (s *Series) SameShape(o *Series) bool {
	return o != nil && s.Samples == o.Samples && s.Steps == o.Steps && s.Features == o.Features
}

// MissingCount returns the number of NaN entries.
func (s *Series) MissingCount() int {
	n := 0
	for _, v := range s.Values {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}

// SampleSlice returns a view over samples [start, end). The backing slice is
// shared with the parent.
func (s *Series) SampleSlice(start, end int) (*Series, error) {
	if start < 0 || end > s.Samples || start >= end {
		return nil, fmt.Errorf("dataset: sample range [%d,%d) out of [0,%d)", start, end, s.Samples)
	}
	stride := s.Steps * s.Features
	return &Series{
		Samples:  end - start,
		Steps:    s.Steps,
		Features: s.Features,
		Values:   s.Values[start*stride : end*stride],
	}, nil
}

// CopySampleInto copies sample src of s into sample dst of out. Shapes must
// agree on steps and features.
func (s *Series) CopySampleInto(src int, out *Series, dst int) {
	stride := s.Steps * s.Features
	copy(out.Values[dst*stride:(dst+1)*stride], s.Values[src*stride:(src+1)*stride])
}

// SplitSeries shuffles samples with the given seed and splits off valFrac of
// them into a validation series. valFrac of zero yields a nil validation set.
func SplitSeries(s *Series, valFrac float64, seed int64) (*Series, *Series, error) {
	if s == nil {
		return nil, nil, errors.New("dataset: nil series")
	}
	if valFrac < 0 || valFrac >= 1 {
		return nil, nil, fmt.Errorf("dataset: validation fraction %v out of [0,1)", valFrac)
	}
	if valFrac == 0 {
		return s.Clone(), nil, nil
	}
	nVal := int(math.Round(float64(s.Samples) * valFrac))
	if nVal == 0 || nVal >= s.Samples {
		return nil, nil, fmt.Errorf("dataset: split %v leaves no usable partition for %d samples", valFrac, s.Samples)
	}
	order := rand.New(rand.NewSource(seed)).Perm(s.Samples)

	train, err := NewSeries(s.Samples-nVal, s.Steps, s.Features)
	if err != nil {
		return nil, nil, err
	}
	val, err := NewSeries(nVal, s.Steps, s.Features)
	if err != nil {
		return nil, nil, err
	}
	for i, src := range order {
		if i < nVal {
			s.CopySampleInto(src, val, i)
		} else {
			s.CopySampleInto(src, train, i-nVal)
		}
	}
	return train, val, nil
}
