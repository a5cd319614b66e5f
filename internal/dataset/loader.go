package dataset

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
)

// Batch is one unit of training data: a contiguous run of samples. The
// training loop treats it as opaque and hands it to the model's batch adapter.
type Batch struct {
	Data *Series
}

// Loader produces a finite sequence of batches per pass. Reset begins a fresh
// pass over the same underlying data; Next returns io.EOF when the pass is
// exhausted.
type Loader interface {
	Reset() error
	Next() (Batch, error)
	Len() int
}

// SliceLoader batches an in-memory series.
type SliceLoader struct {
	series    *Series
	batchSize int
	shuffle   bool
	seed      int64
	epoch     int64
	order     []int
	cursor    int
}

// SliceOption configures a SliceLoader.
type SliceOption func(*SliceLoader)

// WithShuffle enables a deterministic per-epoch sample shuffle.
func WithShuffle(seed int64) SliceOption {
	return func(l *SliceLoader) {
		l.shuffle = true
		l.seed = seed
	}
}

// NewSliceLoader wraps a series in a restartable batch loader.
func NewSliceLoader(s *Series, batchSize int, opts ...SliceOption) (*SliceLoader, error) {
	if s == nil {
		return nil, errors.New("dataset: nil series")
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("dataset: batch size must be > 0 (got %d)", batchSize)
	}
	l := &SliceLoader{series: s, batchSize: batchSize}
	for _, o := range opts {
		o(l)
	}
	l.order = make([]int, s.Samples)
	for i := range l.order {
		l.order[i] = i
	}
	return l, nil
}

// Reset starts a new pass, reshuffling if configured.
func (l *SliceLoader) Reset() error {
	l.cursor = 0
	if l.shuffle {
		rng := rand.New(rand.NewSource(l.seed + l.epoch))
		rng.Shuffle(len(l.order), func(i, j int) { l.order[i], l.order[j] = l.order[j], l.order[i] })
		l.epoch++
	}
	return nil
}

// Next returns the next batch in the current pass, or io.EOF.
func (l *SliceLoader) Next() (Batch, error) {
	if l.cursor >= l.series.Samples {
		return Batch{}, io.EOF
	}
	end := l.cursor + l.batchSize
	if end > l.series.Samples {
		end = l.series.Samples
	}
	out, err := NewSeries(end-l.cursor, l.series.Steps, l.series.Features)
	if err != nil {
		return Batch{}, err
	}
	for i, src := range l.order[l.cursor:end] {
		l.series.CopySampleInto(src, out, i)
	}
	l.cursor = end
	return Batch{Data: out}, nil
}

// Len returns the number of samples per pass.
func (l *SliceLoader) Len() int { return l.series.Samples }

// Collect materializes one full pass of l into a single in-memory series.
func Collect(l Loader) (*Series, error) {
	if err := l.Reset(); err != nil {
		return nil, err
	}
	var batches []*Series
	total := 0
	for {
		b, err := l.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if b.Data == nil || b.Data.Samples == 0 {
			continue
		}
		batches = append(batches, b.Data)
		total += b.Data.Samples
	}
	if total == 0 {
		return nil, errors.New("dataset: loader produced no samples")
	}
	out, err := NewSeries(total, batches[0].Steps, batches[0].Features)
	if err != nil {
		return nil, err
	}
	at := 0
	for _, b := range batches {
		for i := 0; i < b.Samples; i++ {
			b.CopySampleInto(i, out, at)
			at++
		}
	}
	return out, nil
}
