package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"seriesfill/internal/dataset"
)

// LinearNet reconstructs each time step from its observed features through a
// single linear map: xhat = W*x + b, with missing inputs zero-filled. The loss
// is mean squared error over observed entries only, so the model never trains
// against values it cannot see.
type LinearNet struct {
	features int
	training bool

	w             *mat.Dense
	gw            *mat.Dense
	wData, gwData []float64
	bData, gbData []float64
}

// NewLinearNet builds a network for windows with the given feature width,
// using seeded small random weights.
func NewLinearNet(features int, seed int64) (*LinearNet, error) {
	if features <= 0 {
		return nil, fmt.Errorf("model: features must be > 0 (got %d)", features)
	}
	rng := rand.New(rand.NewSource(seed))
	wData := make([]float64, features*features)
	for i := range wData {
		wData[i] = (rng.Float64()*2 - 1) * 0.01
	}
	gwData := make([]float64, features*features)
	n := &LinearNet{
		features: features,
		training: true,
		w:        mat.NewDense(features, features, wData),
		gw:       mat.NewDense(features, features, gwData),
		wData:    wData,
		gwData:   gwData,
		bData:    make([]float64, features),
		gbData:   make([]float64, features),
	}
	return n, nil
}

// SetTrainMode enables gradient tracking.
func (l *LinearNet) SetTrainMode() { l.training = true }

// SetEvalMode disables gradient tracking.
func (l *LinearNet) SetEvalMode() { l.training = false }

// Features returns the feature width the network was built for.
func (l *LinearNet) Features() int { return l.features }

type linearInput struct {
	x    *mat.Dense // rows = samples*steps, missing entries zero-filled
	mask *mat.Dense // 1 where observed, 0 where missing
	rows int
}

// AdaptBatch flattens a batch into per-step rows with an observation mask.
func (l *LinearNet) AdaptBatch(b dataset.Batch) (Input, error) {
	if b.Data == nil {
		return nil, errors.New("model: empty batch")
	}
	if b.Data.Features != l.features {
		return nil, fmt.Errorf("model: batch has %d features, network expects %d", b.Data.Features, l.features)
	}
	rows := b.Data.Samples * b.Data.Steps
	x := mat.NewDense(rows, l.features, nil)
	mask := mat.NewDense(rows, l.features, nil)
	for r := 0; r < rows; r++ {
		for f := 0; f < l.features; f++ {
			v := b.Data.Values[r*l.features+f]
			if math.IsNaN(v) {
				continue
			}
			x.Set(r, f, v)
			mask.Set(r, f, 1)
		}
	}
	return &linearInput{x: x, mask: mask, rows: rows}, nil
}

// Forward computes the masked reconstruction loss for one adapted batch.
func (l *LinearNet) Forward(in Input) (Result, error) {
	li, ok := in.(*linearInput)
	if !ok {
		return Result{}, fmt.Errorf("model: unexpected input type %T", in)
	}
	xhat := l.reconstruct(li.x)

	var diff mat.Dense
	diff.Sub(xhat, li.x)
	diff.MulElem(&diff, li.mask)

	nObs := floats.Sum(li.mask.RawMatrix().Data)
	if nObs == 0 {
		res := Result{Loss: 0}
		if l.training {
			res.Backward = func() {}
		}
		return res, nil
	}
	d := diff.RawMatrix().Data
	loss := floats.Dot(d, d) / nObs

	res := Result{Loss: loss}
	if l.training {
		res.Backward = func() { l.accumulate(&diff, li, nObs) }
	}
	return res, nil
}

// reconstruct returns xhat = x*W^T + b, one row per time step.
func (l *LinearNet) reconstruct(x *mat.Dense) *mat.Dense {
	var xhat mat.Dense
	xhat.Mul(x, l.w.T())
	rows, _ := xhat.Dims()
	for r := 0; r < rows; r++ {
		floats.Add(xhat.RawRowView(r), l.bData)
	}
	return &xhat
}

func (l *LinearNet) accumulate(diff *mat.Dense, li *linearInput, nObs float64) {
	var dy mat.Dense
	dy.Scale(2/nObs, diff)

	var g mat.Dense
	g.Mul(dy.T(), li.x)
	l.gw.Add(l.gw, &g)

	for r := 0; r < li.rows; r++ {
		floats.Add(l.gbData, dy.RawRowView(r))
	}
}

// Parameters exposes weight and bias storage to the optimizer.
func (l *LinearNet) Parameters() []*Parameter {
	return []*Parameter{
		{Name: "weight", Value: l.wData, Grad: l.gwData},
		{Name: "bias", Value: l.bData, Grad: l.gbData},
	}
}

// StateSnapshot deep-copies the current parameter values.
func (l *LinearNet) StateSnapshot() Snapshot {
	snap := make(Snapshot, 2)
	for _, p := range l.Parameters() {
		values := make([]float64, len(p.Value))
		copy(values, p.Value)
		snap[p.Name] = values
	}
	return snap
}

// RestoreSnapshot loads previously captured parameter values.
func (l *LinearNet) RestoreSnapshot(snap Snapshot) error {
	for _, p := range l.Parameters() {
		values, ok := snap[p.Name]
		if !ok {
			return fmt.Errorf("model: snapshot missing %q", p.Name)
		}
		if len(values) != len(p.Value) {
			return fmt.Errorf("model: snapshot %q has %d values, want %d", p.Name, len(values), len(p.Value))
		}
		copy(p.Value, values)
	}
	return nil
}

// ImputeSeries fills every missing entry of s with the model reconstruction,
// leaving observed entries untouched.
func (l *LinearNet) ImputeSeries(s *dataset.Series) (*dataset.Series, error) {
	in, err := l.AdaptBatch(dataset.Batch{Data: s})
	if err != nil {
		return nil, err
	}
	li := in.(*linearInput)
	xhat := l.reconstruct(li.x)

	out := s.Clone()
	for r := 0; r < li.rows; r++ {
		for f := 0; f < l.features; f++ {
			if math.IsNaN(out.Values[r*l.features+f]) {
				out.Values[r*l.features+f] = xhat.At(r, f)
			}
		}
	}
	return out, nil
}
