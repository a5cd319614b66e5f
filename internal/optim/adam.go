package optim

import (
	"math"

	"seriesfill/internal/model"
)

// AdamConfig configures an Adam optimizer. Zero-valued betas and epsilon fall
// back to the usual defaults.
type AdamConfig struct {
	LR          float64
	Beta1       float64
	Beta2       float64
	Eps         float64
	WeightDecay float64
}

// Adam implements adaptive moment estimation with L2 weight decay.
type Adam struct {
	params []*model.Parameter
	cfg    AdamConfig
	step   int
	m      [][]float64
	v      [][]float64
}

// NewAdam constructs an Adam optimizer over the given parameters.
func NewAdam(params []*model.Parameter, cfg AdamConfig) (*Adam, error) {
	if err := validate(params, cfg.LR, cfg.WeightDecay); err != nil {
		return nil, err
	}
	if cfg.Beta1 == 0 {
		cfg.Beta1 = 0.9
	}
	if cfg.Beta2 == 0 {
		cfg.Beta2 = 0.999
	}
	if cfg.Eps == 0 {
		cfg.Eps = 1e-8
	}
	a := &Adam{params: params, cfg: cfg}
	a.m = make([][]float64, len(params))
	a.v = make([][]float64, len(params))
	for i, p := range params {
		a.m[i] = make([]float64, len(p.Value))
		a.v[i] = make([]float64, len(p.Value))
	}
	return a, nil
}

// Step applies one bias-corrected Adam update.
func (a *Adam) Step() {
	a.step++
	c1 := 1 - math.Pow(a.cfg.Beta1, float64(a.step))
	c2 := 1 - math.Pow(a.cfg.Beta2, float64(a.step))
	for i, p := range a.params {
		m, v := a.m[i], a.v[i]
		for j := range p.Value {
			g := p.Grad[j] + a.cfg.WeightDecay*p.Value[j]
			m[j] = a.cfg.Beta1*m[j] + (1-a.cfg.Beta1)*g
			v[j] = a.cfg.Beta2*v[j] + (1-a.cfg.Beta2)*g*g
			mHat := m[j] / c1
			vHat := v[j] / c2
			p.Value[j] -= a.cfg.LR * mHat / (math.Sqrt(vHat) + a.cfg.Eps)
		}
	}
}

// ZeroGrad clears all accumulated gradients.
func (a *Adam) ZeroGrad() { zeroGrads(a.params) }

// LR returns the learning rate.
func (a *Adam) LR() float64 { return a.cfg.LR }
