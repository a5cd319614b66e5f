package optim

import (
	"gonum.org/v1/gonum/floats"

	"seriesfill/internal/model"
)

// SGD is plain stochastic gradient descent with L2 weight decay.
type SGD struct {
	params      []*model.Parameter
	lr          float64
	weightDecay float64
}

// NewSGD constructs an SGD optimizer over the given parameters.
func NewSGD(params []*model.Parameter, lr, weightDecay float64) (*SGD, error) {
	if err := validate(params, lr, weightDecay); err != nil {
		return nil, err
	}
	return &SGD{params: params, lr: lr, weightDecay: weightDecay}, nil
}

// Step applies value -= lr * (grad + weightDecay*value) to every parameter.
func (s *SGD) Step() {
	for _, p := range s.params {
		if s.weightDecay != 0 {
			floats.AddScaled(p.Grad, s.weightDecay, p.Value)
		}
		floats.AddScaled(p.Value, -s.lr, p.Grad)
	}
}

// ZeroGrad clears all accumulated gradients.
func (s *SGD) ZeroGrad() { zeroGrads(s.params) }

// LR returns the learning rate.
func (s *SGD) LR() float64 { return s.lr }
