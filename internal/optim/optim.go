// Package optim provides gradient-descent optimizers for network parameters.
package optim

import (
	"errors"
	"fmt"

	"seriesfill/internal/model"
)

// Optimizer applies one gradient update per Step over a fixed parameter set.
type Optimizer interface {
	// Step applies the accumulated gradients to the parameter values.
	Step()
	// ZeroGrad clears accumulated gradients before the next forward pass.
	ZeroGrad()
	// LR returns the configured learning rate.
	LR() float64
}

func validate(params []*model.Parameter, lr, weightDecay float64) error {
	if len(params) == 0 {
		return errors.New("optim: no parameters")
	}
	if lr <= 0 {
		return fmt.Errorf("optim: learning rate must be > 0 (got %v)", lr)
	}
	if weightDecay < 0 {
		return fmt.Errorf("optim: weight decay must be >= 0 (got %v)", weightDecay)
	}
	return nil
}

func zeroGrads(params []*model.Parameter) {
	for _, p := range params {
		for i := range p.Grad {
			p.Grad[i] = 0
		}
	}
}
