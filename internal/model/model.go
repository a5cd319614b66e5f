package model

import (
	"fmt"
	"strings"

	"seriesfill/internal/dataset"
)

// Device identifies the execution target for a network. It is carried
// opaquely through configuration; only the CPU backend is implemented.
type Device int

const (
	// CPU executes on the host processor.
	CPU Device = iota
	// GPU is accepted in configuration but currently falls back to CPU math.
	GPU
)

// ParseDevice maps a config string to a Device.
func ParseDevice(s string) (Device, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cpu":
		return CPU, nil
	case "gpu", "cuda":
		return GPU, nil
	default:
		return CPU, fmt.Errorf("model: unknown device %q", s)
	}
}

func (d Device) String() string {
	if d == GPU {
		return "gpu"
	}
	return "cpu"
}

// Parameter is the optimizer-visible view of one learnable tensor: a flat
// value slice and the gradient accumulated for it. Both alias the network's
// live storage.
type Parameter struct {
	Name  string
	Value []float64
	Grad  []float64
}

// Snapshot is a captured copy of all parameter values keyed by name. It never
// aliases live parameter storage.
type Snapshot map[string][]float64

// Input is the model-specific form of a raw batch, produced by AdaptBatch.
type Input interface{}

// Result carries the scalar loss of one forward pass. Backward propagates
// gradients for that pass into the parameters; it is nil when the network is
// in evaluation mode and gradients are not tracked.
type Result struct {
	Loss     float64
	Backward func()
}

// Network is the trainable-model capability the training loop consumes.
type Network interface {
	SetTrainMode()
	SetEvalMode()
	// AdaptBatch derives the model input from a raw batch. The batch layout
	// is owned by the concrete network, not by the loop.
	AdaptBatch(b dataset.Batch) (Input, error)
	Forward(in Input) (Result, error)
	Parameters() []*Parameter
	StateSnapshot() Snapshot
	RestoreSnapshot(snap Snapshot) error
}
