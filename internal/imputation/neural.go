package imputation

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"seriesfill/internal/dataset"
	"seriesfill/internal/model"
	"seriesfill/internal/optim"
	"seriesfill/internal/trainer"
)

// NeuralConfig is the construction-time configuration of a NeuralImputer.
// It is immutable after NewNeural.
type NeuralConfig struct {
	LearningRate float64
	Epochs       int
	Patience     int // trainer.PatienceUnbounded disables early stop
	BatchSize    int
	WeightDecay  float64
	Device       model.Device
	Seed         int64
}

func (c NeuralConfig) validate() error {
	if c.LearningRate <= 0 {
		return fmt.Errorf("imputation: learning rate must be > 0 (got %v)", c.LearningRate)
	}
	if c.Epochs < 0 {
		return fmt.Errorf("imputation: epochs must be >= 0 (got %d)", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("imputation: batch size must be > 0 (got %d)", c.BatchSize)
	}
	if c.WeightDecay < 0 {
		return fmt.Errorf("imputation: weight decay must be >= 0 (got %v)", c.WeightDecay)
	}
	if c.Patience < 0 && c.Patience != trainer.PatienceUnbounded {
		return fmt.Errorf("imputation: patience must be >= 0 or unbounded (got %d)", c.Patience)
	}
	return nil
}

// NeuralOption configures a NeuralImputer.
type NeuralOption func(*NeuralImputer)

// WithLogger replaces the default logrus standard logger.
func WithLogger(log *logrus.Logger) NeuralOption {
	return func(n *NeuralImputer) { n.log = log }
}

// NeuralImputer trains a LinearNet with the epoch loop and imputes from the
// best checkpointed state. It stays unfitted until a training epoch improves
// on +Inf, i.e. until at least one epoch ran to completion.
type NeuralImputer struct {
	cfg NeuralConfig
	log *logrus.Logger

	net    *model.LinearNet
	hist   *trainer.History
	fitted bool
}

// NewNeural validates cfg and constructs an unfitted imputer. Invalid
// configuration is rejected here, never deferred to training time.
func NewNeural(cfg NeuralConfig, opts ...NeuralOption) (*NeuralImputer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	n := &NeuralImputer{cfg: cfg, log: logrus.StandardLogger()}
	for _, o := range opts {
		o(n)
	}
	return n, nil
}

// Fit trains on train, monitoring val when present. Each call is a fresh
// training session: best-loss tracking restarts at +Inf and a new optimizer
// is constructed, though learned weights persist as the starting point.
func (n *NeuralImputer) Fit(train, val *dataset.Series) error {
	if train == nil {
		return errors.New("imputation: nil training series")
	}
	if val != nil && (val.Steps != train.Steps || val.Features != train.Features) {
		return fmt.Errorf("imputation: validation shape %dx%d does not match training %dx%d",
			val.Steps, val.Features, train.Steps, train.Features)
	}
	if n.net == nil {
		net, err := model.NewLinearNet(train.Features, n.cfg.Seed)
		if err != nil {
			return err
		}
		n.net = net
	} else if n.net.Features() != train.Features {
		return fmt.Errorf("imputation: series has %d features, model was built for %d",
			train.Features, n.net.Features())
	}

	trainLoader, err := dataset.NewSliceLoader(train, n.cfg.BatchSize, dataset.WithShuffle(n.cfg.Seed))
	if err != nil {
		return err
	}
	var valLoader dataset.Loader
	if val != nil {
		vl, err := dataset.NewSliceLoader(val, n.cfg.BatchSize)
		if err != nil {
			return err
		}
		valLoader = vl
	}
	return n.fitLoaders(trainLoader, valLoader)
}

// FitLoaders trains directly from batch loaders, for datasets streamed from
// disk rather than held in memory. features is the window feature width the
// loaders produce.
func (n *NeuralImputer) FitLoaders(train, val dataset.Loader, features int) error {
	if train == nil {
		return errors.New("imputation: nil training loader")
	}
	if n.net == nil {
		net, err := model.NewLinearNet(features, n.cfg.Seed)
		if err != nil {
			return err
		}
		n.net = net
	} else if n.net.Features() != features {
		return fmt.Errorf("imputation: loader has %d features, model was built for %d",
			features, n.net.Features())
	}
	return n.fitLoaders(train, val)
}

func (n *NeuralImputer) fitLoaders(trainLoader, valLoader dataset.Loader) error {
	opt, err := optim.NewAdam(n.net.Parameters(), optim.AdamConfig{
		LR:          n.cfg.LearningRate,
		WeightDecay: n.cfg.WeightDecay,
	})
	if err != nil {
		return err
	}
	loop, err := trainer.New(n.net, opt, trainer.Config{Epochs: n.cfg.Epochs, Patience: n.cfg.Patience}, n.log)
	if err != nil {
		return err
	}

	n.log.WithFields(logrus.Fields{
		"samples":  trainLoader.Len(),
		"features": n.net.Features(),
		"device":   n.cfg.Device.String(),
		"lr":       n.cfg.LearningRate,
	}).Info("fitting neural imputer")

	hist, err := loop.TrainModel(trainLoader, valLoader)
	n.hist = hist
	n.fitted = hist != nil && hist.BestState != nil
	if err != nil {
		return fmt.Errorf("imputation: fit aborted: %w", err)
	}
	return nil
}

// Impute fills every missing entry of x using the fitted model.
func (n *NeuralImputer) Impute(x *dataset.Series) (*dataset.Series, error) {
	if !n.fitted {
		return nil, ErrNotFitted
	}
	if x == nil {
		return nil, errors.New("imputation: nil series")
	}
	return n.net.ImputeSeries(x)
}

// History returns the record of the most recent Fit call, nil before the
// first. On an aborted fit it holds the partial progress, including any best
// snapshot captured before the failure.
func (n *NeuralImputer) History() *trainer.History { return n.hist }
