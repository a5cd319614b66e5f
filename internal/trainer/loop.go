// Package trainer drives epoch-based optimization for trainable networks:
// mini-batch gradient steps, validation tracking, best-state checkpointing and
// patience-driven early stop.
package trainer

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"seriesfill/internal/dataset"
	"seriesfill/internal/metrics"
	"seriesfill/internal/model"
	"seriesfill/internal/optim"
)

// PatienceUnbounded disables patience-driven early stop.
const PatienceUnbounded = -1

// Config captures the loop's own knobs. Learning rate, batch size and weight
// decay live with the optimizer and loaders that the caller constructs.
type Config struct {
	Epochs   int
	Patience int
}

// Validate verifies the config is runnable.
func (c Config) Validate() error {
	if c.Epochs < 0 {
		return fmt.Errorf("trainer: epochs must be >= 0 (got %d)", c.Epochs)
	}
	if c.Patience < 0 && c.Patience != PatienceUnbounded {
		return fmt.Errorf("trainer: patience must be >= 0 or unbounded (got %d)", c.Patience)
	}
	return nil
}

// History records everything a single TrainModel call produced. A fresh one
// is created per call; nothing carries over between calls.
type History struct {
	TrainingLoss   []float64 // per-batch training losses, in order
	ValidationLoss []float64 // per-batch validation losses, in order
	BestLoss       float64   // lowest monitored epoch mean, +Inf if none
	BestState      model.Snapshot
	Epochs         int // epochs actually run
}

// Loop orchestrates a network and an optimizer across epochs.
type Loop struct {
	net model.Network
	opt optim.Optimizer
	cfg Config
	log *logrus.Logger
}

// New builds a training loop. A nil logger falls back to the logrus standard
// logger.
func New(net model.Network, opt optim.Optimizer, cfg Config, log *logrus.Logger) (*Loop, error) {
	if net == nil {
		return nil, errors.New("trainer: nil network")
	}
	if opt == nil {
		return nil, errors.New("trainer: nil optimizer")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Loop{net: net, opt: opt, cfg: cfg, log: log}, nil
}

// TrainModel runs up to cfg.Epochs passes over train, monitoring the mean
// validation loss when val is non-nil and the mean training loss otherwise.
// A strictly better monitored loss captures a fresh parameter snapshot; a
// non-improving epoch burns patience, and exhausted patience stops the loop
// early. Before returning successfully the best snapshot, if any, is restored
// into the live network.
//
// Errors from the network or loaders abort the call immediately; the History
// accumulated so far, including any captured snapshot, is returned alongside
// the error and no restore is performed.
func (l *Loop) TrainModel(train, val dataset.Loader) (*History, error) {
	if train == nil {
		return nil, errors.New("trainer: nil training loader")
	}
	hist := &History{BestLoss: math.Inf(1)}
	remaining := l.cfg.Patience
	var window metrics.EpochWindow

	for epoch := 0; epoch < l.cfg.Epochs; epoch++ {
		l.net.SetTrainMode()
		trainLosses, err := l.trainingPass(train, &window)
		hist.TrainingLoss = append(hist.TrainingLoss, trainLosses...)
		if err != nil {
			return hist, err
		}
		meanTrain := stat.Mean(trainLosses, nil)
		hist.Epochs = epoch + 1

		monitored := meanTrain
		if val != nil {
			valLosses, err := l.validationPass(val, &window)
			hist.ValidationLoss = append(hist.ValidationLoss, valLosses...)
			if err != nil {
				return hist, err
			}
			meanVal := stat.Mean(valLosses, nil)
			l.log.Infof("epoch %d: training loss %.4f, validating loss %.4f", epoch, meanTrain, meanVal)
			monitored = meanVal
		} else {
			l.log.Infof("epoch %d: training loss %.4f", epoch, meanTrain)
		}

		snap := window.Snapshot()
		l.log.WithFields(logrus.Fields{
			"epoch":           epoch,
			"batches":         snap.Batches,
			"samples_per_sec": snap.SamplesPerSec,
			"data_ms":         snap.AvgDataMS,
			"compute_ms":      snap.AvgComputeMS,
		}).Debug("epoch throughput")

		if monitored < hist.BestLoss {
			hist.BestLoss = monitored
			hist.BestState = l.net.StateSnapshot()
			continue
		}
		if l.cfg.Patience == PatienceUnbounded {
			continue
		}
		remaining--
		if remaining <= 0 {
			l.log.Info("exceeded the training patience, terminating the training procedure")
			break
		}
	}
	l.log.Info("finished training")

	if hist.BestState != nil {
		if err := l.net.RestoreSnapshot(hist.BestState); err != nil {
			return hist, fmt.Errorf("trainer: restore best state: %w", err)
		}
	}
	return hist, nil
}

// trainingPass consumes one full pass of the loader, applying an optimizer
// step per batch.
func (l *Loop) trainingPass(loader dataset.Loader, window *metrics.EpochWindow) ([]float64, error) {
	if err := loader.Reset(); err != nil {
		return nil, err
	}
	var losses []float64
	for {
		startData := time.Now()
		batch, err := loader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return losses, err
		}
		dataTime := time.Since(startData)

		startCompute := time.Now()
		in, err := l.net.AdaptBatch(batch)
		if err != nil {
			return losses, err
		}
		l.opt.ZeroGrad()
		res, err := l.net.Forward(in)
		if err != nil {
			return losses, err
		}
		if res.Backward == nil {
			return losses, errors.New("trainer: forward tracked no gradients in training mode")
		}
		res.Backward()
		l.opt.Step()

		window.Record(batchSamples(batch), dataTime, time.Since(startCompute), res.Loss)
		losses = append(losses, res.Loss)
	}
	if len(losses) == 0 {
		return nil, errors.New("trainer: training pass produced no batches")
	}
	return losses, nil
}

// validationPass runs a forward-only pass in evaluation mode. Training mode
// is restored even when the pass fails.
func (l *Loop) validationPass(loader dataset.Loader, window *metrics.EpochWindow) ([]float64, error) {
	l.net.SetEvalMode()
	defer l.net.SetTrainMode()

	if err := loader.Reset(); err != nil {
		return nil, err
	}
	var losses []float64
	for {
		startData := time.Now()
		batch, err := loader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return losses, err
		}
		dataTime := time.Since(startData)

		startCompute := time.Now()
		in, err := l.net.AdaptBatch(batch)
		if err != nil {
			return losses, err
		}
		res, err := l.net.Forward(in)
		if err != nil {
			return losses, err
		}

		window.Record(batchSamples(batch), dataTime, time.Since(startCompute), res.Loss)
		losses = append(losses, res.Loss)
	}
	if len(losses) == 0 {
		return nil, errors.New("trainer: validation pass produced no batches")
	}
	return losses, nil
}

func batchSamples(b dataset.Batch) int {
	if b.Data == nil {
		return 0
	}
	return b.Data.Samples
}
