package main

import (
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"seriesfill/internal/config"
	"seriesfill/internal/dataset"
	"seriesfill/internal/imputation"
	"seriesfill/internal/metrics"
	"seriesfill/internal/model"
)

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config")
	dataRoot := flag.String("data-root", "", "Directory holding shard-NNNNNN.tar files (synthetic data when empty)")
	steps := flag.Int("steps", 0, "Time steps per sample window")
	features := flag.Int("features", 0, "Features per time step")
	epochs := flag.Int("epochs", 0, "Epoch budget")
	batchSize := flag.Int("batch-size", 0, "Batch size")
	patience := flag.Int("patience", 0, "Non-improving epochs tolerated before early stop (-1 for unbounded)")
	lr := flag.Float64("lr", 0, "Learning rate")
	weightDecay := flag.Float64("weight-decay", 0, "L2 weight decay")
	device := flag.String("device", "", "Compute device (cpu|gpu)")
	seed := flag.Int64("seed", 0, "PRNG seed")
	valSplit := flag.Float64("val-split", 0, "Validation fraction")
	logLevel := flag.String("log-level", "", "Log level (debug|info|warn|error)")
	samples := flag.Int("samples", 256, "Synthetic sample count when no data root is given")
	missingRate := flag.Float64("missing-rate", 0.1, "Synthetic missing-entry fraction")
	method := flag.String("method", "neural", "Imputation method (neural|locf)")
	firstStep := flag.String("first-step", "zero", "LOCF strategy for leading gaps (zero|backward|mean|nan)")
	flag.Parse()

	log := logrus.New()

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	}
	cfg.ApplyOverrides(config.Overrides{
		DataRoot:     *dataRoot,
		Steps:        *steps,
		Features:     *features,
		Epochs:       *epochs,
		EpochsSet:    flag.CommandLine.Changed("epochs"),
		BatchSize:    *batchSize,
		Patience:     *patience,
		PatienceSet:  flag.CommandLine.Changed("patience"),
		LearningRate: *lr,
		WeightDecay:  *weightDecay,
		Device:       *device,
		Seed:         *seed,
		ValSplit:     *valSplit,
		LogLevel:     *logLevel,
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("invalid log level: %v", err)
	}
	log.SetLevel(level)

	dev, err := model.ParseDevice(cfg.Device)
	if err != nil {
		log.Fatalf("invalid device: %v", err)
	}

	if *method == "locf" {
		strat, err := imputation.ParseFirstStep(*firstStep)
		if err != nil {
			log.Fatalf("invalid first-step strategy: %v", err)
		}
		runLOCF(log, imputation.NewLOCF(strat), cfg, *samples, *missingRate)
		return
	}
	if *method != "neural" {
		log.Fatalf("unknown method %q", *method)
	}

	imp, err := imputation.NewNeural(imputation.NeuralConfig{
		LearningRate: cfg.LearningRate,
		Epochs:       cfg.Epochs,
		Patience:     cfg.Patience,
		BatchSize:    cfg.BatchSize,
		WeightDecay:  cfg.WeightDecay,
		Device:       dev,
		Seed:         cfg.Seed,
	}, imputation.WithLogger(log))
	if err != nil {
		log.Fatalf("invalid imputer configuration: %v", err)
	}

	if cfg.DataRoot != "" {
		runShards(log, imp, cfg)
		return
	}
	runSynthetic(log, imp, cfg, *samples, *missingRate)
}

// runShards trains from on-disk shards and reports how many entries the
// fitted model filled in.
func runShards(log *logrus.Logger, imp *imputation.NeuralImputer, cfg *config.Config) {
	loader, err := dataset.NewShardLoader(cfg.DataRoot, cfg.Steps, cfg.Features, cfg.BatchSize)
	if err != nil {
		log.Fatalf("open shards: %v", err)
	}
	defer loader.Close()

	if err := imp.FitLoaders(loader, nil, cfg.Features); err != nil {
		log.Fatalf("training failed: %v", err)
	}

	series, err := dataset.Collect(loader)
	if err != nil {
		log.Fatalf("reload shards: %v", err)
	}
	imputed, err := imp.Impute(series)
	if err != nil {
		log.Fatalf("imputation failed: %v", err)
	}
	log.WithFields(logrus.Fields{
		"samples": series.Samples,
		"filled":  series.MissingCount() - imputed.MissingCount(),
	}).Info("imputation complete")
}

// runSynthetic generates a seeded sinusoid dataset, holds entries out, and
// reports the masked MAE of the fitted model against the ground truth.
func runSynthetic(log *logrus.Logger, imp *imputation.NeuralImputer, cfg *config.Config, samples int, missingRate float64) {
	if samples <= 1 {
		log.Fatalf("samples must be > 1 (got %d)", samples)
	}
	if missingRate < 0 || missingRate >= 1 {
		log.Fatalf("missing-rate must be in [0,1) (got %v)", missingRate)
	}
	truth := syntheticSeries(samples, cfg.Steps, cfg.Features, cfg.Seed)
	observed, mask := holdOut(truth, missingRate, cfg.Seed+1)

	train, val, err := dataset.SplitSeries(observed, cfg.ValSplit, cfg.Seed)
	if err != nil {
		log.Fatalf("split dataset: %v", err)
	}
	if err := imp.Fit(train, val); err != nil {
		log.Fatalf("training failed: %v", err)
	}

	imputed, err := imp.Impute(observed)
	if err != nil {
		log.Fatalf("imputation failed: %v", err)
	}
	mae, err := metrics.MaskedMAE(imputed, truth, mask)
	if err != nil {
		log.Fatalf("score imputation: %v", err)
	}
	hist := imp.History()
	log.WithFields(logrus.Fields{
		"mae":       mae,
		"best_loss": hist.BestLoss,
		"epochs":    hist.Epochs,
	}).Info("imputation complete")
}

// runLOCF applies the heuristic imputer to shard data or the synthetic set.
func runLOCF(log *logrus.Logger, imp *imputation.LOCF, cfg *config.Config, samples int, missingRate float64) {
	var observed *dataset.Series
	var truth, mask *dataset.Series
	if cfg.DataRoot != "" {
		loader, err := dataset.NewShardLoader(cfg.DataRoot, cfg.Steps, cfg.Features, cfg.BatchSize)
		if err != nil {
			log.Fatalf("open shards: %v", err)
		}
		defer loader.Close()
		observed, err = dataset.Collect(loader)
		if err != nil {
			log.Fatalf("read shards: %v", err)
		}
	} else {
		truth = syntheticSeries(samples, cfg.Steps, cfg.Features, cfg.Seed)
		observed, mask = holdOut(truth, missingRate, cfg.Seed+1)
	}

	if err := imp.Fit(observed, nil); err != nil {
		log.Fatalf("fit failed: %v", err)
	}
	imputed, err := imp.Impute(observed)
	if err != nil {
		log.Fatalf("imputation failed: %v", err)
	}
	fields := logrus.Fields{
		"samples": observed.Samples,
		"filled":  observed.MissingCount() - imputed.MissingCount(),
	}
	if truth != nil {
		mae, err := metrics.MaskedMAE(imputed, truth, mask)
		if err != nil {
			log.Fatalf("score imputation: %v", err)
		}
		fields["mae"] = mae
	}
	log.WithFields(fields).Info("imputation complete")
}

func syntheticSeries(samples, steps, features int, seed int64) *dataset.Series {
	rng := rand.New(rand.NewSource(seed))
	s, err := dataset.NewSeries(samples, steps, features)
	if err != nil {
		panic(err)
	}
	for i := 0; i < samples; i++ {
		phase := rng.Float64() * 2 * math.Pi
		for t := 0; t < steps; t++ {
			for f := 0; f < features; f++ {
				v := math.Sin(phase+float64(t)/float64(steps)*2*math.Pi) * float64(f+1)
				s.Set(i, t, f, v+rng.NormFloat64()*0.05)
			}
		}
	}
	return s
}

// holdOut blanks a fraction of entries to NaN and returns the observed copy
// plus an indicating mask of the held-out positions.
func holdOut(truth *dataset.Series, rate float64, seed int64) (*dataset.Series, *dataset.Series) {
	rng := rand.New(rand.NewSource(seed))
	observed := truth.Clone()
	mask := &dataset.Series{
		Samples:  truth.Samples,
		Steps:    truth.Steps,
		Features: truth.Features,
		Values:   make([]float64, len(truth.Values)),
	}
	for i := range observed.Values {
		if rng.Float64() < rate {
			observed.Values[i] = math.NaN()
			mask.Values[i] = 1
		}
	}
	return observed, mask
}
