// Package config loads and validates the runtime configuration for a
// training run, merging a YAML file with CLI overrides.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"seriesfill/internal/trainer"
)

// Config captures the runtime knobs for an imputation training run.
type Config struct {
	DataRoot     string  `yaml:"data_root"`
	Steps        int     `yaml:"steps"`
	Features     int     `yaml:"features"`
	Epochs       int     `yaml:"epochs"`
	BatchSize    int     `yaml:"batch_size"`
	Patience     int     `yaml:"patience"`
	LearningRate float64 `yaml:"learning_rate"`
	WeightDecay  float64 `yaml:"weight_decay"`
	Device       string  `yaml:"device"`
	Seed         int64   `yaml:"seed"`
	ValSplit     float64 `yaml:"val_split"`
	LogLevel     string  `yaml:"log_level"`
}

// Default returns the baseline configuration used when a field is absent.
func Default() *Config {
	return &Config{
		Steps:        24,
		Features:     8,
		Epochs:       50,
		BatchSize:    32,
		Patience:     5,
		LearningRate: 1e-3,
		WeightDecay:  0,
		Device:       "cpu",
		Seed:         42,
		ValSplit:     0.2,
		LogLevel:     "info",
	}
}

// Overrides captures CLI supplied values; zero values leave the config field
// untouched.
type Overrides struct {
	DataRoot     string
	Steps        int
	Features     int
	Epochs       int
	BatchSize    int
	Patience     int
	LearningRate float64
	WeightDecay  float64
	Device       string
	Seed         int64
	ValSplit     float64
	LogLevel     string
	PatienceSet  bool
	EpochsSet    bool
}

// Load reads and validates a Config from YAML, starting from defaults.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverrides updates cfg using any supplied override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.DataRoot != "" {
		c.DataRoot = o.DataRoot
	}
	if o.Steps > 0 {
		c.Steps = o.Steps
	}
	if o.Features > 0 {
		c.Features = o.Features
	}
	if o.EpochsSet {
		c.Epochs = o.Epochs
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.PatienceSet {
		c.Patience = o.Patience
	}
	if o.LearningRate > 0 {
		c.LearningRate = o.LearningRate
	}
	if o.WeightDecay > 0 {
		c.WeightDecay = o.WeightDecay
	}
	if o.Device != "" {
		c.Device = o.Device
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.ValSplit > 0 {
		c.ValSplit = o.ValSplit
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Steps <= 0 {
		return fmt.Errorf("steps must be > 0 (got %d)", c.Steps)
	}
	if c.Features <= 0 {
		return fmt.Errorf("features must be > 0 (got %d)", c.Features)
	}
	if c.Epochs < 0 {
		return fmt.Errorf("epochs must be >= 0 (got %d)", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", c.BatchSize)
	}
	if c.Patience < 0 && c.Patience != trainer.PatienceUnbounded {
		return fmt.Errorf("patience must be >= 0 or %d for unbounded (got %d)", trainer.PatienceUnbounded, c.Patience)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be > 0 (got %v)", c.LearningRate)
	}
	if c.WeightDecay < 0 {
		return fmt.Errorf("weight_decay must be >= 0 (got %v)", c.WeightDecay)
	}
	if c.ValSplit < 0 || c.ValSplit >= 1 {
		return fmt.Errorf("val_split must be in [0,1) (got %v)", c.ValSplit)
	}
	return nil
}
