// Package config loads evaluation-pipeline settings from JSON. All fields
// are pointers so a partial file only overrides what it names; everything
// else falls back to the documented defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ferroscan/segeval/internal/crossval"
	"github.com/ferroscan/segeval/internal/metrics"
	"github.com/ferroscan/segeval/internal/stats"
)

// EvalConfig is the root configuration for an evaluation run. The JSON
// schema mirrors the struct field tags; omitted fields keep their defaults.
type EvalConfig struct {
	// Mask construction
	Threshold        *float64 `json:"threshold,omitempty"`          // numeric-to-categorical cut, default 0.5
	EmptyUnionPolicy *string  `json:"empty_union_policy,omitempty"` // "nan" or "perfect"

	// Cross-validation
	Folds        *int    `json:"folds,omitempty"`
	Seed         *int64  `json:"seed,omitempty"`
	FoldStrategy *string `json:"fold_strategy,omitempty"` // "random" or "stratified"
	Parallel     *int    `json:"parallel,omitempty"`
	FoldTimeout  *string `json:"fold_timeout,omitempty"` // duration string like "30m"

	// Statistics
	PrimaryMetric    *string  `json:"primary_metric,omitempty"`
	Alpha            *float64 `json:"alpha,omitempty"`
	ConfidenceLevel  *float64 `json:"confidence_level,omitempty"`
	BootstrapSamples *int     `json:"bootstrap_samples,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }

// DefaultEvalConfig returns a config with every field set to its default.
func DefaultEvalConfig() *EvalConfig {
	return &EvalConfig{
		Threshold:        ptrFloat64(0.5),
		EmptyUnionPolicy: ptrString("nan"),
		Folds:            ptrInt(5),
		Seed:             ptrInt64(0),
		FoldStrategy:     ptrString(string(crossval.StrategyRandom)),
		Parallel:         ptrInt(1),
		FoldTimeout:      ptrString(""),
		PrimaryMetric:    ptrString(crossval.DefaultPrimaryMetric),
		Alpha:            ptrFloat64(stats.DefaultAlpha),
		ConfidenceLevel:  ptrFloat64(0.95),
		BootstrapSamples: ptrInt(stats.DefaultBootstrapSamples),
	}
}

// LoadEvalConfig loads an EvalConfig from a JSON file. Fields omitted from
// the file retain their default values, so partial configs are safe.
func LoadEvalConfig(path string) (*EvalConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultEvalConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that every set field holds a usable value.
func (c *EvalConfig) Validate() error {
	if c.Threshold != nil && (*c.Threshold < 0 || *c.Threshold >= 1) {
		return fmt.Errorf("threshold must be in [0,1), got %f", *c.Threshold)
	}
	if c.EmptyUnionPolicy != nil {
		switch *c.EmptyUnionPolicy {
		case "nan", "perfect":
		default:
			return fmt.Errorf("empty_union_policy must be \"nan\" or \"perfect\", got %q", *c.EmptyUnionPolicy)
		}
	}
	if c.Folds != nil && *c.Folds < 2 {
		return fmt.Errorf("folds must be at least 2, got %d", *c.Folds)
	}
	if c.FoldStrategy != nil {
		switch crossval.Strategy(*c.FoldStrategy) {
		case crossval.StrategyRandom, crossval.StrategyStratified:
		default:
			return fmt.Errorf("unknown fold_strategy %q", *c.FoldStrategy)
		}
	}
	if c.Parallel != nil && *c.Parallel < 1 {
		return fmt.Errorf("parallel must be at least 1, got %d", *c.Parallel)
	}
	if c.FoldTimeout != nil && *c.FoldTimeout != "" {
		if _, err := time.ParseDuration(*c.FoldTimeout); err != nil {
			return fmt.Errorf("invalid fold_timeout %q: %w", *c.FoldTimeout, err)
		}
	}
	if c.PrimaryMetric != nil {
		if _, ok := (metrics.Result{}).Value(*c.PrimaryMetric); !ok {
			return fmt.Errorf("unknown primary_metric %q", *c.PrimaryMetric)
		}
	}
	if c.Alpha != nil && (*c.Alpha <= 0 || *c.Alpha >= 1) {
		return fmt.Errorf("alpha must be in (0,1), got %f", *c.Alpha)
	}
	if c.ConfidenceLevel != nil && (*c.ConfidenceLevel <= 0 || *c.ConfidenceLevel >= 1) {
		return fmt.Errorf("confidence_level must be in (0,1), got %f", *c.ConfidenceLevel)
	}
	if c.BootstrapSamples != nil && *c.BootstrapSamples < 1 {
		return fmt.Errorf("bootstrap_samples must be positive, got %d", *c.BootstrapSamples)
	}
	return nil
}

// GetThreshold returns the mask threshold, defaulting to 0.5.
func (c *EvalConfig) GetThreshold() float64 {
	if c.Threshold != nil {
		return *c.Threshold
	}
	return 0.5
}

// Calculator builds a metrics calculator honouring the empty-union policy.
func (c *EvalConfig) Calculator() *metrics.Calculator {
	calc := metrics.NewCalculator()
	if c.EmptyUnionPolicy != nil && *c.EmptyUnionPolicy == "perfect" {
		calc.EmptyUnion = metrics.EmptyUnionPerfect
	}
	return calc
}

// RunOptions builds cross-validation run options from the config. Stratified
// runs still need FoldOptions.Labels supplied by the caller.
func (c *EvalConfig) RunOptions() (crossval.RunOptions, error) {
	opts := crossval.RunOptions{}
	if c.Seed != nil {
		opts.Seed = *c.Seed
	}
	if c.FoldStrategy != nil {
		opts.Strategy = crossval.Strategy(*c.FoldStrategy)
	}
	if c.Parallel != nil {
		opts.Parallel = *c.Parallel
	}
	if c.FoldTimeout != nil && *c.FoldTimeout != "" {
		d, err := time.ParseDuration(*c.FoldTimeout)
		if err != nil {
			return crossval.RunOptions{}, fmt.Errorf("invalid fold_timeout %q: %w", *c.FoldTimeout, err)
		}
		opts.FoldTimeout = d
	}
	return opts, nil
}

// CompareOptions builds model-comparison options from the config.
func (c *EvalConfig) CompareOptions() (crossval.CompareOptions, error) {
	runOpts, err := c.RunOptions()
	if err != nil {
		return crossval.CompareOptions{}, err
	}
	opts := crossval.CompareOptions{RunOptions: runOpts}
	if c.PrimaryMetric != nil {
		opts.PrimaryMetric = *c.PrimaryMetric
	}
	if c.Alpha != nil {
		opts.Alpha = *c.Alpha
	}
	return opts, nil
}

// GetFolds returns the fold count, defaulting to 5.
func (c *EvalConfig) GetFolds() int {
	if c.Folds != nil {
		return *c.Folds
	}
	return 5
}

// CIOptions builds confidence-interval options for the named method.
func (c *EvalConfig) CIOptions(method stats.CIMethod) stats.CIOptions {
	opts := stats.CIOptions{Method: method}
	if c.ConfidenceLevel != nil {
		opts.Level = *c.ConfidenceLevel
	}
	if c.BootstrapSamples != nil {
		opts.BootstrapSamples = *c.BootstrapSamples
	}
	if c.Seed != nil {
		opts.Seed = *c.Seed
	}
	return opts
}
